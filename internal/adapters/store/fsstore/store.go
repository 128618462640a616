package fsstore

import (
	"context"
	_ "crypto/sha256"
	stderrs "errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/opencontainers/go-digest"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/core/ports"
	"github.com/olusolaa/sandbox-differ/internal/errors"
)

const (
	treeDir          = "tree"
	fingerprintsFile = "fingerprints.json"
	metadataFile     = "metadata.json"
	stagingDir       = ".staging"

	recordVersion = 1
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

type fingerprintRecord struct {
	Version   int                      `json:"version"`
	Algorithm digest.Algorithm         `json:"algorithm"`
	Files     map[string]digest.Digest `json:"files"`
}

type metadataRecord struct {
	Version     int               `json:"version"`
	Target      domain.Target     `json:"target"`
	CreatedAt   time.Time         `json:"created_at"`
	FileCount   int               `json:"file_count"`
	Environment map[string]string `json:"environment"`
}

// Store keeps one namespace per target below the root of fs:
//
//	<target>/tree/...           raw copy of the captured tree
//	<target>/fingerprints.json  path -> digest
//	<target>/metadata.json      creation time and environment facts
//
// Writes go to a staging namespace first and are moved into place only once
// complete, so a failed save never leaves a partial baseline behind.
type Store struct {
	fs     billy.Filesystem
	logger ports.Logger
}

var _ ports.BaselineStore = (*Store)(nil)

func New(fs billy.Filesystem, logger ports.Logger) *Store {
	return &Store{
		fs:     fs,
		logger: logger.WithFields(map[string]any{"component": "baseline_store"}),
	}
}

func (s *Store) Save(ctx context.Context, req ports.SaveRequest) (*domain.Baseline, error) {
	if err := req.Target.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "cannot save baseline")
	}
	if req.Tree == nil {
		return nil, errors.New(errors.CodeInternal, "baseline tree cannot be nil")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	exists, err := s.Exists(ctx, req.Target)
	if err != nil {
		return nil, err
	}
	if exists && !req.Overwrite {
		return nil, errors.NewUserFacing(errors.CodeBaselineConflict,
			fmt.Sprintf("a baseline for %s already exists", req.Target),
			"Confirm the overwrite (--force) or remove the existing baseline first.")
	}

	createdAt := req.Metadata.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	staging := path.Join(stagingDir, fmt.Sprintf("%s-%s", req.Target, uuid.NewString()))
	log := s.logger.WithFields(map[string]any{"target": req.Target.String()})
	log.Debugf(ctx, "Staging baseline in %s", staging)

	committed := false
	defer func() {
		if committed {
			return
		}
		if rmErr := util.RemoveAll(s.fs, staging); rmErr != nil {
			log.Warnf(ctx, "Failed to clean up staging area %s: %v", staging, rmErr)
		}
	}()

	if err := s.copyTree(ctx, req.Tree, path.Join(staging, treeDir), req.Fingerprints); err != nil {
		return nil, err
	}

	fingerprints := fingerprintRecord{
		Version:   recordVersion,
		Algorithm: digest.Canonical,
		Files:     req.Fingerprints,
	}
	if fingerprints.Files == nil {
		fingerprints.Files = map[string]digest.Digest{}
	}
	if err := s.writeJSON(path.Join(staging, fingerprintsFile), fingerprints); err != nil {
		return nil, err
	}

	meta := metadataRecord{
		Version:     recordVersion,
		Target:      req.Target,
		CreatedAt:   createdAt,
		FileCount:   len(req.Fingerprints),
		Environment: req.Metadata.Environment,
	}
	// Written last: its presence marks a namespace as a complete baseline.
	if err := s.writeJSON(path.Join(staging, metadataFile), meta); err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := s.commit(ctx, log, staging, req.Target, exists); err != nil {
		return nil, err
	}
	committed = true
	log.Infof(ctx, "Saved baseline with %d files", len(req.Fingerprints))

	return s.Load(ctx, req.Target)
}

// commit moves the staged namespace into place. An existing baseline is
// parked under the staging area until the new one is in place, and restored
// if the move fails.
func (s *Store) commit(ctx context.Context, log ports.Logger, staging string, target domain.Target, replace bool) error {
	ns := target.String()
	var parked string
	if replace {
		parked = path.Join(stagingDir, fmt.Sprintf("%s-old-%s", target, uuid.NewString()))
		if err := s.fs.Rename(ns, parked); err != nil {
			return errors.Wrap(err, errors.CodeIO, "moving previous baseline aside")
		}
	}

	if err := s.fs.Rename(staging, ns); err != nil {
		if parked != "" {
			if restoreErr := s.fs.Rename(parked, ns); restoreErr != nil {
				log.Errorf(ctx, restoreErr, "Failed to restore previous baseline from %s", parked)
			}
		}
		return errors.Wrap(err, errors.CodeIO, "moving staged baseline into place")
	}

	if parked != "" {
		if err := util.RemoveAll(s.fs, parked); err != nil {
			log.Warnf(ctx, "Failed to delete previous baseline at %s: %v", parked, err)
		}
	}
	return nil
}

// copyTree copies exactly the fingerprinted files and verifies each copy
// against its digest, so the stored tree always matches the stored set.
func (s *Store) copyTree(ctx context.Context, src billy.Filesystem, dst string, set domain.FingerprintSet) error {
	if err := s.fs.MkdirAll(dst, 0o755); err != nil {
		return errors.Wrap(err, errors.CodeIO, "creating baseline tree directory")
	}

	for _, p := range set.Paths() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		expected := set[p]
		if err := expected.Validate(); err != nil {
			return errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("invalid digest for %q", p))
		}
		if err := s.copyFile(src, p, path.Join(dst, p), expected); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) copyFile(src billy.Filesystem, from, to string, expected digest.Digest) error {
	in, err := src.Open(from)
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, fmt.Sprintf("opening %q for baseline copy", from))
	}
	defer in.Close()

	out, err := s.fs.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, fmt.Sprintf("creating %q", to))
	}

	verifier := expected.Verifier()
	_, copyErr := io.Copy(io.MultiWriter(out, verifier), in)
	closeErr := out.Close()
	if copyErr != nil {
		return errors.Wrap(copyErr, errors.CodeIO, fmt.Sprintf("copying %q", from))
	}
	if closeErr != nil {
		return errors.Wrap(closeErr, errors.CodeIO, fmt.Sprintf("closing %q", to))
	}
	if !verifier.Verified() {
		return errors.New(errors.CodeIO, fmt.Sprintf("%q changed after it was fingerprinted", from))
	}
	return nil
}

func (s *Store) Load(ctx context.Context, target domain.Target) (*domain.Baseline, error) {
	if err := target.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "cannot load baseline")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	meta, err := s.readMetadata(target)
	if err != nil {
		if stderrs.Is(err, os.ErrNotExist) {
			return nil, errors.New(errors.CodeBaselineNotFound, fmt.Sprintf("no baseline stored for %s", target))
		}
		return nil, err
	}

	var fingerprints fingerprintRecord
	if err := s.readJSON(path.Join(target.String(), fingerprintsFile), &fingerprints); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, fmt.Sprintf("reading fingerprints of %s", target))
	}
	for p, d := range fingerprints.Files {
		if err := d.Validate(); err != nil {
			return nil, errors.Wrap(err, errors.CodeIO, fmt.Sprintf("corrupt fingerprint for %q", p))
		}
	}

	tree, err := s.fs.Chroot(path.Join(target.String(), treeDir))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "opening baseline tree")
	}

	return &domain.Baseline{
		Target: target,
		Metadata: domain.Metadata{
			CreatedAt:   meta.CreatedAt,
			Environment: meta.Environment,
		},
		Fingerprints: domain.FingerprintSet(fingerprints.Files),
		Tree:         tree,
	}, nil
}

func (s *Store) Exists(ctx context.Context, target domain.Target) (bool, error) {
	if err := target.Validate(); err != nil {
		return false, errors.Wrap(err, errors.CodeValidation, "invalid target")
	}
	_, err := s.fs.Stat(path.Join(target.String(), metadataFile))
	switch {
	case err == nil:
		return true, nil
	case stderrs.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, errors.Wrap(err, errors.CodeIO, fmt.Sprintf("checking baseline for %s", target))
	}
}

// List yields stored baselines sorted by target. Namespaces are read one at a
// time as the caller iterates. A missing store yields nothing.
func (s *Store) List(ctx context.Context) iter.Seq2[domain.BaselineSummary, error] {
	return func(yield func(domain.BaselineSummary, error) bool) {
		entries, err := s.fs.ReadDir(".")
		if err != nil {
			if !stderrs.Is(err, os.ErrNotExist) {
				yield(domain.BaselineSummary{}, errors.Wrap(err, errors.CodeIO, "listing baseline store"))
			}
			return
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			if ctx.Err() != nil {
				yield(domain.BaselineSummary{}, ctx.Err())
				return
			}
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			target := domain.Target(entry.Name())
			meta, err := s.readMetadata(target)
			if stderrs.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				if !yield(domain.BaselineSummary{Target: target}, err) {
					return
				}
				continue
			}
			summary := domain.BaselineSummary{
				Target: target,
				Metadata: domain.Metadata{
					CreatedAt:   meta.CreatedAt,
					Environment: meta.Environment,
				},
			}
			if !yield(summary, nil) {
				return
			}
		}
	}
}

// Remove deletes the target's namespace. Removing a missing baseline succeeds.
func (s *Store) Remove(ctx context.Context, target domain.Target) error {
	if err := target.Validate(); err != nil {
		return errors.Wrap(err, errors.CodeValidation, "cannot remove baseline")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := util.RemoveAll(s.fs, target.String()); err != nil {
		return errors.Wrap(err, errors.CodeIO, fmt.Sprintf("removing baseline for %s", target))
	}
	s.logger.Infof(ctx, "Removed baseline for %s", target)
	return nil
}

// readMetadata returns an error matching os.ErrNotExist when the namespace
// holds no complete baseline.
func (s *Store) readMetadata(target domain.Target) (*metadataRecord, error) {
	var meta metadataRecord
	if err := s.readJSON(path.Join(target.String(), metadataFile), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := util.ReadFile(s.fs, name)
	if err != nil {
		if stderrs.Is(err, os.ErrNotExist) {
			return err
		}
		return errors.Wrap(err, errors.CodeIO, fmt.Sprintf("reading %s", name))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, errors.CodeIO, fmt.Sprintf("decoding %s", name))
	}
	return nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("encoding %s", name))
	}
	if err := util.WriteFile(s.fs, name, data, 0o644); err != nil {
		return errors.Wrap(err, errors.CodeIO, fmt.Sprintf("writing %s", name))
	}
	return nil
}
