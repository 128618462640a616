package reporting

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/errors"
)

const stampLayout = "20060102T150405Z"

// ArtifactName is the extension-less file name shared by every sink, e.g.
// 20261019T101500Z_1f0c2a9b. Names sort by creation time.
func ArtifactName(r *domain.ComparisonReport) string {
	id := strings.ReplaceAll(r.ID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s", r.CreatedAt.UTC().Format(stampLayout), id)
}

// ArtifactPath is the slash-separated location of a report relative to the
// report root: one directory per target.
func ArtifactPath(r *domain.ComparisonReport, ext string) string {
	return path.Join(string(r.Target), ArtifactName(r)+ext)
}

// WriteArtifact stores data at rel below fs. The content lands in a temporary
// sibling first so readers never observe a half-written report. It returns the
// full path of the written file.
func WriteArtifact(fs billy.Filesystem, rel string, data []byte) (string, error) {
	dir := path.Dir(rel)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, errors.CodeIO, fmt.Sprintf("creating report directory %s", dir))
	}

	tmp, err := util.TempFile(fs, dir, ".report-")
	if err != nil {
		return "", errors.Wrap(err, errors.CodeIO, "creating temporary report file")
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = fs.Remove(tmpName)
		return "", errors.Wrap(writeErr, errors.CodeIO, fmt.Sprintf("writing report %s", rel))
	}

	if err := fs.Rename(tmpName, rel); err != nil {
		_ = fs.Remove(tmpName)
		return "", errors.Wrap(err, errors.CodeIO, fmt.Sprintf("finalizing report %s", rel))
	}
	return fs.Join(fs.Root(), rel), nil
}
