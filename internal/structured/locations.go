package structured

import (
	"path"
	"slices"
	"strings"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
)

// FormatLocation names where files of one structured format live: the base
// name of their parent directory and their file extension.
type FormatLocation struct {
	Dirs       []string `mapstructure:"dirs" validate:"required,min=1,dive,required"`
	Extensions []string `mapstructure:"extensions" validate:"required,min=1,dive,required"`
}

type Locations struct {
	Preferences FormatLocation `mapstructure:"preferences"`
	Databases   FormatLocation `mapstructure:"databases"`
}

func DefaultLocations() Locations {
	return Locations{
		Preferences: FormatLocation{
			Dirs:       []string{"shared_prefs"},
			Extensions: []string{".xml"},
		},
		Databases: FormatLocation{
			Dirs:       []string{"databases"},
			Extensions: []string{".db", ".sqlite", ".sqlite3", ".db3"},
		},
	}
}

// Matches reports whether p sits directly inside a recognized directory and
// carries a recognized extension. Extensions compare case-insensitively.
func (l FormatLocation) Matches(p string) bool {
	if !slices.Contains(l.Dirs, path.Base(path.Dir(p))) {
		return false
	}
	ext := strings.ToLower(path.Ext(p))
	return slices.ContainsFunc(l.Extensions, func(e string) bool {
		return strings.ToLower(e) == ext
	})
}

// storeDirs returns the directories of set that hold at least one file of
// this format.
func (l FormatLocation) storeDirs(set domain.FingerprintSet) map[string]struct{} {
	dirs := make(map[string]struct{})
	for p := range set {
		if l.Matches(p) {
			dirs[path.Dir(p)] = struct{}{}
		}
	}
	return dirs
}

// pairedFiles returns, sorted, the matching paths of current whose store
// directory also exists in baseline. Directories present on one side only are
// left to the tree diff.
func (l FormatLocation) pairedFiles(baseline, current domain.FingerprintSet) []string {
	baseDirs := l.storeDirs(baseline)
	var files []string
	for _, p := range current.Paths() {
		if !l.Matches(p) {
			continue
		}
		if _, ok := baseDirs[path.Dir(p)]; ok {
			files = append(files, p)
		}
	}
	return files
}
