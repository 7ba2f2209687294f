package dropconfig

import (
	"os"
	"path/filepath"
	"strings"
)

const dropFileExtension = ".drop"

// skipDirSegments names path fragments the walker never descends into,
// grounded on original_source/src/parser/file_walker.rs.
var skipDirSegments = []string{"__test__", "/target", ".git", "/src"}

// DiscoverDropFiles walks dir, collecting every *.drop file while pruning
// the directories the original implementation excludes.
func DiscoverDropFiles(dir string) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var found []string
	var walk func(path string) error
	walk = func(path string) error {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			full := filepath.Join(path, entry.Name())
			if entry.IsDir() {
				if shouldSkipDir(full) {
					continue
				}
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			if strings.HasSuffix(entry.Name(), dropFileExtension) {
				found = append(found, full)
			}
		}
		return nil
	}

	if err := walk(abs); err != nil {
		return nil, err
	}
	return found, nil
}

func shouldSkipDir(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, segment := range skipDirSegments {
		if strings.Contains(slashed, segment) {
			return true
		}
	}
	return false
}
