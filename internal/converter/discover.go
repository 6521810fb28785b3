package converter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/meshbuilder/internal/config"
)

// Discover lists regular files in dir (non-recursive) whose name ends with
// ext, compared case-insensitively. Results are sorted by name.
func Discover(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning input directory: %w", err)
	}

	ext = strings.ToLower(ext)

	var sources []string
	for _, entry := range entries {
		if !strings.HasSuffix(strings.ToLower(entry.Name()), ext) {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		// Stat follows symlinks so linked sources count as regular files
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		sources = append(sources, path)
	}

	return sources, nil
}

// OutputPath derives the container path for src: the same base name with the
// output extension, in the output directory or next to the source.
func OutputPath(src string, out config.OutputConfig) string {
	name := filepath.Base(src)
	name = strings.TrimSuffix(name, filepath.Ext(name)) + out.Extension

	dir := out.Dir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, name)
}
