// Package filewalker resolves CLI input paths to the concrete list of
// Python files the extraction engine works on.
package filewalker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// SourceExtension restricts directory expansion to Python modules.
const SourceExtension = ".py"

// Walker expands files and directories into an ordered, deduplicated list
// of source files.
type Walker struct {
	// Recursive descends into subdirectories of directory arguments.
	Recursive bool
	// Exclude holds glob patterns, relative to the working directory,
	// removed from the resolved list.
	Exclude []string
}

// Resolve expands every input path. Explicit file arguments pass through
// untouched; directories contribute their .py files in lexical order.
func (w *Walker) Resolve(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat input: %w", err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}

		expanded, err := w.expandDir(path)
		if err != nil {
			return nil, err
		}
		for _, f := range expanded {
			add(f)
		}
	}

	files, err := w.filterExcluded(files)
	if err != nil {
		return nil, err
	}

	log.Info().Int("count", len(files)).Msg("Resolved input files")
	return files, nil
}

func (w *Walker) expandDir(dir string) ([]string, error) {
	var files []string

	if !w.Recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", dir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), SourceExtension) {
				files = append(files, filepath.Join(dir, entry.Name()))
			}
		}
		sort.Strings(files)
		return files, nil
	}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(path), SourceExtension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", dir, err)
	}
	return files, nil
}

// filterExcluded drops files matching any exclude glob. Patterns are tried
// against the path as given and against its form relative to the working
// directory.
func (w *Walker) filterExcluded(files []string) ([]string, error) {
	if len(w.Exclude) == 0 {
		return files, nil
	}

	kept := files[:0]
	for _, file := range files {
		excluded, err := w.matchesAny(file)
		if err != nil {
			return nil, err
		}
		if !excluded {
			kept = append(kept, file)
		}
	}
	return kept, nil
}

func (w *Walker) matchesAny(file string) (bool, error) {
	candidates := []string{file}
	if rel, err := filepath.Rel(".", file); err == nil && rel != file {
		candidates = append(candidates, rel)
	}

	for _, pattern := range w.Exclude {
		for _, candidate := range candidates {
			ok, err := filepath.Match(pattern, candidate)
			if err != nil {
				return false, fmt.Errorf("bad exclude pattern %q: %w", pattern, err)
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}
