package collection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TOC (Table of Content) is one version_N file's contents: the
// ordered list of segment names live at that version, in insertion
// order, per spec.md §6.
type TOC struct {
	Segments []string `json:"toc"`
}

const versionFilePrefix = "version_"

func versionFileName(n int) string {
	return versionFilePrefix + strconv.Itoa(n)
}

// latestVersion scans dir for the highest N such that version_N
// exists, returning (-1, nil) if none do.
func latestVersion(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return -1, fmt.Errorf("collection: reading %s: %w", dir, err)
	}
	latest := -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n, ok := parseVersionFileName(e.Name())
		if ok && n > latest {
			latest = n
		}
	}
	return latest, nil
}

func parseVersionFileName(name string) (int, bool) {
	if !strings.HasPrefix(name, versionFilePrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, versionFilePrefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// readTOC loads and parses dir/version_N.
func readTOC(dir string, n int) (*TOC, error) {
	data, err := os.ReadFile(filepath.Join(dir, versionFileName(n)))
	if err != nil {
		return nil, fmt.Errorf("collection: reading %s: %w", versionFileName(n), err)
	}
	var toc TOC
	if err := json.Unmarshal(data, &toc); err != nil {
		return nil, fmt.Errorf("%w: %s is not valid JSON: %v", ErrIndexCorrupt, versionFileName(n), err)
	}
	return &toc, nil
}

// writeTOC writes version_N to dir by writing a temp file in the same
// directory and renaming it into place, so the file appears
// atomically and version_N is never observed partially written — the
// "file-create-only... appear-atomically through filesystem rename"
// requirement from spec.md §4.6. version_N is never rewritten once it
// exists; callers are responsible for choosing n as the next unused
// version number.
func writeTOC(dir string, n int, toc *TOC) error {
	data, err := json.Marshal(toc)
	if err != nil {
		return fmt.Errorf("collection: marshaling %s: %w", versionFileName(n), err)
	}
	tmp, err := os.CreateTemp(dir, ".version_tmp-*")
	if err != nil {
		return fmt.Errorf("collection: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("collection: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("collection: closing temp file: %w", err)
	}
	finalPath := filepath.Join(dir, versionFileName(n))
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("collection: renaming into %s: %w", versionFileName(n), err)
	}
	return nil
}
