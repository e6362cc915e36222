package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	nonSlug   = regexp.MustCompile(`[^a-z0-9]+`)
	stripped  = regexp.MustCompile(`[^a-z0-9 _-]`)
	upPattern = "*.up.sql"
)

// Pair is a freshly created up/down file pair
type Pair struct {
	Version  string
	UpPath   string
	DownPath string
}

// Create writes an empty up/down pair into dir named <version>_<slug>
func Create(dir, name string, now time.Time) (Pair, error) {
	s := slug(name)
	if s == "" {
		return Pair{}, errors.New("migration name must contain letters or digits")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Pair{}, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := now.UTC().Format(versionLayout)
	base := filepath.Join(dir, version+"_"+s)
	p := Pair{Version: version, UpPath: base + ".up.sql", DownPath: base + ".down.sql"}

	header := fmt.Sprintf("-- Migration: %s\n-- Created: %s\n\n", s, now.UTC().Format(time.RFC3339))
	if err := writeNew(p.UpPath, header); err != nil {
		return Pair{}, err
	}
	if err := writeNew(p.DownPath, header); err != nil {
		_ = os.Remove(p.UpPath)
		return Pair{}, err
	}
	return p, nil
}

// writeNew refuses to overwrite an existing file
func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func slug(name string) string {
	s := stripped.ReplaceAllString(strings.ToLower(name), "")
	return strings.Trim(nonSlug.ReplaceAllString(s, "_"), "_")
}

// List returns the migration base names found in fsys, oldest first
func List(fsys fs.FS) ([]string, error) {
	ups, err := fs.Glob(fsys, upPattern)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ups))
	for _, up := range ups {
		names = append(names, strings.TrimSuffix(up, ".up.sql"))
	}
	sort.Strings(names)
	return names, nil
}
