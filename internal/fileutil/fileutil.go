package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimestampedName builds a collision-free filename of the form
// <prefix>-20060102-150405.<ext>. Prefixes are sanitized so template and
// content type names can be used directly.
func TimestampedName(prefix, ext string, at time.Time) string {
	prefix = SanitizeName(prefix)
	if prefix == "" {
		prefix = "artifact"
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	return fmt.Sprintf("%s-%s.%s", prefix, at.UTC().Format("20060102-150405"), ext)
}

// SanitizeName strips path separators and shell-hostile characters from a
// name destined for the filesystem.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-", "?", "",
		"\"", "", "<", "", ">", "", "|", "", " ", "_",
	)
	return strings.Trim(replacer.Replace(name), "-_")
}

// CopyFile streams src to dst with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// NewestFileSince returns the most recently modified regular file in dir whose
// modification time is not before cutoff. Used to locate what an external
// download tool just materialized.
func NewestFileSince(dir string, cutoff time.Time) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var newestPath string
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			continue
		}
		if newestPath == "" || info.ModTime().After(newestTime) {
			newestPath = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
		}
	}
	if newestPath == "" {
		return "", os.ErrNotExist
	}
	return newestPath, nil
}

// FilesCreatedSince lists regular files in dir modified at or after cutoff,
// excluding files with the given suffixes (e.g. sidecar metadata).
func FilesCreatedSince(dir string, cutoff time.Time, excludeSuffixes ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		skip := false
		for _, suffix := range excludeSuffixes {
			if strings.HasSuffix(entry.Name(), suffix) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}
	return out, nil
}
