package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCascadeNotFound is returned when no search location has the file.
var ErrCascadeNotFound = errors.New("cascade not found")

// CascadeSearchDirs lists the directories searched for cascade files, in
// order: OPENCV_CASCADES_PATH, OPENCV_SAMPLES_DATA_PATH, the usual Homebrew,
// MacPorts and Linux install locations, then repository-local folders.
func CascadeSearchDirs() []string {
	var dirs []string
	if env := os.Getenv("OPENCV_CASCADES_PATH"); env != "" {
		dirs = append(dirs, env)
	}
	if env := os.Getenv("OPENCV_SAMPLES_DATA_PATH"); env != "" {
		dirs = append(dirs, env)
	}
	return append(dirs,
		"/opt/homebrew/opt/opencv/share/opencv4/haarcascades",
		"/usr/local/opt/opencv/share/opencv4/haarcascades",
		"/opt/local/share/opencv4/haarcascades",
		"/usr/share/opencv4/haarcascades",
		"haarcascades",
		"data/haarcascades",
	)
}

// FindCascade resolves name to an existing file. A name that already
// points at a file is returned as-is. Otherwise the samples data tree
// (OPENCV_SAMPLES_DATA_PATH/haarcascades), then dirs, then the working
// directory are tried. A nil dirs uses CascadeSearchDirs.
func FindCascade(name string, dirs []string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrCascadeNotFound)
	}
	if filepath.IsAbs(name) || filepath.Base(name) != name {
		if isFile(name) {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", ErrCascadeNotFound, name)
	}

	if dirs == nil {
		dirs = CascadeSearchDirs()
	}
	var candidates []string
	if samples := os.Getenv("OPENCV_SAMPLES_DATA_PATH"); samples != "" {
		candidates = append(candidates, filepath.Join(samples, "haarcascades", name))
	}
	for _, dir := range dirs {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	candidates = append(candidates, name)

	for _, c := range candidates {
		if isFile(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s (searched %d locations)", ErrCascadeNotFound, name, len(candidates))
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
