package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempDir creates a temporary directory and returns it along with a cleanup function.
// The cleanup function removes the directory and all its contents.
func TempDir(t *testing.T) (string, func()) {
	t.Helper()
	dir, err := os.MkdirTemp("", "odootask-test-*")
	if err != nil {
		t.Fatal(err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }
}

// WriteFile writes content to a file in the given directory.
// It creates parent directories as needed and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadFile reads a file and returns its contents.
// It fails the test if the file cannot be read.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// FileExists checks if a file exists.
func FileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return err == nil
}

// Chdir switches the working directory to dir for the rest of the test.
func Chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

// SetupProjectDir creates a test directory holding .odootask/config.yaml with configYAML,
// makes it the working directory and points XDG_CONFIG_HOME at an empty directory so the
// user's global config is not read.
func SetupProjectDir(t *testing.T, configYAML string) string {
	t.Helper()
	dir, cleanup := TempDir(t)
	t.Cleanup(cleanup)

	if configYAML != "" {
		WriteFile(t, dir, ".odootask/config.yaml", configYAML)
	}
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	Chdir(t, dir)
	return dir
}
