package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetFileExtension(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"photo.jpg", "jpg"},
		{"PHOTO.JPEG", "jpeg"},
		{"path/to/image.png", "png"},
		{"archive.tar.gz", "gz"},
		{"noextension", ""},
	}

	for _, test := range tests {
		result := GetFileExtension(test.input)
		if result != test.expected {
			t.Errorf("GetFileExtension(%s) = %s, expected %s", test.input, result, test.expected)
		}
	}
}

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"photo.jpg", true},
		{"photo.jpeg", true},
		{"graphic.PNG", true},
		{"modern.webp", true},
		{"phone.heic", true},
		{"phone.heif", true},
		{"animation.gif", false},
		{"scan.tiff", false},
		{"notes.txt", false},
		{"noextension", false},
	}

	for _, test := range tests {
		result := IsImageFile(test.input)
		if result != test.expected {
			t.Errorf("IsImageFile(%s) = %v, expected %v", test.input, result, test.expected)
		}
	}
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("Failed to create nested dir: %v", err)
	}

	for _, name := range []string{"a.jpg", "b.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(sub, "c.webp"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write nested file: %v", err)
	}

	files, err := ListImageFiles(dir)
	if err != nil {
		t.Fatalf("ListImageFiles failed: %v", err)
	}

	if len(files) != 3 {
		t.Errorf("Expected 3 image files, got %d: %v", len(files), files)
	}

	found := make(map[string]bool)
	for _, f := range files {
		found[filepath.Base(f)] = true
	}
	for _, want := range []string{"a.jpg", "b.png", "c.webp"} {
		if !found[want] {
			t.Errorf("Expected %s in listing, got %v", want, files)
		}
	}

	if _, err := ListImageFiles(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected an error for a missing directory")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.jpg")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if !FileExists(path) {
		t.Error("Expected FileExists to be true for an existing file")
	}
	if FileExists(filepath.Join(dir, "absent.jpg")) {
		t.Error("Expected FileExists to be false for a missing file")
	}
	if FileExists(dir) {
		t.Error("Expected FileExists to be false for a directory")
	}
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()

	if !DirExists(dir) {
		t.Error("Expected DirExists to be true for an existing directory")
	}
	if DirExists(filepath.Join(dir, "absent")) {
		t.Error("Expected DirExists to be false for a missing directory")
	}

	path := filepath.Join(dir, "file.jpg")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if DirExists(path) {
		t.Error("Expected DirExists to be false for a file")
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if !DirExists(dir) {
		t.Error("Expected nested directory to exist")
	}

	// Idempotent on an existing directory.
	if err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir on existing dir failed: %v", err)
	}
}

func TestVerdictFilename(t *testing.T) {
	tests := []struct {
		imagePath string
		outputDir string
		expected  string
	}{
		{"photos/cat.jpg", "out", filepath.Join("out", "cat.verdict.json")},
		{"cat.PNG", "out", filepath.Join("out", "cat.verdict.json")},
		{"a/b/c.heic", "verdicts", filepath.Join("verdicts", "c.verdict.json")},
		{"noextension", "out", filepath.Join("out", "noextension.verdict.json")},
	}

	for _, test := range tests {
		result := VerdictFilename(test.imagePath, test.outputDir)
		if result != test.expected {
			t.Errorf("VerdictFilename(%s, %s) = %s, expected %s",
				test.imagePath, test.outputDir, result, test.expected)
		}
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size     int64
		expected string
	}{
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 << 30, "5.0 GB"},
	}

	for _, test := range tests {
		result := FormatFileSize(test.size)
		if result != test.expected {
			t.Errorf("FormatFileSize(%d) = %s, expected %s", test.size, result, test.expected)
		}
	}
}
