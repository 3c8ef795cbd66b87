package hasher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestSHA256File(t *testing.T) {
	tmp, err := os.CreateTemp("", "hash-test")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	defer os.Remove(tmp.Name())
	tmp.WriteString("hello world")
	tmp.Close()

	sum, err := SHA256File(tmp.Name())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if sum != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Errorf("sha256 mismatch: %s", sum)
	}
}

func TestSHA256FileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	sum, err := SHA256File(path)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if sum != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("empty-file sha256 mismatch: %s", sum)
	}
}

func TestSHA256FileNotReadable(t *testing.T) {
	_, err := SHA256File(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrNotReadable) {
		t.Fatalf("expected ErrNotReadable, got %v", err)
	}
}

func TestSHA256FileConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(path, []byte("hello world"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum, err := SHA256File(path)
			if err != nil {
				t.Errorf("hash: %v", err)
				return
			}
			if sum != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
				t.Errorf("sha256 mismatch: %s", sum)
			}
		}()
	}
	wg.Wait()
}
