package localstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const fileExt = ".json"

// File is a Store keeping one file per key in a directory. Several processes
// may share the directory; Watch reports changes made by the others.
type File struct {
	dir string

	mu sync.Mutex
	// hash of the last content this process wrote or read, per key
	seen map[string]string
}

// NewFile creates a File store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &File{dir: dir, seen: make(map[string]string)}, nil
}

// Dir returns the store directory.
func (f *File) Dir() string {
	return f.dir
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, url.QueryEscape(key)+fileExt)
}

// keyFromPath reverses path; ok is false for files the store doesn't own.
func keyFromPath(p string) (string, bool) {
	name := filepath.Base(p)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	key, err := url.QueryUnescape(strings.TrimSuffix(name, fileExt))
	if err != nil {
		return "", false
	}
	return key, true
}

func contentHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	f.remember(key, contentHash(data))
	return string(data), true, nil
}

// Set writes through a temp file and rename so readers never see a torn value.
func (f *File) Set(ctx context.Context, key, value string) error {
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	f.remember(key, contentHash([]byte(value)))
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("failed to commit %s: %w", key, err)
	}
	return nil
}

func (f *File) Remove(ctx context.Context, key string) error {
	f.remember(key, "")
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (f *File) remember(key, hash string) {
	f.mu.Lock()
	f.seen[key] = hash
	f.mu.Unlock()
}

// changedExternally reports whether the file under key differs from what this
// process last wrote or read.
func (f *File) changedExternally(key string) bool {
	var hash string
	if data, err := os.ReadFile(f.path(key)); err == nil {
		hash = contentHash(data)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.seen[key]; ok && prev == hash {
		return false
	}
	f.seen[key] = hash
	return true
}
