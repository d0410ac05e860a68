package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const fileExt = ".json"

// FileBackend stores each record as <dir>/<key>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed and returns a backend rooted at it.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, key+fileExt)
}

func (b *FileBackend) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return data, err
}

// Save writes through a temp file and rename so readers never see a partial record.
func (b *FileBackend) Save(_ context.Context, key string, data []byte) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return fmt.Errorf("invalid json for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(b.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(pretty.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path(key))
}

func (b *FileBackend) Remove(_ context.Context, key string) (bool, error) {
	err := os.Remove(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *FileBackend) Has(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (b *FileBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key := strings.TrimSuffix(name, fileExt)
		if strings.HasPrefix(key, prefix) && ValidKey(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Backup copies every record into <dir>/backups/<timestamp> and returns that directory.
func (b *FileBackend) Backup(ctx context.Context) (string, error) {
	keys, err := b.Keys(ctx, "")
	if err != nil {
		return "", err
	}

	target := filepath.Join(b.dir, "backups", time.Now().UTC().Format("20060102T150405Z"))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	for _, key := range keys {
		data, err := os.ReadFile(b.path(key))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", key, err)
		}
		if err := os.WriteFile(filepath.Join(target, key+fileExt), data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup of %s: %w", key, err)
		}
	}

	log.Info().Str("dir", target).Int("records", len(keys)).Msg("Backup completed")
	return target, nil
}
