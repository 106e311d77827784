package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	log "github.com/sirupsen/logrus"
)

var _ Store = (*File)(nil)

// File writes every snapshot to <directory>/<key>.json.
type File struct {
	directory string
	fileMode  os.FileMode
}

func NewFile(cfg config.FileStore) (*File, error) {
	dir := filepath.Clean(cfg.Directory)

	fileMode := os.FileMode(0600)
	if cfg.FileMode != "" {
		if parsed, err := strconv.ParseUint(cfg.FileMode, 0, 32); err == nil {
			fileMode = os.FileMode(parsed)
		} else {
			log.WithField("store", "file").
				Warnf("Invalid snapshot file mode %s, using 0600", cfg.FileMode)
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	return &File{directory: dir, fileMode: fileMode}, nil
}

func (f *File) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) {
		return "", fmt.Errorf("invalid snapshot key %q", key)
	}
	return filepath.Join(f.directory, key+".json"), nil
}

func (f *File) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := f.path(key)
	if err != nil {
		return err
	}

	if err := os.WriteFile(p, value, f.fileMode); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	log.WithField("path", p).
		WithField("stats", string(value)).
		Tracef("Wrote frame stats snapshot to file")

	return nil
}

func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := f.path(key)
	if err != nil {
		return nil, err
	}

	return os.ReadFile(p)
}

func (f *File) Close() error {
	return nil
}
