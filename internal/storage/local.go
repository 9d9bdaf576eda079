package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
	"github.com/tabsdata-labs/tabsdata-go/internal/frame"
)

// LocalStore persists snapshots as files under file:// locations. Used by
// single-node deployments and throughout the tests.
type LocalStore struct{}

func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

func localPath(location domain.Location) (string, error) {
	parsed, err := url.Parse(location.Resolve())
	if err != nil {
		return "", fmt.Errorf("parse location: %w", err)
	}
	if parsed.Scheme != "file" {
		return "", fmt.Errorf("local store requires file:// location, got %q", parsed.Scheme)
	}
	return filepath.FromSlash(parsed.Path), nil
}

func (s *LocalStore) Read(ctx context.Context, location domain.Location) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := localPath(location)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return frame.Unmarshal(raw)
}

func (s *LocalStore) Write(ctx context.Context, location domain.Location, f *frame.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := localPath(location)
	if err != nil {
		return err
	}
	raw, err := frame.Marshal(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot folder: %w", err)
	}
	// Write-then-rename keeps readers from observing a torn snapshot.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit snapshot %s: %w", path, err)
	}
	return nil
}
