package heatmap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Provider supplies the frame for a calendar date. A missing frame is a
// normal outcome and is reported with ok == false and a nil error.
type Provider interface {
	Frame(ctx context.Context, date time.Time) (frame *Frame, ok bool, err error)
}

// FileProvider reads frames from a cache directory holding one MessagePack
// file per day, named YYYYMMDD.msgpack.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a provider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

// Path returns the cache file used for date. The calendar day is taken in
// date's own location.
func (p *FileProvider) Path(date time.Time) string {
	return filepath.Join(p.dir, date.Format("20060102")+".msgpack")
}

// Frame loads and validates the cached frame for date.
func (p *FileProvider) Frame(ctx context.Context, date time.Time) (*Frame, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	raw, err := os.ReadFile(p.Path(date))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read heatmap cache: %w", err)
	}

	var frame Frame
	if err := msgpack.Unmarshal(raw, &frame); err != nil {
		return nil, false, fmt.Errorf("failed to decode heatmap %s: %w", p.Path(date), err)
	}
	if err := frame.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid heatmap %s: %w", p.Path(date), err)
	}
	return &frame, true, nil
}

// Put writes frame to the cache file for date, creating the directory if
// needed.
func (p *FileProvider) Put(date time.Time, frame *Frame) error {
	if err := frame.Validate(); err != nil {
		return fmt.Errorf("refusing to cache invalid heatmap: %w", err)
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	raw, err := msgpack.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode heatmap: %w", err)
	}
	if err := os.WriteFile(p.Path(date), raw, 0o644); err != nil {
		return fmt.Errorf("failed to write heatmap cache: %w", err)
	}
	return nil
}
