// Package transfer drives CSV import and export against the remote store.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/store"
)

// FileName is the fixed name of downloaded exports.
const FileName = "todos.csv"

// Remote is the bulk half of the remote store contract.
type Remote interface {
	Import(ctx context.Context, name string, r io.Reader) error
	Export(ctx context.Context) ([]byte, error)
}

// Reloader re-fetches the list after an import. *store.Store satisfies it.
type Reloader interface {
	Reload(ctx context.Context) ([]model.Todo, error)
}

// Controller holds the upload modal state. Downloads are stateless.
type Controller struct {
	remote Remote
	logger *slog.Logger

	open    bool
	pending string
}

// New builds a controller. logger may be nil.
func New(r Remote, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{remote: r, logger: logger}
}

// OpenUpload shows the upload modal with no file selected.
func (c *Controller) OpenUpload() {
	c.open = true
	c.pending = ""
}

// UploadOpen reports whether the upload modal is showing.
func (c *Controller) UploadOpen() bool { return c.open }

// CloseUpload hides the modal and forgets the pending file.
func (c *Controller) CloseUpload() {
	c.open = false
	c.pending = ""
}

// Select sets the pending file.
func (c *Controller) Select(path string) { c.pending = strings.TrimSpace(path) }

// Pending returns the selected file, or "".
func (c *Controller) Pending() string { return c.pending }

// Upload is a validated import request.
type Upload struct {
	Path string
}

// BeginUpload checks a file is selected. No file means model.ErrNoFile and
// nothing is sent.
func (c *Controller) BeginUpload() (Upload, error) {
	if c.pending == "" {
		return Upload{}, model.ErrNoFile
	}
	return Upload{Path: c.pending}, nil
}

// Do posts the file and, when the store accepted it, reloads the list once.
func (u Upload) Do(ctx context.Context, r Remote, rl Reloader) error {
	f, err := os.Open(u.Path)
	if err != nil {
		return &model.OpError{Op: model.OpUpload, Err: fmt.Errorf("open file: %w", err)}
	}
	defer f.Close()

	if err := r.Import(ctx, filepath.Base(u.Path), f); err != nil {
		return &model.OpError{Op: model.OpUpload, Err: err}
	}
	if _, err := rl.Reload(ctx); err != nil && !errors.Is(err, store.ErrSuperseded) {
		return err
	}
	return nil
}

// FinishUpload closes the modal if the import went through.
func (c *Controller) FinishUpload(err error) error {
	if err == nil || model.IsOp(err, model.OpFetch) {
		c.CloseUpload()
	}
	return err
}

// SubmitUpload runs the whole upload synchronously.
func (c *Controller) SubmitUpload(ctx context.Context, rl Reloader) error {
	up, err := c.BeginUpload()
	if err != nil {
		return err
	}
	err = up.Do(ctx, c.remote, rl)
	if err != nil {
		c.logger.Warn("upload failed", "path", up.Path, "error", err)
	} else {
		c.logger.Info("uploaded", "path", up.Path)
	}
	return c.FinishUpload(err)
}

// Remote exposes the bulk client for asynchronous callers.
func (c *Controller) Remote() Remote { return c.remote }

// Download fetches the export and writes it to dir/todos.csv, returning the path.
func (c *Controller) Download(ctx context.Context, dir string) (string, error) {
	path, err := download(ctx, c.remote, dir)
	if err != nil {
		c.logger.Warn("download failed", "dir", dir, "error", err)
		return "", err
	}
	c.logger.Info("downloaded", "path", path)
	return path, nil
}

func download(ctx context.Context, r Remote, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	data, err := r.Export(ctx)
	if err != nil {
		return "", &model.OpError{Op: model.OpDownload, Err: err}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &model.OpError{Op: model.OpDownload, Err: fmt.Errorf("mkdir: %w", err)}
	}

	dst := filepath.Join(dir, FileName)
	tmp, err := os.CreateTemp(dir, ".todos-*.csv")
	if err != nil {
		return "", &model.OpError{Op: model.OpDownload, Err: fmt.Errorf("create temp: %w", err)}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", &model.OpError{Op: model.OpDownload, Err: fmt.Errorf("write file: %w", err)}
	}
	_ = tmp.Chmod(0o644)
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", &model.OpError{Op: model.OpDownload, Err: fmt.Errorf("close file: %w", err)}
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", &model.OpError{Op: model.OpDownload, Err: fmt.Errorf("rename: %w", err)}
	}
	return dst, nil
}
