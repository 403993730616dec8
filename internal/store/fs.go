// Package store holds a filesystem Destination that files outputs under their content hash.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/eleven-am/conformer/internal/log"
)

var ErrInvalidHandle = errors.New("invalid handle")

// FS stores each output at root/<first two hash digits>/<sha256><ext>.
// Identical outputs share one file.
type FS struct {
	root string
}

func NewFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FS{root: root}, nil
}

// Put hashes r, rewinds it and writes it atomically. The returned handle is
// the hash followed by ext.
func (s *FS) Put(ctx context.Context, r io.ReadSeeker, ext string) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, ctxReader{ctx, r}); err != nil {
		return "", fmt.Errorf("hash output: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind output: %w", err)
	}

	handle := hex.EncodeToString(h.Sum(nil)) + strings.ToLower(ext)
	path, err := s.Path(handle)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return handle, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create shard: %w", err)
	}

	logger := log.For(ctx, "store")
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return "", fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending file")
		}
	}()

	if _, err := io.Copy(pending, ctxReader{ctx, r}); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("commit output: %w", err)
	}
	return handle, nil
}

// Path resolves a handle returned by Put.
func (s *FS) Path(handle string) (string, error) {
	sum, ext, _ := strings.Cut(handle, ".")
	if len(sum) != sha256.Size*2 || strings.ContainsAny(ext, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	if _, err := hex.DecodeString(sum); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	return filepath.Join(s.root, sum[:2], handle), nil
}

func (s *FS) Open(handle string) (*os.File, error) {
	path, err := s.Path(handle)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes a stored output. Deleting a missing handle is not an error.
func (s *FS) Delete(handle string) error {
	path, err := s.Path(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
