package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source is the ingested media an edit session works on. The temp file it
// wraps lives until Close; the session owns exactly one Source at a time
// and releases it on reset, abort and publish.
type Source struct {
	Kind     Kind
	Path     string
	Filename string
	Info     Info

	closed bool
}

// Ingest spools the upload to a temp file, sniffs and validates it, then
// probes dimensions and duration. On any error the temp file is removed
// before returning.
func Ingest(ctx context.Context, r io.Reader, filename string, declaredSize int64) (*Source, error) {
	if declaredSize > MaxVideoBytes {
		return nil, &ValidationError{Reason: fmt.Sprintf(
			"%s is too large: %dMB exceeds the %dMB video limit",
			filename, declaredSize>>20, int64(MaxVideoBytes)>>20)}
	}
	tmp, err := os.CreateTemp("", "reeledit-src-*"+filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("create temp media file: %w", err)
	}
	path := tmp.Name()

	// Copy with a hard cap so a lying Content-Length cannot fill the disk.
	written, err := io.Copy(tmp, io.LimitReader(r, MaxVideoBytes+1))
	cerr := tmp.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("spool upload: %w", err)
	}

	src, err := build(ctx, path, filename, written)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return src, nil
}

func build(ctx context.Context, path, filename string, size int64) (*Source, error) {
	mime, err := DetectMime(path)
	if err != nil {
		return nil, err
	}
	kind, err := Validate(filename, size, mime)
	if err != nil {
		return nil, err
	}
	info, err := Probe(ctx, path, kind)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", filename, err)
	}
	return &Source{Kind: kind, Path: path, Filename: filename, Info: *info}, nil
}

// Close removes the backing temp file. Safe to call more than once.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media temp file: %w", err)
	}
	return nil
}
