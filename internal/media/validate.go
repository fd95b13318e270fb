// Package media handles ingest: size/type validation, mime sniffing and
// probing of the source file an edit session works on.
package media

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Size limits per kind.
const (
	MaxPhotoBytes = 20 << 20
	MaxVideoBytes = 100 << 20
)

// Kind distinguishes the two media families an edit session handles.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

var allowedMimes = map[string]Kind{
	"image/jpeg":      KindPhoto,
	"image/png":       KindPhoto,
	"image/webp":      KindPhoto,
	"image/gif":       KindPhoto,
	"video/mp4":       KindVideo,
	"video/webm":      KindVideo,
	"video/quicktime": KindVideo,
}

// ValidationError rejects an ingest before a session is created. Reason is
// safe to surface to the client.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validate checks the sniffed mime and the byte size against the per-kind
// limits and returns the media kind. Errors name the reason and the limit.
func Validate(filename string, size int64, sniffedMime string) (Kind, error) {
	mime := normalizeMime(sniffedMime)
	kind, ok := allowedMimes[mime]
	if !ok {
		return "", &ValidationError{Reason: fmt.Sprintf("unsupported media type %q for %s", mime, filename)}
	}
	limit := int64(MaxPhotoBytes)
	label := "photo"
	if kind == KindVideo {
		limit = MaxVideoBytes
		label = "video"
	}
	if size > limit {
		return "", &ValidationError{Reason: fmt.Sprintf(
			"%s %s is too large: %dMB exceeds the %dMB %s limit",
			label, filename, size>>20, limit>>20, label)}
	}
	if size <= 0 {
		return "", &ValidationError{Reason: fmt.Sprintf("%s is empty", filename)}
	}
	return kind, nil
}

// DetectMime sniffs the first 512 bytes of the file.
func DetectMime(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for mime detect: %w", err)
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read for mime detect: %w", err)
	}
	return normalizeMime(http.DetectContentType(buf[:n])), nil
}

// normalizeMime drops parameters ("; charset=...") and lowercases.
func normalizeMime(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
