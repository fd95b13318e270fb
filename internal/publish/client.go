// Package publish hands the exported media off to the publish endpoint as
// a multipart form.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/reelworks/reeledit/internal/media"
	"github.com/reelworks/reeledit/pkg/schema"
)

// Side is the content visibility tier.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// MaxCaptionLength bounds the descripcion field.
const MaxCaptionLength = 2200

// Post describes what accompanies the media blob.
type Post struct {
	Caption       string
	Side          Side
	Free          bool // only meaningful on side B
	AllowComments bool
}

// Client submits exports to the publish endpoint.
type Client struct {
	endpoint string
	hc       *http.Client
	now      func() time.Time
}

// NewClient posts to endpoint. now is injectable for tests; nil means
// time.Now.
func NewClient(endpoint string, now func() time.Time) *Client {
	if now == nil {
		now = time.Now
	}
	return &Client{
		endpoint: endpoint,
		hc:       &http.Client{Timeout: 2 * time.Minute},
		now:      now,
	}
}

// Submit uploads the exported file plus the post fields and whatever edit
// metadata was actually derived.
func (c *Client) Submit(ctx context.Context, exportPath string, kind media.Kind, post Post, meta schema.EditMetadata) (*schema.PublishResponse, error) {
	if len(post.Caption) > MaxCaptionLength {
		return nil, fmt.Errorf("caption exceeds %d characters", MaxCaptionLength)
	}
	if post.Side != SideA && post.Side != SideB {
		return nil, fmt.Errorf("invalid side %q", post.Side)
	}

	f, err := os.Open(exportPath)
	if err != nil {
		return nil, fmt.Errorf("open export for publish: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("archivo", exportFilename(c.now(), kind))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy export into form: %w", err)
	}

	fields := map[string]string{
		"descripcion":         post.Caption,
		"lado":                string(post.Side),
		"esGratis":            strconv.FormatBool(post.Free),
		"permitirComentarios": strconv.FormatBool(post.AllowComments),
		"tipo":                tipo(kind),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := writeMetadata(mw, meta); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("publish: status %d: %s", resp.StatusCode, snippet)
	}

	var pr schema.PublishResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode publish response: %w", err)
	}
	return &pr, nil
}

// writeMetadata emits edit-metadata fields only when the edit was made.
func writeMetadata(mw *multipart.Writer, meta schema.EditMetadata) error {
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	var err error
	set := func(k, v string) {
		if err == nil {
			err = mw.WriteField(k, v)
		}
	}
	if meta.TrimStart != nil {
		set("trimStart", ff(*meta.TrimStart))
	}
	if meta.TrimEnd != nil {
		set("trimEnd", ff(*meta.TrimEnd))
	}
	if meta.Filter != "" {
		set("filter", meta.Filter)
	}
	if meta.AudioTrackID != "" {
		set("audioTrackId", meta.AudioTrackID)
		set("audioTrackTitle", meta.AudioTrackTitle)
		if meta.AudioStartTime != nil {
			set("audioStartTime", ff(*meta.AudioStartTime))
		}
		if meta.AudioVolume != nil {
			set("audioVolume", ff(*meta.AudioVolume))
		}
	}
	if meta.OriginalVolume != nil {
		set("originalVolume", ff(*meta.OriginalVolume))
	}
	return err
}

func exportFilename(at time.Time, kind media.Kind) string {
	ext := "jpg"
	if kind == media.KindVideo {
		ext = "mp4"
	}
	return fmt.Sprintf("reels_%d.%s", at.UnixMilli(), ext)
}

func tipo(kind media.Kind) string {
	if kind == media.KindVideo {
		return "Video"
	}
	return "Imagen"
}
