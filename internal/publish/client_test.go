package publish

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/reelworks/reeledit/internal/media"
	"github.com/reelworks/reeledit/pkg/schema"
)

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.jpg")
	if err := os.WriteFile(path, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fixedNow() time.Time { return time.UnixMilli(1700000000123) }

func TestSubmitFormContents(t *testing.T) {
	var got *http.Request
	var form map[string][]string
	var filename string
	var fileBytes []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		form = r.MultipartForm.Value
		fhs := r.MultipartForm.File["archivo"]
		if len(fhs) == 1 {
			filename = fhs[0].Filename
			f, _ := fhs[0].Open()
			buf := make([]byte, 64)
			n, _ := f.Read(buf)
			fileBytes = buf[:n]
			f.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"redirectUrl":"/reels/42"}`))
	}))
	defer srv.Close()

	trimStart, trimEnd, vol := 2.5, 9.0, 0.35
	c := NewClient(srv.URL, fixedNow)
	resp, err := c.Submit(context.Background(), writeExport(t), media.KindVideo, Post{
		Caption:       "mi reel",
		Side:          SideB,
		Free:          true,
		AllowComments: true,
	}, schema.EditMetadata{
		TrimStart:       &trimStart,
		TrimEnd:         &trimEnd,
		Filter:          "clarendon",
		AudioTrackID:    "t9",
		AudioTrackTitle: "Song",
		AudioVolume:     &vol,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !resp.Success || resp.RedirectURL != "/reels/42" {
		t.Fatalf("response = %+v", resp)
	}
	if got.Method != http.MethodPost {
		t.Fatalf("method = %s", got.Method)
	}
	if filename != "reels_1700000000123.mp4" {
		t.Fatalf("filename = %q", filename)
	}
	if string(fileBytes) != "jpeg bytes" {
		t.Fatalf("file bytes = %q", fileBytes)
	}

	want := map[string]string{
		"descripcion":         "mi reel",
		"lado":                "B",
		"esGratis":            "true",
		"permitirComentarios": "true",
		"tipo":                "Video",
		"trimStart":           "2.5",
		"trimEnd":             "9",
		"filter":              "clarendon",
		"audioTrackId":        "t9",
		"audioTrackTitle":     "Song",
		"audioVolume":         "0.35",
	}
	for k, v := range want {
		if len(form[k]) != 1 || form[k][0] != v {
			t.Fatalf("field %q = %v, want %q", k, form[k], v)
		}
	}
	for _, absent := range []string{"audioStartTime", "originalVolume"} {
		if _, ok := form[absent]; ok {
			t.Fatalf("field %q emitted without a derived value", absent)
		}
	}
}

func TestSubmitPhotoDefaults(t *testing.T) {
	var form map[string][]string
	var filename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(32 << 20)
		form = r.MultipartForm.Value
		if fhs := r.MultipartForm.File["archivo"]; len(fhs) == 1 {
			filename = fhs[0].Filename
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, fixedNow)
	if _, err := c.Submit(context.Background(), writeExport(t), media.KindPhoto, Post{Side: SideA}, schema.EditMetadata{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if filename != "reels_1700000000123.jpg" {
		t.Fatalf("filename = %q", filename)
	}
	if form["tipo"][0] != "Imagen" {
		t.Fatalf("tipo = %q", form["tipo"][0])
	}
	for _, absent := range []string{"trimStart", "trimEnd", "filter", "audioTrackId"} {
		if _, ok := form[absent]; ok {
			t.Fatalf("unexpected metadata field %q", absent)
		}
	}
}

func TestSubmitRejectsOversizedCaption(t *testing.T) {
	c := NewClient("http://unused.invalid", fixedNow)
	_, err := c.Submit(context.Background(), "nope.jpg", media.KindPhoto,
		Post{Caption: strings.Repeat("x", MaxCaptionLength+1), Side: SideA}, schema.EditMetadata{})
	if err == nil || !strings.Contains(err.Error(), "2200") {
		t.Fatalf("err = %v", err)
	}
}

func TestSubmitRejectsInvalidSide(t *testing.T) {
	c := NewClient("http://unused.invalid", fixedNow)
	if _, err := c.Submit(context.Background(), "nope.jpg", media.KindPhoto, Post{Side: "C"}, schema.EditMetadata{}); err == nil {
		t.Fatal("expected error for side C")
	}
}

func TestSubmitSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, fixedNow)
	_, err := c.Submit(context.Background(), writeExport(t), media.KindPhoto, Post{Side: SideA}, schema.EditMetadata{})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("err = %v", err)
	}
}
