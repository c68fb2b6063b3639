// Package media loads the files and URLs embedded in concept definitions
// (`def type="file"` and `def type="image_url"`) and searches the web for
// candidate images of a concept.
package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Kind classifies an embedded reference.
type Kind string

const (
	KindURL   Kind = "url"
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
	KindText  Kind = "text"
)

var (
	// ErrEmptySource is returned when a def names no file or URL.
	ErrEmptySource = errors.New("media: empty source")

	// ErrTooLarge is returned when a text file exceeds Loader.MaxTextBytes.
	ErrTooLarge = errors.New("media: file too large")
)

// defaultMaxTextBytes caps how much of a text file is embedded.
const defaultMaxTextBytes = 1 << 20

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// Ref is the loaded form of an embedded file or URL.
type Ref struct {
	Kind   Kind   `json:"kind"`
	Source string `json:"source"`         // as written in the definition
	Path   string `json:"path,omitempty"` // resolved local path; empty for URLs
	Text   string `json:"text,omitempty"` // content of text and PDF files
	Format string `json:"format,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Loader resolves embedded references. Remote URLs are recorded as-is and
// never fetched; local files are opened, inspected and closed before Load
// returns.
type Loader struct {
	MaxTextBytes int64
}

// NewLoader creates a loader with default limits.
func NewLoader() *Loader {
	return &Loader{MaxTextBytes: defaultMaxTextBytes}
}

// Load resolves pathOrURL relative to baseDir.
func (l *Loader) Load(ctx context.Context, pathOrURL, baseDir string) (Ref, error) {
	src := strings.TrimSpace(pathOrURL)
	if src == "" {
		return Ref{}, ErrEmptySource
	}
	if err := ctx.Err(); err != nil {
		return Ref{}, err
	}

	if isRemote(src) {
		return Ref{Kind: KindURL, Source: src}, nil
	}

	path := src
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExts[ext]:
		return loadImage(src, path)
	case ext == ".pdf":
		return loadPDF(src, path)
	default:
		return l.loadText(src, path)
	}
}

func isRemote(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func loadImage(src, path string) (Ref, error) {
	f, err := os.Open(path)
	if err != nil {
		return Ref{}, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Ref{}, fmt.Errorf("decoding image %s: %w", filepath.Base(path), err)
	}
	return Ref{
		Kind:   KindImage,
		Source: src,
		Path:   path,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

func loadPDF(src, path string) (Ref, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return Ref{}, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}

	return Ref{
		Kind:   KindPDF,
		Source: src,
		Path:   path,
		Format: "pdf",
		Text:   sb.String(),
	}, nil
}

func (l *Loader) loadText(src, path string) (Ref, error) {
	f, err := os.Open(path)
	if err != nil {
		return Ref{}, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	limit := l.MaxTextBytes
	if limit <= 0 {
		limit = defaultMaxTextBytes
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return Ref{}, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if int64(len(data)) > limit {
		return Ref{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, filepath.Base(path), limit)
	}

	return Ref{
		Kind:   KindText,
		Source: src,
		Path:   path,
		Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		Text:   string(data),
	}, nil
}
