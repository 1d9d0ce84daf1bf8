// Package imagefetch retrieves stamp images for inlining into generation
// requests. Vector images are rasterized to a fixed-size PNG first; raster
// images pass through with a MIME type inferred from the response headers.
package imagefetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// RasterSize is the edge length of the PNG produced from vector sources.
const RasterSize = 128

type Fetcher struct {
	client  *resty.Client
	baseURL string
}

// New builds a fetcher for the public emoji endpoint, e.g.
// https://q.trap.jp/api/1.0/public/emoji.
func New(baseURL string) *Fetcher {
	return &Fetcher{
		client:  resty.New().SetTimeout(30 * time.Second),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// PublicURL returns the remote image URL for a stamp id. Used directly for
// batch requests and as the fallback when inlining fails.
func (f *Fetcher) PublicURL(id string) string {
	return f.baseURL + "/" + id
}

// DataURL fetches the stamp image and returns it as a base64 data URL,
// rasterizing SVG content to RasterSize x RasterSize PNG. Any failure is
// logged and answered with the remote URL so that a broken asset never
// blocks generation.
func (f *Fetcher) DataURL(ctx context.Context, id string) string {
	res, err := f.client.R().SetContext(ctx).Get(f.PublicURL(id))
	if err != nil {
		slog.Warn("image fetch failed, falling back to remote url", "stamp_id", id, "error", err)
		return f.PublicURL(id)
	}
	if !res.IsSuccess() {
		slog.Warn("image fetch returned error status, falling back to remote url", "stamp_id", id, "status", res.StatusCode())
		return f.PublicURL(id)
	}

	data := res.Body()
	contentType := strings.ToLower(res.Header().Get("Content-Type"))

	if IsSVG(contentType, data) {
		rasterized, err := rasterizeSVG(data, RasterSize)
		if err != nil {
			slog.Warn("svg rasterization failed, falling back to remote url", "stamp_id", id, "error", err)
			return f.PublicURL(id)
		}
		return encodeDataURL("image/png", rasterized)
	}

	return encodeDataURL(InferMIMEType(contentType), data)
}

// IsSVG detects vector content from the content type or from the payload
// itself (an <svg> root, possibly behind an XML declaration).
func IsSVG(contentType string, data []byte) bool {
	if strings.Contains(contentType, "svg") {
		return true
	}
	if bytes.HasPrefix(data, []byte("<svg")) {
		return true
	}
	if bytes.HasPrefix(data, []byte("<?xml")) {
		head := data
		if len(head) > 1000 {
			head = head[:1000]
		}
		return bytes.Contains(head, []byte("<svg"))
	}
	return false
}

// InferMIMEType maps a response content type to the MIME type declared in
// the data URL, defaulting to PNG.
func InferMIMEType(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return "image/png"
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return "image/jpeg"
	case strings.Contains(contentType, "gif"):
		return "image/gif"
	case strings.Contains(contentType, "webp"):
		return "image/webp"
	default:
		return "image/png"
	}
}

func encodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func rasterizeSVG(data []byte, size int) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing svg: %w", err)
	}

	icon.SetTarget(0, 0, float64(size), float64(size))
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
