package rendering

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gen2brain/heic"
)

// ErrAssetUnavailable is reported when an image cannot be loaded or decoded.
// The document is still rendered, without that image.
var ErrAssetUnavailable = errors.New("asset unavailable")

// AssetLoader fetches the raw bytes of an image asset
type AssetLoader interface {
	Load(ctx context.Context) ([]byte, error)
}

// FileAsset loads an image from the local filesystem
type FileAsset struct {
	Path string
}

// Load implements AssetLoader
func (f FileAsset) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading asset: %w", err)
	}
	return data, nil
}

// HTTPAsset downloads an image over HTTP
type HTTPAsset struct {
	URL    string
	Client *http.Client
}

// NewHTTPAsset creates an HTTPAsset with a short timeout
func NewHTTPAsset(url string) *HTTPAsset {
	return &HTTPAsset{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Load implements AssetLoader
func (h *HTTPAsset) Load(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching asset: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, fmt.Errorf("reading asset: %w", err)
	}
	return data, nil
}

// isHEICFormat checks for an ftyp box with a HEIC/HEIF brand
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1"
}

// normalizeImage decodes JPEG, PNG, GIF or HEIC data and re-encodes it as
// 8-bit NRGBA PNG, the one form the PDF writer always embeds cleanly.
func normalizeImage(data []byte) ([]byte, image.Config, error) {
	var img image.Image
	var err error
	if isHEICFormat(data) {
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, image.Config{}, fmt.Errorf("decoding HEIC image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, image.Config{}, fmt.Errorf("decoding image: %w", err)
		}
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, image.Config{}, fmt.Errorf("decoding image: empty bounds")
	}
	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, nrgba); err != nil {
		return nil, image.Config{}, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), image.Config{Width: bounds.Dx(), Height: bounds.Dy()}, nil
}
