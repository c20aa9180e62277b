package qr

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// ImageSize is the pixel width and height of rendered QR images.
const ImageSize = 300

// Renderer converts an opaque pairing token into a displayable image payload.
type Renderer interface {
	Render(token string) (string, error)
}

// PNGRenderer renders pairing tokens as base64 PNG data URIs.
type PNGRenderer struct{}

// NewPNGRenderer creates a PNGRenderer.
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{}
}

// Render encodes token into a 300x300 PNG and returns it as a data URI.
func (r *PNGRenderer) Render(token string) (string, error) {
	code, err := qrcode.New(token, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}

	png, err := code.PNG(ImageSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
