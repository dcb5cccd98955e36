package core

import (
	"fmt"
	"image"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code39"
)

// BarcodeEncoder rasterizes text into a one-dimensional barcode image.
type BarcodeEncoder interface {
	Encode(text string, moduleWidth, height int) (image.Image, error)
}

type Code39Encoder struct{}

func NewCode39Encoder() *Code39Encoder {
	return &Code39Encoder{}
}

func (e *Code39Encoder) Encode(text string, moduleWidth, height int) (image.Image, error) {
	if text == "" {
		return nil, fmt.Errorf("code39: empty content")
	}
	if moduleWidth <= 0 {
		moduleWidth = 2
	}
	if height <= 0 {
		height = 100
	}

	bc, err := code39.Encode(text, false, true)
	if err != nil {
		return nil, fmt.Errorf("code39: %w", err)
	}
	scaled, err := barcode.Scale(bc, bc.Bounds().Dx()*moduleWidth, height)
	if err != nil {
		return nil, fmt.Errorf("code39 scale: %w", err)
	}
	return scaled, nil
}
