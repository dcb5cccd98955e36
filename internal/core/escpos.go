package core

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
)

var ErrImageTooWide = errors.New("image wider than printable area")

const (
	esc = 0x1b
	gs  = 0x1d

	defaultLineWidth = 32
	MaxTextScale     = 7
)

type Alignment byte

const (
	AlignLeft   Alignment = 0
	AlignCenter Alignment = 1
	AlignRight  Alignment = 2
)

// ESCPOSBuffer accumulates EPSON-compatible thermal printer commands.
type ESCPOSBuffer struct {
	buf       bytes.Buffer
	lineWidth int
	maxDots   int
}

func NewESCPOSBuffer(lineWidth, maxDots int) *ESCPOSBuffer {
	if lineWidth <= 0 {
		lineWidth = defaultLineWidth
	}
	b := &ESCPOSBuffer{lineWidth: lineWidth, maxDots: maxDots}
	b.buf.Write([]byte{esc, '@'})
	return b
}

func (b *ESCPOSBuffer) Align(a Alignment) *ESCPOSBuffer {
	b.buf.Write([]byte{esc, 'a', byte(a)})
	return b
}

func (b *ESCPOSBuffer) Bold(on bool) *ESCPOSBuffer {
	var n byte
	if on {
		n = 1
	}
	b.buf.Write([]byte{esc, 'E', n})
	return b
}

// TextSize sets character magnification; 0 is normal, MaxTextScale is 8x.
func (b *ESCPOSBuffer) TextSize(width, height int) *ESCPOSBuffer {
	width = clampScale(width)
	height = clampScale(height)
	b.buf.Write([]byte{gs, '!', byte(width<<4 | height)})
	return b
}

func (b *ESCPOSBuffer) Println(text string) *ESCPOSBuffer {
	b.buf.WriteString(text)
	b.buf.WriteByte('\n')
	return b
}

func (b *ESCPOSBuffer) NewLine() *ESCPOSBuffer {
	b.buf.WriteByte('\n')
	return b
}

func (b *ESCPOSBuffer) DrawLine() *ESCPOSBuffer {
	return b.Println(strings.Repeat("-", b.lineWidth))
}

func (b *ESCPOSBuffer) Cut() *ESCPOSBuffer {
	b.buf.Write([]byte{gs, 'V', 'A', 3})
	return b
}

// PrintImage embeds img as a GS v 0 raster. Dark pixels print.
func (b *ESCPOSBuffer) PrintImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("nil image")
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return fmt.Errorf("empty image")
	}
	if b.maxDots > 0 && width > b.maxDots {
		return fmt.Errorf("%w: %d > %d dots", ErrImageTooWide, width, b.maxDots)
	}

	bytesPerRow := (width + 7) / 8
	raster := make([]byte, bytesPerRow*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if isDark(img.At(bounds.Min.X+x, bounds.Min.Y+y)) {
				raster[y*bytesPerRow+x/8] |= 0x80 >> uint(x%8)
			}
		}
	}

	b.buf.Write([]byte{gs, 'v', '0', 0,
		byte(bytesPerRow), byte(bytesPerRow >> 8),
		byte(height), byte(height >> 8),
	})
	b.buf.Write(raster)
	b.buf.WriteByte('\n')
	return nil
}

func (b *ESCPOSBuffer) Bytes() []byte {
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

func clampScale(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxTextScale {
		return MaxTextScale
	}
	return n
}

func isDark(c color.Color) bool {
	g := color.GrayModel.Convert(c).(color.Gray)
	_, _, _, a := c.RGBA()
	return a > 0x7fff && g.Y < 128
}
