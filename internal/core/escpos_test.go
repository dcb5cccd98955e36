package core

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestESCPOSBuffer_TextSizeClamps(t *testing.T) {
	b := NewESCPOSBuffer(0, 0)
	b.TextSize(9, -1)

	assert.Equal(t, []byte{esc, '@', gs, '!', 0x70}, b.Bytes())
}

func TestESCPOSBuffer_DrawLineUsesWidth(t *testing.T) {
	b := NewESCPOSBuffer(5, 0)
	b.DrawLine()

	assert.Equal(t, append([]byte{esc, '@'}, []byte("-----\n")...), b.Bytes())
}

func TestESCPOSBuffer_PrintImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 2))
	for x := 0; x < 10; x++ {
		img.Set(x, 0, color.White)
		img.Set(x, 1, color.White)
	}
	img.Set(0, 0, color.Black)
	img.Set(9, 1, color.Black)

	b := NewESCPOSBuffer(32, 0)
	require.NoError(t, b.PrintImage(img))

	out := b.Bytes()[2:]
	assert.Equal(t, []byte{gs, 'v', '0', 0, 2, 0, 2, 0}, out[:8])
	assert.Equal(t, []byte{0x80, 0x00, 0x00, 0x40, '\n'}, out[8:])
}

func TestESCPOSBuffer_PrintImageErrors(t *testing.T) {
	b := NewESCPOSBuffer(32, 8)

	assert.Error(t, b.PrintImage(nil))
	assert.Error(t, b.PrintImage(image.NewGray(image.Rect(0, 0, 0, 0))))
	assert.ErrorIs(t, b.PrintImage(image.NewGray(image.Rect(0, 0, 9, 1))), ErrImageTooWide)
}

func TestCode39Encoder(t *testing.T) {
	img, err := NewCode39Encoder().Encode("000981", 2, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dy())
	assert.Greater(t, img.Bounds().Dx(), 0)

	_, err = NewCode39Encoder().Encode("", 2, 50)
	assert.Error(t, err)
}
