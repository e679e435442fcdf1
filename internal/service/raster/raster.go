// Package raster holds the fixed-size RGBA snapshot handed from the sampler to the decoder.
package raster

import "fmt"

// BytesPerPixel is the RGBA stride.
const BytesPerPixel = 4

// Buffer is one sampled frame: Width*Height pixels, 4 bytes each, row-major RGBA.
type Buffer struct {
	Width  int
	Height int
	Pix    []byte
}

// New allocates a zeroed buffer of the given size.
func New(width, height int) Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// ExpectedLen is the only Pix length the decoder accepts for these dimensions.
func (b Buffer) ExpectedLen() int {
	return b.Width * b.Height * BytesPerPixel
}

// Validate reports a *MalformedBufferError when Pix does not match the dimensions.
func (b Buffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 || len(b.Pix) != b.ExpectedLen() {
		return &MalformedBufferError{Width: b.Width, Height: b.Height, Length: len(b.Pix)}
	}
	return nil
}

// MalformedBufferError means the raster was resized or truncated mid-capture.
type MalformedBufferError struct {
	Width  int
	Height int
	Length int
}

func (e *MalformedBufferError) Error() string {
	return fmt.Sprintf("invalid image data length: %d, expected: %d (%dx%d)",
		e.Length, e.Width*e.Height*BytesPerPixel, e.Width, e.Height)
}
