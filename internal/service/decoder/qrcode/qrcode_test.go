package qrcode

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	encoder "github.com/skip2/go-qrcode"

	"qrscanner/internal/service/decoder"
	"qrscanner/internal/service/raster"
)

func TestVersionFromModules(t *testing.T) {
	tests := []struct {
		modules  int
		expected int
	}{
		{0, 0},
		{20, 0},
		{21, 1},
		{25, 2},
		{57, 10},
		{177, 40},
		{400, 40},
	}

	for _, tt := range tests {
		if got := versionFromModules(tt.modules); got != tt.expected {
			t.Errorf("versionFromModules(%d) = %d, expected %d", tt.modules, got, tt.expected)
		}
	}
}

func TestDecode_BlankRasterFindsNothing(t *testing.T) {
	d := NewQRDecoder(decoder.InversionBoth)
	defer d.Close()

	sym, err := d.Decode(raster.New(64, 64))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sym != nil {
		t.Errorf("Expected no symbol on a blank raster, got %+v", sym)
	}
}

func TestDecode_RejectsMalformedRaster(t *testing.T) {
	d := NewQRDecoder(decoder.InversionNormal)
	defer d.Close()

	_, err := d.Decode(raster.Buffer{Width: 8, Height: 8, Pix: make([]byte, 10)})
	var malformed *raster.MalformedBufferError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected *MalformedBufferError, got %v", err)
	}
}

const fixturePayload = "https://example.com/qr?id=42"

// renderFixture draws a real QR symbol onto a white 320x320 raster and
// returns the raster together with the symbol's bounds, quiet zone included.
func renderFixture(t *testing.T, inverted bool) (raster.Buffer, image.Rectangle) {
	t.Helper()

	q, err := encoder.New(fixturePayload, encoder.Medium)
	if err != nil {
		t.Fatalf("Failed to encode fixture: %v", err)
	}
	symbol := q.Image(-6)

	canvas := image.NewRGBA(image.Rect(0, 0, 320, 320))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	bounds := symbol.Bounds().Sub(symbol.Bounds().Min).Add(image.Pt(60, 50))
	draw.Draw(canvas, bounds, symbol, symbol.Bounds().Min, draw.Src)

	if inverted {
		for i := 0; i < len(canvas.Pix); i += raster.BytesPerPixel {
			canvas.Pix[i] = 255 - canvas.Pix[i]
			canvas.Pix[i+1] = 255 - canvas.Pix[i+1]
			canvas.Pix[i+2] = 255 - canvas.Pix[i+2]
		}
	}

	return raster.Buffer{Width: 320, Height: 320, Pix: canvas.Pix}, bounds
}

func assertCorners(t *testing.T, loc decoder.Location, bounds image.Rectangle) {
	t.Helper()

	inside := func(name string, p decoder.Point) {
		if p.X < float64(bounds.Min.X) || p.X > float64(bounds.Max.X) ||
			p.Y < float64(bounds.Min.Y) || p.Y > float64(bounds.Max.Y) {
			t.Errorf("%s corner %+v outside symbol bounds %v", name, p, bounds)
		}
	}
	inside("top-left", loc.TopLeft)
	inside("top-right", loc.TopRight)
	inside("bottom-right", loc.BottomRight)
	inside("bottom-left", loc.BottomLeft)

	if loc.TopLeft.X >= loc.TopRight.X || loc.BottomLeft.X >= loc.BottomRight.X {
		t.Errorf("Expected left corners left of right corners, got %+v", loc)
	}
	if loc.TopLeft.Y >= loc.BottomLeft.Y || loc.TopRight.Y >= loc.BottomRight.Y {
		t.Errorf("Expected top corners above bottom corners, got %+v", loc)
	}
}

func TestDecode_RenderedSymbol(t *testing.T) {
	tests := []struct {
		name     string
		mode     decoder.InversionMode
		inverted bool
	}{
		{"normal symbol, normal mode", decoder.InversionNormal, false},
		{"normal symbol, both modes", decoder.InversionBoth, false},
		{"inverted symbol, inverted mode", decoder.InversionInverted, true},
		{"inverted symbol, both modes", decoder.InversionBoth, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewQRDecoder(tt.mode)
			defer d.Close()

			buf, bounds := renderFixture(t, tt.inverted)
			sym, err := d.Decode(buf)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if sym == nil {
				t.Fatal("Expected the rendered symbol to decode")
			}
			if sym.Payload != fixturePayload {
				t.Errorf("Expected payload %q, got %q", fixturePayload, sym.Payload)
			}
			assertCorners(t, sym.Location, bounds)
		})
	}
}
