// Package qrcode decodes QR symbols from RGBA rasters with OpenCV's QR detector.
package qrcode

import (
	"fmt"

	"gocv.io/x/gocv"

	"qrscanner/internal/service/decoder"
	"qrscanner/internal/service/raster"
)

// QRDecoder owns a native detector handle. It is not safe for concurrent use,
// which is fine because the scan loop decodes one frame at a time.
type QRDecoder struct {
	detector gocv.QRCodeDetector
	mode     decoder.InversionMode
}

func NewQRDecoder(mode decoder.InversionMode) *QRDecoder {
	return &QRDecoder{
		detector: gocv.NewQRCodeDetector(),
		mode:     mode,
	}
}

// Decode tries each configured pixel interpretation and returns the first hit.
func (d *QRDecoder) Decode(buf raster.Buffer) (*decoder.Symbol, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	rgba, err := gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC4, buf.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap raster: %w", err)
	}
	defer rgba.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(rgba, &gray, gocv.ColorRGBAToGray); err != nil {
		return nil, fmt.Errorf("failed to convert raster to grayscale: %w", err)
	}

	for _, inverted := range d.mode.Attempts() {
		input := gray
		if inverted {
			negative := gocv.NewMat()
			defer negative.Close()
			if err := gocv.BitwiseNot(gray, &negative); err != nil {
				return nil, fmt.Errorf("failed to invert raster: %w", err)
			}
			input = negative
		}

		if sym := d.detect(input); sym != nil {
			return sym, nil
		}
	}
	return nil, nil
}

func (d *QRDecoder) detect(input gocv.Mat) *decoder.Symbol {
	points := gocv.NewMat()
	defer points.Close()
	straight := gocv.NewMat()
	defer straight.Close()

	data := d.detector.DetectAndDecode(input, &points, &straight)
	if data == "" {
		return nil
	}

	return &decoder.Symbol{
		Payload:  data,
		Version:  versionFromModules(straight.Cols()),
		Location: locationFromPoints(points),
	}
}

// Close releases the native detector.
func (d *QRDecoder) Close() error {
	return d.detector.Close()
}

// versionFromModules maps the rectified symbol side (in modules) to a QR version.
// Version 1 is 21 modules and each version adds 4.
func versionFromModules(modules int) int {
	if modules < 21 {
		return 0
	}
	v := (modules - 17) / 4
	if v > 40 {
		return 40
	}
	return v
}

// locationFromPoints reads the four corners OpenCV returns, clockwise from top-left.
func locationFromPoints(points gocv.Mat) decoder.Location {
	var corners [4]decoder.Point
	if points.Empty() || points.Total() < 4 {
		return decoder.Location{}
	}
	for i := 0; i < 4; i++ {
		v := points.GetVecfAt(0, i)
		if len(v) < 2 {
			return decoder.Location{}
		}
		corners[i] = decoder.Point{X: float64(v[0]), Y: float64(v[1])}
	}
	return decoder.Location{
		TopLeft:     corners[0],
		TopRight:    corners[1],
		BottomRight: corners[2],
		BottomLeft:  corners[3],
	}
}
