// Package sampler scales camera frames into the fixed raster the decoder reads.
package sampler

import (
	"image"

	"gocv.io/x/gocv"

	"qrscanner/internal/logger"
	"qrscanner/internal/service/raster"
)

// Source is a live frame provider, normally a *camera.Camera.
type Source interface {
	Ready() bool
	Read(dst *gocv.Mat) bool
	Close() error
}

// Sampler copies the current frame into a width x height RGBA raster. The
// target size is fixed and independent of what the camera grants, which keeps
// decode cost bounded.
type Sampler struct {
	source Source
	width  int
	height int
	logger *logger.Logger

	frame  gocv.Mat
	scaled gocv.Mat
	rgba   gocv.Mat
}

func New(source Source, width, height int, logger *logger.Logger) *Sampler {
	return &Sampler{
		source: source,
		width:  width,
		height: height,
		logger: logger,
		frame:  gocv.NewMat(),
		scaled: gocv.NewMat(),
		rgba:   gocv.NewMat(),
	}
}

// Sample returns false when there is nothing to decode this tick.
func (s *Sampler) Sample() (raster.Buffer, bool) {
	if !s.source.Ready() {
		return raster.Buffer{}, false
	}
	if !s.source.Read(&s.frame) || s.frame.Empty() || s.frame.Cols() == 0 || s.frame.Rows() == 0 {
		return raster.Buffer{}, false
	}

	if err := gocv.Resize(s.frame, &s.scaled, image.Pt(s.width, s.height), 0, 0, gocv.InterpolationLinear); err != nil {
		s.logger.Warning("Failed to scale frame: %v", err)
		return raster.Buffer{}, false
	}

	var code gocv.ColorConversionCode
	switch s.scaled.Channels() {
	case 1:
		code = gocv.ColorGrayToBGRA
	case 3:
		code = gocv.ColorBGRToRGBA
	case 4:
		code = gocv.ColorBGRAToRGBA
	default:
		s.logger.Warning("Unsupported frame with %d channels", s.scaled.Channels())
		return raster.Buffer{}, false
	}
	if err := gocv.CvtColor(s.scaled, &s.rgba, code); err != nil {
		s.logger.Warning("Failed to convert frame to RGBA: %v", err)
		return raster.Buffer{}, false
	}

	return raster.Buffer{
		Width:  s.rgba.Cols(),
		Height: s.rgba.Rows(),
		Pix:    s.rgba.ToBytes(),
	}, true
}

// Close releases the working buffers and the source.
func (s *Sampler) Close() error {
	s.frame.Close()
	s.scaled.Close()
	s.rgba.Close()
	return s.source.Close()
}
