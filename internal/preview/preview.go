// Package preview shows the sampled raster with the detection overlay in an
// ebiten window. The window's game loop also drives the scan loop.
package preview

import (
	"context"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"qrscanner/internal/service/raster"
	"qrscanner/internal/service/scanner"
)

var (
	highlightColor = color.RGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff}
	overlayColor   = color.RGBA{A: 0xb0}
	errorColor     = color.RGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xd0}
)

const highlightStroke = 6

// Presenter is what the window draws.
type Presenter interface {
	Presentation() (scanner.Snapshot, raster.Buffer)
	Status() (scanner.Status, string)
}

// Window is an ebiten.Game and a scanner.Host. Pending scan ticks run from
// Update, once per refresh.
type Window struct {
	ctx   context.Context
	title string
	now   func() time.Time

	mu        sync.Mutex
	pending   func(now time.Time)
	presenter Presenter

	frame *ebiten.Image
}

func NewWindow(ctx context.Context, title string) *Window {
	return &Window{ctx: ctx, title: title, now: time.Now}
}

// SetPresenter attaches the scanner whose state is drawn.
func (w *Window) SetPresenter(p Presenter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.presenter = p
}

func (w *Window) RequestFrame(cb func(now time.Time)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = cb
}

// Run opens the window and blocks until it is closed or the context ends.
// It must be called from the main goroutine.
func (w *Window) Run() error {
	ebiten.SetWindowSize(640, 640)
	ebiten.SetWindowTitle(w.title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(w)
}

func (w *Window) Update() error {
	if w.ctx.Err() != nil || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	w.step()
	return nil
}

// step runs the pending tick, if any.
func (w *Window) step() bool {
	w.mu.Lock()
	cb := w.pending
	w.pending = nil
	w.mu.Unlock()

	if cb == nil {
		return false
	}
	cb(w.now())
	return true
}

func (w *Window) Draw(screen *ebiten.Image) {
	w.mu.Lock()
	p := w.presenter
	w.mu.Unlock()
	if p == nil {
		return
	}

	snap, buf := p.Presentation()
	status, message := p.Status()

	sw, sh := float64(screen.Bounds().Dx()), float64(screen.Bounds().Dy())
	if buf.Validate() == nil {
		if w.frame == nil || w.frame.Bounds().Dx() != buf.Width || w.frame.Bounds().Dy() != buf.Height {
			w.frame = ebiten.NewImage(buf.Width, buf.Height)
		}
		w.frame.WritePixels(buf.Pix)

		scale, offsetX, offsetY := aspectFitTransform(sw, sh, float64(buf.Width), float64(buf.Height))
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(scale, scale)
		op.GeoM.Translate(offsetX, offsetY)
		screen.DrawImage(w.frame, op)

		if snap.HighlightActive {
			vector.StrokeRect(screen,
				float32(offsetX), float32(offsetY),
				float32(float64(buf.Width)*scale), float32(float64(buf.Height)*scale),
				highlightStroke, highlightColor, false)
		}
	}

	text, bg, visible := overlay(snap, status, message)
	if !visible {
		return
	}
	vector.DrawFilledRect(screen, 0, float32(sh)-28, float32(sw), 28, bg, false)
	ebitenutil.DebugPrintAt(screen, text, 8, int(sh)-22)
}

func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// overlay picks the overlay line: the status message wins over detection text.
func overlay(snap scanner.Snapshot, status scanner.Status, message string) (string, color.Color, bool) {
	if status == scanner.StatusDenied && message != "" {
		return message, errorColor, true
	}
	if snap.OverlayVisible && snap.OverlayText != "" {
		return snap.OverlayText, overlayColor, true
	}
	return "", nil, false
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}
