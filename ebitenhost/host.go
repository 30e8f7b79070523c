// Package ebitenhost runs a fluid stage inside an Ebitengine game.
//
// The host ticks the stage once per Update at the game's TPS, signals the
// runner idle after the first Draw, and draws every item as a filled
// rectangle from its animated property values:
//
//	host := ebitenhost.New(stage, ebitenhost.RunConfig{Width: 640, Height: 480})
//	if err := ebitenhost.Run(host); err != nil {
//		log.Fatal(err)
//	}
package ebitenhost

import (
	"context"
	"errors"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/phanxgames/fluid"
)

// RunConfig holds window and drawing options.
type RunConfig struct {
	Title  string
	Width  int
	Height int
	// ShowFPS draws an FPS/TPS overlay in the top-left corner.
	ShowFPS bool
	// ShowLabels prints each item's label inside its rectangle.
	ShowLabels bool
	// ScreenshotDir is where Screenshot writes PNG files. Defaults to
	// "screenshots".
	ScreenshotDir string
}

// Host adapts a fluid.Stage to ebiten.Game.
type Host struct {
	stage *fluid.Stage
	cfg   RunConfig
	ctx   context.Context

	painted bool
	fps     *fpsOverlay

	// BeforeUpdate, when set, runs at the start of every Update, e.g. to map
	// input to state changes.
	BeforeUpdate func(stage *fluid.Stage) error

	screenshotQueue []shot
}

var _ ebiten.Game = (*Host)(nil)

// ErrQuit can be returned from BeforeUpdate to stop the game loop cleanly.
var ErrQuit = errors.New("ebitenhost: quit")

// New returns a host for stage. The runner's viewport is set to the window
// size.
func New(stage *fluid.Stage, cfg RunConfig) *Host {
	if cfg.Width <= 0 {
		cfg.Width = int(fluid.DefaultViewport.Width)
	}
	if cfg.Height <= 0 {
		cfg.Height = int(fluid.DefaultViewport.Height)
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "screenshots"
	}
	stage.Runner().SetViewport(fluid.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)})
	h := &Host{stage: stage, cfg: cfg, ctx: context.Background()}
	if cfg.ShowFPS {
		h.fps = &fpsOverlay{}
	}
	return h
}

// Stage returns the hosted stage.
func (h *Host) Stage() *fluid.Stage { return h.stage }

// Run opens a window and runs the game loop until the window closes or
// BeforeUpdate returns ErrQuit.
func Run(h *Host) error {
	if h.cfg.Title != "" {
		ebiten.SetWindowTitle(h.cfg.Title)
	}
	ebiten.SetWindowSize(h.cfg.Width, h.cfg.Height)
	err := ebiten.RunGame(h)
	h.stage.Close()
	if errors.Is(err, ErrQuit) {
		return nil
	}
	return err
}

// Update advances the stage by one tick.
func (h *Host) Update() error {
	if h.BeforeUpdate != nil {
		if err := h.BeforeUpdate(h.stage); err != nil {
			return err
		}
	}
	dt := time.Second / time.Duration(max(ebiten.TPS(), 1))
	if h.fps != nil {
		h.fps.update(dt)
	}
	return h.stage.Update(h.ctx, dt)
}

// Draw renders every item, then signals the runner idle after the first
// frame so deferred mount animations start.
func (h *Host) Draw(screen *ebiten.Image) {
	h.stage.Root().Walk(func(it *fluid.Item) {
		h.drawItem(screen, it)
	})
	if h.fps != nil {
		h.fps.draw(screen)
	}
	h.flushScreenshots(screen)
	h.markPainted()
}

func (h *Host) markPainted() {
	if h.painted {
		return
	}
	h.painted = true
	h.stage.Runner().SignalIdle()
}

// Layout returns the configured logical screen size.
func (h *Host) Layout(outsideWidth, outsideHeight int) (int, int) {
	return h.cfg.Width, h.cfg.Height
}

var whitePixel *ebiten.Image

func (h *Host) drawItem(screen *ebiten.Image, it *fluid.Item) {
	b := itemBounds(it)
	if b.Width <= 0 || b.Height <= 0 {
		return
	}
	r, g, bl, a := itemColor(it)
	if a <= 0 {
		return
	}
	if whitePixel == nil {
		whitePixel = ebiten.NewImage(1, 1)
		whitePixel.Fill(color.White)
	}

	var op ebiten.DrawImageOptions
	op.GeoM.Scale(b.Width, b.Height)
	if rot := it.Get("rotation"); rot != 0 {
		op.GeoM.Translate(-b.Width/2, -b.Height/2)
		op.GeoM.Rotate(rot * math.Pi / 180)
		op.GeoM.Translate(b.Width/2, b.Height/2)
	}
	op.GeoM.Translate(b.X, b.Y)
	// Premultiplied alpha.
	op.ColorScale.Scale(float32(r*a), float32(g*a), float32(bl*a), float32(a))
	screen.DrawImage(whitePixel, &op)

	if h.cfg.ShowLabels {
		ebitenutil.DebugPrintAt(screen, it.Label(), int(b.X)+4, int(b.Y)+2)
	}
}

// ItemAt returns the topmost drawn item under the screen point (x, y), or
// nil. Items drawn later cover earlier ones.
func (h *Host) ItemAt(x, y float64) *fluid.Item {
	var hit *fluid.Item
	h.stage.Root().Walk(func(it *fluid.Item) {
		if _, _, _, a := itemColor(it); a <= 0 {
			return
		}
		b := itemBounds(it)
		if b.Width > 0 && b.Height > 0 && b.Contains(x, y) {
			hit = it
		}
	})
	return hit
}

// itemBounds is the on-screen rectangle of it: its layout metrics offset by
// x/y, sized by width/height when set, and scaled about the center.
func itemBounds(it *fluid.Item) fluid.Rect {
	m := it.Metrics()
	w, h := m.Width, m.Height
	if v := it.Get("width"); v > 0 {
		w = v
	}
	if v := it.Get("height"); v > 0 {
		h = v
	}
	sx := it.Get("scale") * it.Get("scaleX")
	sy := it.Get("scale") * it.Get("scaleY")
	cx := m.X + it.Get("x") + w/2
	cy := m.Y + it.Get("y") + h/2
	w, h = w*sx, h*sy
	return fluid.Rect{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}
}

// itemColor returns straight-alpha color components clamped to 0..1.
func itemColor(it *fluid.Item) (r, g, b, a float64) {
	return clamp01(it.Get("color.r")), clamp01(it.Get("color.g")), clamp01(it.Get("color.b")),
		clamp01(it.Get("color.a") * it.Get("alpha"))
}

func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
