package ebitenhost

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// fpsOverlay displays the current FPS and TPS, refreshed every half second.
type fpsOverlay struct {
	img     *ebiten.Image
	elapsed time.Duration
	text    string
}

const fpsRefresh = 500 * time.Millisecond

func (f *fpsOverlay) update(dt time.Duration) {
	f.elapsed += dt
	if f.text != "" && f.elapsed < fpsRefresh {
		return
	}
	f.elapsed = 0
	f.text = fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS())
}

func (f *fpsOverlay) draw(screen *ebiten.Image) {
	if f.text == "" {
		return
	}
	if f.img == nil {
		// 100x32 is enough for "FPS: 60.0\nTPS: 60.0"
		f.img = ebiten.NewImage(100, 32)
	}
	f.img.Clear()
	// Semi-transparent background for readability
	f.img.Fill(color.RGBA{0, 0, 0, 128})
	ebitenutil.DebugPrint(f.img, f.text)
	screen.DrawImage(f.img, nil)
}
