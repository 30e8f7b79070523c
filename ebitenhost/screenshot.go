package ebitenhost

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
)

// shot is one queued capture, tagged with the stage frame it was asked for.
type shot struct {
	label string
	frame int
}

// Screenshot queues a capture of the next drawn frame. Files are written to
// RunConfig.ScreenshotDir as frame<N>_<label>.png, where N is the stage
// frame at the time of the call, so captures line up with value dumps.
func (h *Host) Screenshot(label string) {
	h.screenshotQueue = append(h.screenshotQueue, shot{label: label, frame: h.stage.Frame()})
}

func (h *Host) flushScreenshots(screen *ebiten.Image) {
	if len(h.screenshotQueue) == 0 {
		return
	}
	queued := h.screenshotQueue
	h.screenshotQueue = h.screenshotQueue[:0]

	if err := os.MkdirAll(h.cfg.ScreenshotDir, 0o755); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "[fluid] screenshot: %v\n", err)
		return
	}
	b := screen.Bounds()
	pix := make([]byte, 4*b.Dx()*b.Dy())
	screen.ReadPixels(pix)
	img := frameImage(pix, b.Dx(), b.Dy())
	for _, s := range queued {
		if err := savePNG(shotPath(h.cfg.ScreenshotDir, s), img); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "[fluid] screenshot %q: %v\n", s.label, err)
		}
	}
}

// frameImage wraps ebiten's premultiplied pixels. image.RGBA is
// premultiplied too; the PNG encoder writes straight alpha.
func frameImage(pix []byte, w, h int) *image.RGBA {
	return &image.RGBA{Pix: pix, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
}

func shotPath(dir string, s shot) string {
	return filepath.Join(dir, fmt.Sprintf("frame%05d_%s.png", s.frame, fileSafe(s.label)))
}

func savePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}

// fileSafe keeps ASCII letters, digits, '-' and '.', and maps everything
// else to '_'. Blank labels become "shot".
func fileSafe(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "shot"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, label)
}
