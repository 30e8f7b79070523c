package ebitenhost

import (
	"context"
	"testing"
	"time"

	"github.com/phanxgames/fluid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHost(t *testing.T) (*Host, *fluid.Item) {
	t.Helper()
	root := fluid.NewItem("root")
	card := fluid.NewItem("card")
	card.SetMetrics(fluid.Rect{X: 10, Y: 20, Width: 100, Height: 50})
	card.Set("alpha", 0)
	card.Config.OnEnter = []fluid.Rule{&fluid.InterpolationRule{
		RuleBase: fluid.RuleBase{State: fluid.StateMounted, Animation: fluid.Timing{Duration: 100 * time.Millisecond}},
		Interpolations: []fluid.Interpolation{
			{Key: "alpha", InterpolationConfig: fluid.InterpolationConfig{OutputRange: []float64{0, 1}}},
		},
	}}
	root.AddChild(card)
	st := fluid.NewStage(root)
	t.Cleanup(st.Close)
	require.NoError(t, st.Mount(context.Background()))
	return New(st, RunConfig{Width: 320, Height: 240}), card
}

func TestNewSetsViewport(t *testing.T) {
	h, _ := newHost(t)
	assert.Equal(t, fluid.Size{Width: 320, Height: 240}, h.Stage().Runner().Viewport())
	w, ht := h.Layout(1000, 1000)
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, ht)
	assert.Equal(t, "screenshots", h.cfg.ScreenshotDir)
}

func TestFirstPaintSignalsIdle(t *testing.T) {
	h, card := newHost(t)

	require.NoError(t, h.Update())
	assert.Equal(t, 0.0, card.Get("alpha"), "mount animation waits for the first paint")
	assert.False(t, h.Stage().Runner().Idle())

	h.markPainted()
	assert.True(t, h.Stage().Runner().Idle())
	for i := 0; i < 10; i++ {
		require.NoError(t, h.Update())
	}
	assert.InDelta(t, 1.0, card.Get("alpha"), 1e-9)
	assert.Equal(t, 11, h.Stage().Frame())
}

func TestBeforeUpdate(t *testing.T) {
	h, _ := newHost(t)
	calls := 0
	h.BeforeUpdate = func(*fluid.Stage) error {
		calls++
		if calls == 2 {
			return ErrQuit
		}
		return nil
	}
	require.NoError(t, h.Update())
	assert.ErrorIs(t, h.Update(), ErrQuit)
}

func TestItemBounds(t *testing.T) {
	it := fluid.NewItem("box")
	it.SetMetrics(fluid.Rect{X: 10, Y: 20, Width: 100, Height: 50})
	assert.Equal(t, fluid.Rect{X: 10, Y: 20, Width: 100, Height: 50}, itemBounds(it))

	it.Set("x", 5)
	it.Set("scale", 2)
	// Scaled about the center (65, 45).
	assert.Equal(t, fluid.Rect{X: -35, Y: -5, Width: 200, Height: 100}, itemBounds(it))

	it.Set("scale", 1)
	it.Set("width", 40)
	assert.Equal(t, 40.0, itemBounds(it).Width)
}

func TestItemColor(t *testing.T) {
	it := fluid.NewItem("box")
	it.Set("color.r", 0.5)
	it.Set("alpha", 0.5)
	it.Set("color.b", 2)
	r, g, b, a := itemColor(it)
	assert.Equal(t, 0.5, r)
	assert.Equal(t, 1.0, g)
	assert.Equal(t, 1.0, b)
	assert.Equal(t, 0.5, a)
}

func TestItemAt(t *testing.T) {
	h, card := newHost(t)
	assert.Nil(t, h.ItemAt(20, 30), "transparent items are not hit")

	card.Set("alpha", 1)
	badge := fluid.NewItem("badge")
	badge.SetMetrics(fluid.Rect{X: 90, Y: 20, Width: 20, Height: 20})
	card.AddChild(badge)

	assert.Same(t, card, h.ItemAt(20, 30))
	assert.Same(t, badge, h.ItemAt(100, 30), "later items cover earlier ones")
	assert.Nil(t, h.ItemAt(200, 200))
}
