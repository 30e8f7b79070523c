package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/phanxgames/fluid"
	"golang.org/x/term"
)

const maxWrapWidth = 120

func colorProfile(noColor bool) termenv.Profile {
	if noColor {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// writeTimeline prints the timeline dump with the header and request nodes
// highlighted.
func writeTimeline(w io.Writer, tl *fluid.Timeline, p termenv.Profile) error {
	var b strings.Builder
	if err := tl.Dump(&b); err != nil {
		return err
	}
	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	for i, line := range lines {
		if p == termenv.Ascii {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
			continue
		}
		s := p.String(line)
		switch {
		case i == 0:
			s = s.Foreground(p.Color("#818cf8")).Bold()
		case strings.Contains(line, " request="):
			s = s.Foreground(p.Color("#f472b6"))
		default:
			s = s.Faint()
		}
		if _, err := fmt.Fprintln(w, s.String()); err != nil {
			return err
		}
	}
	return nil
}

// timelineMarkdown renders the timeline as a markdown table.
func timelineMarkdown(tl *fluid.Timeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Timeline (%v)\n\n", tl.Duration)
	b.WriteString("| Node | Label | Children | Offset | Duration | Subtree | Request |\n")
	b.WriteString("|---:|---|---|---:|---:|---:|---:|\n")
	tl.Walk(func(n *fluid.AnimationNode, depth int) {
		req := ""
		if n.HasRequest() {
			req = fmt.Sprint(n.RequestID)
		}
		fmt.Fprintf(&b, "| %d | %s%s | %s | %v | %v | %v | %s |\n",
			n.ID, strings.Repeat("· ", depth), n.Label, n.ChildAnimation,
			n.Offset, n.Duration, n.SubtreeDuration, req)
	})
	return b.String()
}

// wrapWidth is the terminal width of w, capped at maxWrapWidth. Writers
// that are not terminals get maxWrapWidth.
func wrapWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return maxWrapWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return maxWrapWidth
	}
	return min(width, maxWrapWidth)
}

func renderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
