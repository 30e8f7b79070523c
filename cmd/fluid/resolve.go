package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/phanxgames/fluid"
	"github.com/phanxgames/fluid/scenefile"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <scene.yaml>",
	Short: "Print the timeline a state change produces",
	Long: `Loads a scene, applies the initial states, then toggles one state on one
item and prints the resolved timeline: every surviving node with its
composition, duration and start offset.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")
		state, _ := cmd.Flags().GetString("state")
		off, _ := cmd.Flags().GetBool("off")
		markdown, _ := cmd.Flags().GetBool("markdown")
		noColor, _ := cmd.Flags().GetBool("no-color")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		tl, err := resolveScene(cmd.Context(), data, label, state, !off)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if tl == nil {
			_, err := fmt.Fprintln(out, "nothing to animate")
			return err
		}
		if markdown {
			rendered, err := renderMarkdown(timelineMarkdown(tl), wrapWidth(out))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(out, rendered)
			return err
		}
		return writeTimeline(out, tl, colorProfile(noColor))
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringP("label", "l", "", "Label of the item whose state changes")
	resolveCmd.Flags().StringP("state", "s", "", "State to activate")
	resolveCmd.Flags().Bool("off", false, "Deactivate the state instead")
	resolveCmd.Flags().Bool("markdown", false, "Render the timeline as a markdown table")
	_ = resolveCmd.MarkFlagRequired("label")
	_ = resolveCmd.MarkFlagRequired("state")
}

var errUnknownLabel = errors.New("unknown label")

// resolveScene parses a scene and resolves the timeline produced by
// switching state on the item with label. Every item is considered mounted
// with its initial states.
func resolveScene(ctx context.Context, data []byte, label, state string, active bool) (*fluid.Timeline, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sc, err := scenefile.Parse(data)
	if err != nil {
		return nil, err
	}
	it := sc.Root.Find(label)
	if it == nil {
		return nil, fmt.Errorf("%w %q", errUnknownLabel, label)
	}
	reg := fluid.NewRegistry()
	sc.Expose(reg)

	prev := append([]fluid.State{{Name: fluid.StateMounted, Active: true}}, sc.States[label]...)
	next := slices.Clone(prev)
	found := false
	for i := range next {
		if next[i].Name == state {
			next[i].Active = active
			found = true
		}
	}
	if !found {
		next = append(next, fluid.State{Name: state, Active: active})
	}

	a := &fluid.Activator{Item: it, Registry: reg, Screen: sc.Viewport}
	act, err := a.Resolve(next, fluid.DiffStates(prev, next))
	if err != nil {
		return nil, err
	}
	return fluid.Resolve(ctx, sc.Root, act.Requests, fluid.ResolveOptions{Viewport: sc.Viewport})
}
