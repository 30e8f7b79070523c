package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/phanxgames/fluid"
	"github.com/phanxgames/fluid/scenefile"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <scene.yaml>",
	Short: "Play a scene headless",
	Long: `Plays a scene without a window. With --script, a JSON script drives state
changes and dumps; without one the mount animations play to completion.
The final property values are printed when playback stops.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scriptPath, _ := cmd.Flags().GetString("script")
		tps, _ := cmd.Flags().GetInt("tps")
		maxFrames, _ := cmd.Flags().GetInt("max-frames")

		logger, err := loggerFor(cmd)
		if err != nil {
			return err
		}
		var scriptData []byte
		if scriptPath != "" {
			if scriptData, err = os.ReadFile(scriptPath); err != nil {
				return err
			}
		}
		sc, err := scenefile.Load(args[0])
		if err != nil {
			return err
		}
		return play(cmd.Context(), cmd.OutOrStdout(), sc, scriptData, playOptions{
			tps:       tps,
			maxFrames: maxFrames,
			logger:    logger,
		})
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().String("script", "", "JSON script to run against the scene")
	playCmd.Flags().Int("tps", 60, "Simulated ticks per second")
	playCmd.Flags().Int("max-frames", 3600, "Stop after this many frames")
}

type playOptions struct {
	tps       int
	maxFrames int
	logger    *slog.Logger
	sink      fluid.EventSink
	// frame, when set, runs after every Update.
	frame func(*fluid.Stage)
}

// play runs the scene until the script finished and nothing animates, or
// maxFrames is reached, then writes the final values to w.
func play(ctx context.Context, w io.Writer, sc *scenefile.Scene, scriptData []byte, o playOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var script *fluid.ScriptRunner
	if scriptData != nil {
		var err error
		if script, err = fluid.LoadScript(scriptData); err != nil {
			return err
		}
	}
	opts := []fluid.Option{}
	if o.logger != nil {
		opts = append(opts, fluid.WithLogger(o.logger))
	}
	if o.sink != nil {
		opts = append(opts, fluid.WithEventSink(o.sink))
	}
	st, err := sc.Stage(ctx, opts...)
	if err != nil {
		return err
	}
	defer st.Close()
	st.SetOutput(w)
	if script != nil {
		st.SetScript(script)
	} else {
		st.Runner().SignalIdle()
	}

	dt := time.Second / time.Duration(max(o.tps, 1))
	for st.Frame() < o.maxFrames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := st.Update(ctx, dt); err != nil {
			return err
		}
		if o.frame != nil {
			o.frame(st)
		}
		if (script == nil || script.Done()) && !st.Runner().Active() {
			break
		}
	}
	if _, err := fmt.Fprintf(w, "final frame %d\n", st.Frame()); err != nil {
		return err
	}
	return st.DumpValues(w)
}
