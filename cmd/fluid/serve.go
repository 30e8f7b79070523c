package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phanxgames/fluid"
	"github.com/phanxgames/fluid/metrics"
	"github.com/phanxgames/fluid/scenefile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve <scene.yaml>",
	Short: "Play a scene in a loop behind an HTTP inspector",
	Long: `Plays a scene headless in a loop (restarting when the script finished)
and exposes Prometheus metrics on /metrics, the live property values on
/values and timeline resolution on /timeline?label=&state=[&active=false].`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		scriptPath, _ := cmd.Flags().GetString("script")
		tps, _ := cmd.Flags().GetInt("tps")

		logger, err := loggerFor(cmd)
		if err != nil {
			return err
		}
		sceneData, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var scriptData []byte
		if scriptPath != "" {
			if scriptData, err = os.ReadFile(scriptPath); err != nil {
				return err
			}
		}

		reg := prometheus.NewRegistry()
		sink, err := metrics.NewSink(reg)
		if err != nil {
			return err
		}
		snap := &snapshot{}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// The loop goroutine owns every stage it builds.
		loopErr := make(chan error, 1)
		go func() {
			dt := time.Second / time.Duration(max(tps, 1))
			ticker := time.NewTicker(dt)
			defer ticker.Stop()
			for ctx.Err() == nil {
				sc, err := scenefile.Parse(sceneData)
				if err != nil {
					loopErr <- err
					return
				}
				err = play(ctx, io.Discard, sc, scriptData, playOptions{
					tps:       tps,
					maxFrames: 1 << 30,
					logger:    logger,
					sink:      sink,
					frame: func(st *fluid.Stage) {
						snap.update(st)
						select {
						case <-ticker.C:
						case <-ctx.Done():
						}
					},
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					loopErr <- err
					return
				}
			}
		}()

		srv := &http.Server{
			Addr:              addr,
			Handler:           newHandler(sceneData, reg, snap),
			ReadHeaderTimeout: 5 * time.Second,
		}
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("serving", "addr", addr, "scene", args[0])
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return err
		case err := <-loopErr:
			_ = srv.Close()
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":2112", "Address to listen on")
	serveCmd.Flags().String("script", "", "JSON script to loop")
	serveCmd.Flags().Int("tps", 60, "Ticks per second")
}

// snapshot holds the latest value dump written by the loop goroutine.
type snapshot struct {
	mu     sync.Mutex
	values string
}

func (s *snapshot) update(st *fluid.Stage) {
	var b strings.Builder
	fmt.Fprintf(&b, "frame %d\n", st.Frame())
	_ = st.DumpValues(&b)
	s.mu.Lock()
	s.values = b.String()
	s.mu.Unlock()
}

func (s *snapshot) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values
}

func newHandler(sceneData []byte, reg *prometheus.Registry, snap *snapshot) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/values", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(snap.get()))
	})

	r.Get("/timeline", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		label, state := q.Get("label"), q.Get("state")
		if label == "" || state == "" {
			http.Error(w, "label and state are required", http.StatusBadRequest)
			return
		}
		active := true
		if s := q.Get("active"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				http.Error(w, "active must be a boolean", http.StatusBadRequest)
				return
			}
			active = v
		}
		tl, err := resolveScene(r.Context(), sceneData, label, state, active)
		switch {
		case errors.Is(err, errUnknownLabel):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if tl == nil {
			_, _ = w.Write([]byte("nothing to animate\n"))
			return
		}
		_ = tl.Dump(w)
	})
	return r
}
