package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/standardbeagle/mjbridge/internal/bridge"
	"github.com/standardbeagle/mjbridge/internal/engine"
	"github.com/standardbeagle/mjbridge/internal/logx"
	"github.com/standardbeagle/mjbridge/internal/table"
)

// reapTimeout bounds the wait for the agent to be reaped after Stop.
const reapTimeout = 5 * time.Second

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Play a scripted round against an agent",
	Long: `Start the agent, play the scenario's draws and opponent discards at it,
and apply whatever it answers. The run ends when the script is exhausted,
the round is won or abandoned, the agent exits, or the timeout fires.

Scenario files are YAML:

  round: east
  seat: 0
  players: [{direction: east}, {direction: south}, {direction: west}, {direction: north}]
  hand: [1m, 2m, 3m, north]
  script:
    - draw: 5p
    - discard: {player: 1, tile: 3m}`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().String("agent", "", "Agent executable (overrides config and MJBRIDGE_AGENT)")
	probeCmd.Flags().String("scenario", "", "Scenario YAML file")
	probeCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	probeCmd.Flags().Duration("timeout", 0, "Abort the run after this long (0 = config value)")
	probeCmd.Flags().String("log-level", "", "trace, debug, info, warn, error or none")
	_ = probeCmd.MarkFlagRequired("scenario")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("agent"); v != "" {
		cfg.Agent.Path = v
	}
	if v, _ := flags.GetString("metrics-addr"); v != "" {
		cfg.Settings.MetricsAddr = v
	}
	if v, _ := flags.GetDuration("timeout"); v > 0 {
		cfg.Settings.Timeout = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Settings.LogLevel = v
	}
	if err := cfg.RequireAgent(); err != nil {
		return err
	}
	logx.Configure(cfg.Settings.LogLevel)
	log := logx.Log.With().Str("component", "probe").Logger()

	scenarioPath, _ := flags.GetString("scenario")
	sc, err := table.LoadScenario(scenarioPath)
	if err != nil {
		return err
	}
	tbl, err := table.New(sc)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := bridge.NewMetrics(reg)
	if cfg.Settings.MetricsAddr != "" {
		srv := serveMetrics(cfg.Settings.MetricsAddr, reg, log)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if cfg.Settings.Timeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, cfg.Settings.Timeout)
		defer tcancel()
	}

	sess := bridge.New(tbl, cfg.Agent.Path,
		bridge.WithEngineLock(tbl.Locker()),
		bridge.WithLogger(logx.Log),
		bridge.WithMetrics(metrics),
	)
	if err := sess.Start(); err != nil {
		return err
	}
	defer sess.Close()

	tbl.Begin()

	var runErr error
	select {
	case <-sess.Done():
	case <-ctx.Done():
		runErr = fmt.Errorf("probe aborted: %w", context.Cause(ctx))
		log.Warn().Err(runErr).Msg("stopping agent")
	}

	sess.Stop()
	select {
	case <-sess.Done():
	case <-time.After(reapTimeout):
		log.Warn().Msg("agent not reaped in time")
	}

	printSummary(cmd.OutOrStdout(), tbl)
	return runErr
}

func serveMetrics(addr string, reg *prometheus.Registry, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}

// printSummary writes the actions the agent took and how the round ended.
func printSummary(w io.Writer, tbl *table.Table) {
	lock := tbl.Locker()
	lock.Lock()
	defer lock.Unlock()

	records := tbl.Records()
	fmt.Fprintf(w, "Actions (%d):\n", len(records))
	for i, r := range records {
		line := r.Verb
		if len(r.Tiles) > 0 {
			line += " " + strings.Join(r.Tiles, " ")
		}
		fmt.Fprintf(w, "  %2d. %s\n", i+1, line)
	}

	outcome := string(tbl.Outcome())
	if outcome == "" {
		outcome = "unfinished"
	}
	fmt.Fprintf(w, "Outcome: %s\n", outcome)
	fmt.Fprintf(w, "Hand: %s\n", strings.Join(engine.TileNames(tbl.Hand()), " "))
}
