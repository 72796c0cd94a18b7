package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/memtrace/memtrace"
	"github.com/memtrace/memtrace/config"
	"github.com/memtrace/memtrace/internal/core/ports"
	"github.com/memtrace/memtrace/internal/report"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "memtrace",
		Short:         "Memory allocation tracking, leak detection and profiling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to yaml config file")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newReportCmd(flags))
	return cmd
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	if flags.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(flags.configPath)
}

func buildLogger(level string) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	if level == "debug" {
		logConfig = zap.NewDevelopmentConfig()
	} else {
		parsed, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		logConfig.Level = parsed
	}
	return logConfig.Build()
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine until interrupted, then write a final report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger, err := buildLogger(flags.logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			engine, err := memtrace.New(cfg, memtrace.WithLogger(logger))
			if err != nil {
				return err
			}
			defer engine.Close()
			engine.Start()

			events, cancel := engine.Subscribe(64)
			defer cancel()
			go logEvents(logger, events)

			if cfg.Metrics.Enabled {
				go serveMetrics(logger, cfg.Metrics.Addr, engine)
			}
			if demo {
				demoStop := make(chan struct{})
				defer close(demoStop)
				go runDemoWorkload(engine, demoStop)
				logger.Info("demo workload started")
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			logger.Info("shutting down")
			engine.Stop()

			return writeFinalReport(logger, cfg, engine)
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "run a synthetic allocation workload, including a deliberate leak")
	return cmd
}

func newReportCmd(flags *rootFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Take one snapshot and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			engine, err := memtrace.New(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			engine.TakeSnapshotNow()
			out, err := engine.Export(memtrace.Format(format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(memtrace.FormatText), "output format (json, text)")
	return cmd
}

func logEvents(logger *zap.Logger, events <-chan memtrace.Event) {
	for ev := range events {
		switch {
		case len(ev.Leaks) > 0:
			logger.Warn("leak candidates",
				zap.String("event_id", ev.ID),
				zap.Int("count", len(ev.Leaks)))
		case len(ev.Suggestions) > 0:
			for _, s := range ev.Suggestions {
				logger.Info("suggestion",
					zap.String("category", s.Category),
					zap.Int("priority", s.Priority),
					zap.String("action", s.RecommendedAction))
			}
		}
	}
}

func serveMetrics(logger *zap.Logger, addr string, engine *memtrace.Engine) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(engine.Collector())
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed", zap.Error(err))
	}
}

func writeFinalReport(logger *zap.Logger, cfg config.Config, engine *memtrace.Engine) error {
	out, err := engine.Export(memtrace.FormatJSON)
	if err != nil {
		return err
	}
	if cfg.Report.Path == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	var sink ports.ReportSink
	sink, err = report.NewFileSink(cfg.Report.Path)
	if err != nil {
		return err
	}
	if err := sink.Write(out); err != nil {
		return err
	}
	logger.Info("report written", zap.String("path", cfg.Report.Path))
	return nil
}

// runDemoWorkload exercises the tracking API with short-lived allocations
// plus a handful that are never freed, so leak candidates show up once the
// age threshold passes.
func runDemoWorkload(engine *memtrace.Engine, stop <-chan struct{}) {
	var next uintptr = 0x1000
	for i := 0; i < 8; i++ {
		engine.RecordAllocation(next, 64*1024, &memtrace.SourceLocation{File: "demo.go", Line: 1})
		next += 0x10
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	live := make([]uintptr, 0, 128)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			addr := next
			next += 0x10
			engine.RecordAllocation(addr, uint64(rand.Intn(4096)+512), nil)
			live = append(live, addr)
			if len(live) > 64 {
				engine.RecordDeallocation(live[0])
				live = live[1:]
			}
		}
	}
}
