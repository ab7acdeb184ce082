package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/volleyfire/volleyfire/internal/config"
	"github.com/volleyfire/volleyfire/internal/controller"
	"github.com/volleyfire/volleyfire/internal/dashboard"
	"github.com/volleyfire/volleyfire/internal/output"
	"github.com/volleyfire/volleyfire/internal/threshold"
	"github.com/volleyfire/volleyfire/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Normalize()

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: trace export shutdown: %v\n", err)
		}
	}()

	ctrl := controller.New(controller.Options{
		Tracer:    provider.Tracer(),
		Propagate: provider.ShouldPropagate(),
	})

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(ctrl.Events(), ctrl.Logs(), dashboard.RunConfig{
			TargetURL:   cfg.TargetURL,
			Method:      cfg.Method,
			Total:       cfg.Total,
			Concurrency: cfg.Concurrency,
			Timeout:     cfg.Timeout,
			ConfigFile:  cfg.ConfigFile,
		}, ctrl.Stop)
		if err != nil {
			return err
		}
		dash.Start()
	}

	var progress *output.ProgressReporter
	if !cfg.JSONOutput && !cfg.Dashboard {
		progress = output.NewProgressReporter(ctrl.Events(), os.Stdout)
		progress.Start()
	}

	logDone := make(chan struct{})
	if cfg.LogLines && !cfg.Dashboard {
		go func() {
			for {
				select {
				case line := <-ctrl.Logs():
					fmt.Fprintln(os.Stderr, line)
				case <-logDone:
					return
				}
			}
		}()
	}

	stats, err := ctrl.Start(ctx, cfg)

	if dash != nil {
		dash.Stop()
	}
	if progress != nil {
		progress.Stop()
	}
	close(logDone)

	if err != nil {
		return err
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, stats)
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(stats)
	thresholdOut := os.Stdout
	if cfg.JSONOutput {
		// Keep stdout valid JSON when thresholds are in play.
		thresholdOut = os.Stderr
	}
	if !output.PrintThresholdResults(thresholdOut, results) {
		return fmt.Errorf("thresholds not met")
	}

	return nil
}
