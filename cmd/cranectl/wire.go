package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"

	crane "github.com/wagiedev/crane-service-go"
	"github.com/wagiedev/crane-service-go/internal/config"
)

// app holds everything the commands share, built from flags, environment
// and config file.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	log         *slog.Logger
	options     []crane.Option
	scanner     *crane.ModelScanner
	registry    *prometheus.Registry
	metricsAddr string
}

func (a *app) wire(v *viper.Viper) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(flagLogLevel))); err != nil {
		return fmt.Errorf("invalid %s: %w", flagLogLevel, err)
	}

	a.log = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	policy, err := config.ParseMatchPolicy(v.GetString(flagMatch))
	if err != nil {
		return err
	}

	projectDir := v.GetString(flagProjectDir)

	checkpoints := v.GetString(flagCheckpointsDir)
	if checkpoints == "" {
		checkpoints = filepath.Join(projectDir, "checkpoints")
	}

	a.scanner = crane.NewModelScanner(checkpoints, crane.WithLogger(a.log))

	a.options = []crane.Option{
		crane.WithLogger(a.log),
		crane.WithWorkerPath(v.GetString(flagWorkerPath)),
		crane.WithLayout(crane.Layout{
			DevMode:      v.GetBool(flagDev),
			ProjectDir:   projectDir,
			DistDir:      v.GetString(flagDistDir),
			ResourcesDir: v.GetString(flagResourcesDir),
		}),
		crane.WithMatchPolicy(policy),
		crane.WithStderr(func(line string) {
			a.log.Debug("Worker stderr", "line", line)
		}),
	}

	a.metricsAddr = v.GetString(flagMetricsAddr)
	if a.metricsAddr != "" {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		recorder, err := crane.NewPrometheusMetrics(a.registry)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}

		a.options = append(a.options, crane.WithMetrics(recorder))
	}

	return nil
}

// serveMetrics exposes the registry on metricsAddr until ctx is done.
// It is a no-op when no address is configured.
func (a *app) serveMetrics(ctx context.Context) {
	if a.registry == nil {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))

	server := &http.Server{
		Addr:              a.metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		a.log.Info("Serving metrics", "addr", a.metricsAddr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("Metrics server stopped", "error", err)
		}
	}()
}
