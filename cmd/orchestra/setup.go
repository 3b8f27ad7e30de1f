package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/orchestra/observability"
	"github.com/tailored-agentic-units/orchestra/orchestrate/config"
)

const tracerName = "github.com/tailored-agentic-units/orchestra/cmd/orchestra"

type options struct {
	configPath string
	verbose    bool
	trace      bool

	cfg      config.Config
	logger   *slog.Logger
	observer string
	provider *sdktrace.TracerProvider
}

func (o *options) setup(ctx context.Context) error {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.logger)

	o.cfg = config.DefaultConfig()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		o.cfg = *loaded
	}
	o.cfg.Hub.Logger = o.logger

	// Events go to slog when verbose and to the active span when tracing.
	var observers []observability.Observer
	if o.verbose {
		observers = append(observers, observability.NewSlogObserver(o.logger))
	}
	if o.trace {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("create stdout exporter: %w", err)
		}
		o.provider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		otel.SetTracerProvider(o.provider)
		traceObserver := observability.NewTraceObserver(observability.LevelVerbose)
		observability.RegisterObserver("otel", traceObserver)
		observers = append(observers, traceObserver)
	}

	if len(observers) > 0 {
		o.observer = "cli"
		observability.RegisterObserver(o.observer, observability.NewMultiObserver(observers...))
		o.applyObserver()
	}
	return nil
}

// applyObserver routes components still on the default observer to the CLI
// observer. Observers chosen in the config file are kept.
func (o *options) applyObserver() {
	for _, name := range []*string{
		&o.cfg.Hub.Observer,
		&o.cfg.Sequential.Observer,
		&o.cfg.Fanout.Observer,
		&o.cfg.Stream.Observer,
		&o.cfg.Notebook.Observer,
	} {
		if *name == "" || *name == "noop" {
			*name = o.observer
		}
	}
}

func (o *options) shutdown(ctx context.Context) error {
	if o.provider == nil {
		return nil
	}
	return o.provider.Shutdown(context.WithoutCancel(ctx))
}

// span starts a root span for a demo. Without --trace the global provider
// is a no-op.
func (o *options) span(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name)
}
