// Package irocv wires the recorder together: a reading source, the
// sampling loop, the durable CSV log, live reporters, and the metrics
// endpoint, all built from one config with functional options to swap
// any piece.
package irocv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/adapters/ads1115"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/adapters/archive"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/adapters/csvlog"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/adapters/observability"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/adapters/opcuasrc"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/adapters/reporter"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/adapters/serialsrc"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/adapters/simsource"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/app/config"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/app/loop"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
)

// Option customizes the dependencies used by Runtime.
type Option func(*overrides)

type overrides struct {
	source    ports.Source
	writer    ports.LogWriter
	reporters []ports.Reporter
	obs       ports.Observability
}

// WithSource injects a custom reading source (bench rigs, simulators).
func WithSource(s ports.Source) Option {
	return func(o *overrides) { o.source = s }
}

// WithLogWriter replaces the CSV log writer.
func WithLogWriter(w ports.LogWriter) Option {
	return func(o *overrides) { o.writer = w }
}

// WithReporter appends an extra live reporter.
func WithReporter(r ports.Reporter) Option {
	return func(o *overrides) { o.reporters = append(o.reporters, r) }
}

// WithObservability plugs in a custom metrics/log backend.
func WithObservability(obs ports.Observability) Option {
	return func(o *overrides) { o.obs = obs }
}

// Runtime owns one logging run: source → validate → log + report.
type Runtime struct {
	cfg        *config.Config
	obs        ports.Observability
	source     ports.Source
	writer     ports.LogWriter
	reporters  []ports.Reporter
	loop       *loop.Loop
	metricsSrv *http.Server
}

// NewRuntime builds the default adapters from config. Any dependency can
// be overridden through options; the archive mirror is attached when
// configured.
func NewRuntime(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var over overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&over)
		}
	}

	obs := over.obs
	if obs == nil {
		obs = observability.NewPromObs()
	}

	writer := over.writer
	if writer == nil {
		w, err := csvlog.Open(cfg.Log.Path)
		if err != nil {
			return nil, err
		}
		writer = w
	}

	if cfg.Archive.ConnString != "" {
		db, err := sql.Open("postgres", cfg.Archive.ConnString)
		if err != nil {
			writer.Close()
			return nil, fmt.Errorf("open archive: %w", err)
		}
		writer = archive.NewMirroringWriter(writer, archive.NewPostgresArchive(db, cfg.Archive.Table), obs)
	}

	source := over.source
	if source == nil {
		s, err := openSource(cfg)
		if err != nil {
			writer.Close()
			return nil, err
		}
		source = s
	}

	reporters := over.reporters
	if cfg.Reporter.Console {
		reporters = append(reporters, reporter.NewConsole(os.Stdout, sessionLabel(cfg)))
	}
	if cfg.Reporter.MQTT.Server != "" {
		m, err := reporter.NewMQTT(reporter.MQTTConfig{
			Server:   cfg.Reporter.MQTT.Server,
			Username: cfg.Reporter.MQTT.Username,
			Password: cfg.Reporter.MQTT.Password,
			ClientID: cfg.Reporter.MQTT.ClientID,
			Topic:    cfg.Reporter.MQTT.Topic,
			PackName: cfg.Session.PackName,
			PackCode: cfg.Session.PackCode,
		})
		if err != nil {
			source.Close()
			writer.Close()
			return nil, err
		}
		reporters = append(reporters, m)
	}

	l := loop.New(loop.Settings{
		Interval:   cfg.Sampling.Interval,
		RetryLimit: cfg.Sampling.RetryLimit,
		Bounds:     cfg.Sampling.Bounds,
	}, source, writer, reporters, obs)

	return &Runtime{
		cfg:       cfg,
		obs:       obs,
		source:    source,
		writer:    writer,
		reporters: reporters,
		loop:      l,
	}, nil
}

// Run starts the metrics endpoint and samples until ctx is cancelled or
// a fatal error stops the loop, then shuts everything down with the log
// writer closed last.
func (r *Runtime) Run(ctx context.Context) error {
	r.startMetrics()
	r.obs.LogInfo("recording_started",
		ports.Field{Key: "pack_name", Value: r.cfg.Session.PackName},
		ports.Field{Key: "pack_code", Value: r.cfg.Session.PackCode},
		ports.Field{Key: "log_path", Value: r.cfg.Log.Path},
		ports.Field{Key: "interval", Value: r.cfg.Sampling.Interval},
	)

	runErr := r.loop.Run(ctx)

	counts := r.loop.Counts()
	r.obs.LogInfo("recording_stopped",
		ports.Field{Key: "accepted", Value: counts.Accepted},
		ports.Field{Key: "rejected", Value: counts.Rejected},
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Counts returns the loop's counters.
func (r *Runtime) Counts() loop.Counts { return r.loop.Counts() }

// Shutdown stops the metrics server and closes the source, reporters,
// and finally the log writer.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		r.metricsSrv = nil
	}

	if r.source != nil {
		if err := r.source.Close(); err != nil {
			errs = append(errs, err)
		}
		r.source = nil
	}

	for _, rep := range r.reporters {
		if err := rep.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.reporters = nil

	if r.writer != nil {
		if err := r.writer.Close(); err != nil {
			errs = append(errs, err)
		}
		r.writer = nil
	}

	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()
}

func openSource(cfg *config.Config) (ports.Source, error) {
	switch cfg.Source.Kind {
	case "serial":
		return serialsrc.Open(cfg.Source.Serial)
	case "opcua":
		return opcuasrc.Open(context.Background(), cfg.Source.OPCUA)
	case "ads1115":
		return ads1115.Open(cfg.Source.ADS1115)
	case "sim":
		return simsource.New(cfg.Source.Sim), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

func sessionLabel(cfg *config.Config) string {
	switch {
	case cfg.Session.PackName != "" && cfg.Session.PackCode != "":
		return cfg.Session.PackName + "/" + cfg.Session.PackCode
	case cfg.Session.PackName != "":
		return cfg.Session.PackName
	default:
		return cfg.Session.PackCode
	}
}
