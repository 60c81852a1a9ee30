package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"careerprep/internal/adapter/api"
	"careerprep/internal/adapter/sse"
	"careerprep/internal/adapter/store"
	"careerprep/internal/domain"
	"careerprep/internal/infra/config"
	"careerprep/internal/infra/logger"
	"careerprep/internal/infra/tracer"
	"careerprep/internal/usecase"
	"careerprep/internal/usecase/eventbus"
)

// app holds the wired components shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.SQLiteStore
	bus     *eventbus.Bus
	auth    *usecase.AuthService
	client  *api.Client
	streams *usecase.StreamManager
	history *usecase.HistoryRecorder

	closers []func() error
}

// newApp loads config and wires the runtime. tui moves stderr logging to a
// file so log lines do not draw over the full-screen view.
func newApp(ctx context.Context, cfgPath string, tui bool) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if tui && (cfg.Logger.Output == "" || cfg.Logger.Output == "stderr" || cfg.Logger.Output == "stdout") {
		cfg.Logger.Output = filepath.Join(filepath.Dir(cfg.Store.Path), "careerprep.log")
	}

	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}
	a.logger = log
	a.closers = append(a.closers, closeLog)

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.closers = append(a.closers, func() error { return shutdownTracer(context.Background()) })

	var storeOpts []store.Option
	if cfg.Store.Passphrase != "" {
		storeOpts = append(storeOpts, store.WithPassphrase(cfg.Store.Passphrase))
	}
	st, err := store.Open(cfg.Store.Path, storeOpts...)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	a.bus = eventbus.New(log)
	a.closers = append(a.closers, func() error { a.bus.Close(); return nil })

	a.auth = usecase.NewAuthService(nil, st, log,
		usecase.WithStaticToken(cfg.API.Token),
		usecase.WithAuthEventBus(a.bus),
	)
	a.client = api.NewFromConfig(cfg.API, a.auth, log)
	a.auth.SetExchanger(a.client)

	a.history = usecase.NewHistoryRecorder(st, log)
	a.history.Attach(a.bus)

	specs, err := usecase.SpecsFromConfig(cfg.Streams)
	if err != nil {
		return nil, err
	}
	acc := sse.NewAccumulator(log, sse.WithReadSize(cfg.Streams.ReadSize))
	consume := func(ctx context.Context, body io.ReadCloser, spec domain.StreamSpec, cb domain.StreamCallbacks) domain.StreamHandle {
		return acc.Consume(ctx, body, spec, cb)
	}
	a.streams = usecase.NewStreamManager(consume, specs, a.bus, log)
	a.closers = append(a.closers, func() error { a.streams.CancelAll(); return nil })

	log.Debug("careerprep ready", "base_url", cfg.API.BaseURL, "store", cfg.Store.Path)
	ok = true
	return a, nil
}

// Close releases resources in reverse order of creation. Closing the bus
// drains pending history writes before the store closes.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
