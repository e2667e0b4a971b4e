package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-companion/internal/config"
	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/chat"
	"github.com/teslashibe/go-companion/pkg/engine"
	"github.com/teslashibe/go-companion/pkg/haptics"
	"github.com/teslashibe/go-companion/pkg/hub"
	"github.com/teslashibe/go-companion/pkg/presence"
	"github.com/teslashibe/go-companion/pkg/protocol"
	"github.com/teslashibe/go-companion/pkg/speech"
	"github.com/teslashibe/go-companion/pkg/store"
	"github.com/teslashibe/go-companion/pkg/web"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with the web API, websockets and presence",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if addr != "" {
				cfg.Web.Addr = addr
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides web.addr)")
	return cmd
}

// closers run in reverse order on shutdown.
type closers []func()

func (c *closers) add(f func()) { *c = append(*c, f) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := log.L()
	session := uuid.NewString()
	logger.Info("starting companion", "version", Version, "session", session)

	var cleanup closers
	defer cleanup.run()

	kv, closeKV, err := openKV(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	cleanup.add(closeKV)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	paramsHub := hub.New("params", logger)
	sinks := haptics.Multi{
		haptics.LogSink{Logger: logger.With("component", "haptics")},
		haptics.BroadcastSink{Target: paramsHub, Wrap: func(ev haptics.Event) (any, error) {
			return protocol.NewHapticMessage(ev)
		}},
	}

	var status engine.StatusPublisher = presence.Nop{}
	if cfg.NATS.Enabled {
		nc, closeNATS, err := presence.Connect(cfg.NATS.URL, cfg.NATS.Name, logger)
		if err != nil {
			return err
		}
		cleanup.add(closeNATS)
		pub := presence.NewPublisher(nc, session, logger)
		status = pub
		sinks = append(sinks, pub)
	}

	// The speaker meters its own audio back into the engine, which does
	// not exist yet when the speaker is built.
	var eng *engine.Engine
	deps := engine.Deps{
		Store:    store.NewRepository(kv),
		Haptics:  sinks,
		Renderer: hub.Renderer{Hub: paramsHub},
		Status:   status,
		Logger:   logger,
		Registry: reg,
		Session:  session,
	}
	if cfg.Chat.Enabled {
		chatCfg := cfg.Chat.Config
		deps.Lines = chat.NewClient(
			chat.WithBaseURL(chatCfg.BaseURL),
			chat.WithMaxTokens(chatCfg.MaxTokens),
			chat.WithName(chatCfg.Name),
			chat.WithLogger(logger),
		)
	}
	if cfg.Speech.Enabled {
		sp := cfg.Speech.Config
		deps.Speaker = speech.NewClient(
			func(speaking bool, level float64) error { return eng.NotifySpeakingState(speaking, level) },
			speech.WithBaseURL(sp.BaseURL),
			speech.WithSpeakerWAV(sp.SpeakerWAV),
			speech.WithLanguage(sp.Language),
			speech.WithRealtime(sp.Realtime),
			speech.WithLogger(logger),
		)
	}

	eng, err = engine.New(ctx, cfg.Engine, deps)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("engine close", "error", err)
		}
	}()

	srv := web.NewServer(web.Config{
		Addr:         cfg.Web.Addr,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		Gatherer:     reg,
		Logger:       logger,
	}, eng, paramsHub)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		paramsHub.Run(gctx)
		return nil
	})
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })

	err = g.Wait()
	logger.Info("companion stopped", "error", err)
	return err
}

func openKV(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.KV, func(), error) {
	switch cfg.Backend {
	case config.StoreMemory:
		return store.NewMemory(), func() {}, nil
	case config.StorePostgres:
		pg, closePG, err := store.OpenPostgres(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return pg, closePG, nil
	default:
		path := cfg.Path
		if path == "" {
			p, err := store.DefaultPath()
			if err != nil {
				return nil, nil, err
			}
			path = p
		}
		js, err := store.NewJSONFile(path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("state file", "path", js.Path())
		return js, func() {}, nil
	}
}
