package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/ytpush/internal/config"
	"github.com/MrSnakeDoc/ytpush/internal/domain"
	"github.com/MrSnakeDoc/ytpush/internal/history"
	"github.com/MrSnakeDoc/ytpush/internal/logger"
	"github.com/MrSnakeDoc/ytpush/internal/metrics"
	"github.com/MrSnakeDoc/ytpush/internal/notifier"
	"github.com/MrSnakeDoc/ytpush/internal/redis"
	"github.com/MrSnakeDoc/ytpush/internal/sources/channels"
	"github.com/MrSnakeDoc/ytpush/internal/tunnel"
	"github.com/MrSnakeDoc/ytpush/internal/version"
)

type App struct {
	cfg    *config.Config
	logger logger.Logger
}

func New() *App {
	cfg := config.Load()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	return &App{
		cfg:    cfg,
		logger: loggerClient,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting ytpush v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("ytpush %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := a.buildHistory()
	if err != nil {
		return err
	}
	defer closeStore()

	opts := notifier.Options{
		Logger:                a.logger,
		Metrics:               metrics.New(prometheus.DefaultRegisterer),
		History:               store,
		ListenAddr:            a.cfg.ListenPort,
		CallbackURL:           a.cfg.CallbackURL,
		WebhookPath:           a.cfg.WebhookPath,
		Secret:                a.cfg.Secret,
		HubURL:                a.cfg.HubURL,
		LeaseSeconds:          a.cfg.LeaseSeconds,
		RenewalInterval:       a.cfg.RenewalInterval,
		RenewalLookahead:      a.cfg.RenewalLookahead,
		Version:               version.Version,
		UnsubscribeOnShutdown: true,
	}

	// Dev mode: no public callback, expose the webhook through ngrok. The
	// tunnel URL dies with the process, so there is nothing to unsubscribe;
	// leases just lapse.
	if a.cfg.CallbackURL == "" {
		tun, err := tunnel.Open(ctx, a.cfg.NgrokAuthtoken, a.logger)
		if err != nil {
			return err
		}
		opts.Listener = tun
		opts.CallbackURL = tun.URL()
		opts.UnsubscribeOnShutdown = false
	}

	n := notifier.New(opts)
	a.registerLogListeners(n)

	done := n.Start(ctx)

	if a.cfg.ChannelsFile != "" {
		entries, err := channels.NewLoader(a.cfg.ChannelsFile).Load()
		if err != nil {
			stop()
			<-done
			return fmt.Errorf("failed to load channels file: %w", err)
		}
		a.logger.Info("subscribing watchlist",
			logger.Int("channels", len(entries)),
			logger.String("file", a.cfg.ChannelsFile))
		if err := n.Subscribe(ctx, channels.IDs(entries)...); err != nil {
			stop()
			<-done
			return fmt.Errorf("failed to subscribe watchlist: %w", err)
		}
	}

	if err := <-done; err != nil {
		return err
	}
	a.logger.Info("✅ ytpush stopped cleanly")
	return nil
}

// buildHistory constructs the configured history backend and a cleanup func.
func (a *App) buildHistory() (history.Store, func(), error) {
	switch a.cfg.HistoryBackend {
	case "memory":
		return history.NewMemoryStore(a.cfg.HistoryCapacity), func() {}, nil

	case "file":
		store, err := history.NewFileStore(a.cfg.HistoryDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open history dir: %w", err)
		}
		return store, func() {}, nil

	case "redis":
		client, err := redis.Connect(redis.ConnectOptions{
			Addr:           a.cfg.RedisAddr,
			Password:       a.cfg.RedisPassword,
			DB:             a.cfg.RedisDB,
			ConnectTimeout: a.cfg.RedisConnectTimeout,
			RetryInterval:  a.cfg.RedisRetryInterval,
			MaxWait:        a.cfg.RedisMaxWait,
			PingTimeout:    a.cfg.RedisPingTimeout,
		}, a.logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				a.logger.Warnf("failed to close redis: %v", err)
			}
		}
		return history.NewRedisStore(client, a.cfg.HistoryTTL), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", a.cfg.HistoryBackend)
	}
}

// registerLogListeners wires a default listener that logs every event. A
// real deployment imports the notifier package and registers its own.
func (a *App) registerLogListeners(n *notifier.Notifier) {
	_ = n.OnAny(func(ctx context.Context, video *domain.Video) error {
		a.logger.Info("video event",
			logger.String("video_id", video.ID),
			logger.String("channel_id", video.Channel.ID),
			logger.String("title", video.Title),
			logger.Bool("short", video.IsShort),
			logger.Time("published", video.Timestamps.Published))
		return nil
	})
}
