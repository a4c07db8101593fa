// Package notifier is the facade of the push client: it owns the
// subscription records, the hub client, the webhook server, the renewal
// loop and the listener registry, and exposes a small API over them.
package notifier

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/ytpush/internal/dispatch"
	"github.com/MrSnakeDoc/ytpush/internal/domain"
	"github.com/MrSnakeDoc/ytpush/internal/history"
	"github.com/MrSnakeDoc/ytpush/internal/httpserver"
	"github.com/MrSnakeDoc/ytpush/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ytpush/internal/hub"
	"github.com/MrSnakeDoc/ytpush/internal/logger"
	"github.com/MrSnakeDoc/ytpush/internal/metrics"
	"github.com/MrSnakeDoc/ytpush/internal/scheduler"
)

// Options configures a Notifier. Zero values get sensible defaults.
type Options struct {
	Logger  logger.Logger
	Metrics *metrics.Metrics
	History history.Store // defaults to a bounded in-memory store

	ListenAddr  string       // local bind address, defaults to ":8080"
	Listener    net.Listener // optional: serve on this instead of binding (tunnel)
	CallbackURL string       // externally reachable base URL, no trailing path
	WebhookPath string       // delivery mount point, e.g. /webhook/<uuid>
	Secret      string       // HMAC secret registered with the hub

	HubURL           string
	ProbeBaseURL     string
	LeaseSeconds     int
	RenewalInterval  time.Duration // defaults to 1h
	RenewalLookahead time.Duration // defaults to 12h

	Version               string
	UnsubscribeOnShutdown bool // send unsubscribe for every record on Shutdown
}

// Notifier wires subscription management, webhook validation and event
// dispatch into one object with a start/stop lifecycle.
type Notifier struct {
	logger     logger.Logger
	opts       Options
	subs       *hub.Subscriptions
	client     *hub.Client
	registry   *dispatch.Registry
	dispatcher *dispatch.Dispatcher
	renewer    *scheduler.Renewer
	server     *httpserver.Server

	mu      sync.Mutex
	started bool
}

func New(opts Options) *Notifier {
	if opts.Logger == nil {
		opts.Logger = logger.New("info", false)
	}
	if opts.History == nil {
		opts.History = history.NewMemoryStore(history.DefaultCapacity)
	}
	if opts.ListenAddr == "" {
		opts.ListenAddr = ":8080"
	}
	if opts.WebhookPath == "" {
		opts.WebhookPath = "/webhook"
	}
	if opts.RenewalInterval <= 0 {
		opts.RenewalInterval = time.Hour
	}
	if opts.RenewalLookahead <= 0 {
		opts.RenewalLookahead = 12 * time.Hour
	}

	subs := hub.NewSubscriptions()
	registry := dispatch.NewRegistry()
	dispatcher := dispatch.NewDispatcher(opts.History, registry, opts.Logger, opts.Metrics)

	client := hub.NewClient(hub.Options{
		HubURL:       opts.HubURL,
		ProbeBaseURL: opts.ProbeBaseURL,
		CallbackURL:  strings.TrimRight(opts.CallbackURL, "/") + opts.WebhookPath,
		Secret:       opts.Secret,
		LeaseSeconds: opts.LeaseSeconds,
	}, subs, opts.Logger)

	renewer := scheduler.NewRenewer(client, subs, opts.Logger, opts.Metrics,
		opts.RenewalInterval, opts.RenewalLookahead)

	d := deps.Deps{
		Logger:      opts.Logger,
		StartTime:   time.Now(),
		Version:     opts.Version,
		TimeNow:     time.Now,
		WebhookPath: opts.WebhookPath,
		Secret:      opts.Secret,
		Subs:        subs,
		Dispatcher:  dispatcher,
		Metrics:     opts.Metrics,
	}
	server := httpserver.New(opts.ListenAddr, opts.Logger, d, opts.Listener)

	return &Notifier{
		logger:     opts.Logger,
		opts:       opts,
		subs:       subs,
		client:     client,
		registry:   registry,
		dispatcher: dispatcher,
		renewer:    renewer,
		server:     server,
	}
}

// Subscribe asks the hub to push notifications for the given channels.
func (n *Notifier) Subscribe(ctx context.Context, channelIDs ...string) error {
	return n.client.Subscribe(ctx, channelIDs)
}

// Unsubscribe asks the hub to stop pushing for the given channels.
func (n *Notifier) Unsubscribe(ctx context.Context, channelIDs ...string) error {
	return n.client.Unsubscribe(ctx, channelIDs)
}

// On registers a listener for the given kinds, optionally restricted to
// specific channel IDs. No channel IDs means all channels.
func (n *Notifier) On(kinds []domain.Kind, fn dispatch.Listener, channelIDs ...string) error {
	return n.registry.Register(fn, kinds, channelIDs)
}

// OnUpload registers a listener for newly published videos.
func (n *Notifier) OnUpload(fn dispatch.Listener, channelIDs ...string) error {
	return n.On([]domain.Kind{domain.KindUpload}, fn, channelIDs...)
}

// OnEdit registers a listener for updates to already-seen videos.
func (n *Notifier) OnEdit(fn dispatch.Listener, channelIDs ...string) error {
	return n.On([]domain.Kind{domain.KindEdit}, fn, channelIDs...)
}

// OnDelete registers a listener for deleted videos.
func (n *Notifier) OnDelete(fn dispatch.Listener, channelIDs ...string) error {
	return n.On([]domain.Kind{domain.KindDelete}, fn, channelIDs...)
}

// OnAny registers a listener for every event kind.
func (n *Notifier) OnAny(fn dispatch.Listener, channelIDs ...string) error {
	return n.On([]domain.Kind{domain.KindAny}, fn, channelIDs...)
}

// Run starts the webhook server and renewal loop and blocks until ctx is
// canceled or the server fails. Shutdown runs before Run returns.
func (n *Notifier) Run(ctx context.Context) error {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return fmt.Errorf("notifier already running")
	}
	n.started = true
	n.mu.Unlock()

	n.renewer.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := n.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		n.logger.Info("notifier shutting down...")
	case err := <-errCh:
		n.renewer.Stop()
		return err
	}

	return n.shutdown()
}

// Start runs the notifier in the background and returns a channel carrying
// its terminal error (nil on clean shutdown).
func (n *Notifier) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	return done
}

// Subscriptions returns a snapshot of the tracked subscription records.
func (n *Notifier) Subscriptions() []hub.Subscription {
	return n.subs.Snapshot()
}

func (n *Notifier) shutdown() error {
	n.renewer.Stop()

	// ctx passed to Run is already canceled here, so shutdown work gets
	// its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if n.opts.UnsubscribeOnShutdown {
		if ids := n.subs.ChannelIDs(); len(ids) > 0 {
			if err := n.client.Unsubscribe(shutdownCtx, ids); err != nil {
				n.logger.Warn("failed to unsubscribe on shutdown", logger.Error(err))
			}
		}
	}

	if err := n.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}
