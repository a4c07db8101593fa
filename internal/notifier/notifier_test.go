package notifier

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/ytpush/internal/domain"
	"github.com/MrSnakeDoc/ytpush/internal/logger"
)

const testChannel = "UCuAXFkgsw1L7xaCfnd5JJOw"

func TestListenerSugar(t *testing.T) {
	n := New(Options{Logger: logger.New("error", false)})

	noop := func(ctx context.Context, video *domain.Video) error { return nil }
	if err := n.OnUpload(noop); err != nil {
		t.Fatalf("OnUpload() error = %v", err)
	}
	if err := n.OnEdit(noop, testChannel); err != nil {
		t.Fatalf("OnEdit() error = %v", err)
	}
	if err := n.OnDelete(noop); err != nil {
		t.Fatalf("OnDelete() error = %v", err)
	}
	if err := n.OnAny(noop); err != nil {
		t.Fatalf("OnAny() error = %v", err)
	}
	if n.registry.Len() != 4 {
		t.Errorf("registry has %d registrations, want 4", n.registry.Len())
	}

	// OnUpload listener plus OnAny listener match an upload on any channel.
	if got := len(n.registry.Resolve(domain.KindUpload, "UCother")); got != 2 {
		t.Errorf("Resolve(upload, other channel) = %d listeners, want 2", got)
	}
	// The channel-scoped OnEdit listener joins for its own channel.
	if got := len(n.registry.Resolve(domain.KindEdit, testChannel)); got != 2 {
		t.Errorf("Resolve(edit, own channel) = %d listeners, want 2", got)
	}
}

func TestOnRejectsEmptyKinds(t *testing.T) {
	n := New(Options{Logger: logger.New("error", false)})

	err := n.On(nil, func(ctx context.Context, video *domain.Video) error { return nil })
	if err == nil {
		t.Error("On() with no kinds should fail")
	}
}

// hubModes records the hub.mode of every request the fake hub receives.
func hubServer(t *testing.T, modes chan<- string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			// channel existence probe
			w.WriteHeader(http.StatusOK)
			return
		}
		_ = r.ParseForm()
		modes <- r.PostForm.Get("hub.mode")
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunUnsubscribesOnShutdown(t *testing.T) {
	modes := make(chan string, 8)
	srv := hubServer(t, modes)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	n := New(Options{
		Logger:                logger.New("error", false),
		Listener:              ln,
		CallbackURL:           "http://" + ln.Addr().String(),
		WebhookPath:           "/webhook/test",
		Secret:                "secret",
		HubURL:                srv.URL,
		ProbeBaseURL:          srv.URL,
		UnsubscribeOnShutdown: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := n.Start(ctx)

	if err := n.Subscribe(ctx, testChannel); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if mode := <-modes; mode != "subscribe" {
		t.Errorf("first hub request mode = %q, want subscribe", mode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notifier did not shut down in time")
	}

	select {
	case mode := <-modes:
		if mode != "unsubscribe" {
			t.Errorf("shutdown hub request mode = %q, want unsubscribe", mode)
		}
	default:
		t.Error("no unsubscribe request sent on shutdown")
	}
}

func TestRunTwiceFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	n := New(Options{
		Logger:      logger.New("error", false),
		Listener:    ln,
		CallbackURL: "http://" + ln.Addr().String(),
		WebhookPath: "/webhook/test",
		Secret:      "secret",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := n.Start(ctx)

	// Give the first Run a moment to claim the lifecycle.
	time.Sleep(50 * time.Millisecond)
	if err := n.Run(ctx); err == nil {
		t.Error("second Run() should fail while the first is active")
	}

	cancel()
	<-done
}
