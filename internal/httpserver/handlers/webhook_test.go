package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/ytpush/internal/dispatch"
	"github.com/MrSnakeDoc/ytpush/internal/domain"
	"github.com/MrSnakeDoc/ytpush/internal/history"
	"github.com/MrSnakeDoc/ytpush/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ytpush/internal/hub"
	"github.com/MrSnakeDoc/ytpush/internal/logger"
)

const testSecret = "super-secret-signing-key"

const uploadPayload = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015"
      xmlns="http://www.w3.org/2005/Atom">
  <title>YouTube video feed</title>
  <entry>
    <id>yt:video:dQw4w9WgXcQ</id>
    <yt:videoId>dQw4w9WgXcQ</yt:videoId>
    <yt:channelId>UCuAXFkgsw1L7xaCfnd5JJOw</yt:channelId>
    <title>Never Gonna Give You Up</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=dQw4w9WgXcQ"/>
    <author>
      <name>Rick Astley</name>
      <uri>https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw</uri>
    </author>
    <published>2024-03-01T10:00:00+00:00</published>
    <updated>2024-03-01T10:00:00+00:00</updated>
  </entry>
</feed>`

func sign(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

type webhookEnv struct {
	deps    deps.Deps
	store   *history.MemoryStore
	uploads *atomic.Int32
}

func newWebhookEnv(t *testing.T) *webhookEnv {
	t.Helper()

	store := history.NewMemoryStore(history.DefaultCapacity)
	reg := dispatch.NewRegistry()
	var uploads atomic.Int32
	err := reg.Register(func(ctx context.Context, video *domain.Video) error {
		uploads.Add(1)
		return nil
	}, []domain.Kind{domain.KindUpload}, nil)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	log := logger.New("error", false)
	disp := dispatch.NewDispatcher(store, reg, log, nil)

	return &webhookEnv{
		deps: deps.Deps{
			Logger:      log,
			StartTime:   time.Now(),
			WebhookPath: "/webhook/test",
			Secret:      testSecret,
			Subs:        hub.NewSubscriptions(),
			Dispatcher:  disp,
		},
		store:   store,
		uploads: &uploads,
	}
}

func TestWebhookVerifyEchoesChallenge(t *testing.T) {
	env := newWebhookEnv(t)
	env.deps.Subs.Track("UCuAXFkgsw1L7xaCfnd5JJOw", "https://example.com/topic")

	req := httptest.NewRequest(http.MethodGet,
		"/webhook/test?hub.mode=subscribe&hub.challenge=abc123&hub.lease_seconds=86400&hub.topic=https%3A%2F%2Fexample.com%2Ftopic", http.NoBody)
	rec := httptest.NewRecorder()

	WebhookVerify(env.deps)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "abc123" {
		t.Errorf("body = %q, want the challenge echoed back verbatim", got)
	}

	snap := env.deps.Subs.Snapshot()
	if len(snap) != 1 || snap[0].State != hub.StateActive {
		t.Errorf("subscription not activated by handshake: %+v", snap)
	}
}

func TestWebhookVerifyMissingChallenge(t *testing.T) {
	env := newWebhookEnv(t)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook/test?hub.mode=subscribe&hub.topic=whatever", http.NoBody)
	rec := httptest.NewRecorder()

	WebhookVerify(env.deps)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 when hub.challenge is absent", rec.Code)
	}
}

func TestWebhookVerifyUnknownTopic(t *testing.T) {
	env := newWebhookEnv(t)

	req := httptest.NewRequest(http.MethodGet,
		"/webhook/test?hub.mode=subscribe&hub.challenge=abc&hub.topic=https%3A%2F%2Fexample.com%2Fnever-asked", http.NoBody)
	rec := httptest.NewRecorder()

	WebhookVerify(env.deps)(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for a topic we never subscribed to", rec.Code)
	}
}

func TestWebhookVerifyUnsubscribe(t *testing.T) {
	env := newWebhookEnv(t)
	env.deps.Subs.Track("UCuAXFkgsw1L7xaCfnd5JJOw", "https://example.com/topic")
	env.deps.Subs.MarkUnsubscribing("https://example.com/topic")

	req := httptest.NewRequest(http.MethodGet,
		"/webhook/test?hub.mode=unsubscribe&hub.challenge=bye&hub.topic=https%3A%2F%2Fexample.com%2Ftopic", http.NoBody)
	rec := httptest.NewRecorder()

	WebhookVerify(env.deps)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if env.deps.Subs.Len() != 0 {
		t.Errorf("record still tracked after confirmed unsubscribe")
	}
}

func deliver(env *webhookEnv, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/test", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Hub-Signature", signature)
	}
	rec := httptest.NewRecorder()
	WebhookDeliver(env.deps)(rec, req)
	return rec
}

func TestWebhookDeliverHappyPath(t *testing.T) {
	env := newWebhookEnv(t)
	body := []byte(uploadPayload)

	rec := deliver(env, body, sign(testSecret, body))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if n := env.uploads.Load(); n != 1 {
		t.Errorf("upload listener called %d times, want 1", n)
	}
	seen, err := env.store.Has(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Has() error = %v", err)
	}
	if !seen {
		t.Error("video ID not recorded in history after delivery")
	}
}

func TestWebhookDeliverBadSignature(t *testing.T) {
	env := newWebhookEnv(t)
	body := []byte(uploadPayload)

	rec := deliver(env, body, sign("wrong-key", body))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	// Rejected before parsing: nothing classified, nothing remembered.
	if n := env.uploads.Load(); n != 0 {
		t.Errorf("listener called %d times on a forged delivery, want 0", n)
	}
	seen, _ := env.store.Has(context.Background(), "dQw4w9WgXcQ")
	if seen {
		t.Error("forged delivery must not touch history")
	}
}

func TestWebhookDeliverMissingSignature(t *testing.T) {
	env := newWebhookEnv(t)
	body := []byte(uploadPayload)

	rec := deliver(env, body, "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 when the signature header is absent", rec.Code)
	}
}

func TestWebhookDeliverTamperedBody(t *testing.T) {
	env := newWebhookEnv(t)
	body := []byte(uploadPayload)
	sig := sign(testSecret, body)
	tampered := bytes.Replace(body, []byte("dQw4w9WgXcQ"), []byte("aaaaaaaaaaa"), -1)

	rec := deliver(env, tampered, sig)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for a body that does not match its signature", rec.Code)
	}
}

func TestWebhookDeliverMalformedPayload(t *testing.T) {
	env := newWebhookEnv(t)
	body := []byte("this is not xml at all")

	rec := deliver(env, body, sign(testSecret, body))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unparseable payload", rec.Code)
	}
}

func TestWebhookDeliverEmptyFeed(t *testing.T) {
	env := newWebhookEnv(t)
	body := []byte(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"><title>empty</title></feed>`)

	rec := deliver(env, body, sign(testSecret, body))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a feed with no entries", rec.Code)
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte("delivery payload")

	tests := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{name: "valid", header: sign(testSecret, body), wantErr: false},
		{name: "missing header", header: "", wantErr: true},
		{name: "wrong scheme", header: "sha256=0011", wantErr: true},
		{name: "not hex", header: "sha1=zzzz", wantErr: true},
		{name: "wrong key", header: sign("other-key", body), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifySignature(testSecret, tt.header, body)
			if !tt.wantErr {
				if err != nil {
					t.Errorf("verifySignature() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrBadSignature) {
				t.Errorf("verifySignature() error = %v, want ErrBadSignature", err)
			}
		})
	}
}

func TestWebhookDeliverListenerFailureStillAcked(t *testing.T) {
	env := newWebhookEnv(t)
	err := env.deps.Dispatcher.Registry().Register(func(ctx context.Context, video *domain.Video) error {
		return io.ErrUnexpectedEOF
	}, []domain.Kind{domain.KindAny}, nil)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	body := []byte(uploadPayload)
	rec := deliver(env, body, sign(testSecret, body))

	// Listener errors are logged, never bounced back to the hub.
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204 even when a listener fails", rec.Code)
	}
}
