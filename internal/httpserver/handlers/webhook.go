package handlers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/ytpush/internal/domain"
	"github.com/MrSnakeDoc/ytpush/internal/feed"
	"github.com/MrSnakeDoc/ytpush/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ytpush/internal/logger"
)

// DefaultMaxBodyBytes caps delivery payloads. Real feed pushes are a few KB.
const DefaultMaxBodyBytes = 1 << 20

// WebhookVerify answers the hub's GET handshake: echo the challenge for
// topics we actually asked about, 404 anything else so a stranger cannot
// confirm subscriptions on our behalf.
func WebhookVerify(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		challenge := q.Get("hub.challenge")
		mode := q.Get("hub.mode")
		topic := q.Get("hub.topic")

		if challenge == "" {
			http.Error(w, "missing hub.challenge", http.StatusBadRequest)
			return
		}

		var err error
		switch mode {
		case "subscribe":
			lease := leaseDuration(q.Get("hub.lease_seconds"))
			err = d.Subs.Verify(topic, lease)
		case "unsubscribe":
			err = d.Subs.ConfirmUnsubscribe(topic)
		default:
			http.Error(w, "unsupported hub.mode", http.StatusBadRequest)
			return
		}

		if err != nil {
			if errors.Is(err, domain.ErrUnknownTopic) {
				d.Logger.Warn("handshake for unknown topic",
					logger.String("mode", mode),
					logger.String("topic", topic))
				http.Error(w, "unknown topic", http.StatusNotFound)
				return
			}
			http.Error(w, "verification failed", http.StatusInternalServerError)
			return
		}

		d.Logger.Info("handshake verified",
			logger.String("mode", mode),
			logger.String("topic", topic))

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
	}
}

// WebhookDeliver handles signed POST deliveries. A bad signature is rejected
// before the body is ever parsed. Once a delivery is authenticated it is
// always acknowledged with 204; listener and history failures are ours to
// log, not the hub's to redeliver forever.
func WebhookDeliver(d deps.Deps) http.HandlerFunc {
	maxBody := d.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if d.Metrics != nil {
			d.Metrics.DeliveryReceived()
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			reject(w, d, "body_read", http.StatusBadRequest)
			return
		}

		if err := verifySignature(d.Secret, r.Header.Get("X-Hub-Signature"), body); err != nil {
			d.Logger.Warn("delivery rejected",
				logger.String("remote_ip", r.RemoteAddr),
				logger.Error(err))
			reject(w, d, "signature", http.StatusUnauthorized)
			return
		}

		items, err := feed.Parse(body)
		if err != nil {
			d.Logger.Warn("malformed delivery payload", logger.Error(err))
			reject(w, d, "malformed", http.StatusBadRequest)
			return
		}
		if len(items) == 0 {
			reject(w, d, "empty", http.StatusBadRequest)
			return
		}

		for _, item := range items {
			kind, err := d.Dispatcher.Dispatch(r.Context(), item.Video, item.Deleted)
			if err != nil {
				d.Logger.Error("dispatch failed",
					logger.String("video_id", item.Video.ID),
					logger.String("kind", kind.String()),
					logger.Error(err))
			}
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func reject(w http.ResponseWriter, d deps.Deps, reason string, status int) {
	if d.Metrics != nil {
		d.Metrics.DeliveryRejected(reason)
	}
	http.Error(w, reason, status)
}

// verifySignature checks the hub's X-Hub-Signature header, "sha1=<hex>", an
// HMAC-SHA1 over the raw body keyed with the shared secret.
func verifySignature(secret, header string, body []byte) error {
	const prefix = "sha1="
	if !strings.HasPrefix(header, prefix) {
		return fmt.Errorf("%w: missing or malformed header", domain.ErrBadSignature)
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return fmt.Errorf("%w: digest is not hex", domain.ErrBadSignature)
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return domain.ErrBadSignature
	}
	return nil
}

func leaseDuration(raw string) time.Duration {
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
