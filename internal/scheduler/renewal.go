package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/ytpush/internal/hub"
	"github.com/MrSnakeDoc/ytpush/internal/logger"
	"github.com/MrSnakeDoc/ytpush/internal/metrics"
)

// Renewer periodically re-subscribes channels whose lease is about to run
// out, so deliveries keep flowing across lease boundaries. It also retries
// subscriptions stuck pending, whose verification handshake never arrived.
type Renewer struct {
	client    *hub.Client
	subs      *hub.Subscriptions
	logger    logger.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	lookahead time.Duration
	stopCh    chan struct{}
}

// NewRenewer creates a renewer that scans every interval and renews records
// expiring within lookahead.
func NewRenewer(
	client *hub.Client,
	subs *hub.Subscriptions,
	log logger.Logger,
	m *metrics.Metrics,
	interval time.Duration,
	lookahead time.Duration,
) *Renewer {
	return &Renewer{
		client:    client,
		subs:      subs,
		logger:    log,
		metrics:   m,
		interval:  interval,
		lookahead: lookahead,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic renewal scan.
func (rn *Renewer) Start(ctx context.Context) {
	ticker := time.NewTicker(rn.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rn.RenewDue(ctx)
			case <-rn.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the renewer.
func (rn *Renewer) Stop() {
	close(rn.stopCh)
}

// RenewDue re-subscribes every record due within the lookahead window, plus
// pending records whose subscribe attempt is older than one scan interval
// (the handshake presumably got lost), once per call each. Failures are
// recorded on the subscription and logged; the next cycle tries again.
func (rn *Renewer) RenewDue(ctx context.Context) {
	now := time.Now()
	due := rn.subs.Due(now, rn.lookahead)
	due = append(due, rn.subs.StalePending(now, rn.interval)...)
	if len(due) == 0 {
		return
	}

	rn.logger.Info("renewing subscriptions",
		logger.Int("count", len(due)),
		logger.Duration("lookahead", rn.lookahead))

	for _, channelID := range due {
		if err := rn.client.Renew(ctx, channelID); err != nil {
			rn.logger.Error("failed to renew subscription",
				logger.String("channel_id", channelID),
				logger.Error(err))
			continue
		}
		if rn.metrics != nil {
			rn.metrics.RenewalSent()
		}
	}
}
