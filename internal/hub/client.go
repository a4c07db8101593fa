// Package hub talks WebSub to YouTube's push hub: it builds and sends
// (un)subscribe requests and tracks the resulting subscription records.
package hub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/ytpush/internal/domain"
	"github.com/MrSnakeDoc/ytpush/internal/logger"
	"github.com/MrSnakeDoc/ytpush/internal/utils"
)

const (
	// DefaultHubURL is Google's public PubSubHubbub endpoint for YouTube feeds.
	DefaultHubURL = "https://pubsubhubbub.appspot.com"

	// DefaultProbeBaseURL is where channel existence is verified before
	// bothering the hub.
	DefaultProbeBaseURL = "https://www.youtube.com"

	topicFormat = "%s/feeds/videos.xml?channel_id=%s"
)

// channelIDPattern accepts plausible channel IDs. Real ones are 24-char
// URL-safe base64 starting with UC, but the hub serves other shapes too,
// so only the alphabet and a sane length are enforced here.
var channelIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{10,64}$`)

// Options configures a hub client.
type Options struct {
	HubURL       string        // hub endpoint, defaults to DefaultHubURL
	ProbeBaseURL string        // channel probe base, defaults to DefaultProbeBaseURL
	CallbackURL  string        // externally reachable webhook URL (with path)
	Secret       string        // shared secret the hub signs deliveries with
	LeaseSeconds int           // requested lease, 0 = hub default
	Timeout      time.Duration // per-request timeout, defaults to 10s
	RequestRate  rate.Limit    // outbound requests per second, defaults to 2
}

// Client sends subscription requests to the hub. Outbound calls are rate
// limited and retried with backoff; validation failures are never retried.
type Client struct {
	httpClient   *http.Client
	hubURL       string
	probeBaseURL string
	callbackURL  string
	secret       string
	leaseSeconds int
	limiter      *rate.Limiter
	subs         *Subscriptions
	logger       logger.Logger
}

func NewClient(opts Options, subs *Subscriptions, log logger.Logger) *Client {
	if opts.HubURL == "" {
		opts.HubURL = DefaultHubURL
	}
	if opts.ProbeBaseURL == "" {
		opts.ProbeBaseURL = DefaultProbeBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestRate <= 0 {
		opts.RequestRate = 2
	}

	return &Client{
		httpClient:   &http.Client{Timeout: opts.Timeout},
		hubURL:       opts.HubURL,
		probeBaseURL: strings.TrimRight(opts.ProbeBaseURL, "/"),
		callbackURL:  opts.CallbackURL,
		secret:       opts.Secret,
		leaseSeconds: opts.LeaseSeconds,
		limiter:      rate.NewLimiter(opts.RequestRate, 1),
		subs:         subs,
		logger:       log,
	}
}

// TopicURL builds the hub topic for a channel ID.
func (c *Client) TopicURL(channelID string) string {
	return fmt.Sprintf(topicFormat, c.probeBaseURL, channelID)
}

// Subscribe validates the whole batch, probes that every channel exists
// upstream, then sends one subscribe request per channel. Validation and
// probing happen before any hub request, so a bad ID fails the batch
// without partial side effects. Hub confirmation arrives later as an
// asynchronous handshake; only transport-level failures surface here.
func (c *Client) Subscribe(ctx context.Context, channelIDs []string) error {
	if err := validateBatch(channelIDs); err != nil {
		return err
	}
	for _, id := range channelIDs {
		if err := c.probeChannel(ctx, id); err != nil {
			return err
		}
	}

	for _, id := range channelIDs {
		topic := c.TopicURL(id)
		if err := c.sendHubRequest(ctx, "subscribe", id, topic); err != nil {
			return err
		}
		c.subs.Track(id, topic)
		c.logger.Info("subscribe request sent",
			logger.String("channel_id", id))
	}
	return nil
}

// Unsubscribe mirrors Subscribe with mode=unsubscribe. No existence probe:
// the channel may well be gone, which is a fine reason to unsubscribe.
func (c *Client) Unsubscribe(ctx context.Context, channelIDs []string) error {
	if err := validateBatch(channelIDs); err != nil {
		return err
	}

	for _, id := range channelIDs {
		topic := c.TopicURL(id)
		if err := c.sendHubRequest(ctx, "unsubscribe", id, topic); err != nil {
			return err
		}
		c.subs.MarkUnsubscribing(topic)
		c.logger.Info("unsubscribe request sent",
			logger.String("channel_id", id))
	}
	return nil
}

// Renew re-subscribes a single channel and records the outcome on its record.
// A definitive hub rejection drops the record; retrying it every cycle would
// never succeed.
func (c *Client) Renew(ctx context.Context, channelID string) error {
	topic := c.TopicURL(channelID)
	err := c.sendHubRequest(ctx, "subscribe", channelID, topic)
	c.subs.RecordRenewal(topic, err)
	if err != nil {
		var hubErr *domain.HubError
		if errors.As(err, &hubErr) && hubErr.StatusCode >= 400 && hubErr.StatusCode < 500 {
			c.logger.Warn("hub rejected renewal, dropping subscription",
				logger.String("channel_id", channelID),
				logger.Int("status", hubErr.StatusCode))
			c.subs.Remove(topic)
		}
		return err
	}
	c.logger.Debug("renewal request sent",
		logger.String("channel_id", channelID))
	return nil
}

// probeChannel verifies the channel exists upstream with a cheap HEAD request.
func (c *Client) probeChannel(ctx context.Context, channelID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	probeURL := fmt.Sprintf("%s/channel/%s", c.probeBaseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("channel probe failed for %s: %w", channelID, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s (probe status %d)", domain.ErrChannelNotFound, channelID, resp.StatusCode)
	}
	return nil
}

// sendHubRequest posts one form-encoded (un)subscribe request, retrying
// transient transport errors. A definitive hub rejection is not retried.
func (c *Client) sendHubRequest(ctx context.Context, mode, channelID, topic string) error {
	form := url.Values{
		"hub.callback": {c.callbackURL},
		"hub.topic":    {topic},
		"hub.verify":   {"async"},
		"hub.mode":     {mode},
		"hub.secret":   {c.secret},
	}
	if c.leaseSeconds > 0 {
		form.Set("hub.lease_seconds", strconv.Itoa(c.leaseSeconds))
	}
	body := form.Encode()

	return retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.hubURL, strings.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to build hub request: %w", err))
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("hub request failed: %w", err)
			}
			defer utils.Close(resp.Body)

			switch {
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return nil
			case resp.StatusCode >= 500:
				// Hub hiccup, worth another try.
				return &domain.HubError{Mode: mode, ChannelID: channelID, StatusCode: resp.StatusCode}
			default:
				return retry.Unrecoverable(&domain.HubError{Mode: mode, ChannelID: channelID, StatusCode: resp.StatusCode})
			}
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying hub request",
				logger.String("mode", mode),
				logger.String("channel_id", channelID),
				logger.Int("attempt", int(n)+1),
				logger.Error(err))
		}),
	)
}

// validateBatch checks the batch shape before any network call so a single
// malformed ID fails the whole call atomically.
func validateBatch(channelIDs []string) error {
	if len(channelIDs) == 0 {
		return domain.ErrEmptyBatch
	}
	for _, id := range channelIDs {
		if !channelIDPattern.MatchString(id) {
			return fmt.Errorf("%w: %q", domain.ErrInvalidChannelID, id)
		}
	}
	return nil
}
