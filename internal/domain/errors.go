package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the subscription and dispatch APIs.
var (
	// ErrEmptyBatch is returned when subscribe/unsubscribe is called with no IDs.
	ErrEmptyBatch = errors.New("channel ID batch is empty")

	// ErrInvalidChannelID is returned for a syntactically implausible channel ID.
	// The whole batch fails before any network call is made.
	ErrInvalidChannelID = errors.New("invalid channel ID")

	// ErrChannelNotFound is returned when a channel ID does not resolve upstream.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrUnknownTopic is returned when a hub handshake references a topic
	// the notifier never subscribed to. Non-fatal; the hub gives up on its own.
	ErrUnknownTopic = errors.New("handshake for unknown topic")

	// ErrBadSignature is returned when a content delivery fails HMAC verification.
	ErrBadSignature = errors.New("signature mismatch")

	// ErrEmptyKinds is returned when a listener is registered without any event kind.
	ErrEmptyKinds = errors.New("listener must accept at least one event kind")
)

// HubError is a non-2xx immediate response from the hub during (un)subscribe.
type HubError struct {
	Mode       string // "subscribe" or "unsubscribe"
	ChannelID  string
	StatusCode int
}

func (e *HubError) Error() string {
	return fmt.Sprintf("hub rejected %s for channel %s: status %d", e.Mode, e.ChannelID, e.StatusCode)
}
