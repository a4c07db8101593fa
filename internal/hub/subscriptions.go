package hub

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/ytpush/internal/domain"
)

// State tracks where a subscription is in its lifecycle.
type State int

const (
	// StatePending means the subscribe request was sent and the hub has not
	// confirmed it through a handshake yet.
	StatePending State = iota
	// StateActive means the hub verified the subscription and granted a lease.
	StateActive
	// StateUnsubscribing means an unsubscribe request was sent; the record is
	// removed once the hub confirms.
	StateUnsubscribing
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateUnsubscribing:
		return "unsubscribing"
	default:
		return "unknown"
	}
}

// Subscription is the tracked record for one channel's topic.
type Subscription struct {
	ChannelID   string
	Topic       string
	State       State
	ExpiresAt   time.Time // zero until the hub grants a lease
	LastAttempt time.Time // last (re)subscribe request sent
	LastError   error     // result of the last renewal attempt, nil on success
}

// Subscriptions is the concurrent registry of subscription records,
// keyed by topic URL.
type Subscriptions struct {
	mu      sync.RWMutex
	byTopic map[string]*Subscription
}

func NewSubscriptions() *Subscriptions {
	return &Subscriptions{byTopic: make(map[string]*Subscription)}
}

// Track records that a subscribe request went out for the channel.
// Re-tracking an existing topic keeps its lease and bumps the attempt time,
// so a renewal does not lose the current expiry while pending.
func (s *Subscriptions) Track(channelID, topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.byTopic[topic]; ok {
		sub.LastAttempt = time.Now()
		sub.LastError = nil
		return
	}
	s.byTopic[topic] = &Subscription{
		ChannelID:   channelID,
		Topic:       topic,
		State:       StatePending,
		LastAttempt: time.Now(),
	}
}

// MarkUnsubscribing flags the topic so the confirming handshake removes it.
func (s *Subscriptions) MarkUnsubscribing(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.byTopic[topic]; ok {
		sub.State = StateUnsubscribing
	}
}

// Verify applies a successful subscribe handshake: the record becomes active
// with expiry = now + lease. Unknown topics are rejected so the hub cannot
// plant subscriptions the notifier never asked for.
func (s *Subscriptions) Verify(topic string, lease time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.byTopic[topic]
	if !ok {
		return domain.ErrUnknownTopic
	}
	sub.State = StateActive
	sub.ExpiresAt = time.Now().Add(lease)
	return nil
}

// ConfirmUnsubscribe applies an unsubscribe handshake by dropping the record.
func (s *Subscriptions) ConfirmUnsubscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byTopic[topic]; !ok {
		return domain.ErrUnknownTopic
	}
	delete(s.byTopic, topic)
	return nil
}

// Remove drops the record unconditionally (permanent validation failure).
func (s *Subscriptions) Remove(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byTopic, topic)
}

// RecordRenewal stores the outcome of a renewal attempt for the channel.
func (s *Subscriptions) RecordRenewal(topic string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.byTopic[topic]; ok {
		sub.LastAttempt = time.Now()
		sub.LastError = err
	}
}

// Due returns the channel IDs of active subscriptions whose lease expires
// within the lookahead window (or already expired).
func (s *Subscriptions) Due(now time.Time, lookahead time.Duration) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []string
	deadline := now.Add(lookahead)
	for _, sub := range s.byTopic {
		if sub.State != StateActive {
			continue
		}
		if !sub.ExpiresAt.After(deadline) {
			due = append(due, sub.ChannelID)
		}
	}
	return due
}

// StalePending returns the channel IDs of pending subscriptions whose last
// subscribe attempt is older than olderThan. A verification handshake can get
// lost in transit; waiting forever on a confirmation that will never come
// means a dead channel, so the subscribe is sent again.
func (s *Subscriptions) StalePending(now time.Time, olderThan time.Duration) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []string
	cutoff := now.Add(-olderThan)
	for _, sub := range s.byTopic {
		if sub.State != StatePending {
			continue
		}
		if sub.LastAttempt.Before(cutoff) {
			stale = append(stale, sub.ChannelID)
		}
	}
	return stale
}

// ChannelIDs returns every tracked channel ID, whatever the state.
func (s *Subscriptions) ChannelIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.byTopic))
	for _, sub := range s.byTopic {
		ids = append(ids, sub.ChannelID)
	}
	return ids
}

// Snapshot returns copies of all records, for status reporting.
func (s *Subscriptions) Snapshot() []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Subscription, 0, len(s.byTopic))
	for _, sub := range s.byTopic {
		out = append(out, *sub)
	}
	return out
}

// Len returns the number of tracked records.
func (s *Subscriptions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byTopic)
}
