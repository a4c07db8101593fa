package hub

import (
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/ytpush/internal/domain"
)

func TestSubscriptionsVerify(t *testing.T) {
	subs := NewSubscriptions()
	subs.Track("UCchannelAAAA", "topic-a")

	if err := subs.Verify("topic-a", time.Hour); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	snap := subs.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("got %d records, want 1", len(snap))
	}
	if snap[0].State != StateActive {
		t.Errorf("State = %v, want active", snap[0].State)
	}
	remaining := time.Until(snap[0].ExpiresAt)
	if remaining < 59*time.Minute || remaining > time.Hour {
		t.Errorf("expiry %v from now, want about 1h", remaining)
	}
}

func TestSubscriptionsVerifyUnknownTopic(t *testing.T) {
	subs := NewSubscriptions()

	err := subs.Verify("never-subscribed", time.Hour)
	if !errors.Is(err, domain.ErrUnknownTopic) {
		t.Errorf("Verify() error = %v, want ErrUnknownTopic", err)
	}
}

func TestSubscriptionsConfirmUnsubscribe(t *testing.T) {
	subs := NewSubscriptions()
	subs.Track("UCchannelAAAA", "topic-a")
	subs.MarkUnsubscribing("topic-a")

	if err := subs.ConfirmUnsubscribe("topic-a"); err != nil {
		t.Fatalf("ConfirmUnsubscribe() error = %v", err)
	}
	if subs.Len() != 0 {
		t.Errorf("Len() = %d after confirmed unsubscribe, want 0", subs.Len())
	}

	err := subs.ConfirmUnsubscribe("topic-a")
	if !errors.Is(err, domain.ErrUnknownTopic) {
		t.Errorf("second ConfirmUnsubscribe() error = %v, want ErrUnknownTopic", err)
	}
}

func TestSubscriptionsDue(t *testing.T) {
	now := time.Now()
	lookahead := 30 * time.Minute

	tests := []struct {
		name    string
		expiry  time.Duration // relative to now
		state   State
		wantDue bool
	}{
		{name: "inside window", expiry: 10 * time.Minute, state: StateActive, wantDue: true},
		{name: "already expired", expiry: -time.Minute, state: StateActive, wantDue: true},
		{name: "outside window", expiry: 2 * time.Hour, state: StateActive, wantDue: false},
		{name: "pending never due", expiry: 10 * time.Minute, state: StatePending, wantDue: false},
		{name: "unsubscribing never due", expiry: 10 * time.Minute, state: StateUnsubscribing, wantDue: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := NewSubscriptions()
			subs.Track("UCchannelAAAA", "topic-a")
			if tt.state != StatePending {
				if err := subs.Verify("topic-a", time.Hour); err != nil {
					t.Fatalf("Verify() error = %v", err)
				}
			}
			subs.mu.Lock()
			subs.byTopic["topic-a"].State = tt.state
			subs.byTopic["topic-a"].ExpiresAt = now.Add(tt.expiry)
			subs.mu.Unlock()

			due := subs.Due(now, lookahead)
			if got := len(due) == 1; got != tt.wantDue {
				t.Errorf("Due() = %v, wantDue = %v", due, tt.wantDue)
			}
		})
	}
}

func TestSubscriptionsStalePending(t *testing.T) {
	now := time.Now()
	subs := NewSubscriptions()
	subs.Track("UCchannelAAAA", "topic-a") // fresh pending
	subs.Track("UCchannelBBBB", "topic-b") // stale pending
	subs.Track("UCchannelCCCC", "topic-c") // active
	if err := subs.Verify("topic-c", time.Hour); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	subs.mu.Lock()
	subs.byTopic["topic-b"].LastAttempt = now.Add(-2 * time.Hour)
	subs.mu.Unlock()

	stale := subs.StalePending(now, time.Hour)
	if len(stale) != 1 || stale[0] != "UCchannelBBBB" {
		t.Errorf("StalePending() = %v, want just the aged pending record", stale)
	}
}

func TestSubscriptionsTrackKeepsLeaseOnRenewal(t *testing.T) {
	subs := NewSubscriptions()
	subs.Track("UCchannelAAAA", "topic-a")
	if err := subs.Verify("topic-a", time.Hour); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	before := subs.Snapshot()[0].ExpiresAt

	// Re-tracking for a renewal must not reset the active lease.
	subs.Track("UCchannelAAAA", "topic-a")
	after := subs.Snapshot()[0]
	if !after.ExpiresAt.Equal(before) {
		t.Errorf("ExpiresAt changed on re-track: %v -> %v", before, after.ExpiresAt)
	}
	if after.State != StateActive {
		t.Errorf("State = %v after re-track, want active", after.State)
	}
}

func TestSubscriptionsRecordRenewal(t *testing.T) {
	subs := NewSubscriptions()
	subs.Track("UCchannelAAAA", "topic-a")

	boom := errors.New("hub down")
	subs.RecordRenewal("topic-a", boom)

	snap := subs.Snapshot()[0]
	if !errors.Is(snap.LastError, boom) {
		t.Errorf("LastError = %v, want recorded error", snap.LastError)
	}
}
