package dispatch

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/ytpush/internal/domain"
)

// Listener is user code invoked for each classified video.
type Listener func(ctx context.Context, video *domain.Video) error

// Registry stores listener registrations and resolves the matching set for
// an event. Resolution is a pure query and returns listeners in the order
// they were registered.
type Registry struct {
	mu   sync.RWMutex
	regs []registration
}

type registration struct {
	fn       Listener
	kinds    map[domain.Kind]struct{}
	channels map[string]struct{} // empty = every channel
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a listener for the given kinds and channel IDs.
// An empty kind set is rejected; an empty channel set matches all channels.
// domain.KindAny in the kind set matches every kind.
func (r *Registry) Register(fn Listener, kinds []domain.Kind, channelIDs []string) error {
	if len(kinds) == 0 {
		return domain.ErrEmptyKinds
	}

	kindSet := make(map[domain.Kind]struct{}, len(kinds))
	for _, k := range kinds {
		kindSet[k] = struct{}{}
	}

	channelSet := make(map[string]struct{}, len(channelIDs))
	for _, id := range channelIDs {
		channelSet[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.regs = append(r.regs, registration{
		fn:       fn,
		kinds:    kindSet,
		channels: channelSet,
	})
	return nil
}

// Resolve returns the listeners matching the kind and channel ID,
// in registration order.
func (r *Registry) Resolve(kind domain.Kind, channelID string) []Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Listener
	for _, reg := range r.regs {
		if !reg.matchesKind(kind) {
			continue
		}
		if len(reg.channels) > 0 {
			if _, ok := reg.channels[channelID]; !ok {
				continue
			}
		}
		matches = append(matches, reg.fn)
	}
	return matches
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.regs)
}

func (reg *registration) matchesKind(kind domain.Kind) bool {
	if _, ok := reg.kinds[domain.KindAny]; ok {
		return true
	}
	_, ok := reg.kinds[kind]
	return ok
}
