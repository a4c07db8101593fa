package dispatch

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/MrSnakeDoc/ytpush/internal/domain"
	"github.com/MrSnakeDoc/ytpush/internal/history"
	"github.com/MrSnakeDoc/ytpush/internal/logger"
	"github.com/MrSnakeDoc/ytpush/internal/metrics"
)

// lockStripes sizes the per-video-ID mutex pool used to serialize
// classification of concurrent deliveries for the same ID.
const lockStripes = 64

// Dispatcher classifies parsed deliveries against the video history and
// invokes the matching listeners. It owns the registry; the history store
// is shared with the rest of the process.
type Dispatcher struct {
	history  history.Store
	registry *Registry
	logger   logger.Logger
	metrics  *metrics.Metrics
	locks    [lockStripes]sync.Mutex
}

func NewDispatcher(store history.Store, registry *Registry, log logger.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		history:  store,
		registry: registry,
		logger:   log,
		metrics:  m,
	}
}

// Registry exposes the dispatcher-owned registry for listener registration.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch classifies one video and invokes every matching listener in
// registration order. Listener failures (errors and panics) are logged and
// do not stop the remaining listeners; the caller acknowledges the delivery
// regardless. Only history-store failures are returned.
func (d *Dispatcher) Dispatch(ctx context.Context, video *domain.Video, deleted bool) (domain.Kind, error) {
	kind, err := d.classify(ctx, video, deleted)
	if err != nil {
		return kind, err
	}

	d.logger.Debug("classified delivery",
		logger.String("video_id", video.ID),
		logger.String("channel_id", video.Channel.ID),
		logger.String("kind", kind.String()))
	if d.metrics != nil {
		d.metrics.EventDispatched(kind.String())
	}

	for _, fn := range d.registry.Resolve(kind, video.Channel.ID) {
		d.invoke(ctx, fn, video, kind)
	}
	return kind, nil
}

// classify decides the event kind. Deletions bypass the history entirely;
// everything else is an upload on first sight and an edit afterwards. The
// lookup+insert pair runs under a per-ID lock so two near-simultaneous
// deliveries of a new ID cannot both classify as upload. With a shared
// external backend (Redis, network FS) the guarantee degrades to the
// backend's own concurrency contract.
func (d *Dispatcher) classify(ctx context.Context, video *domain.Video, deleted bool) (domain.Kind, error) {
	if deleted {
		return domain.KindDelete, nil
	}

	mu := &d.locks[stripe(video.ID)]
	mu.Lock()
	defer mu.Unlock()

	seen, err := d.history.Has(ctx, video.ID)
	if err != nil {
		return domain.KindUpload, fmt.Errorf("history lookup failed: %w", err)
	}
	if seen {
		return domain.KindEdit, nil
	}
	if err := d.history.Add(ctx, video.ID); err != nil {
		return domain.KindUpload, fmt.Errorf("history insert failed: %w", err)
	}
	return domain.KindUpload, nil
}

// invoke runs one listener, containing both returned errors and panics.
func (d *Dispatcher) invoke(ctx context.Context, fn Listener, video *domain.Video, kind domain.Kind) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("listener panicked",
				logger.String("video_id", video.ID),
				logger.String("kind", kind.String()),
				logger.String("panic", fmt.Sprint(rec)))
			if d.metrics != nil {
				d.metrics.ListenerError()
			}
		}
	}()

	if err := fn(ctx, video); err != nil {
		d.logger.Error("listener failed",
			logger.String("video_id", video.ID),
			logger.String("kind", kind.String()),
			logger.Error(err))
		if d.metrics != nil {
			d.metrics.ListenerError()
		}
	}
}

func stripe(videoID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(videoID))
	return h.Sum32() % lockStripes
}
