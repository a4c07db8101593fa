package deps

import (
	"time"

	"github.com/MrSnakeDoc/ytpush/internal/dispatch"
	"github.com/MrSnakeDoc/ytpush/internal/hub"
	"github.com/MrSnakeDoc/ytpush/internal/logger"
	"github.com/MrSnakeDoc/ytpush/internal/metrics"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	TimeNow      func() time.Time     // for testing, defaults to time.Now
	WebhookPath  string               // mount point for hub deliveries, e.g. /webhook/<uuid>
	Secret       string               // shared secret deliveries are signed with
	MaxBodyBytes int64                // delivery body cap, 0 = default
	Subs         *hub.Subscriptions   // subscription records the handshake verifies against
	Dispatcher   *dispatch.Dispatcher // classifies and fans out parsed deliveries
	Metrics      *metrics.Metrics
}
