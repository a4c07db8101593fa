// Package tunnel exposes the local webhook server through an ngrok endpoint
// for development, where the push hub cannot reach the machine directly.
package tunnel

import (
	"context"
	"fmt"

	"golang.ngrok.com/ngrok"
	ngrokconfig "golang.ngrok.com/ngrok/config"

	"github.com/MrSnakeDoc/ytpush/internal/logger"
)

// Tunnel is an open ngrok endpoint the HTTP server can serve on.
type Tunnel struct {
	ngrok.Tunnel
}

// Open dials ngrok and returns a listener with a public HTTPS URL. The
// caller uses URL() as the hub callback base and serves on the listener.
func Open(ctx context.Context, authtoken string, log logger.Logger) (*Tunnel, error) {
	tun, err := ngrok.Listen(ctx,
		ngrokconfig.HTTPEndpoint(),
		ngrok.WithAuthtoken(authtoken),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open ngrok tunnel: %w", err)
	}

	log.Info("ngrok tunnel established", logger.String("url", tun.URL()))
	return &Tunnel{Tunnel: tun}, nil
}
