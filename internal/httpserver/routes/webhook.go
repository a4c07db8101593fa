package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/ytpush/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ytpush/internal/httpserver/handlers"
)

func init() { Register(registerWebhook) }

func registerWebhook(r chi.Router, d deps.Deps) {
	r.Get(d.WebhookPath, handlers.WebhookVerify(d))
	r.Post(d.WebhookPath, handlers.WebhookDeliver(d))
}
