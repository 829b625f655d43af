package api

import (
	"context"
	"net/http"

	apiContext "umnico/internal/api/context"
	"umnico/internal/api/handlers"
	"umnico/internal/api/middleware"

	"github.com/julienschmidt/httprouter"
)

type Dependencies struct {
	AuthHandler         *handlers.AuthHandler
	AccountHandler      *handlers.AccountHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	DeliveryHandler     *handlers.DeliveryHandler
	AuditHandler        *handlers.AuditHandler
	WebhookHandler      *handlers.WebhookHandler
	HealthHandler       *handlers.HealthHandler
	MetricsHandler      *handlers.MetricsHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimiter         *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	// Inbound deliveries from Umnico
	router.POST("/webhooks/umnico", wrap(deps.WebhookHandler.Receive))

	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	rl := deps.RateLimiter
	authMid := deps.AuthMiddleware

	router.POST("/api/v1/auth/token",
		chain(deps.AuthHandler.Token, rl.Limit(middleware.LimitLogin)))

	// Account identity
	router.GET("/api/v1/account",
		chain(deps.AccountHandler.Get, authMid.Handle, rl.Limit(middleware.LimitAPIRead)))
	router.POST("/api/v1/account/resolve",
		chain(deps.AccountHandler.Resolve, authMid.Handle, rl.Limit(middleware.LimitAPIWrite)))

	// Webhook subscriptions held by Umnico
	router.GET("/api/v1/subscriptions",
		chain(deps.SubscriptionHandler.List, authMid.Handle, rl.Limit(middleware.LimitAPIRead)))
	router.POST("/api/v1/subscriptions",
		chain(deps.SubscriptionHandler.Create, authMid.Handle, rl.Limit(middleware.LimitAPIWrite)))
	router.PUT("/api/v1/subscriptions/:id",
		chain(deps.SubscriptionHandler.Update, authMid.Handle, rl.Limit(middleware.LimitAPIWrite)))
	router.DELETE("/api/v1/subscriptions/:id",
		chain(deps.SubscriptionHandler.Delete, authMid.Handle, rl.Limit(middleware.LimitAPIWrite)))

	router.GET("/api/v1/deliveries",
		chain(deps.DeliveryHandler.List, authMid.Handle, rl.Limit(middleware.LimitAPIRead)))
	router.GET("/api/v1/audit-logs",
		chain(deps.AuditHandler.List, authMid.Handle, rl.Limit(middleware.LimitAPIRead)))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
