package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"guess_dapp/internal/http/handlers"
	"guess_dapp/internal/http/middleware"
	"guess_dapp/internal/ws"
)

// Options carries what the router needs beyond the handlers
type Options struct {
	Version       string
	AllowedOrigin string
	RateLimit     int
	RateWindow    time.Duration
	Checks        []handlers.Check
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, hub *ws.Hub, opts Options) {
	healthHandler := handlers.NewHealthHandler(opts.Version, opts.Checks...)

	r.Use(middleware.CORS(opts.AllowedOrigin))
	r.Use(middleware.Metrics())

	// no rate limiting
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	if opts.RateLimit <= 0 {
		opts.RateLimit = 60
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(opts.RateLimit, opts.RateWindow))
	registerAPIRoutes(v1, h)

	v1.GET("/ws", ws.HandleWS(hub, h.Game.Snapshot, opts.AllowedOrigin))
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler) {
	auth := middleware.JWT(h.Wallet.Account)

	api.GET("/config", h.Config)

	// Wallet
	api.GET("/wallet", h.GetWallet)
	api.POST("/wallet/connect", h.ConnectWallet)
	api.DELETE("/wallet", auth, h.DisconnectWallet)

	// Game
	game := api.Group("/game")
	{
		game.GET("", h.GetGame)
		game.POST("/fetch", h.FetchSecret)
		game.POST("/guess", auth, h.SubmitGuess)
		game.POST("/reveal", auth, h.Reveal)
		game.POST("/restart", auth, h.RestartGame)
		game.POST("/modal/close", auth, h.CloseModal)
		game.DELETE("/notices/:id", auth, h.DismissNotice)

		if h.Game.Config().Capabilities.Claim {
			game.POST("/claim", auth, h.ClaimToken)
		}
	}
}
