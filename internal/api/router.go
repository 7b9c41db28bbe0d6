package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/deckwatch/internal/api/handlers"
	"github.com/your-org/deckwatch/internal/api/ws"
	"github.com/your-org/deckwatch/internal/auth"
	"github.com/your-org/deckwatch/internal/queue"
	"github.com/your-org/deckwatch/internal/storage"
)

type RouterConfig struct {
	APIKey   string
	DB       *storage.PostgresStore
	Frames   *storage.FrameStore
	Producer *queue.Producer
	Hub      *ws.Hub
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.Frames, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Streams
	streamH := handlers.NewStreamHandler(cfg.DB, cfg.Frames, cfg.Producer)
	v1.POST("/streams", streamH.Create)
	v1.GET("/streams", streamH.List)
	v1.GET("/streams/:id", streamH.Get)
	v1.POST("/streams/:id/start", streamH.Start)
	v1.POST("/streams/:id/stop", streamH.Stop)
	v1.DELETE("/streams/:id", streamH.Delete)

	// Table state
	tableH := handlers.NewTableHandler(cfg.DB, cfg.Frames, cfg.Producer)
	v1.GET("/streams/:id/table", tableH.Latest)
	v1.GET("/streams/:id/table/updates", tableH.List)
	v1.GET("/streams/:id/shoe", tableH.Shoe)
	v1.POST("/streams/:id/shoe/reset", tableH.ResetShoe)
	v1.GET("/updates/:id/frame", tableH.Frame)

	return r
}
