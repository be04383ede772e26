package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"autoliquid/internal/http/auctionhandler"
	"autoliquid/internal/http/middleware"
	"autoliquid/internal/services/auction"
	"autoliquid/internal/ws"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files
)

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type httpServer struct {
	listenPort     uint16
	srv            http.Server
	ln             net.Listener
	auctionService auction.IAuctionService
	wsSrv          *ws.WsServer
	jwtSecret      string
	checks         map[string]HealthCheck
	ctx            context.Context
}

func NewHttpServer(
	ctx context.Context,
	listenPort uint16,
	wsSrv *ws.WsServer,
	auctionService auction.IAuctionService,
	jwtSecret string,
	checks map[string]HealthCheck,
) *httpServer {
	return &httpServer{
		listenPort:     listenPort,
		wsSrv:          wsSrv,
		auctionService: auctionService,
		jwtSecret:      jwtSecret,
		checks:         checks,
		ctx:            ctx,
	}
}

// Router builds the gin engine with every route mounted.
func (h *httpServer) Router() *gin.Engine {
	routerEngine := gin.New()

	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// Swagger UI and API specs
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	routerEngine.Static("/api-specs", "api_specs")

	routerEngine.GET("/health", h.health)

	// websocket endpoint, authenticates with the token query parameter
	routerEngine.GET("/ws", h.wsSrv.Handle)

	// REST API
	api := routerEngine.Group("", middleware.JWTAuth(h.jwtSecret))
	ah := auctionhandler.New(h.auctionService)
	ah.Register(api)

	return routerEngine
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	h.srv = http.Server{
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	zap.L().Info("http_listening", zap.String("addr", listenAddr))

	if err := h.srv.Serve(h.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// @Summary		Health check
// @Description	Reports the reachability of the configured backends.
// @Tags			Ops
// @Success		200	{object}	map[string]string
// @Failure		503	{object}	map[string]string
// @Router			/health [get]
func (h *httpServer) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	code := http.StatusOK
	out := gin.H{"status": "ok"}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			code = http.StatusServiceUnavailable
			out["status"] = "degraded"
			out[name] = err.Error()
			continue
		}
		out[name] = "ok"
	}
	c.JSON(code, out)
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn't finish in time
	}
	return nil
}
