package http

import (
	"context"
	gohttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/hazeflow/swap-engine/internal/config"
	"github.com/hazeflow/swap-engine/internal/http/httputil"
	"github.com/hazeflow/swap-engine/internal/http/middlewares"
)

const APIVersion = "v1"

// Server hosts the engine's HTTP API: quote, swap build, approval, and pool
// inspection, plus /health, /metrics, and swagger.
type Server struct {
	svc         *Service
	conf        *config.GeneralConfig
	rateLimiter *middlewares.RateLimiter
	server      *gohttp.Server

	handlers []httputil.IHttpHandler
}

func NewServer(conf *config.GeneralConfig, svc *Service) *Server {
	return &Server{
		svc:         svc,
		conf:        conf,
		rateLimiter: middlewares.NewRateLimiter(10, 20),
		handlers: []httputil.IHttpHandler{
			NewQuoteHandler(svc),
			NewSwapHandler(svc),
			NewApprovalHandler(svc),
			NewPoolHandler(svc),
		},
	}
}

// Start blocks serving requests until Stop or a listener error.
func (s *Server) Start() error {
	if s.conf.Env != config.DevEnv {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	corsConf := cors.DefaultConfig()
	corsConf.AllowAllOrigins = true
	corsConf.AddAllowHeaders("Authorization", "X-Wallet-Address")
	r.Use(cors.New(corsConf))

	r.Use(middlewares.MetricsMiddleware())
	r.Use(s.rateLimiter.RateLimitMiddleware())

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(gohttp.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("api")
	pub := api.Group(APIVersion)
	admin := api.Group(APIVersion + "/admin")
	for _, h := range s.handlers {
		h.SetRoutes(pub.Group(h.Root()), admin.Group(h.Root()))
	}

	s.server = &gohttp.Server{
		Addr:    s.conf.HTTPHost + ":" + s.conf.HTTPPort,
		Handler: r,
	}
	log.Info().Str("host", s.conf.HTTPHost).Str("port", s.conf.HTTPPort).Msg("http server started")

	if err := s.server.ListenAndServe(); err != nil && err != gohttp.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
		return err
	}
	log.Info().Msg("http server stopped gracefully")
	return nil
}
