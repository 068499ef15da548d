// Package httpapi exposes the quiz engine over HTTP under /api/quiz.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang/glog"

	"github.com/abhisek/codequiz/internal/metrics"
)

// Pinger reports whether the session store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config configures the router.
type Config struct {
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string

	// DefaultLanguage is advertised by /info and /supported-languages and used
	// when GET /start names no language.
	DefaultLanguage string
}

// NewRouter builds the gin engine serving the quiz API, /health and /metrics.
func NewRouter(engine Engine, store Pinger, cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	h := NewHandler(engine, cfg.DefaultLanguage)

	r.GET("/health", health(store))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/quiz")
	{
		api.POST("/start", h.StartQuiz)
		api.GET("/start", h.StartQuizGet)
		api.POST("/answer", h.SubmitAnswer)
		api.GET("/session/:sessionId", h.SessionStatus)
		api.POST("/session/:sessionId/extend", h.ExtendSession)
		api.GET("/stats", h.Stats)
		api.GET("/info", h.Info)
		api.GET("/supported-languages", h.SupportedLanguages)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(latency.Seconds())
		glog.V(1).Infof("%s %s %d %s %s", c.Request.Method, c.Request.URL.Path, status, latency, c.ClientIP())
	}
}

func health(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			glog.Warningf("health check: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "DOWN",
				"redis":     "unreachable",
				"timestamp": time.Now().UTC(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "UP",
			"redis":     "ok",
			"timestamp": time.Now().UTC(),
		})
	}
}
