package server

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"volume-dashboard/src/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// -----------------------------------------------------------------------------
// DashboardServer
// -----------------------------------------------------------------------------

type DashboardServer struct {
	Config *models.MConfig
	Logger *zap.Logger
	engine *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MSnapshot // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client

	// Local state: the latest complete snapshot, replaced wholesale
	snapshot   *models.MSnapshot
	stateMutex sync.RWMutex

	startTime time.Time

	// RefreshFunc is invoked by POST /api/refresh to trigger an immediate
	// fetch cycle. Wired to the data source by main.
	RefreshFunc func()
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDashboardServer(cfg *models.MConfig, log *zap.Logger) *DashboardServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.Log.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DashboardServer{
		Config:  cfg,
		Logger:  log,
		engine:  gin.New(),
		clients: make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking during bursts
		broadcast:  make(chan *models.MSnapshot, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		snapshot: &models.MSnapshot{
			Type:         "INITIAL",
			TopVolume24h: []models.MMarketRow{},
			TopVolume7d:  []models.MMarketRow{},
			Movers:       []models.MMarketRow{},
		},
		startTime: time.Now(),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.requestLogger())

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------

// requestLogger logs each request with method, path, status and duration.
func (s *DashboardServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupRoutes() {
	// Dashboard page
	s.engine.GET("/", s.getDashboard)

	// REST API endpoints
	s.engine.GET("/api/snapshot", s.getSnapshot)
	s.engine.GET("/api/top-volume", s.getTopVolume)
	s.engine.GET("/api/movers", s.getMovers)
	s.engine.POST("/api/refresh", s.postRefresh)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/health", s.getHealth)

	// Prometheus endpoint
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *DashboardServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("starting server", zap.String("addr", addr))

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) Stop() error {
	// Clean shutdown
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *DashboardServer) getDashboard(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", dashboardPage)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getSnapshot(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, s.snapshot)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getTopVolume(c *gin.Context) {
	period := c.DefaultQuery("period", "24h")
	if period != "24h" && period != "7d" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown period %q (want 24h or 7d)", period)})
		return
	}
	limit := s.clampLimit(c.Query("limit"))

	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	rows := s.snapshot.TopVolume24h
	if period == "7d" {
		rows = s.snapshot.TopVolume7d
	}

	c.JSON(http.StatusOK, gin.H{
		"period":       period,
		"rows":         truncateRows(rows, limit),
		"generated_at": s.snapshot.GeneratedAt,
		"error":        s.snapshot.Error,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getMovers(c *gin.Context) {
	limit := s.clampLimit(c.Query("limit"))

	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"rows":             truncateRows(s.snapshot.Movers, limit),
		"threshold":        s.snapshot.MoversThresholdUsed,
		"threshold_bumped": s.snapshot.MoversThresholdBumped,
		"generated_at":     s.snapshot.GeneratedAt,
		"error":            s.snapshot.Error,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postRefresh(c *gin.Context) {
	if s.RefreshFunc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refresh not available"})
		return
	}
	s.RefreshFunc()
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh scheduled"})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"refresh_interval_seconds": s.Config.DataSource.UpdateIntervalSeconds,
		"default_limit":            s.Config.Exchange.DefaultLimit,
		"max_limit":                s.Config.Exchange.MaxLimit,
		"min_mover_volume":         s.Config.Exchange.MinMoverVolume,
		"quote_assets":             s.Config.Exchange.QuoteAssets,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	generatedAt := s.snapshot.GeneratedAt
	lastError := s.snapshot.Error
	s.stateMutex.RUnlock()

	status := "ok"
	if lastError != "" {
		status = "degraded"
	}

	var snapshotAge float64
	if generatedAt > 0 {
		snapshotAge = time.Since(time.Unix(generatedAt, 0)).Seconds()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":               status,
		"uptime_seconds":       time.Since(s.startTime).Seconds(),
		"goroutines":           runtime.NumGoroutine(),
		"websocket_clients":    connections,
		"snapshot_age_seconds": snapshotAge,
		"last_error":           lastError,
	})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *DashboardServer) clampLimit(raw string) int {
	limit := s.Config.Exchange.DefaultLimit
	if raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > s.Config.Exchange.MaxLimit {
		limit = s.Config.Exchange.MaxLimit
	}
	return limit
}

// -----------------------------------------------------------------------------

func truncateRows(rows []models.MMarketRow, limit int) []models.MMarketRow {
	if rows == nil {
		return []models.MMarketRow{}
	}
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
