package stubstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/bulkship/internal/ports"
)

// Server exposes a Store over HTTP.
type Server struct {
	store  *Store
	logger ports.Logger
	engine *gin.Engine

	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	operations *prometheus.CounterVec

	mu         sync.Mutex
	failNext   int
	failStatus int
}

// NewServer creates a server for store.
func NewServer(store *Store, logger ports.Logger) *Server {
	s := &Server{
		store:    store,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bulkship",
			Subsystem: "stub",
			Name:      "bulk_requests_total",
			Help:      "Bulk requests received, by response status.",
		}, []string{"status"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bulkship",
			Subsystem: "stub",
			Name:      "operations_total",
			Help:      "Bulk operations applied, by action and result.",
		}, []string{"action", "result"}),
	}
	s.registry.MustRegister(s.requests, s.operations)

	engine := gin.New()
	engine.Use(gin.Recovery(), s.logRequests())

	engine.GET("/", s.handleInfo)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	engine.GET("/:index/_doc/:id", s.handleGet)
	engine.POST("/_bulk", s.handleBulk)
	engine.POST("/:index/_bulk", s.handleBulk)
	engine.POST("/:index/:type/_bulk", s.handleBulk)

	s.engine = engine
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// FailNext answers the next n bulk requests with status and an error body,
// without applying them.
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
	s.failStatus = status
}

func (s *Server) takeFailure() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext == 0 {
		return 0, false
	}
	s.failNext--
	return s.failStatus, true
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("stub store listening", ports.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("stub request",
			ports.String("method", c.Request.Method),
			ports.String("path", c.Request.URL.Path),
			ports.Int("status", c.Writer.Status()),
			ports.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) handleInfo(c *gin.Context) {
	s.writeJSON(c, http.StatusOK, map[string]any{
		"name":      "bulkship-stub",
		"documents": s.store.Len(),
	})
}

func (s *Server) handleGet(c *gin.Context) {
	doc, ok := s.store.Get(c.Param("index"), c.Query("type"), c.Param("id"))
	if !ok {
		s.writeJSON(c, http.StatusNotFound, map[string]any{
			"_index": c.Param("index"),
			"_id":    c.Param("id"),
			"found":  false,
		})
		return
	}
	s.writeJSON(c, http.StatusOK, map[string]any{
		"_index":   doc.Index,
		"_type":    doc.Type,
		"_id":      doc.ID,
		"_version": doc.Version,
		"found":    true,
		"_source":  doc.Source,
	})
}

func (s *Server) handleBulk(c *gin.Context) {
	start := time.Now()

	if status, fail := s.takeFailure(); fail {
		s.replyError(c, status, "unavailable_shards_exception", "stub store is failing requests")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.replyError(c, http.StatusBadRequest, "parse_exception", err.Error())
		return
	}

	actions, err := parseBulk(body, c.Param("index"), c.Param("type"))
	if err != nil {
		kind := "parse_exception"
		if errors.Is(err, errEmptyBody) {
			kind = "action_request_validation_exception"
		}
		s.replyError(c, http.StatusBadRequest, kind, err.Error())
		return
	}

	items := s.store.apply(actions)
	for _, entry := range items {
		for name, it := range entry {
			result := it.Result
			if it.Error != nil {
				result = it.Error.Type
			}
			s.operations.WithLabelValues(name, result).Inc()
		}
	}

	s.requests.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	s.writeJSON(c, http.StatusOK, bulkReply{
		Took:   time.Since(start).Milliseconds(),
		Errors: hasErrors(items),
		Items:  items,
	})
}

func (s *Server) replyError(c *gin.Context, status int, kind, reason string) {
	s.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	s.writeJSON(c, status, errorReply{
		Error:  replyError{Type: kind, Reason: reason},
		Status: status,
	})
}

func (s *Server) writeJSON(c *gin.Context, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(status, "application/json; charset=UTF-8", b)
}
