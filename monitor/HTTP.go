package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HTTP is a Sink which serves the most recently observed returns over
// HTTP:
//
//	GET /returns   the full history of returns
//	GET /summary   episode count, last return, mean, max, and trend
//
// Observe may be called concurrently with requests being served.
type HTTP struct {
	mu      sync.RWMutex
	returns []float64

	engine *gin.Engine
	server *http.Server
	logger zerolog.Logger
}

// Summary summarizes the returns observed by an HTTP sink
type Summary struct {
	Episodes int      `json:"episodes"`
	Last     float64  `json:"last"`
	Mean     float64  `json:"mean"`
	Max      float64  `json:"max"`
	Trend    *float64 `json:"trend,omitempty"`
}

// NewHTTP returns a new HTTP sink. The sink does not listen for
// connections until Serve is called.
func NewHTTP(logger zerolog.Logger) *HTTP {
	gin.SetMode(gin.ReleaseMode)
	h := &HTTP{engine: gin.New(), logger: logger}
	h.engine.Use(gin.Recovery())

	h.engine.GET("/returns", h.handleReturns)
	h.engine.GET("/summary", h.handleSummary)
	return h
}

// Handler returns the http.Handler serving the sink's routes
func (h *HTTP) Handler() http.Handler {
	return h.engine
}

// Serve starts serving on addr in a separate goroutine. The listener
// is bound before Serve returns, so address errors are returned
// immediately. The bound address is returned.
func (h *HTTP) Serve(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("serve: %w", err)
	}

	h.server = &http.Server{Handler: h.engine}
	go func() {
		err := h.server.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error().Err(err).Msg("monitoring server stopped")
		}
	}()
	h.logger.Info().Str("addr", ln.Addr().String()).
		Msg("serving training returns")
	return ln.Addr(), nil
}

// Observe implements the Sink interface
func (h *HTTP) Observe(returns []float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.returns = append(h.returns[:0], returns...)
	return nil
}

// Close shuts down the server, if one was started with Serve
func (h *HTTP) Close() error {
	if h.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.server.Shutdown(ctx)
}

func (h *HTTP) handleReturns(c *gin.Context) {
	h.mu.RLock()
	returns := append([]float64{}, h.returns...)
	h.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{"returns": returns})
}

func (h *HTTP) handleSummary(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c.JSON(http.StatusOK, summarize(h.returns))
}

func summarize(returns []float64) Summary {
	s := Summary{Episodes: len(returns)}
	if len(returns) == 0 {
		return s
	}
	s.Last = returns[len(returns)-1]
	s.Mean = stat.Mean(returns, nil)
	s.Max = floats.Max(returns)
	if trend, ok := lastTrend(returns, DefaultSpan, DefaultMinPeriods); ok {
		s.Trend = &trend
	}
	return s
}
