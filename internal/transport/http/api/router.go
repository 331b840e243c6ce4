package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"divscan/internal/analysis/indicator"
	"divscan/internal/config/writer"
	"divscan/internal/logger"
	"divscan/internal/market"
	"divscan/internal/scanner"

	"github.com/gin-gonic/gin"
)

// ServerConfig wires the API to the scanner and the markets file.
type ServerConfig struct {
	Addr             string
	Scanner          *scanner.Scanner
	Markets          *writer.MarketsWriter
	DefaultTimeframe string
}

// Server exposes detection results over HTTP.
type Server struct {
	addr    string
	scanner *scanner.Scanner
	markets *writer.MarketsWriter
	tf      string
	router  *gin.Engine
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Scanner == nil {
		return nil, errors.New("scanner is required")
	}
	if cfg.Markets == nil {
		return nil, errors.New("markets file is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.DefaultTimeframe == "" {
		cfg.DefaultTimeframe = "H4"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:    cfg.Addr,
		scanner: cfg.Scanner,
		markets: cfg.Markets,
		tf:      cfg.DefaultTimeframe,
		router:  router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	api := s.router.Group("/api/v1")
	api.GET("/markets", s.handleMarkets)
	api.GET("/divergences/:symbol", s.handleDivergence)
	api.GET("/scan/divergence", s.handleScan)
}

// Handler returns the underlying router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleMarkets(c *gin.Context) {
	doc, err := s.markets.Read()
	if err != nil {
		logger.Errorf("[api] read markets: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	groups := make([]gin.H, 0, len(doc.Markets.Names))
	for _, name := range doc.Markets.Names {
		entries, _ := doc.Markets.Get(name)
		groups = append(groups, gin.H{"name": name, "entries": entries})
	}
	c.JSON(http.StatusOK, gin.H{"markets": groups})
}

func (s *Server) timeframe(c *gin.Context) (market.Timeframe, bool) {
	name := c.DefaultQuery("tf", s.tf)
	tf, err := market.ParseTimeframe(name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return market.Timeframe{}, false
	}
	return tf, true
}

// resolveTarget looks the symbol up in the markets file so the configured
// display name and source apply; unknown symbols are analysed ad hoc.
func (s *Server) resolveTarget(symbol, marketName, source string) (scanner.Target, error) {
	t := scanner.Target{Market: marketName, Entry: writer.MarketEntry{Symbol: symbol}}
	if doc, err := s.markets.Read(); err == nil {
		if marketName != "" {
			entries, ok := doc.Markets.Get(marketName)
			if !ok {
				return t, errUnknownMarket
			}
			for _, e := range entries {
				if strings.EqualFold(e.Symbol, symbol) {
					t.Entry = e
					break
				}
			}
		} else if group, e, ok := doc.Markets.Find(symbol); ok {
			t.Market, t.Entry = group, e
		}
	} else if marketName != "" {
		return t, err
	}
	if source != "" {
		t.Entry.Source = source
	}
	return t, nil
}

var errUnknownMarket = errors.New("unknown market")

func (s *Server) handleDivergence(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	tf, ok := s.timeframe(c)
	if !ok {
		return
	}
	target, err := s.resolveTarget(symbol, c.Query("market"), c.Query("source"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errUnknownMarket) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	hit, err := s.scanner.Analyze(c.Request.Context(), target, tf)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, market.ErrNoData) {
			status = http.StatusNotFound
		}
		logger.Warnf("[api] analyze %s %s: %v", symbol, tf.Name, err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	var momentum *float64
	if hit.Result.Series != nil {
		if v, ok := indicator.LastValid(hit.Result.Series.Momentum); ok {
			momentum = &v
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":       hit.Symbol(),
		"name":         hit.Entry.DisplayName(),
		"market":       hit.Market,
		"timeframe":    tf.Name,
		"bars":         hit.Bars,
		"window_bars":  hit.WindowBars,
		"window_start": hit.WindowStart,
		"bullish":      hit.Bullish,
		"bearish":      hit.Bearish,
		"highs":        hit.Result.Highs,
		"lows":         hit.Result.Lows,
		"momentum":     momentum,
	})
}

func (s *Server) handleScan(c *gin.Context) {
	tf, ok := s.timeframe(c)
	if !ok {
		return
	}
	doc, err := s.markets.Read()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var selected []string
	for _, m := range strings.Split(c.Query("market"), ",") {
		if m = strings.TrimSpace(m); m != "" {
			selected = append(selected, m)
		}
	}
	targets, err := scanner.Targets(doc, selected)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := s.scanner.ScanDivergences(c.Request.Context(), targets, tf)
	if report == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	body := gin.H{
		"run":     report.Run,
		"scanned": len(report.Results),
		"hits":    report.Hits(),
	}
	if err != nil {
		body["errors"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("[api] listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
