package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/route"
	"go.uber.org/zap"

	"market-ticker/internal/indicator"
	"market-ticker/internal/market"
	"market-ticker/internal/poller"
)

// Poller is the part of the poller the HTTP surface drives.
type Poller interface {
	RunPollCycle(ctx context.Context) poller.CycleReport
	Quotes() market.MarketDataSet
	Cursor() string
}

// BadgeReader exposes the current badge state.
type BadgeReader interface {
	Snapshot() indicator.State
}

// Page is the viewer's render target as served over HTTP.
type Page interface {
	Document() ([]byte, error)
}

// MarketLoader reads the shared data set.
type MarketLoader interface {
	Load(ctx context.Context) (market.MarketDataSet, error)
}

type PollResponse struct {
	OK           bool     `json:"ok"`
	Cycle        string   `json:"cycle,omitempty"`
	Skipped      bool     `json:"skipped"`
	DurationMs   int64    `json:"duration_ms"`
	Failed       []string `json:"failed,omitempty"`
	PersistError string   `json:"persist_error,omitempty"`
}

func registerHealth(r route.IRoutes) {
	r.GET("/healthz", func(_ context.Context, c *app.RequestContext) {
		c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})
}

// RegisterPollerRoutes mounts the poller process's debug surface.
func RegisterPollerRoutes(r route.IRoutes, p Poller, badge BadgeReader, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registerHealth(r)

	r.GET("/api/v1/badge", func(_ context.Context, c *app.RequestContext) {
		if badge == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "badge not configured",
			})
			return
		}
		c.JSON(http.StatusOK, map[string]any{
			"ok":     true,
			"cursor": p.Cursor(),
			"badge":  badge.Snapshot(),
		})
	})

	r.GET("/api/v1/quotes", func(_ context.Context, c *app.RequestContext) {
		quotes := filterKeys(p.Quotes(), parseKeys(c.Query("keys")))
		c.JSON(http.StatusOK, map[string]any{
			"ok":     true,
			"quotes": quotes,
		})
	})

	r.POST("/api/v1/poll", func(ctx context.Context, c *app.RequestContext) {
		report := p.RunPollCycle(ctx)
		if report.Skipped {
			c.JSON(http.StatusConflict, PollResponse{Skipped: true})
			return
		}
		resp := PollResponse{
			OK:         report.PersistErr == nil,
			Cycle:      report.ID.String(),
			DurationMs: report.Duration.Milliseconds(),
			Failed:     report.Failed(),
		}
		if report.PersistErr != nil {
			resp.PersistError = report.PersistErr.Error()
			logger.Warn("manual poll could not persist", zap.String("cycle", resp.Cycle), zap.Error(report.PersistErr))
		}
		c.JSON(http.StatusOK, resp)
	})
}

// RegisterViewerRoutes mounts the viewer page and its JSON feed.
func RegisterViewerRoutes(r route.IRoutes, page Page, data MarketLoader, instruments []market.Instrument, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registerHealth(r)

	r.GET("/", func(_ context.Context, c *app.RequestContext) {
		doc, err := page.Document()
		if err != nil {
			logger.Error("render document", zap.Error(err))
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", doc)
	})

	r.GET("/api/v1/market", func(ctx context.Context, c *app.RequestContext) {
		set, err := data.Load(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, map[string]any{
			"ok":          true,
			"instruments": instruments,
			"data":        filterKeys(set, parseKeys(c.Query("keys"))),
		})
	})
}

// parseKeys splits a comma separated key list. Nil means no filter.
func parseKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func filterKeys(set market.MarketDataSet, keys []string) market.MarketDataSet {
	if keys == nil {
		return set
	}
	out := make(market.MarketDataSet, len(keys))
	for _, k := range keys {
		if q, ok := set[k]; ok {
			out[k] = q
		}
	}
	return out
}
