// Package viewer renders the stored market data as a list of cards.
package viewer

import (
	"bytes"
	"context"
	"html"
	"html/template"
	"sync"
	"time"

	"go.uber.org/zap"

	"market-ticker/internal/market"
)

// LoadingText is shown until the first non-empty read.
const LoadingText = "جاري جلب البيانات... 📡"

// Loader reads the shared MarketDataSet.
type Loader interface {
	Load(ctx context.Context) (market.MarketDataSet, error)
}

type Config struct {
	RefreshInterval time.Duration // default: 10s
	RetryDelay      time.Duration // default: 2s
}

func DefaultConfig() Config {
	return Config{
		RefreshInterval: 10 * time.Second,
		RetryDelay:      2 * time.Second,
	}
}

// Card is one rendered instrument.
type Card struct {
	Key       string `json:"key"`
	Icon      string `json:"icon"`
	Name      string `json:"name"`
	Label     string `json:"label"`
	Price     string `json:"price"`
	Arrow     string `json:"arrow"`
	Change    string `json:"change"`
	Direction string `json:"direction"`
}

type Viewer struct {
	cfg         Config
	instruments []market.Instrument
	data        Loader
	target      Target
	logger      *zap.Logger

	// after schedules the one-shot retry; time.AfterFunc outside tests.
	after func(d time.Duration, f func())

	mu           sync.Mutex
	retryPending bool
	rendered     bool
}

func New(cfg Config, instruments []market.Instrument, data Loader, target Target, logger *zap.Logger) *Viewer {
	def := DefaultConfig()
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = def.RefreshInterval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Viewer{
		cfg:         cfg,
		instruments: instruments,
		data:        data,
		target:      target,
		logger:      logger,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// Run renders immediately and then on every refresh tick until ctx is done.
func (v *Viewer) Run(ctx context.Context) {
	ticker := time.NewTicker(v.cfg.RefreshInterval)
	defer ticker.Stop()

	v.Render(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.Render(ctx)
		}
	}
}

// Render replaces the target's content with the current stored data. When
// nothing is stored yet it shows the loading placeholder and schedules one
// delayed re-render. A read error is logged and leaves a rendered list in
// place.
func (v *Viewer) Render(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	set, err := v.data.Load(ctx)
	if err != nil {
		// A failed read keeps whatever is on screen until the next tick.
		v.logger.Warn("load market data", zap.Error(err))
		if !v.hasRendered() {
			v.target.Replace(loadingFragment(), StateLoading)
		}
		return
	}
	if len(set) == 0 {
		v.target.Replace(loadingFragment(), StateLoading)
		v.scheduleRetry(ctx)
		return
	}

	fragment, err := renderCards(Cards(v.instruments, set))
	if err != nil {
		v.logger.Error("render cards", zap.Error(err))
		return
	}
	v.target.Replace(fragment, StateRendered)
	v.mu.Lock()
	v.rendered = true
	v.mu.Unlock()
}

func (v *Viewer) hasRendered() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rendered
}

// scheduleRetry keeps at most one retry pending at a time.
func (v *Viewer) scheduleRetry(ctx context.Context) {
	v.mu.Lock()
	if v.retryPending {
		v.mu.Unlock()
		return
	}
	v.retryPending = true
	v.mu.Unlock()

	v.after(v.cfg.RetryDelay, func() {
		v.mu.Lock()
		v.retryPending = false
		v.mu.Unlock()
		v.Render(ctx)
	})
}

// Cards builds one card per instrument that has a quote, in instrument
// order. Instruments without a quote are skipped.
func Cards(instruments []market.Instrument, set market.MarketDataSet) []Card {
	cards := make([]Card, 0, len(set))
	for _, inst := range instruments {
		q, ok := set[inst.Key]
		if !ok {
			continue
		}
		direction := "down"
		if q.Up {
			direction = "up"
		}
		cards = append(cards, Card{
			Key:       inst.Key,
			Icon:      inst.Icon,
			Name:      inst.ListName,
			Label:     inst.Label,
			Price:     market.FormatListPrice(inst, q.Price),
			Arrow:     market.Arrow(q.Up),
			Change:    market.SignedPct(q),
			Direction: direction,
		})
	}
	return cards
}

// text escapes markup but leaves the sign and digit grouping readable.
func text(s string) template.HTML { return template.HTML(html.EscapeString(s)) }

var cardsTmpl = template.Must(template.New("cards").Funcs(template.FuncMap{"text": text}).Parse(`{{range .}}
<div class="market-card {{.Direction}}" data-key="{{.Key}}">
  <div class="market-info">
    <div class="market-name">{{.Icon}} {{.Name}}</div>
    <div class="market-label">{{.Label}}</div>
  </div>
  <div class="market-data">
    <div class="market-price">{{text .Price}}</div>
    <div class="market-change">{{.Arrow}} {{text .Change}}</div>
  </div>
</div>{{end}}
`))

var loadingTmpl = template.Must(template.New("loading").Parse(`<div class="loading">{{.}}</div>`))

func renderCards(cards []Card) (template.HTML, error) {
	var buf bytes.Buffer
	if err := cardsTmpl.Execute(&buf, cards); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func loadingFragment() template.HTML {
	var buf bytes.Buffer
	_ = loadingTmpl.Execute(&buf, LoadingText)
	return template.HTML(buf.String())
}
