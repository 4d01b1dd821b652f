// Package poller fetches quotes for every configured instrument on a timer,
// persists the set to shared storage and drives the rotating badge.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"market-ticker/internal/indicator"
	"market-ticker/internal/market"
	"market-ticker/internal/schedule"
)

// DataStore persists the whole MarketDataSet.
type DataStore interface {
	Load(ctx context.Context) (market.MarketDataSet, error)
	Save(ctx context.Context, set market.MarketDataSet) error
}

type Config struct {
	PollInterval   time.Duration // default: 60s
	RotateInterval time.Duration // default: 5s
	FetchTimeout   time.Duration // per instrument, default: 10s
}

func DefaultConfig() Config {
	return Config{
		PollInterval:   60 * time.Second,
		RotateInterval: 5 * time.Second,
		FetchTimeout:   10 * time.Second,
	}
}

// FetchResult is the outcome for one instrument in one cycle.
type FetchResult struct {
	Key   string       `json:"key"`
	Quote market.Quote `json:"quote"`
	Err   error        `json:"-"`
}

func (r FetchResult) OK() bool { return r.Err == nil }

type CycleReport struct {
	ID         uuid.UUID     `json:"id"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`
	Results    []FetchResult `json:"results,omitempty"`
	Skipped    bool          `json:"skipped"`
	PersistErr error         `json:"-"`
}

// Failed lists the keys whose fetch failed this cycle.
func (r CycleReport) Failed() []string {
	var out []string
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res.Key)
		}
	}
	return out
}

type state struct {
	quotes market.MarketDataSet
	cursor int
}

type Poller struct {
	cfg         Config
	instruments []market.Instrument
	provider    market.QuoteProvider
	data        DataStore
	badge       indicator.Badge
	logger      *zap.Logger

	// cycle admits one poll cycle at a time.
	cycle *semaphore.Weighted

	mu    sync.Mutex
	state state
}

func New(cfg Config, instruments []market.Instrument, provider market.QuoteProvider, data DataStore, badge indicator.Badge, logger *zap.Logger) *Poller {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.RotateInterval <= 0 {
		cfg.RotateInterval = def.RotateInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		cfg:         cfg,
		instruments: instruments,
		provider:    provider,
		data:        data,
		badge:       badge,
		logger:      logger,
		cycle:       semaphore.NewWeighted(1),
		state:       state{quotes: make(market.MarketDataSet)},
	}
}

// Register installs the poll and rotation timers on s.
func (p *Poller) Register(s *schedule.Scheduler) error {
	if err := s.Register(schedule.TimerPoll, p.cfg.PollInterval); err != nil {
		return err
	}
	if err := s.Register(schedule.TimerRotate, p.cfg.RotateInterval); err != nil {
		return err
	}
	s.Handle(schedule.TimerPoll, func(ctx context.Context) { p.RunPollCycle(ctx) })
	s.Handle(schedule.TimerRotate, func(context.Context) { p.AdvanceRotation() })
	return nil
}

// Run seeds memory from storage, starts the first cycle and blocks on the
// scheduler until ctx is done.
func (p *Poller) Run(ctx context.Context, s *schedule.Scheduler) error {
	p.Seed(ctx)
	if err := p.Register(s); err != nil {
		return err
	}

	first := make(chan struct{})
	go func() {
		defer close(first)
		p.RunPollCycle(ctx)
	}()

	p.logger.Info("poller started",
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Duration("rotate_interval", p.cfg.RotateInterval),
		zap.Int("instruments", len(p.instruments)),
	)
	s.Run(ctx)
	<-first
	p.logger.Info("poller stopped")
	return nil
}

// Seed loads the persisted set so stale quotes survive a restart.
func (p *Poller) Seed(ctx context.Context) {
	set, err := p.data.Load(ctx)
	if err != nil {
		p.logger.Warn("load stored market data", zap.Error(err))
		return
	}
	p.mu.Lock()
	for k, q := range set {
		if p.known(k) {
			p.state.quotes[k] = q
		}
	}
	p.mu.Unlock()
	p.RefreshIndicator()
}

// RunPollCycle fetches every instrument in order, one at a time. A failed
// instrument keeps its previous quote. If another cycle is still running
// the call returns at once with Skipped set.
func (p *Poller) RunPollCycle(ctx context.Context) CycleReport {
	if !p.cycle.TryAcquire(1) {
		p.logger.Debug("poll cycle still in flight, skipping")
		return CycleReport{Skipped: true}
	}
	defer p.cycle.Release(1)

	report := CycleReport{ID: uuid.New(), Started: time.Now()}
	log := p.logger.With(zap.String("cycle", report.ID.String()))

	for _, inst := range p.instruments {
		res := p.fetch(ctx, inst)
		report.Results = append(report.Results, res)
		if res.Err != nil {
			log.Warn("fetch quote failed",
				zap.String("key", inst.Key),
				zap.String("query", inst.Query),
				zap.Error(res.Err),
			)
			continue
		}
		p.mu.Lock()
		p.state.quotes[inst.Key] = res.Quote
		p.mu.Unlock()
	}

	if err := p.data.Save(ctx, p.Quotes()); err != nil {
		report.PersistErr = err
		log.Error("persist market data", zap.Error(err))
	}
	p.RefreshIndicator()

	report.Duration = time.Since(report.Started)
	log.Info("poll cycle complete",
		zap.Int("instruments", len(p.instruments)),
		zap.Int("failed", len(report.Failed())),
		zap.Duration("duration", report.Duration),
	)
	return report
}

func (p *Poller) fetch(ctx context.Context, inst market.Instrument) FetchResult {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	res := FetchResult{Key: inst.Key}
	snap, err := p.provider.GetQuote(ctx, inst.Query)
	if err != nil {
		res.Err = err
		return res
	}
	res.Quote, res.Err = market.FromSnapshot(snap)
	return res
}

// RefreshIndicator shows the instrument under the rotation cursor.
func (p *Poller) RefreshIndicator() {
	if p.badge == nil || len(p.instruments) == 0 {
		return
	}
	// Held across the badge writes so a rotation tick and the end of a poll
	// cycle cannot interleave their fields.
	p.mu.Lock()
	defer p.mu.Unlock()
	inst := p.instruments[p.state.cursor]
	q, ok := p.state.quotes[inst.Key]
	renderBadge(p.badge, inst, q, ok)
}

// AdvanceRotation moves the cursor to the next instrument, wrapping after
// the last, and refreshes the badge.
func (p *Poller) AdvanceRotation() {
	if len(p.instruments) == 0 {
		return
	}
	p.mu.Lock()
	p.state.cursor = (p.state.cursor + 1) % len(p.instruments)
	p.mu.Unlock()
	p.RefreshIndicator()
}

// Cursor returns the key of the instrument the badge currently shows.
func (p *Poller) Cursor() string {
	if len(p.instruments) == 0 {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instruments[p.state.cursor].Key
}

// Quotes returns a copy of the in-memory set.
func (p *Poller) Quotes() market.MarketDataSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.quotes.Clone()
}

func (p *Poller) known(key string) bool {
	for _, inst := range p.instruments {
		if inst.Key == key {
			return true
		}
	}
	return false
}

// stateSetter is implemented by badges that can replace all fields at once.
type stateSetter interface {
	Set(text, color, title string)
}

func renderBadge(b indicator.Badge, inst market.Instrument, q market.Quote, ok bool) {
	text, color, title := "...", "", inst.Name
	if ok {
		text = market.FormatBadgePrice(inst, q.Price)
		color = market.Color(q.Up)
		title = market.Tooltip(inst, q)
	}
	if s, isSetter := b.(stateSetter); isSetter {
		s.Set(text, color, title)
		return
	}
	b.SetText(text)
	b.SetColor(color)
	b.SetTitle(title)
}
