package viewer

import (
	"bytes"
	"html/template"
	"sync"
	"time"
)

// State is the viewer's display state.
type State string

const (
	StateLoading  State = "loading"
	StateRendered State = "rendered"
)

// Target receives a full replacement of the rendered list on each render.
type Target interface {
	Replace(fragment template.HTML, state State)
}

var _ Target = (*Page)(nil)

// Page is an in-memory render target served over HTTP.
type Page struct {
	refresh time.Duration

	mu         sync.RWMutex
	fragment   template.HTML
	state      State
	renderedAt time.Time
	renders    int
}

// NewPage returns a page that tells browsers to reload every refresh.
func NewPage(refresh time.Duration) *Page {
	return &Page{refresh: refresh, state: StateLoading}
}

func (p *Page) Replace(fragment template.HTML, state State) {
	p.mu.Lock()
	p.fragment = fragment
	p.state = state
	p.renderedAt = time.Now()
	p.renders++
	p.mu.Unlock()
}

func (p *Page) Fragment() template.HTML {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fragment
}

func (p *Page) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Renders counts Replace calls.
func (p *Page) Renders() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.renders
}

// Document wraps the current fragment in a complete HTML page.
func (p *Page) Document() ([]byte, error) {
	p.mu.RLock()
	data := documentData{
		Fragment:   p.fragment,
		State:      p.state,
		RefreshSec: int(p.refresh / time.Second),
		RenderedAt: p.renderedAt.Format(time.RFC3339),
	}
	p.mu.RUnlock()
	if data.RefreshSec <= 0 {
		data.RefreshSec = 10
	}

	var buf bytes.Buffer
	if err := documentTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type documentData struct {
	Fragment   template.HTML
	State      State
	RefreshSec int
	RenderedAt string
}

var documentTmpl = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html lang="ar" dir="rtl">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="{{.RefreshSec}}">
<title>Market Ticker</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0; padding: 12px; width: 300px; background: #fafafa; }
.market-card { display: flex; justify-content: space-between; align-items: center; padding: 10px 12px; margin-bottom: 8px; border-radius: 8px; background: #fff; border-inline-start: 4px solid transparent; }
.market-card.up { border-color: #34A853; }
.market-card.down { border-color: #EA4335; }
.market-name { font-weight: 600; }
.market-label { font-size: 12px; color: #666; }
.market-price { font-weight: 600; direction: ltr; }
.up .market-change { color: #34A853; direction: ltr; }
.down .market-change { color: #EA4335; direction: ltr; }
.loading { text-align: center; color: #666; padding: 24px 0; }
</style>
</head>
<body data-state="{{.State}}" data-rendered-at="{{.RenderedAt}}">
<div id="markets">{{.Fragment}}</div>
</body>
</html>
`))
