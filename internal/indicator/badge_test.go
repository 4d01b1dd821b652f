package indicator

import (
	"strings"
	"sync"
	"testing"
)

func TestBoard(t *testing.T) {
	b := NewBoard()
	b.SetText("5000")
	b.SetColor("#34A853")
	b.SetTitle("S&P 500: 5000 ▲ +0.20%")

	got := b.Snapshot()
	if got.Text != "5000" || got.Color != "#34A853" || got.Title != "S&P 500: 5000 ▲ +0.20%" {
		t.Errorf("Snapshot() = %+v", got)
	}
	if got.UpdatedAt == 0 {
		t.Error("UpdatedAt not set")
	}

	b.SetColor("")
	if got := b.Snapshot(); got.Color != "" {
		t.Errorf("Color = %q after clear, want empty", got.Color)
	}
}

func TestBoardConcurrentWrites(t *testing.T) {
	b := NewBoard()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.SetText("...")
			b.SetColor("")
			_ = b.Snapshot()
		}()
	}
	wg.Wait()
	if got := b.Snapshot().Text; got != "..." {
		t.Errorf("Text = %q, want %q", got, "...")
	}
}

func TestBoardSetIsAtomic(t *testing.T) {
	b := NewBoard()
	b.Set("5000", "#34A853", "S&P 500: 5000 ▲ +0.20%")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Set("5000", "#34A853", "S&P 500: 5000 ▲ +0.20%")
		}()
		go func() {
			defer wg.Done()
			b.Set("67.3", "#EA4335", "النفط: 67.34 ▼ -0.97%")
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		got := b.Snapshot()
		if !strings.HasPrefix(got.Title, "S&P") && got.Text == "5000" {
			t.Fatalf("mixed state: %+v", got)
		}
		if strings.HasPrefix(got.Title, "S&P") && (got.Text != "5000" || got.Color != "#34A853") {
			t.Fatalf("mixed state: %+v", got)
		}
		select {
		case <-done:
			return
		default:
		}
	}
}
