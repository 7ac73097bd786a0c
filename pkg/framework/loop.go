package framework

import (
	"context"
	"time"
)

// Ticker is a cooperative engine advanced at a fixed cadence. Tick is
// always called from the loop's single goroutine.
type Ticker interface {
	Tick(now time.Time) error
}

// TickFunc is the func form of Ticker.
type TickFunc func(now time.Time) error

// Tick implements Ticker.
func (f TickFunc) Tick(now time.Time) error {
	return f(now)
}

// DefaultInterval is the loop cadence when none is configured.
const DefaultInterval = time.Millisecond

// Loop drives Tickers at a fixed interval. The first Ticker error
// stops the loop and is returned from Run.
type Loop struct {
	Interval time.Duration

	tickers []Ticker
}

// NewLoop creates a Loop with the default cadence.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval}
}

// Add registers tickers in call order.
func (l *Loop) Add(tickers ...Ticker) *Loop {
	l.tickers = append(l.tickers, tickers...)
	return l
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timer := time.NewTicker(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-timer.C:
			for _, t := range l.tickers {
				if err := t.Tick(now); err != nil {
					return err
				}
			}
		}
	}
}
