package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tradebot/internal/core"
	"tradebot/internal/mock"
)

type fakeProcessor struct {
	mu       sync.Mutex
	passes   int
	inFlight int
	maxSeen  int
	delay    time.Duration
	err      error
	panics   bool
}

func (p *fakeProcessor) ProcessPendingOffers(ctx context.Context) ([]core.Decision, error) {
	p.mu.Lock()
	p.passes++
	p.inFlight++
	if p.inFlight > p.maxSeen {
		p.maxSeen = p.inFlight
	}
	delay, err, panics := p.delay, p.err, p.panics
	p.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()

	if panics {
		panic("broken pass")
	}
	return nil, err
}

func (p *fakeProcessor) passCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.passes
}

func TestSchedulerRunsPasses(t *testing.T) {
	p := &fakeProcessor{}
	s := NewPollingScheduler(p, 20*time.Millisecond, mock.NopLogger{})

	s.Start(context.Background())
	time.Sleep(90 * time.Millisecond)
	s.Stop()

	// One immediate pass plus several ticks.
	assert.GreaterOrEqual(t, p.passCount(), 3)
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	p := &fakeProcessor{}
	s := NewPollingScheduler(p, 10*time.Millisecond, mock.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()
	s.Stop()

	count := p.passCount()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, count, p.passCount())
}

func TestSchedulerPassesNeverOverlap(t *testing.T) {
	// Each pass outlasts several tick intervals.
	p := &fakeProcessor{delay: 35 * time.Millisecond}
	s := NewPollingScheduler(p, 10*time.Millisecond, mock.NopLogger{})

	s.Start(context.Background())
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, 1, p.maxSeen)
}

func TestSchedulerSurvivesErrorsAndPanics(t *testing.T) {
	p := &fakeProcessor{err: errors.New("pass failed"), panics: true}
	s := NewPollingScheduler(p, 15*time.Millisecond, mock.NopLogger{})

	s.Start(context.Background())
	time.Sleep(70 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, p.passCount(), 2)
}

func TestSchedulerDefaultInterval(t *testing.T) {
	s := NewPollingScheduler(&fakeProcessor{}, 0, mock.NopLogger{})
	assert.Equal(t, 2*time.Second, s.interval)
}
