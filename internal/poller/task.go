// Package poller runs view fetches on mount and on a fixed interval.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Fetch results reported to an Observer.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultDiscarded = "discarded"
)

// FetchFunc loads one snapshot value.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Observer is notified of every completed fetch.
type Observer func(task, result string)

// Snapshot is the latest state of a task. Value is replaced wholesale by each
// successful fetch; a failed fetch keeps the previous Value and sets Err.
type Snapshot[T any] struct {
	Value     T
	Err       error
	Loading   bool
	UpdatedAt time.Time
	Seq       uint64
}

// Task fetches once when started and then on every tick until stopped.
// Fetches may overlap; a response is applied only if no newer fetch has been
// issued since it started.
type Task[T any] struct {
	name      string
	interval  time.Duration
	fetch     FetchFunc[T]
	newTicker TickerFunc
	onUpdate  func(Snapshot[T])
	observer  Observer

	mu       sync.Mutex
	snap     Snapshot[T]
	issued   uint64
	runSeq   uint64
	running  bool
	paused   bool
	ctx      context.Context
	stop     chan struct{}
	loopDone chan struct{}
	inflight sync.WaitGroup

	emitMu      sync.Mutex
	lastEmitted uint64
}

// Option configures a Task.
type Option[T any] func(*Task[T])

// WithTicker replaces the wall-clock ticker.
func WithTicker[T any](fn TickerFunc) Option[T] {
	return func(t *Task[T]) { t.newTicker = fn }
}

// WithUpdateHandler registers a callback run after each applied fetch.
// Callbacks are serialized and never see an older snapshot after a newer one.
func WithUpdateHandler[T any](fn func(Snapshot[T])) Option[T] {
	return func(t *Task[T]) { t.onUpdate = fn }
}

// WithObserver registers a fetch observer.
func WithObserver[T any](o Observer) Option[T] {
	return func(t *Task[T]) { t.observer = o }
}

// New creates a stopped task. An interval of zero fetches on start only.
func New[T any](name string, interval time.Duration, fetch FetchFunc[T], opts ...Option[T]) *Task[T] {
	t := &Task[T]{
		name:      name,
		interval:  interval,
		fetch:     fetch,
		newTicker: NewRealTicker,
		snap:      Snapshot[T]{Loading: true},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the task name.
func (t *Task[T]) Name() string {
	return t.name
}

// Start issues the first fetch and starts the interval loop. Starting a
// running task does nothing. Fetches run with ctx; Stop does not cancel them.
func (t *Task[T]) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.paused = false
	// Fetches issued by a previous run are at or below runSeq and are discarded.
	t.runSeq = t.issued
	t.ctx = ctx
	t.snap = Snapshot[T]{Loading: true}
	t.stop = make(chan struct{})
	t.loopDone = nil
	if t.interval > 0 {
		t.loopDone = make(chan struct{})
		go t.loop(ctx, t.newTicker(t.interval), t.stop, t.loopDone)
	}
	t.mu.Unlock()

	slog.Debug("Poller started", "task", t.name, "interval", t.interval)
	t.launch()
}

// Stop cancels the interval loop and waits for it to exit. No fetch is
// issued and no response is applied after Stop returns.
func (t *Task[T]) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stop)
	done := t.loopDone
	t.mu.Unlock()

	if done != nil {
		<-done
	}
	// Wait out a callback already in progress; later ones see running false.
	t.emitMu.Lock()
	t.emitMu.Unlock() //nolint:staticcheck // empty critical section is a barrier
	slog.Debug("Poller stopped", "task", t.name)
}

// Pause suspends tick-driven fetches without stopping the task.
func (t *Task[T]) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = true
}

// Resume lifts a pause and fetches immediately.
func (t *Task[T]) Resume() {
	t.mu.Lock()
	wasPaused := t.paused
	t.paused = false
	t.mu.Unlock()

	if wasPaused {
		t.launch()
	}
}

// Paused reports whether the task is paused.
func (t *Task[T]) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Running reports whether the task is started.
func (t *Task[T]) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Refresh issues a fetch now, regardless of pause.
func (t *Task[T]) Refresh() {
	t.launch()
}

// Snapshot returns the latest snapshot.
func (t *Task[T]) Snapshot() Snapshot[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Replace overwrites the current value locally, e.g. to clear a view's buffer.
// The next applied fetch replaces it again.
func (t *Task[T]) Replace(v T) {
	t.mu.Lock()
	t.snap.Value = v
	t.snap.Err = nil
	snap := t.snap
	t.mu.Unlock()

	if t.onUpdate != nil {
		t.emitMu.Lock()
		defer t.emitMu.Unlock()
		t.onUpdate(snap)
	}
}

// Wait blocks until every in-flight fetch has completed.
func (t *Task[T]) Wait() {
	t.inflight.Wait()
}

func (t *Task[T]) loop(ctx context.Context, ticker Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C():
			if !t.Paused() {
				t.launch()
			}
		}
	}
}

func (t *Task[T]) launch() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.issued++
	seq := t.issued
	ctx := t.ctx
	t.inflight.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.inflight.Done()
		v, err := t.fetch(ctx)
		t.complete(seq, v, err)
	}()
}

func (t *Task[T]) complete(seq uint64, v T, err error) {
	t.mu.Lock()
	if !t.running || seq <= t.runSeq || seq < t.issued {
		t.mu.Unlock()
		t.observe(ResultDiscarded)
		return
	}
	if err != nil {
		t.snap.Err = err
	} else {
		t.snap.Value = v
		t.snap.Err = nil
		t.snap.UpdatedAt = time.Now()
	}
	t.snap.Loading = false
	t.snap.Seq = seq
	snap := t.snap
	t.mu.Unlock()

	if err != nil {
		slog.Warn("Poll failed", "task", t.name, "error", err)
		t.observe(ResultError)
	} else {
		t.observe(ResultOK)
	}
	t.emit(snap)
}

func (t *Task[T]) emit(snap Snapshot[T]) {
	if t.onUpdate == nil {
		return
	}
	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	t.mu.Lock()
	current := t.running && snap.Seq > t.runSeq
	t.mu.Unlock()
	if !current || snap.Seq < t.lastEmitted {
		return
	}
	t.lastEmitted = snap.Seq
	t.onUpdate(snap)
}

func (t *Task[T]) observe(result string) {
	if t.observer != nil {
		t.observer(t.name, result)
	}
}
