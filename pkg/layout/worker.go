package layout

import (
	"errors"
	"sync"
	"time"

	"github.com/matzehuels/webgraph/pkg/graph"
)

var (
	// ErrWorkerRunning is returned by [Worker.Start] while a run is active.
	ErrWorkerRunning = errors.New("layout worker already running")

	// ErrWorkerKilled is returned by [Worker.Start] after [Worker.Kill].
	ErrWorkerKilled = errors.New("layout worker killed")
)

// DefaultWorkerInterval is the pause between two published iterations.
const DefaultWorkerInterval = 16 * time.Millisecond

// Update is a coordinate message published by a running worker.
type Update struct {
	Iteration int
	Positions graph.Positions
}

// Worker runs ForceAtlas2 continuously in its own goroutine. It owns a
// private copy of the topology and communicates only through channels:
// Start and Stop go in, position updates come out.
//
// The update channel holds at most one message; a slow consumer only ever
// sees the most recent positions.
type Worker struct {
	settings *Settings
	interval time.Duration

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	killed bool
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithInterval sets the pause between iterations.
func WithInterval(d time.Duration) WorkerOption {
	return func(w *Worker) { w.interval = d }
}

// NewWorker creates an idle worker. Nil settings are inferred from the order
// of each topology it is started with.
func NewWorker(settings *Settings, opts ...WorkerOption) *Worker {
	w := &Worker{interval: DefaultWorkerInterval}
	if settings != nil {
		s := *settings
		w.settings = &s
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins a run on t and returns the channel its updates arrive on.
// The channel is closed when the run ends.
func (w *Worker) Start(t Topology) (<-chan Update, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.killed {
		return nil, ErrWorkerKilled
	}
	if w.stop != nil {
		return nil, ErrWorkerRunning
	}

	updates := make(chan Update, 1)
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.run(newSimulation(t, w.settings), w.stop, w.done, updates)
	return updates, nil
}

// Stop ends the current run and waits for its goroutine to exit. Stop on an
// idle worker is a no-op.
func (w *Worker) Stop() {
	w.mu.Lock()
	stop, done := w.stop, w.done
	w.stop, w.done = nil, nil
	w.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Kill stops the worker for good. Later calls to Start fail.
func (w *Worker) Kill() {
	w.Stop()
	w.mu.Lock()
	w.killed = true
	w.mu.Unlock()
}

// Running reports whether a run is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stop != nil
}

func (w *Worker) run(sim *simulation, stop <-chan struct{}, done chan<- struct{}, updates chan Update) {
	defer close(done)
	defer close(updates)

	var timer *time.Timer
	if w.interval > 0 {
		timer = time.NewTimer(w.interval)
		defer timer.Stop()
	}
	for i := 1; ; i++ {
		select {
		case <-stop:
			return
		default:
		}
		sim.step()
		publish(updates, Update{Iteration: i, Positions: sim.positions()})

		if timer == nil {
			continue
		}
		select {
		case <-stop:
			return
		case <-timer.C:
			timer.Reset(w.interval)
		}
	}
}

// publish replaces any unread update with u. The worker is the only sender.
func publish(ch chan Update, u Update) {
	select {
	case ch <- u:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- u:
	default:
	}
}
