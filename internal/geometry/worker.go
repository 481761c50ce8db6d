package geometry

import (
	"github.com/wayswitch/wayswitch/internal/logger"
)

// RequestID correlates a geometry request with its result. The daemon
// only honors the most recent ID; earlier results are stale.
type RequestID uint64

// Result is a completed geometry lookup. Failed lookups produce no
// result at all.
type Result struct {
	ID       RequestID
	Window   uint32
	Geometry Geometry
}

type request struct {
	id     RequestID
	window uint32
}

// Worker runs provider lookups off the daemon loop. Requests are
// fire-and-forget; results come back on Results. The queue is bounded
// and overflow drops the request, since a fresher one is always on the
// way.
type Worker struct {
	provider Provider
	requests chan request
	results  chan Result
	quit     chan struct{}
	nextID   RequestID
}

// NewWorker creates and starts a worker over the given provider.
func NewWorker(provider Provider) *Worker {
	w := &Worker{
		provider: provider,
		requests: make(chan request, 8),
		results:  make(chan Result, 8),
		quit:     make(chan struct{}),
	}
	go w.run()
	return w
}

// Request queues a lookup for the window's rectangle and returns its
// correlation ID. Only the daemon loop calls this, so the ID counter
// needs no locking.
func (w *Worker) Request(window uint32) RequestID {
	w.nextID++
	id := w.nextID

	select {
	case w.requests <- request{id: id, window: window}:
	case <-w.quit:
	default:
		logger.WithComponent("geometry").Debug().
			Uint64("request_id", uint64(id)).
			Msg("Geometry queue full, dropping request")
	}
	return id
}

// Results returns the result channel.
func (w *Worker) Results() <-chan Result {
	return w.results
}

// Stop terminates the worker and closes its provider.
func (w *Worker) Stop() {
	close(w.quit)
}

func (w *Worker) run() {
	log := logger.WithComponent("geometry")
	defer w.provider.Close()

	for {
		select {
		case req := <-w.requests:
			geo, err := w.provider.ActiveWindowGeometry()
			if err != nil {
				// Window may be gone already. The next request will
				// see the new world; nothing to report.
				log.Debug().Err(err).
					Uint64("request_id", uint64(req.id)).
					Msg("Geometry lookup failed")
				continue
			}
			select {
			case w.results <- Result{ID: req.id, Window: req.window, Geometry: geo}:
			case <-w.quit:
				return
			}
		case <-w.quit:
			return
		}
	}
}
