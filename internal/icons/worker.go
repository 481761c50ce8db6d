package icons

import (
	"image"

	"github.com/wayswitch/wayswitch/internal/logger"
)

// Result is a successfully resolved icon. Lookups that find nothing
// produce no result.
type Result struct {
	AppID string
	Image *image.RGBA
}

// Worker resolves icons off the daemon loop. Each app id is looked up
// at most once; the filesystem scan is too expensive to repeat per
// window.
type Worker struct {
	resolver *resolver
	size     int
	requests chan string
	results  chan Result
	quit     chan struct{}
	seen     map[string]struct{}
}

// NewWorker creates and starts a worker producing icons of the given
// square pixel size.
func NewWorker(size int) *Worker {
	w := &Worker{
		resolver: defaultResolver(),
		size:     size,
		requests: make(chan string, 8),
		results:  make(chan Result, 8),
		quit:     make(chan struct{}),
		seen:     make(map[string]struct{}),
	}
	go w.run()
	return w
}

// Lookup queues an icon lookup for the app id. Only the daemon loop
// calls this, so the dedup map needs no locking.
func (w *Worker) Lookup(appID string) {
	if appID == "" {
		return
	}
	if _, ok := w.seen[appID]; ok {
		return
	}
	w.seen[appID] = struct{}{}

	select {
	case w.requests <- appID:
	case <-w.quit:
	default:
		logger.WithComponent("icons").Debug().
			Str("app_id", appID).
			Msg("Icon queue full, dropping lookup")
	}
}

// Results returns the result channel.
func (w *Worker) Results() <-chan Result {
	return w.results
}

// Stop terminates the worker.
func (w *Worker) Stop() {
	close(w.quit)
}

func (w *Worker) run() {
	log := logger.WithComponent("icons")

	for {
		select {
		case appID := <-w.requests:
			img, err := w.resolver.iconForAppID(appID)
			if err != nil {
				log.Debug().Str("app_id", appID).Msg("No icon found")
				continue
			}
			select {
			case w.results <- Result{AppID: appID, Image: scaled(img, w.size)}:
			case <-w.quit:
				return
			}
		case <-w.quit:
			return
		}
	}
}
