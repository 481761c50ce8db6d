// Package daemon runs the switcher's central event loop. One goroutine
// owns all mutable state; collaborators talk to it over channels only.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wayswitch/wayswitch/internal/api"
	"github.com/wayswitch/wayswitch/internal/config"
	"github.com/wayswitch/wayswitch/internal/geometry"
	"github.com/wayswitch/wayswitch/internal/gui"
	"github.com/wayswitch/wayswitch/internal/icons"
	"github.com/wayswitch/wayswitch/internal/imaging"
	"github.com/wayswitch/wayswitch/internal/ipc"
	"github.com/wayswitch/wayswitch/internal/logger"
	"github.com/wayswitch/wayswitch/internal/render"
	"github.com/wayswitch/wayswitch/internal/timer"
	"github.com/wayswitch/wayswitch/internal/wayland"
)

// visibility is the overlay lifecycle state.
type visibility int

const (
	// hidden means no surface exists.
	hidden visibility = iota
	// showing means the surface is requested but the backend is not
	// bound yet.
	showing
	// visible means the surface is active and paint-capable.
	visible
)

func (v visibility) String() string {
	switch v {
	case hidden:
		return "hidden"
	case showing:
		return "showing"
	case visible:
		return "visible"
	}
	return "unknown"
}

// compositor is what the daemon needs from the wayland session.
// *wayland.Session satisfies it.
type compositor interface {
	Events() <-chan wayland.Event
	Activate(window wayland.WindowID)
	CreateSurface(width, height uint32) error
	AckConfigure(serial uint32)
	DestroySurface()
	RequestFrame()
	CaptureRegion(window wayland.WindowID, geo geometry.Geometry)
	CreateBuffer(width, height uint32) (*wayland.ShmBuffer, error)
	DestroyBuffer(buf *wayland.ShmBuffer)
	Attach(buf *wayland.ShmBuffer)
	Close() error
}

const iconSize = 20

// Daemon is the reactor. All fields are owned by the Run goroutine;
// nothing outside it may touch them.
type Daemon struct {
	log *zerolog.Logger

	manager *config.Manager
	cfg     *config.Config

	session compositor
	events  <-chan wayland.Event

	backend     render.Backend
	inits       chan render.InitResult
	initPending bool

	gui *gui.State

	vis            visibility
	surfaceWidth   uint32
	surfaceHeight  uint32
	pendingRepaint bool

	requiredMods wayland.ModifierMask
	heldMods     wayland.ModifierMask
	pointerX     int
	pointerY     int

	outputs map[wayland.WindowID]map[uint32]struct{}

	timer       *timer.Timer
	geoWorker   *geometry.Worker
	activeGeoID geometry.RequestID
	resizer     *imaging.Resizer
	icons       *icons.Worker

	ipcServer   *ipc.Server
	ipcRequests chan ipc.Request

	// cmds defers side effects out of dispatch callbacks and carries
	// off-thread handoffs back onto the loop.
	cmds chan func() error

	debug *api.Server
}

// New wires a daemon over a live compositor session. The caller runs
// it with Run.
func New(manager *config.Manager) (*Daemon, error) {
	cfg := manager.Get()

	session, err := wayland.Connect()
	if err != nil {
		return nil, fmt.Errorf("failed to connect compositor session: %w", err)
	}

	backend, err := render.Select(cfg.Backend)
	if err != nil {
		session.Close()
		return nil, err
	}

	provider, err := geometry.Detect()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to detect geometry provider: %w", err)
	}

	d := newDaemon(cfg, session, backend, geometry.NewWorker(provider))
	d.manager = manager
	d.icons = icons.NewWorker(iconSize)

	server, err := ipc.NewServer(d.ipcRequests)
	if err != nil {
		d.stopWorkers()
		return nil, err
	}
	d.ipcServer = server

	return d, nil
}

// newDaemon builds the loop state without touching the system.
func newDaemon(cfg *config.Config, session compositor, backend render.Backend, geoWorker *geometry.Worker) *Daemon {
	d := &Daemon{
		log:         logger.WithComponent("daemon"),
		cfg:         cfg,
		session:     session,
		events:      session.Events(),
		backend:     backend,
		inits:       make(chan render.InitResult, 1),
		gui:         gui.NewState(cfg.Window, cfg.Item),
		vis:         hidden,
		outputs:     make(map[wayland.WindowID]map[uint32]struct{}),
		timer:       timer.New(time.Duration(cfg.Timer.PeriodMs) * time.Millisecond),
		geoWorker:   geoWorker,
		resizer:     imaging.NewResizer(),
		ipcRequests: make(chan ipc.Request, 16),
		cmds:        make(chan func() error, 16),
	}
	d.requiredMods = d.parseModifiers(cfg.Modifiers, 0)
	return d
}

// Run starts the collaborators and services events until the context
// ends or a fatal error occurs.
func (d *Daemon) Run(ctx context.Context) error {
	if d.ipcServer != nil {
		if err := d.ipcServer.Start(); err != nil {
			d.stopWorkers()
			return err
		}
	}

	if d.manager != nil {
		if err := d.manager.Watch(d.onConfigChange); err != nil {
			d.log.Warn().Err(err).Msg("Config watch unavailable")
		}
	}

	if d.cfg.Debug.Enabled {
		d.debug = api.NewServer(d.Snapshot, d.manager)
		d.debug.Start(d.cfg.Debug.Port)
	}

	d.log.Info().Msg("Daemon running")
	err := d.loop(ctx)
	d.shutdown()
	return err
}

func (d *Daemon) loop(ctx context.Context) error {
	var iconResults <-chan icons.Result
	if d.icons != nil {
		iconResults = d.icons.Results()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-d.events:
			if !ok {
				return fmt.Errorf("compositor session terminated")
			}
			if err := d.handleSessionEvent(ev); err != nil {
				return err
			}

		case req := <-d.ipcRequests:
			d.handleRequest(req)

		case <-d.timer.C():
			d.handleTimerFire()

		case res := <-d.geoWorker.Results():
			d.handleGeometry(res)

		case res := <-d.resizer.Results():
			d.handleResized(res)

		case res := <-iconResults:
			d.handleIcon(res)

		case res := <-d.inits:
			if err := d.handleBackendInit(res); err != nil {
				return err
			}

		case fn := <-d.cmds:
			if err := fn(); err != nil {
				return err
			}
		}
	}
}

func (d *Daemon) shutdown() {
	d.hideOverlay()

	if d.debug != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		d.debug.Stop(ctx)
		cancel()
	}
	if d.ipcServer != nil {
		d.ipcServer.Stop()
	}
	if d.manager != nil {
		d.manager.Close()
	}
	d.stopWorkers()
	d.session.Close()
}

func (d *Daemon) stopWorkers() {
	d.timer.Stop()
	d.geoWorker.Stop()
	d.resizer.Stop()
	if d.icons != nil {
		d.icons.Stop()
	}
}

// --- overlay lifecycle ---

func (d *Daemon) showOverlay(direction ipc.Direction) error {
	if d.vis != hidden {
		d.advanceSelection(direction)
		return nil
	}

	// Size zero asks the compositor for the full output extent; the
	// panel is laid out centered inside it.
	if err := d.session.CreateSurface(0, 0); err != nil {
		return fmt.Errorf("failed to create overlay surface: %w", err)
	}

	d.gui.ResetSelection()
	if direction == ipc.DirectionPrev && d.gui.Len() > 1 {
		d.gui.Select(d.gui.Len() - 1)
	}

	d.vis = showing
	d.log.Debug().Int("windows", d.gui.Len()).Msg("Overlay requested")
	d.notifyDebug()
	return nil
}

func (d *Daemon) hideOverlay() {
	if d.vis == hidden {
		return
	}

	d.backend.DestroySurface()
	d.session.DestroySurface()
	d.vis = hidden
	d.pendingRepaint = false
	d.surfaceWidth = 0
	d.surfaceHeight = 0

	d.log.Debug().Msg("Overlay hidden")
	d.notifyDebug()
}

func (d *Daemon) activateSelected() {
	if item, ok := d.gui.Selected(); ok {
		d.log.Debug().Uint32("window", uint32(item.ID)).Str("title", item.Title).
			Msg("Activating window")
		d.session.Activate(item.ID)
	}
	d.hideOverlay()
}

func (d *Daemon) advanceSelection(direction ipc.Direction) {
	switch direction {
	case ipc.DirectionNext:
		d.gui.SelectNext()
	case ipc.DirectionPrev:
		d.gui.SelectPrev()
	default:
		return
	}
	d.requestRepaint()
}

// --- painting ---

func (d *Daemon) requestRepaint() {
	if d.vis != visible || d.pendingRepaint {
		return
	}
	d.pendingRepaint = true
	d.session.RequestFrame()
}

func (d *Daemon) paint() {
	d.pendingRepaint = false
	if d.vis != visible {
		return
	}
	if err := d.backend.Render(d.gui.Paint); err != nil {
		d.log.Error().Err(err).Msg("Paint failed")
		d.hideOverlay()
	}
}

func (d *Daemon) handleBackendInit(res render.InitResult) error {
	d.initPending = false

	if res.Err != nil {
		// Stay hidden; the next show retries from scratch.
		d.log.Error().Err(res.Err).Str("backend", res.Backend).
			Msg("Backend surface init failed")
		d.hideOverlay()
		return nil
	}

	if d.vis != showing {
		// Hidden again while the init was in flight. Accept the
		// result, then release it.
		d.backend.DestroySurface()
		return nil
	}

	d.vis = visible
	d.log.Debug().Str("backend", res.Backend).
		Uint32("width", d.surfaceWidth).Uint32("height", d.surfaceHeight).
		Msg("Overlay visible")
	d.paint()
	d.notifyDebug()
	return nil
}

// --- modifiers ---

func (d *Daemon) parseModifiers(names []string, fallback wayland.ModifierMask) wayland.ModifierMask {
	var mask wayland.ModifierMask
	for _, name := range names {
		m, err := wayland.ParseModifier(name)
		if err != nil {
			d.log.Warn().Str("modifier", name).Msg("Unknown modifier name")
			continue
		}
		mask |= m
	}
	if mask == 0 {
		return fallback
	}
	return mask
}

func (d *Daemon) modifiersSatisfied() bool {
	return d.heldMods&d.requiredMods == d.requiredMods
}
