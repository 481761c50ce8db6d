package daemon

import (
	"time"

	"github.com/wayswitch/wayswitch/internal/geometry"
	"github.com/wayswitch/wayswitch/internal/icons"
	"github.com/wayswitch/wayswitch/internal/imaging"
	"github.com/wayswitch/wayswitch/internal/ipc"
	"github.com/wayswitch/wayswitch/internal/wayland"
)

// btnLeft is the evdev code for the left pointer button.
const btnLeft = 0x110

func (d *Daemon) handleSessionEvent(ev wayland.Event) error {
	switch ev := ev.(type) {
	case wayland.SurfaceConfigure:
		d.handleConfigure(ev)

	case wayland.SurfaceClosed:
		d.log.Debug().Msg("Compositor closed the overlay")
		d.hideOverlay()

	case wayland.FrameDone:
		if d.pendingRepaint {
			d.paint()
		}

	case wayland.KeyPressed:
		d.handleKey(ev.Key)

	case wayland.ModifiersChanged:
		d.heldMods = ev.Held
		if d.vis != hidden && d.requiredMods != 0 && !d.modifiersSatisfied() {
			d.activateSelected()
		}

	case wayland.PointerMotion:
		d.handlePointerMotion(int(ev.X), int(ev.Y))

	case wayland.PointerButton:
		if ev.Pressed && ev.Button == btnLeft {
			d.handleClick()
		}

	case wayland.WindowAdded:
		d.gui.AddWindow(ev.ID)
		d.notifyDebug()

	case wayland.WindowTitle:
		d.gui.SetTitle(ev.ID, ev.Title)
		d.requestRepaint()
		d.notifyDebug()

	case wayland.WindowAppID:
		d.gui.SetAppID(ev.ID, ev.AppID)
		if d.icons != nil {
			d.icons.Lookup(ev.AppID)
		}
		d.requestRepaint()
		d.notifyDebug()

	case wayland.WindowOutputEnter:
		set, ok := d.outputs[ev.ID]
		if !ok {
			set = make(map[uint32]struct{})
			d.outputs[ev.ID] = set
		}
		set[ev.Output] = struct{}{}

	case wayland.WindowOutputLeave:
		if set, ok := d.outputs[ev.ID]; ok {
			delete(set, ev.Output)
		}

	case wayland.WindowActivated:
		d.handleActivated(ev.ID)

	case wayland.WindowClosed:
		d.gui.RemoveWindow(ev.ID)
		delete(d.outputs, ev.ID)
		d.requestRepaint()
		d.notifyDebug()

	case wayland.CaptureReady:
		w, h := d.gui.PreviewTarget(ev.Image.Bounds())
		d.resizer.Resize(uint32(ev.Window), ev.Image, w, h)

	case wayland.CaptureFailed:
		d.log.Debug().Uint32("window", uint32(ev.Window)).Msg("Capture failed")

	case wayland.SessionError:
		return ev.Err
	}
	return nil
}

func (d *Daemon) handleConfigure(ev wayland.SurfaceConfigure) {
	d.session.AckConfigure(ev.Serial)

	if d.vis == hidden {
		return
	}

	resized := ev.Width != d.surfaceWidth || ev.Height != d.surfaceHeight
	d.surfaceWidth = ev.Width
	d.surfaceHeight = ev.Height

	switch d.vis {
	case showing:
		if d.initPending {
			return
		}
		d.initPending = true
		d.backend.InitSurface(d.session, ev.Width, ev.Height, d.inits)

	case visible:
		if !resized {
			return
		}
		if err := d.backend.Resize(ev.Width, ev.Height); err != nil {
			d.log.Error().Err(err).Msg("Backend resize failed")
			d.hideOverlay()
			return
		}
		d.paint()
	}
}

func (d *Daemon) handleKey(key uint32) {
	if d.vis == hidden {
		return
	}

	switch key {
	case wayland.KeyEscape:
		d.hideOverlay()
	case wayland.KeyTab:
		if d.heldMods.Has(wayland.ModShift) {
			d.advanceSelection(ipc.DirectionPrev)
		} else {
			d.advanceSelection(ipc.DirectionNext)
		}
	case wayland.KeyRight, wayland.KeyDown:
		d.advanceSelection(ipc.DirectionNext)
	case wayland.KeyLeft, wayland.KeyUp:
		d.advanceSelection(ipc.DirectionPrev)
	case wayland.KeyEnter:
		d.activateSelected()
	}
}

func (d *Daemon) handlePointerMotion(x, y int) {
	d.pointerX = x
	d.pointerY = y

	if d.vis != visible {
		return
	}
	if i, ok := d.gui.HitTest(x, y); ok && i != d.gui.SelectedIndex() {
		d.gui.Select(i)
		d.requestRepaint()
	}
}

func (d *Daemon) handleClick() {
	if d.vis != visible {
		return
	}
	if i, ok := d.gui.HitTest(d.pointerX, d.pointerY); ok {
		d.gui.Select(i)
		d.activateSelected()
	}
}

// handleActivated rotates the item order and, while hidden, schedules
// a debounced preview capture. Rapid focus churn collapses into one
// capture of whatever ends up in front.
func (d *Daemon) handleActivated(id wayland.WindowID) {
	d.gui.SignalActivation(id)
	d.notifyDebug()

	if d.vis != hidden {
		d.requestRepaint()
		return
	}
	d.timer.PingAfter(time.Duration(d.cfg.Timer.DebounceMs) * time.Millisecond)
}

// handleTimerFire captures the front window's preview. Captures only
// run while hidden; a visible overlay would capture itself.
func (d *Daemon) handleTimerFire() {
	if d.vis != hidden {
		return
	}
	item, ok := d.gui.First()
	if !ok {
		return
	}
	d.activeGeoID = d.geoWorker.Request(uint32(item.ID))
}

func (d *Daemon) handleGeometry(res geometry.Result) {
	// Same rule as the timer: no capture while the overlay is up, it
	// would end up in its own preview.
	if d.vis != hidden {
		d.log.Trace().Uint32("window", res.Window).Msg("Geometry reply while overlay shown")
		return
	}
	if res.ID != d.activeGeoID {
		d.log.Trace().Uint64("request_id", uint64(res.ID)).Msg("Stale geometry reply")
		return
	}
	d.activeGeoID = 0

	if res.Geometry.Width <= 0 || res.Geometry.Height <= 0 {
		d.log.Debug().Uint32("window", res.Window).Msg("Degenerate geometry, skipping capture")
		return
	}
	d.session.CaptureRegion(wayland.WindowID(res.Window), res.Geometry)
}

func (d *Daemon) handleResized(res imaging.Resized) {
	d.gui.SetPreview(wayland.WindowID(res.Window), res.Image)
	d.requestRepaint()
}

func (d *Daemon) handleIcon(res icons.Result) {
	for _, it := range d.gui.Items() {
		if it.AppID == res.AppID {
			d.gui.SetIcon(it.ID, res.Image)
		}
	}
	d.requestRepaint()
}
