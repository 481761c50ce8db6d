// Package wayland owns the compositor connection. A dedicated
// goroutine pumps protocol events; handlers only parse wire data and
// enqueue typed events for the daemon loop. Requests flow the other
// way as one-way commands.
package wayland

import (
	"fmt"
	"sync"

	wl "github.com/bnema/wlturbo"

	"github.com/wayswitch/wayswitch/internal/geometry"
	"github.com/wayswitch/wayswitch/internal/imaging"
	"github.com/wayswitch/wayswitch/internal/logger"
)

// toplevelState buffers per-handle events until the protocol's done
// event marks them consistent.
type toplevelState struct {
	title     string
	appID     string
	titleSet  bool
	appIDSet  bool
	stateSeen bool
	activated bool
}

// captureState tracks one in-flight screencopy. A newer capture
// silently replaces an older one.
type captureState struct {
	frameID uint32
	window  WindowID

	width, height uint32
	stride        uint32
	format        uint32
	haveParams    bool

	buf *ShmBuffer
}

// Session is the live compositor connection.
type Session struct {
	display *wl.Display
	events  chan Event
	quit    chan struct{}
	once    sync.Once

	bindErr error

	compositorID  uint32
	shmID         uint32
	seatID        uint32
	layerShellID  uint32
	toplevelMgrID uint32
	screencopyID  uint32
	outputIDs     []uint32

	keyboardID uint32
	pointerID  uint32

	surfaceID      uint32
	layerSurfaceID uint32

	// Touched only on the dispatch goroutine (and during Connect,
	// before the pump starts).
	toplevels map[uint32]*toplevelState

	captureMu sync.Mutex
	capture   *captureState
}

// Connect establishes the compositor connection, binds the globals
// the switcher needs and starts the event pump.
func Connect() (*Session, error) {
	display, err := wl.Connect("")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to wayland display: %w", err)
	}

	s := &Session{
		display:   display,
		events:    make(chan Event, 256),
		quit:      make(chan struct{}),
		toplevels: make(map[uint32]*toplevelState),
	}

	reg := display.Registry()
	reg.AddHandler(ifaceCompositor, func(r *wl.Registry, name, version uint32) {
		s.compositorID = s.bind(r, name, ifaceCompositor, version, versionCompositor)
	})
	reg.AddHandler(ifaceShm, func(r *wl.Registry, name, version uint32) {
		s.shmID = s.bind(r, name, ifaceShm, version, versionShm)
	})
	reg.AddHandler(ifaceOutput, func(r *wl.Registry, name, version uint32) {
		id := s.bind(r, name, ifaceOutput, version, versionOutput)
		if id != 0 {
			s.outputIDs = append(s.outputIDs, id)
		}
	})
	reg.AddHandler(ifaceSeat, func(r *wl.Registry, name, version uint32) {
		if s.seatID != 0 {
			return
		}
		s.seatID = s.bind(r, name, ifaceSeat, version, versionSeat)
		if s.seatID != 0 {
			display.AddListener(s.seatID, seatEvtCapabilities, s.handleSeatCapabilities)
		}
	})
	reg.AddHandler(ifaceLayerShell, func(r *wl.Registry, name, version uint32) {
		s.layerShellID = s.bind(r, name, ifaceLayerShell, version, versionLayerShell)
	})
	reg.AddHandler(ifaceToplevelMgr, func(r *wl.Registry, name, version uint32) {
		s.toplevelMgrID = s.bind(r, name, ifaceToplevelMgr, version, versionToplevelMgr)
		if s.toplevelMgrID != 0 {
			display.AddListener(s.toplevelMgrID, toplevelMgrEvtToplevel, s.handleNewToplevel)
		}
	})
	reg.AddHandler(ifaceScreencopyMgr, func(r *wl.Registry, name, version uint32) {
		s.screencopyID = s.bind(r, name, ifaceScreencopyMgr, version, versionScreencopyMgr)
	})

	// First trip announces and binds globals, second delivers seat
	// capabilities and the initial toplevel list, third settles the
	// keyboard and pointer objects requested while handling
	// capabilities.
	for i := 0; i < 3; i++ {
		if err := display.Roundtrip(); err != nil {
			display.Close()
			return nil, fmt.Errorf("wayland roundtrip failed: %w", err)
		}
		if s.bindErr != nil {
			display.Close()
			return nil, s.bindErr
		}
	}

	if err := s.checkRequiredGlobals(); err != nil {
		display.Close()
		return nil, err
	}

	log := logger.WithComponent("wayland")
	if s.screencopyID == 0 || len(s.outputIDs) == 0 {
		log.Warn().Msg("Screencopy unavailable, window previews disabled")
	}
	log.Info().
		Int("outputs", len(s.outputIDs)).
		Int("windows", len(s.toplevels)).
		Msg("Compositor session established")

	go s.pump()
	return s, nil
}

func (s *Session) bind(r *wl.Registry, name uint32, iface string, version, max uint32) uint32 {
	if version > max {
		version = max
	}
	id, err := r.BindID(name, iface, version)
	if err != nil {
		if s.bindErr == nil {
			s.bindErr = fmt.Errorf("failed to bind %s: %w", iface, err)
		}
		return 0
	}
	return id
}

func (s *Session) checkRequiredGlobals() error {
	required := []struct {
		id    uint32
		iface string
	}{
		{s.compositorID, ifaceCompositor},
		{s.shmID, ifaceShm},
		{s.seatID, ifaceSeat},
		{s.layerShellID, ifaceLayerShell},
		{s.toplevelMgrID, ifaceToplevelMgr},
	}
	for _, g := range required {
		if g.id == 0 {
			return fmt.Errorf("compositor does not advertise %s", g.iface)
		}
	}
	return nil
}

// Events returns the typed event channel. It closes after a fatal
// SessionError or Close.
func (s *Session) Events() <-chan Event {
	return s.events
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.quit:
	}
}

func (s *Session) pump() {
	for {
		if err := s.display.Dispatch(); err != nil {
			select {
			case <-s.quit:
			default:
				s.emit(SessionError{Err: err})
			}
			close(s.events)
			return
		}
		select {
		case <-s.quit:
			close(s.events)
			return
		default:
		}
	}
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() error {
	s.once.Do(func() {
		close(s.quit)
		s.display.Close()
	})
	return nil
}

// --- input ---

func (s *Session) handleSeatCapabilities(body []byte) {
	r := argReader{data: body}
	caps := r.uint32()

	if caps&seatCapKeyboard != 0 && s.keyboardID == 0 {
		kb := s.display.AllocateID()
		if err := s.display.SendRequest(s.seatID, seatGetKeyboard, kb); err == nil {
			s.keyboardID = kb
			s.display.AddListener(kb, keyboardEvtKey, s.handleKey)
			s.display.AddListener(kb, keyboardEvtModifiers, s.handleModifiers)
		}
	}
	if caps&seatCapPointer != 0 && s.pointerID == 0 {
		ptr := s.display.AllocateID()
		if err := s.display.SendRequest(s.seatID, seatGetPointer, ptr); err == nil {
			s.pointerID = ptr
			s.display.AddListener(ptr, pointerEvtEnter, s.handlePointerEnter)
			s.display.AddListener(ptr, pointerEvtMotion, s.handlePointerMotion)
			s.display.AddListener(ptr, pointerEvtButton, s.handlePointerButton)
		}
	}
}

func (s *Session) handleKey(body []byte) {
	r := argReader{data: body}
	r.uint32() // serial
	r.uint32() // time
	key := r.uint32()
	state := r.uint32()
	if state == keyStatePressed {
		s.emit(KeyPressed{Key: key})
	}
}

func (s *Session) handleModifiers(body []byte) {
	r := argReader{data: body}
	r.uint32() // serial
	depressed := r.uint32()
	latched := r.uint32()
	s.emit(ModifiersChanged{Held: ModifierMask(depressed | latched)})
}

func (s *Session) handlePointerEnter(body []byte) {
	r := argReader{data: body}
	r.uint32() // serial
	r.uint32() // surface
	s.emit(PointerMotion{X: r.fixed(), Y: r.fixed()})
}

func (s *Session) handlePointerMotion(body []byte) {
	r := argReader{data: body}
	r.uint32() // time
	s.emit(PointerMotion{X: r.fixed(), Y: r.fixed()})
}

func (s *Session) handlePointerButton(body []byte) {
	r := argReader{data: body}
	r.uint32() // serial
	r.uint32() // time
	button := r.uint32()
	state := r.uint32()
	s.emit(PointerButton{Button: button, Pressed: state == buttonStatePressed})
}

// --- toplevel tracking ---

func (s *Session) handleNewToplevel(body []byte) {
	r := argReader{data: body}
	id := r.uint32()
	if id == 0 {
		return
	}
	s.toplevels[id] = &toplevelState{}

	s.display.AddListener(id, toplevelEvtTitle, func(b []byte) { s.handleToplevelTitle(id, b) })
	s.display.AddListener(id, toplevelEvtAppID, func(b []byte) { s.handleToplevelAppID(id, b) })
	s.display.AddListener(id, toplevelEvtOutputEnter, func(b []byte) { s.handleToplevelOutput(id, b, true) })
	s.display.AddListener(id, toplevelEvtOutputLeave, func(b []byte) { s.handleToplevelOutput(id, b, false) })
	s.display.AddListener(id, toplevelEvtState, func(b []byte) { s.handleToplevelState(id, b) })
	s.display.AddListener(id, toplevelEvtDone, func(b []byte) { s.handleToplevelDone(id) })
	s.display.AddListener(id, toplevelEvtClosed, func(b []byte) { s.handleToplevelClosed(id) })

	s.emit(WindowAdded{ID: WindowID(id)})
}

func (s *Session) handleToplevelTitle(id uint32, body []byte) {
	st := s.toplevels[id]
	if st == nil {
		return
	}
	r := argReader{data: body}
	st.title = r.string()
	st.titleSet = true
}

func (s *Session) handleToplevelAppID(id uint32, body []byte) {
	st := s.toplevels[id]
	if st == nil {
		return
	}
	r := argReader{data: body}
	st.appID = r.string()
	st.appIDSet = true
}

func (s *Session) handleToplevelOutput(id uint32, body []byte, enter bool) {
	r := argReader{data: body}
	output := r.uint32()
	if enter {
		s.emit(WindowOutputEnter{ID: WindowID(id), Output: output})
	} else {
		s.emit(WindowOutputLeave{ID: WindowID(id), Output: output})
	}
}

func (s *Session) handleToplevelState(id uint32, body []byte) {
	st := s.toplevels[id]
	if st == nil {
		return
	}
	r := argReader{data: body}
	st.stateSeen = true
	st.activated = false
	for _, v := range r.uint32Array() {
		if v == toplevelStateActivated {
			st.activated = true
		}
	}
}

// handleToplevelDone flushes the buffered per-handle changes as typed
// events, in a stable order: metadata first, then activation.
func (s *Session) handleToplevelDone(id uint32) {
	st := s.toplevels[id]
	if st == nil {
		return
	}
	if st.titleSet {
		s.emit(WindowTitle{ID: WindowID(id), Title: st.title})
		st.titleSet = false
	}
	if st.appIDSet {
		s.emit(WindowAppID{ID: WindowID(id), AppID: st.appID})
		st.appIDSet = false
	}
	if st.stateSeen {
		if st.activated {
			s.emit(WindowActivated{ID: WindowID(id)})
		}
		st.stateSeen = false
	}
}

func (s *Session) handleToplevelClosed(id uint32) {
	delete(s.toplevels, id)
	s.emit(WindowClosed{ID: WindowID(id)})
}

// Activate asks the compositor to focus the window.
func (s *Session) Activate(window WindowID) {
	if err := s.display.SendRequest(uint32(window), toplevelActivate, s.seatID); err != nil {
		logger.WithComponent("wayland").Warn().Err(err).
			Uint32("window", uint32(window)).
			Msg("Activate request failed")
	}
}

// --- overlay surface ---

// CreateSurface maps the overlay as a layer-shell surface on the
// overlay layer, anchored to all edges with an exclusive zone of -1 so
// it floats above panels. Size 0x0 lets the compositor pick the output
// size; the granted size arrives as SurfaceConfigure.
func (s *Session) CreateSurface(width, height uint32) error {
	if s.surfaceID != 0 {
		return nil
	}

	surface := s.display.AllocateID()
	if err := s.display.SendRequest(s.compositorID, compositorCreateSurface, surface); err != nil {
		return fmt.Errorf("failed to create surface: %w", err)
	}

	layerSurface := s.display.AllocateID()
	s.display.AddListener(layerSurface, layerSurfaceEvtConfigure, s.handleLayerConfigure)
	s.display.AddListener(layerSurface, layerSurfaceEvtClosed, func([]byte) { s.emit(SurfaceClosed{}) })

	if err := s.display.SendRequest(s.layerShellID, layerShellGetLayerSurface,
		layerSurface, surface, nil, uint32(layerOverlay), "wayswitch"); err != nil {
		return fmt.Errorf("failed to create layer surface: %w", err)
	}

	s.display.SendRequest(layerSurface, layerSurfaceSetSize, width, height)
	s.display.SendRequest(layerSurface, layerSurfaceSetAnchor, uint32(anchorAll))
	s.display.SendRequest(layerSurface, layerSurfaceSetExclusiveZone, int32(-1))
	s.display.SendRequest(layerSurface, layerSurfaceSetKeyboardInteractivity, uint32(keyboardInteractivityExclusive))
	if err := s.display.SendRequest(surface, surfaceCommit); err != nil {
		return fmt.Errorf("failed to commit surface: %w", err)
	}

	s.surfaceID = surface
	s.layerSurfaceID = layerSurface
	return nil
}

func (s *Session) handleLayerConfigure(body []byte) {
	r := argReader{data: body}
	serial := r.uint32()
	width := r.uint32()
	height := r.uint32()
	s.emit(SurfaceConfigure{Serial: serial, Width: width, Height: height})
}

// AckConfigure acknowledges a SurfaceConfigure serial.
func (s *Session) AckConfigure(serial uint32) {
	if s.layerSurfaceID == 0 {
		return
	}
	s.display.SendRequest(s.layerSurfaceID, layerSurfaceAckConfigure, serial)
}

// ResizeSurface asks for a new surface size.
func (s *Session) ResizeSurface(width, height uint32) {
	if s.layerSurfaceID == 0 || s.surfaceID == 0 {
		return
	}
	s.display.SendRequest(s.layerSurfaceID, layerSurfaceSetSize, width, height)
	s.display.SendRequest(s.surfaceID, surfaceCommit)
}

// DestroySurface unmaps the overlay.
func (s *Session) DestroySurface() {
	if s.layerSurfaceID != 0 {
		s.display.SendRequest(s.layerSurfaceID, layerSurfaceDestroy)
		s.layerSurfaceID = 0
	}
	if s.surfaceID != 0 {
		s.display.SendRequest(s.surfaceID, surfaceDestroy)
		s.surfaceID = 0
	}
}

// Attach hands the buffer to the compositor and commits.
func (s *Session) Attach(buf *ShmBuffer) {
	if s.surfaceID == 0 || buf == nil {
		return
	}
	s.display.SendRequest(s.surfaceID, surfaceAttach, buf.bufferID, int32(0), int32(0))
	s.display.SendRequest(s.surfaceID, surfaceDamageBuffer,
		int32(0), int32(0), int32(buf.Width), int32(buf.Height))
	s.display.SendRequest(s.surfaceID, surfaceCommit)
}

// RequestFrame asks for a FrameDone when the overlay may paint again.
func (s *Session) RequestFrame() {
	if s.surfaceID == 0 {
		return
	}
	cb := s.display.AllocateID()
	s.display.AddListener(cb, 0, func([]byte) { s.emit(FrameDone{}) })
	s.display.SendRequest(s.surfaceID, surfaceFrame, cb)
	s.display.SendRequest(s.surfaceID, surfaceCommit)
}

// --- buffers ---

// CreateBuffer allocates an ARGB8888 wl_shm buffer for the overlay.
func (s *Session) CreateBuffer(width, height uint32) (*ShmBuffer, error) {
	return s.createBuffer(width, height, width*4, shmFormatARGB8888)
}

func (s *Session) createBuffer(width, height, stride, format uint32) (*ShmBuffer, error) {
	buf, err := NewMemoryBuffer(width, height, stride)
	if err != nil {
		return nil, err
	}

	poolID := s.display.AllocateID()
	if err := s.display.SendRequestWithFDs(s.shmID, shmCreatePool, []int{buf.fd},
		poolID, uintptr(buf.fd), int32(len(buf.data))); err != nil {
		buf.Release()
		return nil, fmt.Errorf("failed to create shm pool: %w", err)
	}

	bufferID := s.display.AllocateID()
	if err := s.display.SendRequest(poolID, shmPoolCreateBuffer,
		bufferID, int32(0), int32(width), int32(height), int32(stride), format); err != nil {
		s.display.SendRequest(poolID, shmPoolDestroy)
		buf.Release()
		return nil, fmt.Errorf("failed to create buffer: %w", err)
	}

	buf.poolID = poolID
	buf.bufferID = bufferID
	return buf, nil
}

// DestroyBuffer releases a buffer and its pool.
func (s *Session) DestroyBuffer(buf *ShmBuffer) {
	if buf == nil {
		return
	}
	if buf.bufferID != 0 {
		s.display.SendRequest(buf.bufferID, bufferDestroy)
		buf.bufferID = 0
	}
	if buf.poolID != 0 {
		s.display.SendRequest(buf.poolID, shmPoolDestroy)
		buf.poolID = 0
	}
	buf.Release()
}

// --- screencopy ---

// CaptureRegion starts a screencopy of the window's rectangle. The
// outcome arrives as CaptureReady or CaptureFailed; a newer capture
// silently replaces one still in flight.
func (s *Session) CaptureRegion(window WindowID, geo geometry.Geometry) {
	if s.screencopyID == 0 || len(s.outputIDs) == 0 {
		s.emit(CaptureFailed{Window: window})
		return
	}

	s.captureMu.Lock()
	if s.capture != nil {
		s.abortCaptureLocked()
	}
	frameID := s.display.AllocateID()
	s.capture = &captureState{frameID: frameID, window: window}
	s.captureMu.Unlock()

	s.display.AddListener(frameID, screencopyEvtBuffer, func(b []byte) { s.handleCaptureBuffer(frameID, b) })
	s.display.AddListener(frameID, screencopyEvtBufferDone, func([]byte) { s.handleCaptureBufferDone(frameID) })
	s.display.AddListener(frameID, screencopyEvtReady, func([]byte) { s.handleCaptureReady(frameID) })
	s.display.AddListener(frameID, screencopyEvtFailed, func([]byte) { s.handleCaptureFailed(frameID) })

	if err := s.display.SendRequest(s.screencopyID, screencopyCaptureOutputRegion,
		frameID, int32(0), s.outputIDs[0], geo.X, geo.Y, geo.Width, geo.Height); err != nil {
		s.captureMu.Lock()
		s.capture = nil
		s.captureMu.Unlock()
		s.emit(CaptureFailed{Window: window})
	}
}

// abortCaptureLocked drops an in-flight capture with no event.
func (s *Session) abortCaptureLocked() {
	c := s.capture
	if c == nil {
		return
	}
	s.display.SendRequest(c.frameID, screencopyFrameDestroy)
	if c.buf != nil {
		s.DestroyBuffer(c.buf)
	}
	s.capture = nil
}

// currentCapture returns the capture state iff frameID is still live.
func (s *Session) currentCapture(frameID uint32) *captureState {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()
	if s.capture == nil || s.capture.frameID != frameID {
		return nil
	}
	return s.capture
}

func (s *Session) handleCaptureBuffer(frameID uint32, body []byte) {
	c := s.currentCapture(frameID)
	if c == nil {
		return
	}
	r := argReader{data: body}
	format := r.uint32()
	width := r.uint32()
	height := r.uint32()
	stride := r.uint32()

	// The compositor may advertise several formats; take the first
	// one we can fill, preferring anything over nothing.
	if c.haveParams && format != shmFormatARGB8888 && format != shmFormatXRGB8888 {
		return
	}
	c.format = format
	c.width = width
	c.height = height
	c.stride = stride
	c.haveParams = true
}

func (s *Session) handleCaptureBufferDone(frameID uint32) {
	c := s.currentCapture(frameID)
	if c == nil {
		return
	}
	if !c.haveParams || (c.format != shmFormatARGB8888 && c.format != shmFormatXRGB8888) {
		s.failCapture(frameID)
		return
	}

	buf, err := s.createBuffer(c.width, c.height, c.stride, c.format)
	if err != nil {
		logger.WithComponent("wayland").Warn().Err(err).Msg("Capture buffer allocation failed")
		s.failCapture(frameID)
		return
	}
	c.buf = buf

	if err := s.display.SendRequest(frameID, screencopyFrameCopy, buf.bufferID); err != nil {
		s.failCapture(frameID)
	}
}

func (s *Session) handleCaptureReady(frameID uint32) {
	c := s.currentCapture(frameID)
	if c == nil || c.buf == nil {
		return
	}

	img := imaging.BGRAToRGBA(c.buf.Pixels(), int(c.width), int(c.height),
		int(c.stride), c.format == shmFormatARGB8888)

	s.captureMu.Lock()
	if s.capture == c {
		s.capture = nil
	}
	s.captureMu.Unlock()

	s.display.SendRequest(frameID, screencopyFrameDestroy)
	s.DestroyBuffer(c.buf)

	s.emit(CaptureReady{Window: c.window, Image: img})
}

func (s *Session) handleCaptureFailed(frameID uint32) {
	s.failCapture(frameID)
}

func (s *Session) failCapture(frameID uint32) {
	s.captureMu.Lock()
	c := s.capture
	if c == nil || c.frameID != frameID {
		s.captureMu.Unlock()
		return
	}
	s.capture = nil
	s.captureMu.Unlock()

	s.display.SendRequest(frameID, screencopyFrameDestroy)
	if c.buf != nil {
		s.DestroyBuffer(c.buf)
	}
	s.emit(CaptureFailed{Window: c.window})
}
