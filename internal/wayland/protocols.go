package wayland

// Interface names as they appear in the registry.
const (
	ifaceCompositor    = "wl_compositor"
	ifaceShm           = "wl_shm"
	ifaceSeat          = "wl_seat"
	ifaceOutput        = "wl_output"
	ifaceLayerShell    = "zwlr_layer_shell_v1"
	ifaceToplevelMgr   = "zwlr_foreign_toplevel_manager_v1"
	ifaceScreencopyMgr = "zwlr_screencopy_manager_v1"
)

// Bind versions. Requests we use exist at these versions or below.
const (
	versionCompositor    = 4
	versionShm           = 1
	versionSeat          = 5
	versionOutput        = 2
	versionLayerShell    = 4
	versionToplevelMgr   = 3
	versionScreencopyMgr = 3
)

// wl_compositor requests.
const compositorCreateSurface = 0

// wl_surface requests.
const (
	surfaceDestroy      = 0
	surfaceAttach       = 1
	surfaceFrame        = 3
	surfaceCommit       = 6
	surfaceDamageBuffer = 9
)

// wl_shm requests and formats.
const (
	shmCreatePool = 0

	shmFormatARGB8888 = 0
	shmFormatXRGB8888 = 1
)

// wl_shm_pool requests.
const (
	shmPoolCreateBuffer = 0
	shmPoolDestroy      = 1
)

// wl_buffer requests.
const bufferDestroy = 0

// wl_seat requests and events.
const (
	seatGetPointer  = 0
	seatGetKeyboard = 1

	seatEvtCapabilities = 0

	seatCapPointer  = 1
	seatCapKeyboard = 2
)

// wl_keyboard events.
const (
	keyboardEvtKey       = 3
	keyboardEvtModifiers = 4

	keyStatePressed = 1
)

// wl_pointer events.
const (
	pointerEvtEnter  = 0
	pointerEvtMotion = 2
	pointerEvtButton = 3

	buttonStatePressed = 1
)

// zwlr_layer_shell_v1 requests and layers.
const (
	layerShellGetLayerSurface = 0

	layerOverlay = 3
)

// zwlr_layer_surface_v1 requests and events.
const (
	layerSurfaceSetSize                  = 0
	layerSurfaceSetAnchor                = 1
	layerSurfaceSetExclusiveZone         = 2
	layerSurfaceSetKeyboardInteractivity = 4
	layerSurfaceAckConfigure             = 6
	layerSurfaceDestroy                  = 7

	layerSurfaceEvtConfigure = 0
	layerSurfaceEvtClosed    = 1

	anchorAll = 0xf // top | bottom | left | right

	keyboardInteractivityExclusive = 1
)

// zwlr_foreign_toplevel_manager_v1 events.
const (
	toplevelMgrEvtToplevel = 0
	toplevelMgrEvtFinished = 1
)

// zwlr_foreign_toplevel_handle_v1 requests and events.
const (
	toplevelActivate = 4

	toplevelEvtTitle       = 0
	toplevelEvtAppID       = 1
	toplevelEvtOutputEnter = 2
	toplevelEvtOutputLeave = 3
	toplevelEvtState       = 4
	toplevelEvtDone        = 5
	toplevelEvtClosed      = 6

	toplevelStateActivated = 2
)

// zwlr_screencopy_manager_v1 requests.
const screencopyCaptureOutputRegion = 1

// zwlr_screencopy_frame_v1 requests and events.
const (
	screencopyFrameCopy    = 0
	screencopyFrameDestroy = 1

	screencopyEvtBuffer     = 0
	screencopyEvtReady      = 2
	screencopyEvtFailed     = 3
	screencopyEvtBufferDone = 6
)
