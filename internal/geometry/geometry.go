// Package geometry resolves the on-screen rectangle of the most
// recently used window. Lookups run on a worker goroutine so the
// daemon loop never blocks on a compositor round trip.
package geometry

import (
	"fmt"

	"github.com/wayswitch/wayswitch/internal/logger"
)

// Geometry is a window rectangle in compositor logical coordinates.
type Geometry struct {
	X      int32 `json:"x"`
	Y      int32 `json:"y"`
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

// Empty reports whether the rectangle has no area. Minimized and
// freshly mapped windows come back like this.
func (g Geometry) Empty() bool {
	return g.Width <= 0 || g.Height <= 0
}

// Provider answers where the active window currently sits. Each
// desktop environment gets its own implementation.
type Provider interface {
	Name() string
	ActiveWindowGeometry() (Geometry, error)
	Close() error
}

// Detect probes the known providers in order of reliability and
// returns the first one that connects.
func Detect() (Provider, error) {
	log := logger.WithComponent("geometry")

	for _, probe := range []func() (Provider, error){
		NewHyprlandProvider,
		NewKWinProvider,
		NewX11Provider,
	} {
		p, err := probe()
		if err != nil {
			log.Debug().Err(err).Msg("Geometry provider unavailable")
			continue
		}
		log.Info().Str("provider", p.Name()).Msg("Geometry provider selected")
		return p, nil
	}

	return nil, fmt.Errorf("no geometry provider available")
}
