// Package videomode holds frame geometry descriptors and the lookup
// that maps a requested size onto the closest supported one.
package videomode

import "github.com/tabwork/hwcore/internal/regio"

// Mode describes one supported sensor or panel configuration. The
// register table programs the device for this geometry; its contents
// are device-specific and treated as opaque here.
type Mode struct {
	Name   string
	Width  int
	Height int
	Regs   []regio.Reg
}

// Nearest returns the index of the mode whose geometry is closest to
// the requested width and height. Distance is the sum of the absolute
// width and height differences; on a tie the earliest catalog entry
// wins. Callers must pass a non-empty catalog.
func Nearest(modes []Mode, width, height int) int {
	best := 0
	bestDist := distance(modes[0], width, height)

	for i := 1; i < len(modes); i++ {
		if d := distance(modes[i], width, height); d < bestDist {
			best = i
			bestDist = d
		}
	}

	return best
}

func distance(m Mode, width, height int) int {
	return abs(m.Width-width) + abs(m.Height-height)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
