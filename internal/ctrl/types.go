package ctrl

import "github.com/divebridge/divecore/internal/layout"

// Config bundles what both family command sets need: the logical
// layout of the connected device's memory.
type Config struct {
	Layout layout.Layout
}
