// Package all is a convenience wrapper that registers all known scale drivers.
// Importing this package enables gobodyscale.NewDriverForDevice to find a
// driver for any supported scale brand.
package all

// Import each driver package for its side-effects (the init() function).
import (
	_ "github.com/mlsorensen/gobodyscale/pkg/scales/onebyone"
	// When you add an [model] scale, you would add this line:
	// _ "github.com/mlsorensen/gobodyscale/pkg/scales/[model]"
)
