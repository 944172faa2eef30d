package verify

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// kenyaBoundary is a coarse bounding rectangle around Kenya in
// (longitude, latitude) order. It is deliberately not the national
// border: tightening it would change acceptance behavior for photos near
// the edge, so the simplification is kept as-is.
var kenyaBoundary = orb.Ring{
	{33.909821, -4.677504}, // southwest
	{41.855083, -4.677504}, // southeast
	{41.855083, 5.506},     // northeast
	{33.909821, 5.506},     // northwest
	{33.909821, -4.677504},
}

// inApprovedRegion reports whether the point lies inside (or exactly on
// the edge of) the approved region.
func inApprovedRegion(lon, lat float64) bool {
	return planar.RingContains(kenyaBoundary, orb.Point{lon, lat})
}
