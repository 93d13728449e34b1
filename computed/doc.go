/*
Package computed implements raster data nodes whose pixels are derived from
other rasters: band-math and value-range masks.  A computed raster owns one
lazy pyramid; changing its configuration validates first, then atomically
swaps the configuration, invalidates the pyramid, and notifies listeners.
Invalidation is never propagated transitively; dependents are told through
explicit notification.
*/
package computed
