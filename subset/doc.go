/*
Package subset routes computed tiles to one of several output destinations.
Each output band maps to a subset descriptor; the router writes each
subset's structural header exactly once before its first tile, serializes
writes per destination, and finalizes each destination exactly once when the
scheduler's declared work plan for it is complete.  File and BadgerDB sink
implementations are provided, along with the GroupWriter operator that
drains a raster group into per-subset destinations.
*/
package subset
