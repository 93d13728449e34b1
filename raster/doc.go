/*
Package raster implements the lazy multi-resolution raster abstraction: tiles,
tile sources, per-level tile caches, and the Pyramid, which computes tiles on
demand with single-flight semantics and supports cheap whole-pyramid
invalidation.  Named rasters are organized into Groups so that derived rasters
can resolve references by name.
*/
package raster
