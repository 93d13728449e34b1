/*
Package tessera provides types and functions shared across the tessera raster
engine: tile geometry, sample data types, serialization with optional
compression and checksums, logging, configuration, the error taxonomy, and
the progress/cancellation signal polled by schedulers.
*/
package tessera
