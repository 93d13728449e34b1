/*
Package op defines the tile-based operator execution model: the Operator
per-tile compute contract, the TileScheduler work plan with its row-major,
column-major, and banded iteration orders, and the Executor that drives work
items over a bounded worker pool, routing computed tiles to a destination
router with cooperative cancellation and guaranteed disposal.
*/
package op
