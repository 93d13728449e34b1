package op

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tessera-io/tessera/tessera"
)

// ExecConfig tunes one operator execution.
type ExecConfig struct {
	Order    Order
	Workers  int
	Progress tessera.Progress
}

// Result summarizes an execution.  LastCoord is the coordinate of the
// completed work item with the highest dispatch index, which cancellation
// reporting relies on.
type Result struct {
	Dispatched int
	Completed  int
	Failed     int
	LastCoord  tessera.TileCoord
	Canceled   bool

	// TileErrors lists isolated per-tile compute failures that did not
	// abort the invocation.
	TileErrors []tessera.ComputeError
}

// Execute runs an operator to completion: it initializes the operator,
// declares the work plan to the router, dispatches work items in the plan's
// order over a bounded worker pool, and routes every computed tile.
//
// Dispatch order follows the plan; completion order across bands/tiles is
// unordered.  Cancellation is cooperative and checked between work items
// only.  The router is closed and the operator disposed exactly once, on
// both the success and failure paths.  Cancellation yields ErrCanceled,
// which is an outcome, not a failure.
func Execute(ctx context.Context, oper Operator, router Router, cfg ExecConfig) (Result, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = tessera.DefaultWorkers
	}
	progress := cfg.Progress
	if progress == nil {
		progress = tessera.NullProgress{}
	}

	var res Result
	timelog := tessera.NewTimeLog()
	defer oper.Dispose()

	if err := oper.Initialize(); err != nil {
		return res, err
	}
	grid, err := oper.TargetGrid()
	if err != nil {
		return res, err
	}
	plan, err := NewPlan(grid, oper.TargetBands(), cfg.Order)
	if err != nil {
		return res, err
	}
	tessera.Infof("Executing %q: %dx%d tile grid, %d bands, %s order, %d workers\n",
		oper.Name(), grid.Rows, grid.Cols, len(plan.bands), cfg.Order, workers)

	// Destinations must be usable before any tile work begins.
	if err := router.Begin(plan); err != nil {
		router.Close(true)
		return res, err
	}

	fatalPerTile := false
	if abr, ok := oper.(AllBandsRequired); ok {
		fatalPerTile = abr.AllBandsRequired()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	lastIdx := -1

	it := plan.Iter()
dispatch:
	for {
		// Cooperative cancellation, checked between work items only.
		if progress.Canceled() {
			res.Canceled = true
			break
		}
		select {
		case <-gctx.Done():
			// The group context ends on either a worker error or an outer
			// cancellation; only the latter marks the run canceled.
			if ctx.Err() != nil {
				res.Canceled = true
			}
			break dispatch
		default:
		}
		item, ok := it.Next()
		if !ok {
			break
		}
		res.Dispatched++
		g.Go(func() error {
			for _, band := range item.Bands {
				tile, err := oper.ComputeTile(band, item.Rect)
				if err != nil {
					cerr := tessera.ComputeError{Band: band, Coord: item.Coord, Err: err}
					if fatalPerTile || tessera.IsConfigurationError(err) || tessera.IsSinkError(err) {
						return cerr
					}
					// Per-band/tile failures are isolated by default.
					tessera.Errorf("%v\n", cerr)
					mu.Lock()
					res.Failed++
					res.TileErrors = append(res.TileErrors, cerr)
					mu.Unlock()
					continue
				}
				if err := router.RouteTile(band, tile); err != nil {
					return err
				}
			}
			progress.Advance(1)
			mu.Lock()
			res.Completed++
			if item.Index > lastIdx {
				lastIdx = item.Index
				res.LastCoord = item.Coord
			}
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()

	if cerr := router.Close(err != nil || res.Canceled); cerr != nil && err == nil {
		err = cerr
	}
	if err == nil && res.Canceled {
		tessera.Infof("Execution of %q canceled after work item %d, tile %s\n",
			oper.Name(), res.Completed, res.LastCoord)
		err = tessera.ErrCanceled
	}
	if err == nil && !res.Canceled {
		timelog.Infof("Finished %q (%d/%d work items, %d isolated failures)",
			oper.Name(), res.Completed, res.Dispatched, res.Failed)
	}
	return res, err
}
