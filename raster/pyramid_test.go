package raster

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tessera-io/tessera/tessera"
)

func testDescriptor(name string, w, h, tile int32) Descriptor {
	return Descriptor{
		Name:       name,
		Width:      w,
		Height:     h,
		DataType:   tessera.Float32,
		TileWidth:  tile,
		TileHeight: tile,
	}
}

// gradientValue gives every pixel a distinct, exactly representable value.
func gradientValue(x, y int32) float64 {
	return float64(x) + float64(y)*1000
}

func gradientSource(desc Descriptor) MultiLevelSource {
	base := SourceFunc(func(level int, rect tessera.Rect) (*Tile, error) {
		t := NewTile(rect, desc.DataType)
		for y := int32(0); y < rect.H; y++ {
			for x := int32(0); x < rect.W; x++ {
				t.SetSampleAt(int(y)*int(rect.W)+int(x), gradientValue(rect.X+x, rect.Y+y))
			}
		}
		return t, nil
	})
	return Downsampled(base, desc)
}

func TestPyramidTileRect(t *testing.T) {
	desc := testDescriptor("grad", 512, 512, 256)
	p, err := NewPyramid(desc, gradientSource(desc), Options{})
	if err != nil {
		t.Fatalf("unable to build pyramid: %v", err)
	}
	rect, err := p.TileRect(0, tessera.TileCoord{Row: 1, Col: 1})
	if err != nil {
		t.Fatalf("unable to get tile rect: %v", err)
	}
	if rect != (tessera.Rect{X: 256, Y: 256, W: 256, H: 256}) {
		t.Errorf("bad tile rect for (1,1): %s", rect)
	}
	if _, err := p.TileRect(1, tessera.TileCoord{}); err == nil {
		t.Errorf("expected error for missing level")
	}
}

func TestPyramidCachesTiles(t *testing.T) {
	desc := testDescriptor("grad", 512, 512, 256)
	p, err := NewPyramid(desc, gradientSource(desc), Options{})
	if err != nil {
		t.Fatalf("unable to build pyramid: %v", err)
	}

	tile, err := p.GetTile(0, 1, 0)
	if err != nil {
		t.Fatalf("unable to get tile: %v", err)
	}
	if got := tile.Sample(10, 300); got != gradientValue(10, 300) {
		t.Errorf("bad sample at (10,300): got %v, want %v", got, gradientValue(10, 300))
	}
	if _, err := p.GetTile(0, 1, 0); err != nil {
		t.Fatalf("unable to re-get tile: %v", err)
	}
	if n := p.ComputeCount(); n != 1 {
		t.Errorf("expected 1 compute for repeated gets, got %d", n)
	}

	p.Reset()
	if _, err := p.GetTile(0, 1, 0); err != nil {
		t.Fatalf("unable to get tile after reset: %v", err)
	}
	if n := p.ComputeCount(); n != 2 {
		t.Errorf("expected recompute after reset, got %d computes", n)
	}
}

func TestPyramidSingleFlight(t *testing.T) {
	desc := testDescriptor("grad", 256, 256, 256)
	var computes int64
	slow := SourceFunc(func(level int, rect tessera.Rect) (*Tile, error) {
		atomic.AddInt64(&computes, 1)
		time.Sleep(20 * time.Millisecond)
		return NewTile(rect, desc.DataType), nil
	})
	p, err := NewPyramid(desc, slow, Options{})
	if err != nil {
		t.Fatalf("unable to build pyramid: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.GetTile(0, 0, 0); err != nil {
				t.Errorf("unable to get tile: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := atomic.LoadInt64(&computes); n != 1 {
		t.Errorf("expected 1 shared compute for 16 concurrent gets, got %d", n)
	}
}

func TestPyramidFailureNotCached(t *testing.T) {
	desc := testDescriptor("grad", 256, 256, 256)
	var failing int32 = 1
	flaky := SourceFunc(func(level int, rect tessera.Rect) (*Tile, error) {
		if atomic.LoadInt32(&failing) != 0 {
			return nil, fmt.Errorf("transient read failure")
		}
		return NewTile(rect, desc.DataType), nil
	})
	p, err := NewPyramid(desc, flaky, Options{})
	if err != nil {
		t.Fatalf("unable to build pyramid: %v", err)
	}

	if _, err := p.GetTile(0, 0, 0); err == nil {
		t.Fatalf("expected compute failure")
	}
	atomic.StoreInt32(&failing, 0)
	if _, err := p.GetTile(0, 0, 0); err != nil {
		t.Errorf("retry after transient failure should succeed: %v", err)
	}
	if n := p.ComputeCount(); n != 2 {
		t.Errorf("expected failed compute plus retry, got %d computes", n)
	}
}

func TestResetDuringInFlightCompute(t *testing.T) {
	desc := testDescriptor("grad", 256, 256, 256)
	started := make(chan struct{})
	release := make(chan struct{})
	var fill int64 = 1
	src := SourceFunc(func(level int, rect tessera.Rect) (*Tile, error) {
		v := atomic.LoadInt64(&fill)
		if v == 1 {
			close(started)
			<-release
		}
		tile := NewTile(rect, desc.DataType)
		for i := 0; i < tile.NumSamples(); i++ {
			tile.SetSampleAt(i, float64(v))
		}
		return tile, nil
	})
	p, err := NewPyramid(desc, src, Options{})
	if err != nil {
		t.Fatalf("unable to build pyramid: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := p.GetTile(0, 0, 0); err != nil {
			t.Errorf("unable to get tile: %v", err)
		}
	}()
	<-started

	// The source swap and reset land while the first compute is still in
	// flight; its result must not be cached.
	atomic.StoreInt64(&fill, 2)
	p.Reset()
	close(release)
	<-done

	tile, err := p.GetTile(0, 0, 0)
	if err != nil {
		t.Fatalf("unable to get tile after reset: %v", err)
	}
	if got := tile.SampleAt(0); got != 2 {
		t.Errorf("tile computed before the reset leaked into the cache: got %v, want 2", got)
	}
}

func TestPyramidLevels(t *testing.T) {
	desc := testDescriptor("grad", 4, 4, 2)
	p, err := NewPyramid(desc, gradientSource(desc), Options{Levels: 2})
	if err != nil {
		t.Fatalf("unable to build pyramid: %v", err)
	}
	if p.NumLevels() != 2 {
		t.Fatalf("expected 2 levels, got %d", p.NumLevels())
	}
	ldesc, err := p.LevelDescriptor(1)
	if err != nil {
		t.Fatalf("unable to get level descriptor: %v", err)
	}
	if ldesc.Width != 2 || ldesc.Height != 2 {
		t.Errorf("expected 2x2 at level 1, got %dx%d", ldesc.Width, ldesc.Height)
	}

	tile, err := p.GetTile(1, 0, 0)
	if err != nil {
		t.Fatalf("unable to get downsampled tile: %v", err)
	}
	// Level 1 pixel (0,0) averages the 2x2 full-resolution block at origin.
	want := (gradientValue(0, 0) + gradientValue(1, 0) + gradientValue(0, 1) + gradientValue(1, 1)) / 4
	if got := tile.SampleAt(0); got != want {
		t.Errorf("bad downsampled sample: got %v, want %v", got, want)
	}
}

func TestSourceNode(t *testing.T) {
	desc := testDescriptor("grad", 100, 100, 64)
	n, err := NewSourceNode(desc, gradientSource(desc), Options{})
	if err != nil {
		t.Fatalf("unable to build node: %v", err)
	}
	if n.Name() != "grad" {
		t.Errorf("bad node name %q", n.Name())
	}
	tile, err := n.GetTile(0, 1, 1)
	if err != nil {
		t.Fatalf("unable to get tile: %v", err)
	}
	if tile.Rect != (tessera.Rect{X: 64, Y: 64, W: 36, H: 36}) {
		t.Errorf("edge tile not clamped: %s", tile.Rect)
	}
}
