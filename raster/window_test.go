package raster

import (
	"testing"

	"github.com/tessera-io/tessera/tessera"
)

func TestReadWindowAcrossTiles(t *testing.T) {
	desc := testDescriptor("grad", 512, 512, 256)
	n, err := NewSourceNode(desc, gradientSource(desc), Options{})
	if err != nil {
		t.Fatalf("unable to build node: %v", err)
	}

	// Straddles all four tiles of the grid.
	rect := tessera.Rect{X: 200, Y: 200, W: 100, H: 100}
	win, err := ReadWindow(n, 0, rect)
	if err != nil {
		t.Fatalf("unable to read window: %v", err)
	}
	if win.Rect != rect {
		t.Fatalf("window rect mismatch: %s", win.Rect)
	}
	for _, pt := range []struct{ x, y int32 }{
		{200, 200}, {255, 255}, {256, 256}, {299, 299}, {256, 200}, {200, 256},
	} {
		if got := win.Sample(pt.x, pt.y); got != gradientValue(pt.x, pt.y) {
			t.Errorf("bad sample at (%d,%d): got %v, want %v", pt.x, pt.y, got, gradientValue(pt.x, pt.y))
		}
	}
}

func TestReadWindowExactTileIsCopied(t *testing.T) {
	desc := testDescriptor("grad", 512, 512, 256)
	n, err := NewSourceNode(desc, gradientSource(desc), Options{})
	if err != nil {
		t.Fatalf("unable to build node: %v", err)
	}

	rect := tessera.Rect{X: 0, Y: 0, W: 256, H: 256}
	win, err := ReadWindow(n, 0, rect)
	if err != nil {
		t.Fatalf("unable to read window: %v", err)
	}
	win.SetSample(0, 0, -1)

	again, err := ReadWindow(n, 0, rect)
	if err != nil {
		t.Fatalf("unable to re-read window: %v", err)
	}
	if got := again.Sample(0, 0); got != gradientValue(0, 0) {
		t.Errorf("caller mutation leaked into the cache: %v", got)
	}
}

func TestReadWindowOutOfBounds(t *testing.T) {
	desc := testDescriptor("grad", 100, 100, 64)
	n, err := NewSourceNode(desc, gradientSource(desc), Options{})
	if err != nil {
		t.Fatalf("unable to build node: %v", err)
	}
	_, err = ReadWindow(n, 0, tessera.Rect{X: 50, Y: 50, W: 100, H: 100})
	if err == nil {
		t.Fatalf("expected error for window past raster extents")
	}
	if !tessera.IsConfigurationError(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestGroupAddGetRename(t *testing.T) {
	g := NewGroup()
	desc := testDescriptor("b1", 64, 64, 32)
	n, err := NewSourceNode(desc, gradientSource(desc), Options{})
	if err != nil {
		t.Fatalf("unable to build node: %v", err)
	}
	if err := g.Add(n); err != nil {
		t.Fatalf("unable to add node: %v", err)
	}
	if err := g.Add(n); err != nil {
		t.Errorf("re-adding the identical node should be a no-op: %v", err)
	}
	desc2 := testDescriptor("b1", 64, 64, 32)
	n2, _ := NewSourceNode(desc2, gradientSource(desc2), Options{})
	if err := g.Add(n2); err == nil {
		t.Errorf("expected error adding a different node under a taken name")
	}

	if err := g.Rename("b1", "radiance"); err != nil {
		t.Fatalf("unable to rename: %v", err)
	}
	if g.Contains("b1") {
		t.Errorf("old name should be gone after rename")
	}
	got, found := g.Get("radiance")
	if !found {
		t.Fatalf("renamed node not found")
	}
	if got.Name() != "radiance" {
		t.Errorf("node did not pick up its new name: %q", got.Name())
	}
	if names := g.Names(); len(names) != 1 || names[0] != "radiance" {
		t.Errorf("bad name listing: %v", names)
	}

	g.Remove("radiance")
	if g.Contains("radiance") {
		t.Errorf("removed node still registered")
	}
}
