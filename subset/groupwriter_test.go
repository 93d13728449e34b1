package subset

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tessera-io/tessera/computed"
	"github.com/tessera-io/tessera/op"
	"github.com/tessera-io/tessera/raster"
	"github.com/tessera-io/tessera/tessera"
)

func writerGroup(t *testing.T) *raster.Group {
	t.Helper()
	g := raster.NewGroup()
	testBand(t, g, "a", 64, 64)
	testBand(t, g, "b", 64, 64)

	mdesc := raster.Descriptor{Name: "cloud", Width: 64, Height: 64, TileWidth: 32, TileHeight: 32}
	mask, err := computed.New(mdesc, computed.MathType{}, g, computed.Config{Expression: "a > 31"}, raster.Options{})
	if err != nil {
		t.Fatalf("unable to build mask: %v", err)
	}
	if err := g.Add(mask); err != nil {
		t.Fatalf("unable to add mask: %v", err)
	}
	return g
}

func TestGroupWriterEndToEnd(t *testing.T) {
	g := writerGroup(t)
	dir := t.TempDir()
	specs := []Spec{
		{Name: "vis", Bands: []string{"a", "cloud"}},
		{Name: "ir", Bands: []string{"b"}},
	}

	w := NewGroupWriter(g, dir, specs)
	res, err := w.Write(context.Background(), op.ExecConfig{Workers: 2})
	if err != nil {
		t.Fatalf("write pass failed: %v", err)
	}
	if res.Completed != 4 {
		t.Errorf("expected 4 completed work items, got %d", res.Completed)
	}
	if res.Failed != 0 {
		t.Errorf("expected no isolated failures, got %d", res.Failed)
	}

	hdr, tiles, err := ReadFileSubset(filepath.Join(dir, "vis.tsr"))
	if err != nil {
		t.Fatalf("unable to read vis subset: %v", err)
	}
	if hdr.Name != "vis" || hdr.Width != 64 || hdr.Height != 64 {
		t.Errorf("bad vis header: %+v", hdr)
	}
	if len(hdr.Bands) != 2 || !hdr.Bands[1].Virtual {
		t.Errorf("vis header should list band a plus the virtual mask: %+v", hdr.Bands)
	}
	if len(tiles) != 4 {
		t.Fatalf("expected 4 vis tiles, got %d", len(tiles))
	}
	for _, st := range tiles {
		if st.Band != "a" {
			t.Errorf("unexpected band %q in vis subset", st.Band)
		}
		if byte(st.Rect.X) != st.Samples[0] {
			t.Errorf("tile %s samples do not match the source", st.Rect)
		}
	}

	_, tiles, err = ReadFileSubset(filepath.Join(dir, "ir.tsr"))
	if err != nil {
		t.Fatalf("unable to read ir subset: %v", err)
	}
	if len(tiles) != 4 {
		t.Errorf("expected 4 ir tiles, got %d", len(tiles))
	}
}

func TestGroupWriterBadgerSinks(t *testing.T) {
	g := writerGroup(t)
	dir := t.TempDir()
	specs := []Spec{{Name: "vis", Bands: []string{"a"}}}

	w := NewGroupWriter(g, dir, specs)
	if _, err := w.WriteTo(context.Background(), op.ExecConfig{}, BadgerSinks); err != nil {
		t.Fatalf("write pass failed: %v", err)
	}

	hdr, tiles, err := ReadBadgerSubset(filepath.Join(dir, "vis"))
	if err != nil {
		t.Fatalf("unable to read badger subset: %v", err)
	}
	if hdr.Name != "vis" {
		t.Errorf("bad header: %+v", hdr)
	}
	if len(tiles) != 4 {
		t.Errorf("expected 4 stored tiles, got %d", len(tiles))
	}
}

func TestGroupWriterValidation(t *testing.T) {
	g := writerGroup(t)

	w := NewGroupWriter(g, "", []Spec{{Name: "vis", Bands: []string{"a"}}})
	if err := w.Initialize(); err == nil {
		t.Errorf("expected error for empty target folder")
	}

	w = NewGroupWriter(g, t.TempDir(), []Spec{{Name: "vis", Bands: []string{"missing"}}})
	if err := w.Initialize(); err == nil {
		t.Errorf("expected error for unknown band")
	}

	// A band on a different tile grid cannot share the write pass.
	testBand(t, g, "odd", 100, 100)
	w = NewGroupWriter(g, t.TempDir(), []Spec{{Name: "vis", Bands: []string{"a", "odd"}}})
	if err := w.Initialize(); err == nil {
		t.Errorf("expected error for mismatched tile grids")
	} else if !tessera.IsConfigurationError(err) {
		t.Errorf("expected configuration error, got %v", err)
	}

	w = NewGroupWriter(g, t.TempDir(), []Spec{{Name: "vis", Bands: []string{"cloud"}}})
	if err := w.Initialize(); err == nil {
		t.Errorf("expected error when only derived bands are named")
	}
}

func TestGroupWriterBandedOrder(t *testing.T) {
	g := writerGroup(t)
	dir := t.TempDir()
	specs := []Spec{{Name: "all", Bands: []string{"a", "b"}}}

	w := NewGroupWriter(g, dir, specs)
	res, err := w.Write(context.Background(), op.ExecConfig{Order: op.Banded, Workers: 1})
	if err != nil {
		t.Fatalf("write pass failed: %v", err)
	}
	// Banded order dispatches one band per work item.
	if res.Completed != 8 {
		t.Errorf("expected 8 completed work items, got %d", res.Completed)
	}

	_, tiles, err := ReadFileSubset(filepath.Join(dir, "all.tsr"))
	if err != nil {
		t.Fatalf("unable to read subset: %v", err)
	}
	if len(tiles) != 8 {
		t.Fatalf("expected 8 stored tiles, got %d", len(tiles))
	}
	// With one worker the file records the banded dispatch order: all of
	// band a, then all of band b.
	for i, st := range tiles {
		want := "a"
		if i >= 4 {
			want = "b"
		}
		if st.Band != want {
			t.Errorf("tile %d: got band %q, want %q", i, st.Band, want)
		}
	}
}
