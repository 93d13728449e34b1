package computed

import (
	"fmt"

	"github.com/tessera-io/tessera/raster"
	"github.com/tessera-io/tessera/tessera"
)

// MaskTrue is the sample value of set mask pixels.
const MaskTrue = 255

// Config holds the configuration of a computed raster.  Each image type
// reads the fields it needs; unused fields stay zero.
type Config struct {
	// Expression is the band-math expression (MathType).
	Expression string

	// RasterName, Min, Max define a value-range mask (RangeType).
	RasterName string
	Min, Max   float64
}

// ImageType supplies the pixel-compute, compatibility, and rename behavior
// of one kind of computed raster.  Kinds are dispatched through this
// interface rather than a type hierarchy.
type ImageType interface {
	// Name identifies the kind, e.g. "Math" or "Range".
	Name() string

	// References returns the raster names the configuration refers to.
	References(cfg Config) []string

	// Validate rejects configurations before any pyramid mutation: the
	// expression must parse, every referenced raster must exist in the
	// group, and references must be acyclic with respect to self.
	Validate(g *raster.Group, self string, cfg Config) error

	// NewSource builds the tile source computing this raster's pixels.
	NewSource(g *raster.Group, cfg Config) raster.MultiLevelSource

	// CanTransfer reports whether the configuration stays resolvable
	// against another group.
	CanTransfer(g *raster.Group, cfg Config) bool

	// HandleRename rewrites the configuration after a referenced raster
	// was renamed.
	HandleRename(cfg Config, oldName, newName string) Config
}

// MathType is a mask defined by a band-math expression: pixels where the
// expression is true (or nonzero) are set.
type MathType struct{}

func (MathType) Name() string { return "Math" }

func (MathType) References(cfg Config) []string {
	_, refs, err := parseExpression(cfg.Expression)
	if err != nil {
		return nil
	}
	return refs
}

func (MathType) Validate(g *raster.Group, self string, cfg Config) error {
	if cfg.Expression == "" {
		return tessera.NewConfigError("mask %q needs a non-empty expression", self)
	}
	_, refs, err := parseExpression(cfg.Expression)
	if err != nil {
		return tessera.NewConfigError("invalid expression %q: %v", cfg.Expression, err)
	}
	for _, name := range refs {
		if !g.Contains(name) {
			return tessera.NewConfigError("expression %q references unknown raster %q", cfg.Expression, name)
		}
	}
	return checkAcyclic(g, self, refs)
}

func (MathType) NewSource(g *raster.Group, cfg Config) raster.MultiLevelSource {
	return newExprSource(g, cfg.Expression)
}

func (MathType) CanTransfer(g *raster.Group, cfg Config) bool {
	_, refs, err := parseExpression(cfg.Expression)
	if err != nil {
		return false
	}
	for _, name := range refs {
		if !g.Contains(name) {
			return false
		}
	}
	return true
}

func (MathType) HandleRename(cfg Config, oldName, newName string) Config {
	cfg.Expression = ReplaceWord(cfg.Expression, oldName, newName)
	return cfg
}

// RangeType is a mask selecting pixels of one raster within [Min, Max].
// It compiles to the equivalent band-math expression.
type RangeType struct{}

func (RangeType) Name() string { return "Range" }

func (RangeType) References(cfg Config) []string {
	if cfg.RasterName == "" {
		return nil
	}
	return []string{cfg.RasterName}
}

// rangeExpression returns the band-math equivalent of a range config.
func rangeExpression(cfg Config) string {
	return fmt.Sprintf("%s >= %v && %s <= %v", cfg.RasterName, cfg.Min, cfg.RasterName, cfg.Max)
}

func (RangeType) Validate(g *raster.Group, self string, cfg Config) error {
	if cfg.RasterName == "" {
		return tessera.NewConfigError("range mask %q needs a raster name", self)
	}
	if !g.Contains(cfg.RasterName) {
		return tessera.NewConfigError("range mask %q references unknown raster %q", self, cfg.RasterName)
	}
	if cfg.Min > cfg.Max {
		return tessera.NewConfigError("range mask %q has minimum %v above maximum %v", self, cfg.Min, cfg.Max)
	}
	return checkAcyclic(g, self, []string{cfg.RasterName})
}

func (RangeType) NewSource(g *raster.Group, cfg Config) raster.MultiLevelSource {
	return newExprSource(g, rangeExpression(cfg))
}

func (RangeType) CanTransfer(g *raster.Group, cfg Config) bool {
	return cfg.RasterName != "" && g.Contains(cfg.RasterName)
}

func (RangeType) HandleRename(cfg Config, oldName, newName string) Config {
	if cfg.RasterName == oldName {
		cfg.RasterName = newName
	}
	return cfg
}
