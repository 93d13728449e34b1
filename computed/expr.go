package computed

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/Knetic/govaluate"

	"github.com/tessera-io/tessera/raster"
	"github.com/tessera-io/tessera/tessera"
)

// referencer is implemented by nodes that reference other rasters by name,
// letting the cycle check walk the dependency graph.
type referencer interface {
	References() []string
}

// parseExpression parses a band-math expression and returns the referenced
// raster names, deduplicated in sorted order.
func parseExpression(expr string) (*govaluate.EvaluableExpression, []string, error) {
	ee, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[string]struct{})
	var refs []string
	for _, v := range ee.Vars() {
		if _, found := seen[v]; !found {
			seen[v] = struct{}{}
			refs = append(refs, v)
		}
	}
	sort.Strings(refs)
	return ee, refs, nil
}

// ReplaceWord replaces whole-word occurrences of oldWord in text, used to
// keep expressions valid across raster renames.
func ReplaceWord(text, oldWord, newWord string) string {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(oldWord) + `\b`)
	return re.ReplaceAllString(text, newWord)
}

// checkAcyclic verifies that following references from the given starting
// set never reaches self.  Each computed raster resolves against the same
// group, so a depth-first walk over References() suffices.
func checkAcyclic(g *raster.Group, self string, refs []string) error {
	visited := make(map[string]struct{})
	stack := append([]string(nil), refs...)
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if name == self {
			return tessera.NewConfigError("expression for %q is cyclic: references reach %q again", self, self)
		}
		if _, found := visited[name]; found {
			continue
		}
		visited[name] = struct{}{}
		n, found := g.Get(name)
		if !found {
			continue
		}
		if r, ok := n.(referencer); ok {
			stack = append(stack, r.References()...)
		}
	}
	return nil
}

// exprSource computes mask tiles by evaluating an expression per pixel over
// the referenced rasters pulled at the same level and rectangle.
type exprSource struct {
	group *raster.Group
	expr  *govaluate.EvaluableExpression
	refs  []string
}

func newExprSource(g *raster.Group, expression string) raster.MultiLevelSource {
	ee, refs, err := parseExpression(expression)
	if err != nil {
		// Validate() rejects unparsable expressions before a source is
		// built, so this path only triggers on direct misuse.
		return raster.SourceFunc(func(level int, rect tessera.Rect) (*raster.Tile, error) {
			return nil, tessera.NewConfigError("invalid expression %q: %v", expression, err)
		})
	}
	return &exprSource{group: g, expr: ee, refs: refs}
}

func (s *exprSource) ComputeTile(level int, rect tessera.Rect) (*raster.Tile, error) {
	inputs := make(map[string]*raster.Tile, len(s.refs))
	for _, name := range s.refs {
		n, found := s.group.Get(name)
		if !found {
			return nil, tessera.NewConfigError("expression references unknown raster %q", name)
		}
		t, err := raster.ReadWindow(n, level, rect)
		if err != nil {
			return nil, err
		}
		inputs[name] = t
	}

	out := raster.NewTile(rect, tessera.Uint8)
	params := make(map[string]interface{}, len(s.refs))
	for i := 0; i < out.NumSamples(); i++ {
		for name, t := range inputs {
			params[name] = t.SampleAt(i)
		}
		v, err := s.expr.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("expression evaluation failed at sample %d of %s: %v", i, rect, err)
		}
		switch r := v.(type) {
		case bool:
			if r {
				out.Data[i] = MaskTrue
			}
		case float64:
			if r != 0 {
				out.Data[i] = MaskTrue
			}
		default:
			return nil, fmt.Errorf("expression yields %T, want bool or float64", v)
		}
	}
	return out, nil
}
