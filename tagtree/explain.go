package tagtree

import (
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/maruel/natural"

	"chunkscan/utils/debug"
)

// arrays longer than this are summarized
const maxArrayItems = 16

// Explain writes indented listing of the tree, one tag per line. Keys are
// sorted since decoded compounds have no order.
func Explain(w io.Writer, name string, c Compound) error {
	tw := debug.NewTreeWriter(w)
	explainValue(tw, 0, name, map[string]any(c))
	return tw.Err()
}

func explainValue(tw *debug.TreeWriter, depth int, name string, v any) {
	label := TypeName(v)
	if len(name) > 0 {
		label += " " + name
	}

	switch t := v.(type) {
	case map[string]any:
		tw.Line(depth, "%s {%d}", label, len(t))
		keys := slices.SortedFunc(maps.Keys(t), func(a, b string) int {
			switch {
			case natural.Less(a, b):
				return -1
			case natural.Less(b, a):
				return 1
			}
			return 0
		})
		for _, k := range keys {
			explainValue(tw, depth+1, k, t[k])
		}
	case Compound:
		explainValue(tw, depth, name, map[string]any(t))
	case string:
		tw.TextBlock(depth, label, t)
	case []byte:
		explainArray(tw, depth, label, t)
	case []int32:
		explainArray(tw, depth, label, t)
	case []int64:
		explainArray(tw, depth, label, t)
	case int8, int16, int32, int64, float32, float64:
		tw.Line(depth, "%s = %v", label, t)
	default:
		if l, ok := asList(v); ok {
			tw.Line(depth, "%s [%d]", label, len(l))
			for i, e := range l {
				explainValue(tw, depth+1, "#"+strconv.Itoa(i), e)
			}
			return
		}
		tw.Line(depth, "%s = %v", label, t)
	}
}

func explainArray[T any](tw *debug.TreeWriter, depth int, label string, a []T) {
	if len(a) > maxArrayItems {
		tw.Line(depth, "%s [%d] %v ...", label, len(a), a[:maxArrayItems])
		return
	}
	tw.Line(depth, "%s [%d] %v", label, len(a), a)
}
