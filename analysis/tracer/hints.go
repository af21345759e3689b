package tracer

import (
	"github.com/benbjohnson/immutable"

	"github.com/zed-0xff/cs-reflow-sub000/utils"
)

// Hints force the outcome of decision points, keyed by source line.
// Hints are persistent: With and Without return new assignments.
type Hints struct {
	m *immutable.SortedMap[int, bool]
}

func NoHints() Hints {
	return Hints{immutable.NewSortedMap[int, bool](immutable.NewComparer(0))}
}

// HintsFrom converts a plain map.
func HintsFrom(m map[int]bool) Hints {
	h := NoHints()
	for line, b := range m {
		h = h.With(line, b)
	}
	return h
}

// ParseHints parses the -hints flag syntax, e. g. "12:true,40:false".
func ParseHints(s string) (Hints, error) {
	m, err := utils.ParseHints(s)
	if err != nil {
		return NoHints(), err
	}
	return HintsFrom(m), nil
}

func (h Hints) mp() *immutable.SortedMap[int, bool] {
	if h.m == nil {
		return NoHints().m
	}
	return h.m
}

func (h Hints) Len() int {
	return h.mp().Len()
}

func (h Hints) Get(line int) (b, ok bool) {
	return h.mp().Get(line)
}

func (h Hints) With(line int, b bool) Hints {
	return Hints{h.mp().Set(line, b)}
}

func (h Hints) Without(line int) Hints {
	return Hints{h.mp().Delete(line)}
}

// Lines lists the hinted lines in increasing order.
func (h Hints) Lines() []int {
	lines := make([]int, 0, h.Len())
	for iter := h.mp().Iterator(); !iter.Done(); {
		line, _, _ := iter.Next()
		lines = append(lines, line)
	}
	return lines
}

// Map converts the hints to a plain map.
func (h Hints) Map() map[int]bool {
	m := make(map[int]bool, h.Len())
	for iter := h.mp().Iterator(); !iter.Done(); {
		line, b, _ := iter.Next()
		m[line] = b
	}
	return m
}

func (h Hints) Equal(o Hints) bool {
	if h.Len() != o.Len() {
		return false
	}
	for iter := h.mp().Iterator(); !iter.Done(); {
		line, b, _ := iter.Next()
		if ob, ok := o.Get(line); !ok || ob != b {
			return false
		}
	}
	return true
}

// SplitAt checks whether h and o assign the same lines and disagree on
// exactly one of them, and returns that line.
func (h Hints) SplitAt(o Hints) (line int, ok bool) {
	if h.Len() != o.Len() {
		return 0, false
	}
	found := false
	for iter := h.mp().Iterator(); !iter.Done(); {
		l, b, _ := iter.Next()
		ob, present := o.Get(l)
		switch {
		case !present:
			return 0, false
		case ob != b:
			if found {
				return 0, false
			}
			line, found = l, true
		}
	}
	return line, found
}

func (h Hints) String() string {
	return utils.FormatHints(h.Map())
}
