package indenter

import (
	"fmt"
	"strings"
)

// indenter builds a bracketed, one-entry-per-line rendering of nested
// structures. Nested entries that span multiple lines are re-indented,
// so indenters compose without shared state.
type indenter struct {
	buf *strings.Builder
	sep string
}

const unit = "  "

func Indenter() indenter {
	return indenter{buf: &strings.Builder{}}
}

func (i indenter) Start(str string) indenter {
	i.buf.WriteString(str)
	return i
}

// Sep sets the separator written after every nested entry but the last.
func (i indenter) Sep(sep string) indenter {
	i.sep = sep
	return i
}

type stringableString string

func (s stringableString) String() string {
	return string(s)
}

func (i indenter) NestStrings(strs ...string) indenter {
	stringers := make([]fmt.Stringer, len(strs))
	for i, v := range strs {
		stringers[i] = stringableString(v)
	}
	return i.Nest(stringers...)
}

func (i indenter) Nest(strs ...fmt.Stringer) indenter {
	thunks := make([]func() string, len(strs))
	for i, s := range strs {
		thunks[i] = s.String
	}
	return i.NestThunked(thunks...)
}

func (i indenter) NestThunked(strs ...func() string) indenter {
	if len(strs) == 0 {
		return i
	}
	// Single entries stay on the opening line.
	if len(strs) == 1 {
		if s := strs[0](); !strings.Contains(s, "\n") {
			i.buf.WriteString(s)
			return i
		}
	}

	for j, str := range strs {
		i.buf.WriteString("\n" + unit)
		i.buf.WriteString(strings.ReplaceAll(str(), "\n", "\n"+unit))
		if j < len(strs)-1 {
			i.buf.WriteString(i.sep)
		}
	}
	i.buf.WriteString("\n")
	return i
}

func (i indenter) End(str string) string {
	i.buf.WriteString(str)
	return i.buf.String()
}
