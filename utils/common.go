package utils

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
)

func TimeTrack(start time.Time, name string) {
	fmt.Printf("%s took %s\n", name, time.Since(start))
}

// ParseHints parses a comma separated list of "line:bool" pairs, as
// accepted by the -hints flag.
func ParseHints(s string) (map[int]bool, error) {
	hints := map[int]bool{}
	if strings.TrimSpace(s) == "" {
		return hints, nil
	}

	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed hint %q, expected line:bool", part)
		}
		line, err := strconv.Atoi(kv[0])
		if err != nil {
			return nil, fmt.Errorf("malformed hint line %q: %v", kv[0], err)
		}
		b, err := strconv.ParseBool(kv[1])
		if err != nil {
			return nil, fmt.Errorf("malformed hint value %q: %v", kv[1], err)
		}
		hints[line] = b
	}
	return hints, nil
}

// FormatHints is the inverse of ParseHints. Keys are sorted.
func FormatHints(hints map[int]bool) string {
	keys := make([]int, 0, len(hints))
	for k := range hints {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d:%t", k, hints[k]))
	}
	return strings.Join(parts, ",")
}

// Success and Failure colorize outcome words in CLI output.
func Success(is ...interface{}) string {
	return CanColorize(color.New(color.FgGreen).SprintFunc())(is...)
}

func Failure(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiRed).SprintFunc())(is...)
}
