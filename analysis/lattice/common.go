// Package lattice implements the abstract domain of bounded integers used
// by the tracer: a tagged union of representations, each describing how
// much is known about a value, and a set of pure operators over them.
package lattice

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/zed-0xff/cs-reflow-sub000/utils"
)

var opts = utils.Opts()

// Pretty printer colorization palette.
var colorize = struct {
	Element func(...interface{}) string
	Const   func(...interface{}) string
	Type    func(...interface{}) string
	Origin  func(...interface{}) string
	Unknown func(...interface{}) string
}{
	Element: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiBlue).SprintFunc())(is...)
	},
	Const: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgGreen).SprintFunc())(is...)
	},
	Type: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgCyan).SprintFunc())(is...)
	},
	Origin: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgMagenta).SprintFunc())(is...)
	},
	Unknown: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgYellow).SprintFunc())(is...)
	},
}

// ErrUnsupportedOperation is returned by operators that have no rule for
// the given operand combination. Callers may substitute Unknown.
var ErrUnsupportedOperation = errors.New("unsupported operation")

var errInternal = errors.New("internal error")

// DomainError reports an operation that has no meaningful result, such as
// a division whose divisor may be zero.
type DomainError struct {
	Op  string
	Msg string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func unsupported(op string, vs ...Value) error {
	return errors.Wrapf(ErrUnsupportedOperation, "%s %v", op, vs)
}

// IsUnsupported checks whether err stems from ErrUnsupportedOperation.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}

// Config tunes the precision/cost trade-off of the domain.
type Config struct {
	// SetCap is the largest cardinality an enumerated Set may reach
	// before an operation widens to a coarser representation.
	SetCap int
}

var config Config

// Configure replaces the domain configuration. It must not be called while
// operators are being evaluated.
func Configure(c Config) {
	config = c
}

// CurrentConfig returns the configuration in effect. A zero SetCap falls
// back to the -set-cap option.
func CurrentConfig() Config {
	c := config
	if c.SetCap <= 0 {
		c.SetCap = opts.SetCap()
	}
	if c.SetCap <= 0 {
		c.SetCap = 1_000_000
	}
	return c
}

func setCap() int {
	return CurrentConfig().SetCap
}
