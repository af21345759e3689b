package utils

import (
	"flag"
	"fmt"
	"log"
	"strings"
)

type options struct {
	setCap       int
	pointerWidth uint
	maxAttempts  int
	maxSteps     int
	function     string
	hints        string
	task         string
	output       string
	traceLogging bool
	annotate     bool
	noColorize   bool
	verbose      bool
}

const (
	_REFLOW = iota
	_TRACE
	_EXPLORE
	_DOT
)

func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
	}
	return col
}

var task = []struct{ flag, explanation string }{{
	"reflow",
	"Explore every undecidable branch, merge the traces and print the reconstructed function body",
}, {
	"trace",
	"Print the single trace obtained under the hints given with -hints",
}, {
	"explore",
	"Print every completed trace found during branch exploration, with its hint assignment",
}, {
	"dot",
	"Write the exploration tree as a DOT graph (see -o)",
}}

var opts = &options{}

type optInterface struct{}

type taskInterface struct{}

func Opts() optInterface {
	return optInterface{}
}

func (optInterface) NoColorize() bool {
	return opts.noColorize
}

// SetNoColorize is used by tests and golden output to get stable strings.
func (optInterface) SetNoColorize(b bool) {
	opts.noColorize = b
}

func (optInterface) SetCap() int {
	return opts.setCap
}
func (optInterface) PointerWidth() uint {
	return opts.pointerWidth
}
func (optInterface) MaxAttempts() int {
	return opts.maxAttempts
}
func (optInterface) MaxSteps() int {
	return opts.maxSteps
}
func (optInterface) Function() string {
	return opts.function
}
func (optInterface) Hints() string {
	return opts.hints
}
func (optInterface) Output() string {
	return opts.output
}
func (optInterface) TraceLogging() bool {
	return opts.traceLogging
}
func (optInterface) Annotate() bool {
	return opts.annotate
}
func (optInterface) Verbose() bool {
	return opts.verbose
}
func (optInterface) Task() taskInterface {
	return taskInterface{}
}
func (taskInterface) IsReflow() bool {
	return opts.task == task[_REFLOW].flag
}
func (taskInterface) IsTrace() bool {
	return opts.task == task[_TRACE].flag
}
func (taskInterface) IsExplore() bool {
	return opts.task == task[_EXPLORE].flag
}
func (taskInterface) IsDot() bool {
	return opts.task == task[_DOT].flag
}

func init() {
	taskFlag := "\n"
	for _, task := range task {
		taskFlag += task.flag + " -- " + task.explanation + "\n"
	}
	taskFlag += "\n"

	flag.StringVar(&(opts.function), "fun", "", "name of the function whose body is reflowed.\n"+
		"- If empty, the first function declared in the file is used.")
	flag.StringVar(&(opts.hints), "hints", "", "comma separated branch hints, e. g. \"12:true,40:false\".\n"+
		"- Keys are source lines of the decision points reported by failed runs.")
	flag.StringVar(&(opts.task), "task", task[_REFLOW].flag, "Set the task to do during execution. Options:"+taskFlag)
	flag.StringVar(&(opts.output), "o", "", "output file for -task dot (stdout if empty)")
	flag.IntVar(&(opts.setCap), "set-cap", 1_000_000, "maximum cardinality of an enumerated value set before widening")
	flag.UintVar(&(opts.pointerWidth), "pointer-width", 64, "bit width of int, uint and uintptr [32 | 64]")
	flag.IntVar(&(opts.maxAttempts), "max-attempts", 1<<12, "upper bound on traced hint assignments during exploration (0 = unbounded)")
	flag.IntVar(&(opts.maxSteps), "max-steps", 1<<16, "upper bound on statements executed by a single trace (0 = unbounded)")
	flag.BoolVar(&(opts.annotate), "annotate", false, "annotate reconstructed statements with their computed values")
	flag.BoolVar(&(opts.traceLogging), "trace-logging", false, "Enable logging of attempts, undetermined branches and merges")
	flag.BoolVar(&(opts.noColorize), "no-colorize", false, "Disable pretty printer colorization")
	flag.BoolVar(&(opts.verbose), "verbose", false, "enable verbose output")

	// Set up logging
	log.SetFlags(log.Ltime | log.Lshortfile)
}

func ParseArgs() {
	// Calling flag.Parse in init messes up unit tests.
	// See https://stackoverflow.com/questions/60235896/flag-provided-but-not-defined-test-v
	flag.Parse()

	validTask := false
	for _, task := range task {
		if task.flag == opts.task {
			validTask = true
			break
		}
	}

	if !validTask {
		log.Fatalf("Value \"%s\" is not valid for -task", opts.task)
	}

	if opts.pointerWidth != 32 && opts.pointerWidth != 64 {
		log.Fatalf("Value \"%d\" is not valid for -pointer-width", opts.pointerWidth)
	}

	if Opts().Task().IsDot() {
		opts.noColorize = true
	}
}

func (optInterface) OnVerbose(do func()) {
	if Opts().Verbose() {
		do()
	}
}
