package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
	L "github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/reflow"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/tracer"
	"github.com/zed-0xff/cs-reflow-sub000/frontend/goast"
	"github.com/zed-0xff/cs-reflow-sub000/utils"
)

var (
	opts = utils.Opts()
	task = opts.Task()
)

func main() {
	utils.ParseArgs()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: reflow [flags] file.go")
		flag.PrintDefaults()
		os.Exit(2)
	}

	itypes.SetPointerWidth(opts.PointerWidth())
	L.Configure(L.Config{SetCap: opts.SetCap()})
	if opts.NoColorize() {
		color.NoColor = true
	}

	file, err := goast.ParseFile(flag.Arg(0), nil)
	if err != nil {
		log.Fatalln(err)
	}
	opts.OnVerbose(func() {
		for _, err := range file.Errors {
			log.Println(err)
		}
	})

	fn, err := file.Function(opts.Function())
	if err != nil {
		log.Fatalln(err)
	}

	cfg, err := reflow.ConfigFromOpts()
	if err != nil {
		log.Fatalln(err)
	}

	start := time.Now()
	switch {
	case task.IsReflow():
		r, err := reflow.Run(fn.Body, fn.Env(), cfg)
		if err != nil {
			fmt.Println(utils.Failure("FAILED"), err)
			os.Exit(1)
		}
		fmt.Println(r)
		opts.OnVerbose(func() {
			fmt.Println()
			fmt.Println(utils.Success("OK"), r.Summary())
		})

	case task.IsTrace():
		lg, err := tracer.New(fn.Body, cfg.Tracer).Trace(cfg.Hints, fn.Env())
		if err != nil {
			fmt.Println(utils.Failure("FAILED"), err)
			os.Exit(1)
		}
		fmt.Println(lg)

	case task.IsExplore():
		ex, err := tracer.New(fn.Body, cfg.Tracer).Explore(cfg.Hints, fn.Env())
		if ex != nil {
			for i, lg := range ex.Logs {
				fmt.Printf("%s {%s}\n%s\n\n", utils.Success(fmt.Sprintf("trace %d", i+1)), lg.Hints, lg)
			}
			fmt.Printf("%d attempts, %d undetermined, %d completed\n", ex.Attempts, ex.Undetermined, len(ex.Logs))
		}
		if err != nil {
			fmt.Println(utils.Failure("FAILED"), err)
			os.Exit(1)
		}

	case task.IsDot():
		// A failed exploration still has a tree worth drawing.
		ex, err := tracer.New(fn.Body, cfg.Tracer).Explore(cfg.Hints, fn.Env())
		if err != nil {
			log.Println(err)
		}
		out := os.Stdout
		if path := opts.Output(); path != "" {
			f, err := os.Create(path)
			if err != nil {
				log.Fatalln(err)
			}
			defer f.Close()
			out = f
		}
		fmt.Fprintln(out, ex.Dot())
	}

	opts.OnVerbose(func() {
		utils.TimeTrack(start, "Task "+flag.Lookup("task").Value.String())
	})
}
