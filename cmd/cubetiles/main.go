// Command cubetiles builds and queries cube-sphere tile pyramids.
//
//	cubetiles [-config tiles.yaml] [-log-level INFO] convert
//	cubetiles border IN OUT
//	cubetiles mipmap [-passes N] IN OUT
//	cubetiles finish [-description TEXT] STORE
//	cubetiles sample [-depth N] STORE < queries
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/forestrie/go-cubetiles/cubemap"
	"github.com/forestrie/go-cubetiles/pipeline"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cubetiles [-config file] [-log-level level] convert|border|mipmap|finish|sample [args]")
	flag.PrintDefaults()
}

func main() {
	var (
		configPath = flag.String("config", "", "batch configuration (yaml)")
		logLevel   = flag.String("log-level", "", "log level, overrides the configuration")
	)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := pipeline.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logger.New(cfg.LogLevel)
	defer logger.OnExit()
	log := logger.Sugar.WithServiceName("cubetiles")

	if err := run(log, cfg, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, flag.Arg(0)+":", err)
		logger.OnExit()
		os.Exit(1)
	}
}

func run(log logger.Logger, cfg pipeline.Config, op string, args []string) error {
	fs := flag.NewFlagSet(op, flag.ExitOnError)
	passes := fs.Int("passes", 0, "mipmap pass limit, 0 for none")
	description := fs.String("description", "", "description recorded by finish")
	depth := fs.Int("depth", cubemap.MaxDepth, "deepest level sampled")
	if err := fs.Parse(args); err != nil {
		return err
	}
	need := func(n int) error {
		if fs.NArg() != n {
			return fmt.Errorf("expected %d arguments, got %d", n, fs.NArg())
		}
		return nil
	}

	switch op {
	case "convert":
		report, err := pipeline.Convert(log, cfg)
		if err != nil {
			return err
		}
		for _, out := range report.Outputs {
			fmt.Println(out)
		}
		return report.Err()

	case "border":
		if err := need(2); err != nil {
			return err
		}
		res, err := pipeline.Border(log, fs.Arg(0), fs.Arg(1))
		if err != nil {
			return err
		}
		log.Infof("border: %d pages, %d edges, %d corners, %d skipped", res.Pages, res.Edges, res.Corners, res.Skipped)
		return nil

	case "mipmap":
		if err := need(2); err != nil {
			return err
		}
		_, err := pipeline.Mipmap(log, fs.Arg(0), fs.Arg(1), *passes)
		return err

	case "finish":
		if err := need(1); err != nil {
			return err
		}
		return pipeline.Finish(log, fs.Arg(0), *description)

	case "sample":
		if err := need(1); err != nil {
			return err
		}
		_, err := pipeline.Sample(log, fs.Arg(0), *depth, os.Stdin, os.Stdout)
		return err
	}
	return fmt.Errorf("unknown operation %q", op)
}
