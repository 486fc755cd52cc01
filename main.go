package main

import (
	"context"
	"flag"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jcorbin/goconcat/internal/logio"
	"github.com/jcorbin/goconcat/internal/panicerr"
)

func main() {
	var log logio.Logger
	log.SetOutput(os.Stderr)
	os.Exit(runMain(context.Background(), &log, os.Args[1:], os.Stdin, os.Stdout))
}

// runMain is the whole command; it returns the process exit status.
func runMain(ctx context.Context, log *logio.Logger, args []string, stdin io.Reader, stdout io.Writer) int {
	var (
		timeout    time.Duration
		trace      bool
		checkOnly  bool
		dump       bool
		noPrelude  bool
		maxDepth   int
		configPath string
		warnings   warnPolicy
	)
	flags := flag.NewFlagSet("goconcat", flag.ContinueOnError)
	flags.SetOutput(&logio.Writer{Logf: log.Leveledf("")})
	flags.DurationVar(&timeout, "timeout", 0, "specify a time limit")
	flags.BoolVar(&trace, "trace", false, "enable trace logging")
	flags.BoolVar(&checkOnly, "check", false, "only type check each source file")
	flags.BoolVar(&dump, "dump", false, "print the checked program as YAML instead of running it")
	flags.BoolVar(&noPrelude, "no-prelude", false, "do not load the prelude")
	flags.IntVar(&maxDepth, "max-depth", defaultMaxDepth, "limit procedure call depth, 0 for no limit")
	flags.StringVar(&configPath, "config", defaultConfigFile, "project config file")
	flags.Var(&warnings, "warnings", "what checker warnings do: warn, error or ignore")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	set := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := loadConfig(configPath, set["config"])
	if err != nil {
		log.ErrorIf(err)
		return log.ExitCode()
	}
	if set["timeout"] || cfg.Timeout == 0 {
		cfg.Timeout = timeout
	}
	if set["trace"] {
		cfg.Trace = trace
	}
	if set["no-prelude"] {
		p := !noPrelude
		cfg.Prelude = &p
	}
	if set["max-depth"] || cfg.MaxDepth == 0 {
		cfg.MaxDepth = maxDepth
	}
	if set["warnings"] || cfg.Warnings == "" {
		cfg.Warnings = warnings
	}

	cc := compiler{
		noPrelude: !cfg.prelude(),
		debugf:    log.Leveledf("DEBUG"),
	}
	switch cfg.Warnings {
	case warnIgnore:
	case warnError:
		log.FailOn("WARN", 1)
		cc.warnf = log.Leveledf("WARN")
	default:
		cc.warnf = log.Leveledf("WARN")
	}

	names := flags.Args()
	if len(names) == 0 && cfg.Main != "" {
		names = []string{cfg.Main}
	}

	if checkOnly {
		checkFiles(log, cc, names)
		return log.ExitCode()
	}

	var srcs []source
	if len(names) == 0 {
		srcs = append(srcs, source{"<stdin>", stdin})
	}
	for _, name := range names {
		src, cl, err := fileSource(name)
		if err != nil {
			log.ErrorIf(err)
			return log.ExitCode()
		}
		defer cl.Close()
		srcs = append(srcs, src)
	}

	prog, err := cc.compile(srcs...)
	if err != nil {
		log.ErrorIf(err)
		return log.ExitCode()
	}
	if dump {
		log.ErrorIf(writeListing(stdout, prog))
		return log.ExitCode()
	}

	opts := []VMOption{
		WithOutput(stdout),
		WithMaxDepth(cfg.MaxDepth),
		WithDebugf(log.Leveledf("DEBUG")),
	}
	if cfg.Trace {
		opts = append(opts,
			WithLogf(log.Leveledf("TRACE")),
			WithTee(&logio.Writer{Logf: log.Leveledf("OUT")}))
	}
	vm := New(opts...)
	defer vm.Close()

	if cfg.Timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	err = vm.Run(ctx, prog)
	if code, ok := ExitCode(err); ok {
		return code
	}
	if err != nil {
		log.ErrorIf(err)
		if cfg.Trace && !panicerr.IsPanic(err) && !panicerr.IsExit(err) {
			vmDumper{vm: vm, out: &logio.Writer{Logf: log.Leveledf("TRACE")}}.dump()
		}
	}
	return log.ExitCode()
}

// checkFiles type checks each file on its own, concurrently, logging every
// failure.
func checkFiles(log *logio.Logger, cc compiler, names []string) {
	var eg errgroup.Group
	for _, name := range names {
		name := name
		eg.Go(func() error {
			src, cl, err := fileSource(name)
			if err != nil {
				log.ErrorIf(err)
				return err
			}
			defer cl.Close()
			if _, err := cc.compile(src); err != nil {
				log.ErrorIf(err)
				return err
			}
			return nil
		})
	}
	if eg.Wait() == nil {
		log.Printf("", "checked %d files with %d warnings", len(names), log.Count("WARN"))
	}
}
