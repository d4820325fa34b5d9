// Package main is the entry point for rxctl, a command line client for
// rxdata stores.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"

	"github.com/dshills/rxdata/internal/app"
	"github.com/dshills/rxdata/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const usage = `rxctl - inspect and edit rxdata stores.

Usage:
    rxctl [options] kinds
    rxctl [options] list <kind>
    rxctl [options] get <kind> <id>
    rxctl [options] set <kind> [--id=<id>] <assignment>...
    rxctl [options] remove <kind> <id>
    rxctl [options] watch [<name>...]
    rxctl -h | --help
    rxctl --version

Assignments have the form key=value. Values that parse as JSON are stored
as such, anything else is stored as a string.

Options:
    -h --help               Show this screen.
    --version               Show version.
    -c --config=<path>      Configuration file [default: rxdata.toml].
    -v --verbosity=<level>  Log verbosity, overriding the configuration.
    -p --pretty             Indent printed records.
    --id=<id>               Identity of the record to update.`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	glog.Flush()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	parser := &docopt.Parser{
		HelpHandler: func(err error, usage string) {
			if err != nil {
				fmt.Fprintln(stderr, usage)
				return
			}
			fmt.Fprintln(stdout, usage)
		},
		OptionsFirst: false,
	}
	opts, err := parser.ParseArgs(usage, args, fmt.Sprintf("rxctl %s (commit %s, built %s)", version, commit, date))
	if err != nil {
		return 2
	}
	if len(opts) == 0 {
		// Help or version was printed.
		return 0
	}

	path, _ := opts.String("--config")
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := setupLogging(cfg, opts); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	a, err := app.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			glog.Warningf("[rxctl]close: %v", err)
		}
	}()

	cmd := &command{app: a, out: stdout}
	cmd.pretty, _ = opts.Bool("--pretty")
	if err := cmd.dispatch(ctx, opts); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// setupLogging routes glog to stderr at the configured verbosity.
func setupLogging(cfg *config.Config, opts docopt.Opts) error {
	level := strconv.Itoa(cfg.Log.Verbosity)
	if v, err := opts.String("--verbosity"); err == nil && v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid verbosity %q", v)
		}
		level = v
	}
	if err := flag.Set("logtostderr", "true"); err != nil {
		return err
	}
	return flag.Set("v", level)
}
