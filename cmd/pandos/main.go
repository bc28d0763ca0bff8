// Command pandos boots a pandOS kernel against an in-process uMPS3-style
// bus/device simulation and drives one of a handful of scripted
// scenarios through it, printing a colorized step-by-step transcript.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/tinyrange/pandos/internal/config"

	"log/slog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pandos: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "path to a "+config.Filename+" boot configuration (default: built-in defaults)")
		scenario    = flag.String("scenario", "pingpong", "demo scenario to run: "+scenarioNames())
		debug       = flag.Bool("debug", false, "enable debug logging")
		interactive = flag.Bool("interactive", false, "put the terminal in raw mode while the scenario runs")
		initTmpl    = flag.String("init-config", "", "write a template "+config.Filename+" to this path and exit")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *initTmpl != "" {
		return config.WriteTemplate(*initTmpl, config.Default())
	}

	sc, ok := scenarios[*scenario]
	if !ok {
		return fmt.Errorf("unknown scenario %q (choices: %s)", *scenario, scenarioNames())
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	restore, err := maybeRawMode(*interactive)
	if err != nil {
		return err
	}
	defer restore()

	r := newRig(cfg, logger, os.Stdout, os.Stdout)
	if err := preloadBackingStore(r, logger); err != nil {
		return fmt.Errorf("preload backing store: %w", err)
	}

	for _, line := range sc.run(r) {
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}

func scenarioNames() string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// maybeRawMode puts stdin in raw mode for the duration of an interactive
// run and returns a func that restores it, matching cc/main.go's
// term.IsTerminal/term.MakeRaw/term.Restore idiom. It is a no-op (and
// returns a no-op restore) when stdin isn't a terminal or -interactive
// wasn't requested — the scenarios here don't actually read input yet,
// so this mainly exists to exercise the same raw-mode lifecycle a future
// interactive scenario would need.
func maybeRawMode(interactive bool) (func(), error) {
	if !interactive || !term.IsTerminal(int(os.Stdin.Fd())) {
		return func() {}, nil
	}
	prev, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return nil, errors.New("put terminal in raw mode: " + err.Error())
	}
	return func() { _ = term.Restore(int(os.Stdin.Fd()), prev) }, nil
}
