// Package main provides csrsim, which replays a script of privileged-state
// operations against a simulated RISC-V hart.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/rvcsr/config"
)

var (
	configPath = flag.String("config", "", "Path to hart configuration JSON or YAML file")
	verbosity  = flag.Int("v", 0, "Log verbosity")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: csrsim [options] <script.yaml>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := funcr.New(func(prefix, args string) {
		fmt.Fprintln(os.Stderr, prefix, args)
	}, funcr.Options{Verbosity: *verbosity})

	os.Exit(run(*configPath, flag.Arg(0), os.Stdout, os.Stderr, logger))
}

// run loads the configuration and the script and replays it. It returns the
// process exit status.
func run(configPath, scriptPath string, stdout, stderr io.Writer, logger logr.Logger) int {
	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading hart config: %v\n", err)
			return 1
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid hart config: %v\n", err)
		return 1
	}

	script, err := LoadScript(scriptPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading script: %v\n", err)
		return 1
	}

	logger.V(1).Info("script loaded", "path", scriptPath, "steps", len(script.Steps))

	NewMachine(cfg, script, logger).Run(script.Steps, stdout)
	return 0
}
