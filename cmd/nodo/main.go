// Copyright 2026 The Nodo Authors
// SPDX-License-Identifier: Apache-2.0

// nodo wraps build-tool invocations in a Firejail sandbox according to a
// per-tool policy file.
//
// Usage:
//
//	nodo [--debug] [--] <command> [subcommand] [arguments...]
//	nodo --help | --version | --conf-path | --write-conf
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/nodo-project/nodo/lib/version"
	"github.com/nodo-project/nodo/sandbox"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("nodo", pflag.ContinueOnError)
	// Wrapper flags are only recognized before the wrapped command, so the
	// wrapped tool's own flags pass through untouched.
	flags.SetInterspersed(false)
	flags.SetOutput(os.Stderr)
	flags.Usage = printUsage

	debug := flags.Bool("debug", false, "print the Firejail command line and keep Firejail diagnostics visible")
	showVersion := flags.Bool("version", false, "print the version number and exit")
	confPath := flags.Bool("conf-path", false, "print the configuration file path and exit")
	writeConf := flags.Bool("write-conf", false, "save the built-in configuration and print where it was saved")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage()
			return 0
		}
		return 1
	}

	switch {
	case *showVersion:
		fmt.Printf("nodo %s\n", version.Info())
		return 0

	case *confPath:
		path, err := sandbox.FindConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "CRITICAL FAILURE: %v\n", err)
			return 1
		}
		fmt.Println(path)
		return 0

	case *writeConf:
		path, err := sandbox.FindConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "CRITICAL FAILURE: %v\n", err)
			return 1
		}
		if err := sandbox.WriteDefaultConfig(path); err != nil {
			fmt.Fprintf(os.Stderr, "CRITICAL FAILURE: %v\n", err)
			return 1
		}
		fmt.Println(path)
		return 0
	}

	command := flags.Args()
	if len(command) == 0 {
		printUsage()
		return 1
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	config, configPath, err := loadConfig(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL FAILURE: %v\n", err)
		return 1
	}

	startDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL FAILURE: cannot determine working directory: %v\n", err)
		return 1
	}

	invocation, err := sandbox.Dispatch(config, command[0], command[1:], sandbox.DispatchOptions{
		StartDir:   startDir,
		ConfigPath: configPath,
		Debug:      *debug,
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	logger.Debug("executing",
		"command", strings.Join(invocation.Argv, " "),
		"sandboxed", invocation.Sandboxed,
	)

	// Exec replaces the process image; reaching the lines below means the
	// launch itself failed before anything ran.
	if err := sandbox.Exec(invocation); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig loads the on-disk configuration when one exists, otherwise the
// built-in defaults. The returned path is empty when the defaults are in
// effect (there is no file to blacklist inside the sandbox).
func loadConfig(logger *slog.Logger) (*sandbox.Config, string, error) {
	path, err := sandbox.FindConfigPath()
	if err != nil {
		return nil, "", err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logger.Debug("no config file found, using built-in defaults", "path", path)
			config, err := sandbox.DefaultConfig()
			return config, "", err
		}
		return nil, "", fmt.Errorf("cannot read config %s: %w", path, err)
	}

	logger.Debug("loading config", "path", path)
	config, err := sandbox.LoadConfig(path)
	if err != nil {
		return nil, "", err
	}
	return config, path, nil
}

func printUsage() {
	fmt.Print(`nodo - run build tools inside a Firejail sandbox

USAGE
    nodo [--debug] [--] <command> [subcommand] [arguments...]

    nodo --help | --version | --conf-path | --write-conf

OPTIONS
    --              Don't interpret <command> as an option even if it
                    looks like one
    --debug         Print the Firejail command line being executed and
                    omit --quiet so problems with sandboxing policies
                    can be diagnosed
    --help          Print this help message to standard output
    --version       Print the version number to standard output
    --conf-path     Print the configuration file path to standard output
    --write-conf    Save the built-in configuration to the config
                    directory and report where it was saved

<command> and [subcommand] select a sandboxing profile from the
configuration file, then <command> [subcommand] [arguments...] is executed
inside a Firejail sandbox. Subcommands the profile deny-lists run
unsandboxed instead; everything unlisted runs sandboxed with no network
access.

EXAMPLES
    # Build inside the sandbox, network allowed for dependency fetching
    nodo cargo build

    # Unlisted subcommands get the strictest default
    nodo cargo bench

    # Deny-listed subcommands run exactly as if nodo were not involved
    nodo cargo install ripgrep
`)
}
