// Copyright 2026 The Nodo Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// ErrNoProfile reports that the configuration has no profile for the
// requested command. The wrapper refuses to run a command it has no policy
// for; running it raw instead would look like protection without being any.
var ErrNoProfile = errors.New("no sandboxing profile configured for command")

// Invocation is the final argument vector for one dispatched command.
type Invocation struct {
	// Argv is the full command line. For a sandboxed invocation it is
	// [firejail, flags..., "--", tool, args...]; for an unsandboxed one it
	// is [tool, args...] verbatim.
	Argv []string

	// Dir is the working directory to launch in, or empty to inherit the
	// caller's. Set to the project root when the profile asks for it.
	Dir string

	// Sandboxed reports whether Argv runs behind the launcher.
	Sandboxed bool
}

// DispatchOptions carries the per-invocation context for Dispatch.
type DispatchOptions struct {
	// StartDir is the absolute directory root resolution starts from,
	// normally the process working directory.
	StartDir string

	// ConfigPath is the on-disk config file in effect, or empty when the
	// built-in defaults are active.
	ConfigPath string

	// Debug keeps Firejail's own diagnostics visible.
	Debug bool

	// Logger receives dispatch decisions. Nil disables logging.
	Logger *slog.Logger
}

// Dispatch resolves the sandboxing policy for one command invocation and
// builds the command line that enforces it.
//
// A deny-listed subcommand short-circuits: the raw command line is returned
// and neither root resolution nor flag assembly runs, so a resolver problem
// can never masquerade as a policy decision. Everything else is sandboxed:
// the project root is resolved (skipped for projectless subcommands), the
// Firejail flags are assembled, and the wrapped command is appended after a
// literal "--" so its arguments can never be parsed as Firejail options.
func Dispatch(config *Config, tool string, args []string, opts DispatchOptions) (*Invocation, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	profile, ok := config.Profile(tool)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProfile, tool)
	}

	subcommand := ""
	if len(args) > 0 {
		subcommand = args[0]
	}
	classification := Classify(subcommand, profile)
	logger.Debug("classified subcommand",
		"tool", tool,
		"subcommand", subcommand,
		"canonical", classification.Canonical,
		"mode", classification.Mode.String(),
	)

	switch classification.Mode {
	case ModeUnsandboxed:
		logger.Info("subcommand is deny-listed, running unsandboxed",
			"tool", tool,
			"subcommand", classification.Canonical,
		)
		return &Invocation{
			Argv:      append([]string{tool}, args...),
			Sandboxed: false,
		}, nil

	case ModeProjectless, ModeNetworkAllowed, ModeNetworkDenied:
		root := ""
		if classification.Mode != ModeProjectless {
			if resolved, ok := ResolveRoot(opts.StartDir, profile.RootMarkedBy, profile.RootFindOutermost); ok {
				root = resolved
				logger.Debug("resolved project root",
					"root", root,
					"outermost", profile.RootFindOutermost,
				)
			} else {
				logger.Debug("no project root found, root-relative restrictions skipped",
					"start_dir", opts.StartDir,
					"markers", profile.RootMarkedBy,
				)
			}
		}

		flags, err := NewFirejailBuilder().Build(&FirejailOptions{
			Config:     config,
			Mode:       classification.Mode,
			Root:       root,
			ConfigPath: opts.ConfigPath,
			Debug:      opts.Debug,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build firejail flags: %w", err)
		}

		argv := append([]string{LauncherName}, flags...)
		argv = append(argv, "--", tool)
		argv = append(argv, args...)

		dir := ""
		if profile.CwdToRoot && root != "" {
			dir = root
		}

		return &Invocation{Argv: argv, Dir: dir, Sandboxed: true}, nil

	default:
		return nil, fmt.Errorf("unknown classification mode %v", classification.Mode)
	}
}

// Exec replaces the current process image with the invocation, so the
// wrapped command's exit status reaches the caller with no forwarding layer
// in between. It returns only on failure.
//
// The executable is resolved with LookPath first: a missing Firejail binary
// (ErrLauncherMissing) or a missing tool fails loudly here, before anything
// has been launched.
func Exec(invocation *Invocation) error {
	var path string
	var err error
	if invocation.Sandboxed {
		path, err = FirejailPath()
	} else {
		path, err = exec.LookPath(invocation.Argv[0])
		if err != nil {
			err = fmt.Errorf("cannot locate command %q: %v", invocation.Argv[0], err)
		}
	}
	if err != nil {
		return err
	}

	if invocation.Dir != "" {
		if err := os.Chdir(invocation.Dir); err != nil {
			return fmt.Errorf("failed to change directory: %w", err)
		}
	}

	if err := unix.Exec(path, invocation.Argv, os.Environ()); err != nil {
		return fmt.Errorf("failed to exec %s: %w", path, err)
	}
	return nil
}
