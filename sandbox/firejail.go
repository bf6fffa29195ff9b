// Copyright 2026 The Nodo Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
)

// LauncherName is the sandbox launcher executable.
const LauncherName = "firejail"

// ErrLauncherMissing reports that the Firejail executable could not be
// located. This is always fatal: degrading to unsandboxed execution would
// defeat the tool's purpose.
var ErrLauncherMissing = errors.New("firejail executable not found")

// FirejailPath locates the Firejail executable on PATH.
func FirejailPath() (string, error) {
	path, err := exec.LookPath(LauncherName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLauncherMissing, err)
	}
	return path, nil
}

// FirejailOptions holds the inputs for building the Firejail flag list for
// one invocation.
type FirejailOptions struct {
	// Config supplies the global base flags and root blacklist.
	Config *Config

	// Mode is the classification decision. ModeUnsandboxed never reaches
	// the builder; Build rejects it.
	Mode Mode

	// Root is the resolved project root, or empty when none was found or
	// the mode is projectless.
	Root string

	// ConfigPath is the on-disk configuration file in effect, or empty
	// when the built-in defaults are active. When present it is
	// blacklisted so the sandboxed command cannot rewrite its own policy.
	ConfigPath string

	// Debug omits --quiet so Firejail's own diagnostics stay visible when
	// troubleshooting a profile.
	Debug bool
}

// FirejailBuilder assembles Firejail command-line flags.
//
// Flags are never deduplicated: a duplicate produced by the configuration is
// handed to Firejail for its own precedence rules to resolve, because
// silently discarding a later, stricter flag instance would be a security
// regression in itself.
type FirejailBuilder struct {
	args []string
}

// NewFirejailBuilder creates a new builder.
func NewFirejailBuilder() *FirejailBuilder {
	return &FirejailBuilder{args: []string{}}
}

// Build constructs the Firejail flags, in order: self-protection for the
// active config file, --quiet (unless debugging), the configured base flags
// verbatim, root-anchored flags (skipped for projectless invocations and
// when no root was resolved), and the network-isolation flag.
func (b *FirejailBuilder) Build(opts *FirejailOptions) ([]string, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	switch opts.Mode {
	case ModeNetworkDenied, ModeNetworkAllowed, ModeProjectless:
	case ModeUnsandboxed:
		return nil, errors.New("unsandboxed invocations bypass the launcher")
	default:
		return nil, fmt.Errorf("unknown mode %v", opts.Mode)
	}

	b.args = []string{}

	// The policy file itself is always off limits inside the sandbox.
	if opts.ConfigPath != "" {
		b.args = append(b.args, "--blacklist="+opts.ConfigPath)
	}

	if !opts.Debug {
		b.args = append(b.args, "--quiet")
	}

	// Base flags verbatim, declared order. Some Firejail options have
	// last-flag-wins semantics, so reordering here would change policy.
	b.args = append(b.args, opts.Config.FirejailBaseFlags...)

	// Root-anchored flags. A projectless invocation expects no root to
	// exist; a rooted invocation with no resolved root degrades by
	// skipping the entries, since there is nothing to anchor them to.
	if opts.Mode != ModeProjectless && opts.Root != "" {
		b.args = append(b.args, "--whitelist="+opts.Root)
		for _, entry := range opts.Config.RootBlacklist {
			b.args = append(b.args, "--blacklist="+filepath.Join(opts.Root, entry))
		}
	}

	if opts.Mode != ModeNetworkAllowed {
		b.args = append(b.args, "--net=none")
	}

	return b.args, nil
}
