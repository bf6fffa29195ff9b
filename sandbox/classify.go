// Copyright 2026 The Nodo Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"slices"
)

// Mode is the sandboxing decision for one classified subcommand.
//
// The set is closed: Dispatch and FirejailBuilder switch over every value
// and treat anything else as a programming error, so a new mode cannot be
// added without updating both.
type Mode int

const (
	// ModeNetworkDenied runs the command sandboxed with no network
	// access. This is the zero value on purpose: a subcommand absent
	// from every configured list must get the strictest treatment.
	ModeNetworkDenied Mode = iota

	// ModeNetworkAllowed runs the command sandboxed with unrestricted
	// network access, for subcommands that must reach package registries.
	ModeNetworkAllowed

	// ModeProjectless runs the command sandboxed but without any project
	// root, for subcommands that create projects rather than operate on
	// existing ones. Root resolution is skipped, not failed.
	ModeProjectless

	// ModeUnsandboxed runs the command exactly as the user would by hand,
	// with no Firejail involvement at all. Only an explicit
	// deny_subcommands entry produces this mode.
	ModeUnsandboxed
)

// String returns the mode name for diagnostics.
func (m Mode) String() string {
	switch m {
	case ModeNetworkDenied:
		return "network-denied"
	case ModeNetworkAllowed:
		return "network-allowed"
	case ModeProjectless:
		return "projectless"
	case ModeUnsandboxed:
		return "unsandboxed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Classification is the result of classifying one raw subcommand against a
// profile.
type Classification struct {
	// Canonical is the subcommand name after alias resolution.
	Canonical string

	// Mode is the sandboxing decision for the canonical subcommand.
	Mode Mode
}

// Classify resolves subcommand aliases and picks the sandboxing mode for a
// subcommand. An empty subcommand (the tool was invoked bare) matches no
// list and falls through to the default.
//
// Precedence is fixed and security-relevant: deny_subcommands wins over
// everything, so an operator's explicit "run this unconstrained" decision
// cannot be overridden by the same name accidentally appearing in another
// list; projectless is next; then the network-allow list (or the profile's
// blanket allow_network); and everything else is sandboxed with no network.
func Classify(subcommand string, profile *CommandProfile) Classification {
	canonical := subcommand
	if target, ok := profile.SubcommandAliases[subcommand]; ok {
		canonical = target
	}

	// Config validation rejects empty names in every list, so an empty
	// canonical subcommand can only match through AllowNetwork.
	mode := ModeNetworkDenied
	switch {
	case slices.Contains(profile.DenySubcommands, canonical):
		mode = ModeUnsandboxed
	case slices.Contains(profile.ProjectlessSubcommands, canonical):
		mode = ModeProjectless
	case profile.AllowNetwork || slices.Contains(profile.AllowNetworkSubcommands, canonical):
		mode = ModeNetworkAllowed
	}

	return Classification{Canonical: canonical, Mode: mode}
}
