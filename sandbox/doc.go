// Copyright 2026 The Nodo Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox decides whether and how a build-tool invocation is wrapped
// in a Firejail sandbox, and constructs the command line that does it.
//
// The entry point is [Dispatch], which turns a tool name and argument vector
// into an [Invocation]: either a Firejail command line or, for subcommands
// the operator has explicitly exempted, the raw tool command line unchanged.
// [Exec] then replaces the current process image with that invocation so the
// wrapped tool's exit status reaches the caller verbatim.
//
// Policy is declarative. A [Config] holds global defaults (the Firejail base
// flags and a project-relative blacklist) and one [CommandProfile] per
// wrapped tool. A profile names the marker files whose presence identifies a
// project root, classifies subcommands into deny/projectless/network-allowed
// sets, and maps subcommand aliases onto their canonical names. Profiles are
// loaded from a TOML file discovered under the user's config directory
// ([FindConfigPath]), falling back to a built-in default policy.
//
// Dispatch runs in a fixed order with security-relevant precedence:
// [Classify] resolves aliases and picks a [Mode] (deny wins over every other
// list, and a subcommand absent from all lists gets the strictest default);
// [ResolveRoot] walks the directory ancestry for marker files, optionally
// climbing to the outermost contiguous match for workspace layouts; and
// [FirejailBuilder] assembles the flag list, anchoring blacklist entries at
// the resolved root and appending the network-isolation flag. The built
// command always separates Firejail's own flags from the wrapped tool with
// "--" so tool arguments can never be parsed as Firejail options.
//
// The package constructs intent, not isolation: Firejail itself is an
// external program, and a missing Firejail binary is a fatal error rather
// than a silent fallback to unsandboxed execution.
package sandbox
