// Copyright 2026 The Nodo Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"slices"
	"strings"
	"testing"
)

func testConfig() *Config {
	return &Config{
		FirejailBaseFlags: []string{"--caps.drop=all", "--nonewprivs", "--seccomp"},
		RootBlacklist:     []string{".git/config", ".git/hooks"},
		Profiles: map[string]*CommandProfile{
			"cargo": testProfile(),
		},
	}
}

func TestFirejailBuilderOrder(t *testing.T) {
	args, err := NewFirejailBuilder().Build(&FirejailOptions{
		Config: testConfig(),
		Mode:   ModeNetworkDenied,
		Root:   "/ws",
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []string{
		"--quiet",
		"--caps.drop=all",
		"--nonewprivs",
		"--seccomp",
		"--whitelist=/ws",
		"--blacklist=/ws/.git/config",
		"--blacklist=/ws/.git/hooks",
		"--net=none",
	}
	if !slices.Equal(args, want) {
		t.Errorf("args = %q, want %q", args, want)
	}
}

func TestFirejailBuilderNetworkAllowed(t *testing.T) {
	args, err := NewFirejailBuilder().Build(&FirejailOptions{
		Config: testConfig(),
		Mode:   ModeNetworkAllowed,
		Root:   "/ws",
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if slices.Contains(args, "--net=none") {
		t.Errorf("network-allowed invocation must not carry --net=none: %q", args)
	}
}

func TestFirejailBuilderNoRootDegrades(t *testing.T) {
	// No resolved root: blacklist entries have nothing to anchor to and
	// are skipped. That is degradation, not an error.
	args, err := NewFirejailBuilder().Build(&FirejailOptions{
		Config: testConfig(),
		Mode:   ModeNetworkDenied,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, arg := range args {
		if strings.HasPrefix(arg, "--whitelist=") {
			t.Errorf("unexpected whitelist flag without a root: %q", arg)
		}
		if strings.HasPrefix(arg, "--blacklist=") {
			t.Errorf("unexpected blacklist flag without a root: %q", arg)
		}
	}
	if !slices.Contains(args, "--net=none") {
		t.Errorf("base isolation must survive root degradation: %q", args)
	}
}

func TestFirejailBuilderProjectlessSkipsRootFlags(t *testing.T) {
	// Projectless mode skips root anchoring even if a root happens to be
	// resolvable where the command runs.
	args, err := NewFirejailBuilder().Build(&FirejailOptions{
		Config: testConfig(),
		Mode:   ModeProjectless,
		Root:   "/ws",
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if slices.Contains(args, "--whitelist=/ws") {
		t.Errorf("projectless invocation must not whitelist a root: %q", args)
	}
	if slices.Contains(args, "--blacklist=/ws/.git/hooks") {
		t.Errorf("projectless invocation must not anchor the blacklist: %q", args)
	}
}

func TestFirejailBuilderConfigSelfProtection(t *testing.T) {
	args, err := NewFirejailBuilder().Build(&FirejailOptions{
		Config:     testConfig(),
		Mode:       ModeNetworkDenied,
		ConfigPath: "/home/user/.config/nodo.toml",
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if args[0] != "--blacklist=/home/user/.config/nodo.toml" {
		t.Errorf("active config file must be blacklisted first, got %q", args)
	}
}

func TestFirejailBuilderDebugOmitsQuiet(t *testing.T) {
	config := testConfig()

	quiet, err := NewFirejailBuilder().Build(&FirejailOptions{Config: config, Mode: ModeNetworkDenied})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !slices.Contains(quiet, "--quiet") {
		t.Errorf("--quiet missing from non-debug flags: %q", quiet)
	}

	loud, err := NewFirejailBuilder().Build(&FirejailOptions{Config: config, Mode: ModeNetworkDenied, Debug: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if slices.Contains(loud, "--quiet") {
		t.Errorf("--quiet must be omitted under --debug: %q", loud)
	}
}

func TestFirejailBuilderKeepsDuplicateFlags(t *testing.T) {
	// Duplicates from the configuration are handed to Firejail verbatim;
	// dropping one would silently change policy.
	config := testConfig()
	config.FirejailBaseFlags = []string{"--seccomp", "--net=none", "--seccomp"}

	args, err := NewFirejailBuilder().Build(&FirejailOptions{Config: config, Mode: ModeNetworkDenied})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	seccomp := 0
	netNone := 0
	for _, arg := range args {
		switch arg {
		case "--seccomp":
			seccomp++
		case "--net=none":
			netNone++
		}
	}
	if seccomp != 2 {
		t.Errorf("got %d --seccomp flags, want 2: %q", seccomp, args)
	}
	if netNone != 2 {
		t.Errorf("got %d --net=none flags (base + mode), want 2: %q", netNone, args)
	}
}

func TestFirejailBuilderRejectsUnsandboxedMode(t *testing.T) {
	if _, err := NewFirejailBuilder().Build(&FirejailOptions{Config: testConfig(), Mode: ModeUnsandboxed}); err == nil {
		t.Error("expected error for ModeUnsandboxed")
	}
	if _, err := NewFirejailBuilder().Build(&FirejailOptions{Config: testConfig(), Mode: Mode(42)}); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := NewFirejailBuilder().Build(&FirejailOptions{Mode: ModeNetworkDenied}); err == nil {
		t.Error("expected error for missing config")
	}
}
