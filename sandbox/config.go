// Copyright 2026 The Nodo Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the name of the configuration file inside the user's
// config directory.
const ConfigFileName = "nodo.toml"

// defaultConfigTOML contains the built-in policy used when no configuration
// file exists on disk. It is also what --write-conf saves.
//
//go:embed defaults.toml
var defaultConfigTOML string

// Config is the top-level sandboxing policy: global Firejail defaults plus
// one profile per wrapped command.
type Config struct {
	// FirejailBaseFlags are passed to Firejail on every sandboxed
	// invocation, in declared order, before any profile-derived flags.
	//
	// The field is required. An operator who really wants a sandbox as
	// full of holes as Swiss cheese must write an explicit empty list.
	FirejailBaseFlags []string `toml:"firejail_base_flags"`

	// RootBlacklist lists project-relative paths the sandboxed command is
	// denied access to. Entries are anchored at the resolved project root
	// at dispatch time; when no root is resolved they are skipped.
	//
	// The intent is an analogue of `chattr +a` for project metadata: deny
	// writes to paths like .git/hooks so `git diff` can reveal attempts by
	// a compromised build to smuggle changes into a commit.
	RootBlacklist []string `toml:"root_blacklist"`

	// Profiles maps command names (argv[0] as seen by the wrapped
	// subprocess) to their sandboxing profiles.
	Profiles map[string]*CommandProfile `toml:"profile"`
}

// CommandProfile is the sandboxing policy for a single wrapped command.
// "Subcommand" throughout means argv[1] as seen by the wrapped subprocess.
type CommandProfile struct {
	// RootMarkedBy lists file or directory names whose presence marks a
	// directory as a project root candidate. Required, non-empty.
	RootMarkedBy []string `toml:"root_marked_by"`

	// RootFindOutermost selects outermost-contiguous root resolution:
	// instead of stopping at the nearest marker-bearing ancestor, keep
	// climbing through consecutive marker-bearing ancestors and use the
	// topmost one before the chain breaks. This is what makes a Cargo
	// workspace sandbox at the workspace root rather than a member crate.
	RootFindOutermost bool `toml:"root_find_outermost"`

	// AllowNetwork grants unrestricted network access to every sandboxed
	// invocation of this command. Leave false and use
	// AllowNetworkSubcommands to grant access selectively.
	AllowNetwork bool `toml:"allow_network"`

	// AllowNetworkSubcommands lists subcommands allowed unrestricted
	// network access, e.g. ones that must query package registries.
	AllowNetworkSubcommands []string `toml:"allow_network_subcommands"`

	// DenySubcommands lists subcommands that run completely unsandboxed.
	// Listing a subcommand here is a deliberate operator trust decision
	// ("run this one exactly as I would by hand") and takes precedence
	// over every other classification list.
	DenySubcommands []string `toml:"deny_subcommands"`

	// ProjectlessSubcommands lists subcommands that are sandboxed without
	// any project root, e.g. ones that create new projects and therefore
	// run where no marker file exists yet.
	ProjectlessSubcommands []string `toml:"projectless_subcommands"`

	// SubcommandAliases maps alias names to the canonical subcommand name
	// used for classification, e.g. cargo's b -> build.
	SubcommandAliases map[string]string `toml:"subcommand_aliases"`

	// CwdToRoot launches rooted invocations with the working directory set
	// to the resolved project root, so commands like `make` behave the
	// same from anywhere inside the project hierarchy.
	CwdToRoot bool `toml:"cwd_to_root"`
}

// Defaults is the read-only view of the global policy defaults.
type Defaults struct {
	BaseFlags     []string
	RootBlacklist []string
}

// Defaults returns a copy of the global defaults. The copy keeps the loaded
// configuration immutable for the lifetime of the process.
func (c *Config) Defaults() Defaults {
	return Defaults{
		BaseFlags:     append([]string(nil), c.FirejailBaseFlags...),
		RootBlacklist: append([]string(nil), c.RootBlacklist...),
	}
}

// Profile returns the sandboxing profile for a command name. The boolean is
// false when no profile is configured for the command; the caller decides
// whether that is fatal (it is for the wrapper CLI, which refuses to run a
// command it has no policy for).
func (c *Config) Profile(command string) (*CommandProfile, bool) {
	profile, ok := c.Profiles[command]
	return profile, ok
}

// ParseConfig decodes and validates a TOML configuration document.
//
// Unknown keys are rejected: in a policy file, a typo'd key name silently
// ignored is a policy hole.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	meta, err := toml.Decode(string(data), &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if !meta.IsDefined("firejail_base_flags") {
		return nil, errors.New("'firejail_base_flags' must be specified; use an empty list to mean no base flags")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfig reads, decodes, and validates a configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	config, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// DefaultConfig returns the built-in policy.
func DefaultConfig() (*Config, error) {
	return ParseConfig([]byte(defaultConfigTOML))
}

// Validate performs the checks TOML decoding cannot express. Implemented by
// hand rather than pulling in a validation library: every dependency of a
// sandboxing wrapper is another point of trust.
func (c *Config) Validate() error {
	for _, entry := range c.RootBlacklist {
		if err := checkRelativePath("root_blacklist", entry); err != nil {
			return err
		}
	}
	if len(c.Profiles) == 0 {
		return errors.New("config must contain at least one profile")
	}
	for command, profile := range c.Profiles {
		if err := checkName("profile name", command); err != nil {
			return err
		}
		if err := profile.validate(command); err != nil {
			return err
		}
	}
	return nil
}

func (p *CommandProfile) validate(command string) error {
	if len(p.RootMarkedBy) == 0 {
		return fmt.Errorf("profile %q: 'root_marked_by' must contain at least one file or directory name", command)
	}
	lists := []struct {
		field string
		names []string
	}{
		{"root_marked_by", p.RootMarkedBy},
		{"allow_network_subcommands", p.AllowNetworkSubcommands},
		{"deny_subcommands", p.DenySubcommands},
		{"projectless_subcommands", p.ProjectlessSubcommands},
	}
	for _, list := range lists {
		for _, name := range list.names {
			if err := checkName(list.field, name); err != nil {
				return fmt.Errorf("profile %q: %w", command, err)
			}
		}
	}
	for alias, canonical := range p.SubcommandAliases {
		if err := checkName("subcommand_aliases key", alias); err != nil {
			return fmt.Errorf("profile %q: %w", command, err)
		}
		if err := checkName("subcommand_aliases value", canonical); err != nil {
			return fmt.Errorf("profile %q: %w", command, err)
		}
	}
	return nil
}

// checkName rejects likely end-user misunderstandings in fields expecting a
// bare file, command, or subcommand name. A path separator means someone
// wrote a path where a name belongs; whitespace means someone expected
// shell-style word splitting; NUL can't cross an OS API boundary at all.
// Rejecting pathological-but-technically-possible names is preferred over
// accepting the much likelier case of bad data in a security policy.
func checkName(field, name string) error {
	if name == "" {
		return fmt.Errorf("%s: name must not be empty", field)
	}
	for _, r := range name {
		switch {
		case r == '/' || r == os.PathSeparator:
			return fmt.Errorf("%s: name %q must not contain a path separator", field, name)
		case unicode.IsSpace(r):
			return fmt.Errorf("%s: name %q must not contain whitespace", field, name)
		case r == 0:
			return fmt.Errorf("%s: name %q must not contain a null byte", field, name)
		}
	}
	return nil
}

// checkRelativePath rejects root_blacklist entries that could not anchor
// cleanly under a project root: absolute paths, paths that traverse above
// the root, and the same pathological characters checkName rejects. An
// entry that escaped the root would silently deny access to paths in an
// unrelated part of the filesystem.
func checkRelativePath(field, path string) error {
	if path == "" {
		return fmt.Errorf("%s: path must not be empty", field)
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("%s: path %q must be relative to the project root", field, path)
	}
	for _, r := range path {
		switch {
		case unicode.IsSpace(r):
			return fmt.Errorf("%s: path %q must not contain whitespace", field, path)
		case r == 0:
			return fmt.Errorf("%s: path %q must not contain a null byte", field, path)
		}
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("%s: path %q must not traverse above the project root", field, path)
	}
	return nil
}

// FindConfigPath returns the path where the configuration file lives (or
// would live): ConfigFileName inside $XDG_CONFIG_HOME when that is set,
// absolute, and an existing directory, otherwise inside $HOME/.config under
// the same checks.
//
// An unusable $XDG_CONFIG_HOME falls back to $HOME per the XDG Base
// Directory spec; an unusable $HOME is an error. Directories are never
// created: a sandboxing tool does not "make it fit".
func FindConfigPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		if err := checkConfigDir(xdg); err == nil {
			return filepath.Join(xdg, ConfigFileName), nil
		}
	}
	home := os.Getenv("HOME")
	if home == "" {
		if dir, err := os.UserHomeDir(); err == nil {
			home = dir
		}
	}
	if home == "" {
		return "", errors.New("cannot locate config directory: neither XDG_CONFIG_HOME nor HOME is usable")
	}
	dir := filepath.Join(home, ".config")
	if err := checkConfigDir(home); err != nil {
		return "", fmt.Errorf("cannot locate config directory: %w", err)
	}
	if err := checkConfigDir(dir); err != nil {
		return "", fmt.Errorf("cannot locate config directory: %w", err)
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// checkConfigDir rejects candidate config directories that are relative,
// nonexistent, or not directories.
func checkConfigDir(dir string) error {
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("%q is not an absolute path", dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%q is not usable: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", dir)
	}
	return nil
}

// WriteDefaultConfig saves the built-in policy to path so the operator can
// customize it. Refuses to overwrite an existing file.
func WriteDefaultConfig(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := file.WriteString(defaultConfigTOML); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
