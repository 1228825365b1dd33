package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rainierwolfcastle/nqcc/pkg/cli"
	"modernc.org/libqbe"
)

type Warning int

const (
	WarnShadow Warning = iota
	WarnImplicitReturn
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

// Stage names a point after which the driver stops.
type Stage int

const (
	StageAll Stage = iota
	StageLex
	StageParse
	StageValidate
	StageTacky
	StageCodegen
)

type Config struct {
	Warnings         map[Warning]Info
	WarningMap       map[string]Warning
	WarningsAsErrors bool
	WarningsIssued   int

	BackendName    string
	BackendTarget  string
	GOOS, GOARCH   string
	SymbolPrefix   string
	LabelPrefix    string
	GNUStackNote   bool
	PLTCalls       bool
	StackAlignment int
	WordSize       int
	Quiet          bool

	LinkerArgs []string
}

func NewConfig() *Config {
	cfg := &Config{
		Warnings:       make(map[Warning]Info),
		WarningMap:     make(map[string]Warning),
		BackendName:    "x86_64",
		StackAlignment: 16,
		WordSize:       4,
	}

	warnings := map[Warning]Info{
		WarnShadow:         {"shadow", false, "Warn when a local declaration hides an outer one."},
		WarnImplicitReturn: {"implicit-return", true, "Warn when a function body can reach its end without a return."},
		WarnExtra:          {"extra", false, "Enable extra miscellaneous warnings."},
	}

	cfg.Warnings = warnings
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}
	cfg.SetTarget("linux", "amd64", "")
	return cfg
}

// SetTarget selects the backend and derives the assembler naming conventions for goos.
// backend is "x86_64" (or empty) for the native selector, or "qbe" optionally
// followed by "/<qbe-target>".
func (c *Config) SetTarget(goos, goarch, backend string) error {
	c.GOOS, c.GOARCH = goos, goarch

	name, qbeTarget, _ := strings.Cut(backend, "/")
	switch name {
	case "", "x86_64", "amd64":
		c.BackendName = "x86_64"
	case "qbe":
		c.BackendName = "qbe"
	default:
		return fmt.Errorf("unsupported backend '%s'. Supported: 'x86_64', 'qbe'", name)
	}

	if qbeTarget == "" {
		qbeTarget = libqbe.DefaultTarget(goos, "amd64")
	}
	switch qbeTarget {
	case "amd64_sysv", "amd64_apple":
		c.BackendTarget = qbeTarget
	default:
		return fmt.Errorf("unsupported QBE target '%s'. Supported: 'amd64_sysv', 'amd64_apple'", qbeTarget)
	}

	if goarch != "amd64" && !c.Quiet {
		fmt.Fprintf(os.Stderr, "nqcc: warning: host architecture '%s' is not x86-64, the output will not run natively\n", goarch)
	}

	if goos == "darwin" {
		c.SymbolPrefix, c.LabelPrefix, c.GNUStackNote, c.PLTCalls = "_", "L", false, false
	} else {
		c.SymbolPrefix, c.LabelPrefix, c.GNUStackNote, c.PLTCalls = "", ".L", true, true
	}
	return nil
}

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyWarningFlag handles -W<name>, -Wno-<name>, -Wall and -Werror.
func (c *Config) ApplyWarningFlag(flag string) error {
	name := strings.TrimPrefix(strings.TrimPrefix(flag, "-"), "W")
	enable := true
	if strings.HasPrefix(name, "no-") {
		name, enable = strings.TrimPrefix(name, "no-"), false
	}

	switch name {
	case "all":
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	case "error":
		c.WarningsAsErrors = enable
		return nil
	}

	w, ok := c.WarningMap[name]
	if !ok {
		return fmt.Errorf("unknown warning '%s'", name)
	}
	c.SetWarning(w, enable)
	return nil
}

// SetupFlagGroups registers -W<name> and -Wno-<name> on fs for every warning.
// The returned entries are filled in when fs is parsed.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) []cli.FlagGroupEntry {
	entries := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		entries[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}
	fs.AddFlagGroup("Warning Flags", "", "warning", "Available Warning Flags:", entries)
	return entries
}

// ApplyFlagGroups copies parsed -W<name> and -Wno-<name> flags into c.
func (c *Config) ApplyFlagGroups(entries []cli.FlagGroupEntry) {
	for i, entry := range entries {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
}
