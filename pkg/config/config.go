package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xplshn/ratc/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatTrace Feature = iota
	FeatCalls
	FeatDigitSuffix
	FeatCount
)

type Warning int

const (
	WarnUnused Warning = iota
	WarnCall
	WarnReturn
	WarnInvalid
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	BackendName string
	QbeTarget   string
	TargetArch  string
	WordSize    int
	WordType    string
}

func NewConfig() *Config {
	cfg := &Config{
		FeatureMap:  make(map[string]Feature),
		WarningMap:  make(map[string]Warning),
		BackendName: "listing",
		WordSize:    8,
		WordType:    "l",
	}

	cfg.Features = map[Feature]Info{
		FeatTrace:       {"trace", false, "Record which grammar rule fired for which token."},
		FeatCalls:       {"calls", true, "Accept function call syntax 'f(a, b)' inside expressions."},
		FeatDigitSuffix: {"digit-suffix", false, "Accept identifiers that end in a digit, such as 'a1'."},
	}

	cfg.Warnings = map[Warning]Info{
		WarnUnused:  {"unused", true, "Warn about identifiers that are declared but never used."},
		WarnCall:    {"call", false, "Warn that a function call generates no call linkage."},
		WarnReturn:  {"return", false, "Warn that 'ret' generates no control transfer."},
		WarnInvalid: {"invalid", true, "Warn about each invalid token produced by the tokenizer."},
	}

	for ft, info := range cfg.Features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range cfg.Warnings {
		cfg.WarningMap[info.Name] = wt
	}
	return cfg
}

// SetTarget configures the native backends for an architecture and QBE target.
func (c *Config) SetTarget(goos, goarch, qbeTarget string) {
	if qbeTarget == "" {
		c.QbeTarget = libqbe.DefaultTarget(goos, goarch)
	} else {
		c.QbeTarget = qbeTarget
	}
	c.TargetArch = goarch

	switch c.QbeTarget {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		c.WordSize, c.WordType = 8, "l"
	case "arm", "rv32":
		c.WordSize, c.WordType = 4, "w"
	default:
		fmt.Fprintf(os.Stderr, "ratc: warning: unrecognized QBE target '%s', defaulting to 64-bit words\n", c.QbeTarget)
		c.WordSize, c.WordType = 8, "l"
	}
}

func (c *Config) SetBackend(name string) error {
	switch name {
	case "listing", "qbe", "llvm":
		c.BackendName = name
		return nil
	}
	return fmt.Errorf("unsupported backend '%s'. Supported: 'listing', 'qbe', 'llvm'", name)
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

func (c *Config) SetAllWarnings(enabled bool) {
	for i := Warning(0); i < WarnCount; i++ {
		c.SetWarning(i, enabled)
	}
}

// ApplyFlag handles one -W<name>, -Wno-<name>, -F<name> or -Fno-<name> switch.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	if len(trimmed) < 2 || (trimmed[0] != 'W' && trimmed[0] != 'F') {
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	isWarning := trimmed[0] == 'W'
	name := trimmed[1:]
	enable := !strings.HasPrefix(name, "no-")
	name = strings.TrimPrefix(name, "no-")

	if isWarning {
		if name == "all" {
			c.SetAllWarnings(enable)
			return nil
		}
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}

	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// SetupFlagGroups registers -W and -F groups on fs. The returned entries are
// indexed by Warning and Feature respectively; apply them with ApplyFlagGroups.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) (warningFlags, featureFlags []cli.FlagGroupEntry) {
	warningFlags = make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warningFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: new(bool), Disabled: new(bool), Default: info.Enabled,
		}
	}
	featureFlags = make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		featureFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: new(bool), Disabled: new(bool), Default: info.Enabled,
		}
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies parsed group switches into the config. Disabling wins.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
