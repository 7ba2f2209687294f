package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dropctl/dropctl/internal/dlog"
	"github.com/dropctl/dropctl/internal/dropctx"
)

// rootFlags holds the three global flags spec.md §6 names (level, env,
// dir), pre-seeded from an optional ~/.dropctl.yaml defaults file before
// cobra parses the command line, so flags always win over file defaults.
type rootFlags struct {
	level string
	env   string
	dir   string
}

// userDefaults is the optional ~/.dropctl.yaml shape (SPEC_FULL.md §B).
type userDefaults struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
	Dir   string `yaml:"dir"`
}

func loadUserDefaults() userDefaults {
	home, err := os.UserHomeDir()
	if err != nil {
		return userDefaults{}
	}
	raw, err := os.ReadFile(filepath.Join(home, ".dropctl.yaml"))
	if err != nil {
		return userDefaults{}
	}
	var d userDefaults
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return userDefaults{}
	}
	return d
}

func newRootCmd() *cobra.Command {
	defaults := loadUserDefaults()
	flags := &rootFlags{
		level: firstNonEmpty(defaults.Level, "info"),
		env:   firstNonEmpty(defaults.Env, "base"),
		dir:   firstNonEmpty(defaults.Dir, "."),
	}

	cmd := &cobra.Command{
		Use:           "dropctl",
		Short:         "dropctl runs declarative HTTP workflows described in .drop files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.level, "level", flags.level, "Log level: trace, debug, or info")
	cmd.PersistentFlags().StringVar(&flags.env, "env", flags.env, "Active environment name")
	cmd.PersistentFlags().StringVar(&flags.dir, "dir", flags.dir, "Configuration root to load .drop files from")

	cmd.AddCommand(newHitCmd(flags))
	cmd.AddCommand(newGiveCmd(flags))
	cmd.AddCommand(newSecretCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// withContext loads and validates the config under flags.dir, hands it to
// fn, and closes the store whether fn succeeds or not (original's
// process-scoped singleton lifecycle collapsed to one call's duration).
func withContext(flags *rootFlags, fn func(ctx *dropctx.Context) error) error {
	log := dlog.New(dlog.Options{Level: flags.level, Component: "cli"})
	ctx, err := dropctx.New(flags.dir, flags.env, log)
	if err != nil {
		return err
	}
	dropctx.Set(ctx)
	defer ctx.Close()
	return fn(ctx)
}
