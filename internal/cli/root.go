package cli

import (
	"fmt"
	"strings"

	"trivia-party/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Options are the persistent flags shared by every subcommand.
type Options struct {
	ConfigPath string
	Port       string
	Store      string
	Verbose    bool
}

// Execute runs the CLI.
func Execute() error {
	// Variables from .env are visible to the TRIVIA_* flag bindings below.
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return newRootCmd(&Options{}).Execute()
}

func newRootCmd(opts *Options) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TRIVIA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "trivia-party",
		Short:         "Team trivia game host: category picks, question rounds and a timed leaderboard",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&opts.ConfigPath, "config", "config/config.yaml", "path to YAML config (env: TRIVIA_CONFIG)")
	fs.StringVar(&opts.Port, "port", "", "port to listen on, overrides server.port (env: TRIVIA_PORT)")
	fs.StringVar(&opts.Store, "store", "", "record store: memory, redis, sqlite or postgres; empty picks the first configured (env: TRIVIA_STORE)")
	fs.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging (env: TRIVIA_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(NewStartCmd(opts))
	cmd.AddCommand(NewMigrateCmd(opts))
	cmd.AddCommand(NewImportCatalogCmd(opts))
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}
