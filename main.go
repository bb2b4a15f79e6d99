// Command asyncrl launches hashing exploration bonus sweeps and
// evaluates deterministic mean MLP policies.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samuelfneumann/asyncrl/experiment"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	v          = viper.New()
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "asyncrl",
	Short: "Asynchronous RL experiment launcher",
	Long: `asyncrl launches parameter sweeps of asynchronous deep RL agents
with a hashing exploration bonus, locally, in docker, or on EC2 spot
instances.

Settings are read from flags, ASYNCRL_* environment variables, and an
optional config file, in that order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile == "" {
			return nil
		}
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("could not read config %v: %v", configFile, err)
		}
		return nil
	},
}

func init() {
	defaults := experiment.DefaultSettings()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Config file (yaml, json, or toml)")
	rootCmd.PersistentFlags().String("log-level", defaults.LogLevel,
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("ledger", defaults.Ledger,
		"SQLite ledger of launched jobs, empty to disable")
	bindFlag(rootCmd.PersistentFlags(), "log-level")
	bindFlag(rootCmd.PersistentFlags(), "ledger")

	v.SetEnvPrefix("ASYNCRL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd.AddCommand(sweepCmd(), policyCmd(), jobsCmd())
}

// bindFlag binds a flag to the viper key of the same name with dashes
// replaced by underscores
func bindFlag(flags *pflag.FlagSet, name string) {
	key := strings.ReplaceAll(name, "-", "_")
	if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(err)
	}
}

// newLogger returns a logger writing to stderr at the configured level
func newLogger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return zerolog.Nop(), err
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level),
		nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
