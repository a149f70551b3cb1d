// Package cmd provides the CLI command structure for swarmops.
// Commands are organized into domain-specific subpackages:
//   - run/: phase lifecycle (init-phase, dispatch-worker, complete-worker, status)
//   - mergecmd/: merge engine operations for operator debugging
//     (merge, resume, stats, conflicts)
//   - review/: review chain operations (trigger, decide, fix-complete)
//   - logs/: debug log aggregation, filtering, and export (logs)
package cmd

import (
	"strings"

	"github.com/karlmjogila/swarmops/internal/cmd/logs"
	"github.com/karlmjogila/swarmops/internal/cmd/mergecmd"
	"github.com/karlmjogila/swarmops/internal/cmd/review"
	"github.com/karlmjogila/swarmops/internal/cmd/run"
	appconfig "github.com/karlmjogila/swarmops/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "swarmops",
	Short: "Multi-agent code-change orchestrator",
	Long: `swarmops coordinates a phase of parallel coding agents: it collects their
worktree branches, folds them sequentially into a phase branch, dispatches
conflict resolution when a fold fails, and runs the resulting phase branch
through a sequential review chain.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $ORCHESTRATOR_DATA_DIR/swarmops.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	run.Register(rootCmd)
	mergecmd.Register(rootCmd)
	review.Register(rootCmd)
	logs.Register(rootCmd)
}

func initConfig() {
	appconfig.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("swarmops")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appconfig.DataDirectory())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SWARMOPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = viper.ReadInConfig()
}
