package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qlp-hq/production-scheduler/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Production scheduling engine",
	Long:  "scheduler builds a dependency graph from a data bundle and schedules it against team capacities, shifts, and the working calendar.",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .scheduler.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(optimizeMakespanCmd)
	rootCmd.AddCommand(optimizeLatenessCmd)
	rootCmd.AddCommand(validateCmd)
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".scheduler")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("SCHED")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	debug, _ := rootCmd.Flags().GetBool("debug")
	logCfg := logger.DefaultConfig()
	if debug || viper.GetBool("debug") {
		logCfg.Level = logger.DEBUG
	}
	_ = logger.InitLogger(logCfg)
}
