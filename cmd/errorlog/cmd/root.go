package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"errorlog/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "errorlog",
	Short: "Error log gateway",
	Long: `A reverse proxy that records panics raised while serving requests and
shows the most recent ones at a diagnostic path.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config when given and the defaults otherwise. The
// environment overrides both.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if configFile == "" {
		return loader.LoadDefault()
	}

	return loader.LoadFromFile(configFile)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file")
}
