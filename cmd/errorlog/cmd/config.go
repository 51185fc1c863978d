package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"errorlog/internal/config"
)

var exampleOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate configuration",
}

var configExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print an annotated example configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		example := config.NewLoader().GenerateExample()

		if exampleOutput == "" {
			fmt.Fprint(cmd.OutOrStdout(), example)
			return nil
		}

		if err := os.WriteFile(exampleOutput, []byte(example), 0644); err != nil {
			return fmt.Errorf("failed to write example: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Example configuration written to %s\n", exampleOutput)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.NewLoader().ValidateFile(args[0]); err != nil {
			return fmt.Errorf("invalid configuration %s: %w", args[0], err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration %s is valid\n", args[0])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out, err := cfg.YAML()
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	configExampleCmd.Flags().StringVarP(&exampleOutput, "output", "o", "", "Write the example to a file instead of stdout")

	configCmd.AddCommand(configExampleCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
