package cli

import (
	"context"

	"cvcoach/internal/common"
	"cvcoach/internal/config"
	"cvcoach/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "cvcoach",
	Short: "Interactive résumé coach for the Brazilian job market",
	Long: `cvcoach walks a candidate from a raw CV to an optimized one. It reads the
CV, scores it against the target role like an ATS would, checks the salary
expectation against market bands and runs a guided conversation that rewrites
the experiences and the LinkedIn profile. The conversation is in Portuguese.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// outputFlags registers --output and --format on cmd
func outputFlags(cmd *cobra.Command, cfg *common.CommandConfig) {
	cmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cfg.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return getConfigFromContext(cmd.Context()).App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveFormat applies the configured default and validates the result
func resolveFormat(cmd *cobra.Command, cmdCfg *common.CommandConfig) error {
	cfg := getConfigFromContext(cmd.Context())
	if cmdCfg.OutputFormat == "" {
		cmdCfg.OutputFormat = cfg.App.DefaultFormat
	}
	cmdCfg.OutputFormat = common.NormalizeFormat(cmdCfg.OutputFormat)
	return common.ValidateOutputFormat(cmdCfg.OutputFormat, cfg.App.SupportedFormats)
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(salaryCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
