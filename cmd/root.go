package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/olusolaa/sandbox-differ/internal/adapters/metadata/static"
	"github.com/olusolaa/sandbox-differ/internal/app"
	apperrors "github.com/olusolaa/sandbox-differ/internal/errors"
)

var (
	cfgFile   string
	outputDir string
	logLevel  string
	logFormat string
	verbose   bool
	noColor   bool
	metaPairs []string
)

var rootCmd = &cobra.Command{
	Use:   "sandbox-differ",
	Short: "Snapshots an app's private storage and reports what changed since a baseline.",
	Long: `Sandbox Differ captures a content-hash baseline of an application's private
storage tree and later compares the current tree against it, reporting added,
removed and modified files plus line-level changes to preference files and
hash-level changes to databases.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default is .sandbox-differ.yaml in the working or home directory)")
	flags.StringVarP(&outputDir, "output-dir", "o", "", "Directory holding baselines and reports")
	flags.StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "Override log format (text, json)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored console output")
	flags.StringArrayVar(&metaPairs, "meta", nil, "Environment fact recorded with a baseline, as key=value (repeatable)")

	viper.BindPFlag("store.dir", flags.Lookup("output-dir"))
	viper.BindPFlag("settings.log_level", flags.Lookup("log-level"))
	viper.BindPFlag("settings.log_format", flags.Lookup("log-format"))
	viper.BindPFlag("reporting.text.no_color", flags.Lookup("no-color"))

	viper.SetEnvPrefix("SANDBOX_DIFFER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	app.RegisterDefaults(viper.GetViper())

	rootCmd.AddCommand(newBaselineCmd(), newCompareCmd())
}

func initializeConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".sandbox-differ")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return apperrors.WrapUserFacing(err, apperrors.CodeConfigReadError,
				"failed to read config file", "Check that the file passed with --config exists and is valid YAML.")
		}
	}

	if verbose {
		viper.Set("settings.log_level", "debug")
	}
	return nil
}

// buildApplication wires the application for a subcommand from the global
// viper state and the persistent flags.
func buildApplication(cmd *cobra.Command) (*app.Application, error) {
	meta, err := static.ParsePairs(metaPairs)
	if err != nil {
		return nil, err
	}
	return app.BuildApplicationFromViper(cmd.Context(), viper.GetViper(), app.Options{
		Console:  cmd.OutOrStdout(),
		Metadata: meta,
	})
}

func printError(w io.Writer, err error) {
	userMsg, suggestion, ok := apperrors.GetUserFacingMessage(err)
	if !ok && apperrors.GetCode(err) == apperrors.CodeUnknown {
		// usage errors from cobra itself
		userMsg, suggestion = err.Error(), "Run with --help for usage."
	}
	fmt.Fprintf(w, "ERROR: %s\n", userMsg)
	if suggestion != "" {
		fmt.Fprintf(w, "Suggestion: %s\n", suggestion)
	}
}
