package main

import (
	"fmt"
	"os"

	"github.com/obentoo/sbupdate/internal/common/config"
	"github.com/obentoo/sbupdate/internal/common/logger"
	"github.com/obentoo/sbupdate/internal/common/output"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	quiet      bool
	noColor    bool
	logToFile  bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "sbupdate",
	Short: "Stage SlackBuilds for new upstream releases",
	Long: `sbupdate checks vendor sites for new releases of unsupported Slackware
packages. For every new version it copies the package template into the build
directory, downloads the sources, and fills in VERSION and MD5SUM in the .info file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetVerbose(true)
		}
		if quiet {
			logger.SetQuiet(true)
		}
		if noColor {
			output.NoColor()
		}
		if logToFile {
			if err := logger.Default().EnableFileLogging(); err != nil {
				logger.Warn("Cannot write log file: %v", err)
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log", false, "Also log to $XDG_STATE_HOME/sbupdate/logs/sbupdate.log")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default ./pkg_build.cfg, then ~/.config/sbupdate/config.yaml)")
}

// loadConfig reads the configuration named by --config or found on the search path,
// and starts file logging when it asks for it
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.LogFile != "" {
		if err := logger.Default().EnableFileLoggingAt(cfg.LogFile); err != nil {
			logger.Warn("Cannot write log file: %v", err)
		}
	}
	return cfg, nil
}

func main() {
	defer logger.Default().Close()

	if err := rootCmd.Execute(); err != nil {
		logger.Error("%v", err)
		logger.Default().Close()
		os.Exit(1)
	}
}
