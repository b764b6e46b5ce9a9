package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/crate/pkg/crate/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "crate",
		Short: "Find and resolve duplicate tracks in a music library",
		Long: `Crate scans a music library for duplicate tracks, picks the copy to keep
in every group, and reports, moves or deletes the rest.

Examples:
  crate dupes --source ~/Music                         # report duplicates
  crate dupes --source ~/Music --compare ~/Downloads   # only cross-folder duplicates
  crate dupes --source ~/Music --action move \
        --review-dir ~/Review --dry-run                # preview a move
  crate history                                        # past move/delete runs`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/crate/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only print results")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output on stderr")

	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in the config file and environment variables.
func initConfig() {
	config.SetDefaults(viper.GetViper())
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	if err := config.Read(viper.GetViper()); err != nil {
		printError("%v", err)
	}
}

// loadConfig decodes the merged file, environment and flag settings.
func loadConfig() (*config.Config, error) {
	return config.Decode(viper.GetViper())
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		return err
	}
	return nil
}

func getVerbose() bool {
	return viper.GetBool("verbose")
}

func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints to w unless quiet mode is enabled.
func printInfo(w io.Writer, format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(w, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
