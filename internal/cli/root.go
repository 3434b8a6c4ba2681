// Package cli implements the vshadowinfo command-line tool: a thin,
// read-only inspection front end over pkg/volume, in the cobra/viper
// style of deploymenttheory-go-apfs's cmd package.
package cli

import (
	"fmt"
	"os"

	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-vshadow/pkg/vsslog"
	"github.com/deploymenttheory/go-vshadow/pkg/vssopts"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	volumeOffset int64
	cfgFile      string
)

var rootCmd = &cobra.Command{
	Use:   "vshadowinfo",
	Short: "Read-only inspector for Windows Volume Shadow Copy snapshots",
	Long: `vshadowinfo is a read-only command-line tool for exploring Volume
Shadow Copy Service (VSS) snapshots embedded in an NTFS volume image.

It works directly against a raw disk image or a range within one, without
requiring Windows or a live VSS service.

Commands:
  info     Show volume and store summary information
  list     List the stores (snapshots) found in a volume
  blocks   Enumerate the decoded block descriptors for one store
  extract  Reconstruct a snapshot's logical volume image to a file`,
	Version: "0.1.0-dev",
}

// Execute runs the root command, exiting the process with status 1 on
// error.
func Execute() {
	cobra.OnInitialize(initConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose diagnostics")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (not used: every command prints plain text)")
	rootCmd.PersistentFlags().Int64Var(&volumeOffset, "volume-offset", 0, "byte offset of the volume header within the image, when the VSS-bearing volume is embedded in a larger image")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.vshadowinfo.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".vshadowinfo")
		}
	}
	viper.SetEnvPrefix("VSHADOWINFO")
	viper.AutomaticEnv()
	_ = viper.BindEnv("volume-offset", "VSHADOWINFO_VOLUME_OFFSET")
	_ = viper.BindPFlags(rootCmd.PersistentFlags())
	_ = viper.ReadInConfig()

	// A flag given on the command line wins over the environment, which
	// wins over the config file.
	verbose = viper.GetBool("verbose")
	quiet = viper.GetBool("quiet")
	volumeOffset = viper.GetInt64("volume-offset")
}

// loggerFromFlags builds a diagnostic logger honoring -v/-q, grounded on
// funcr (go-logr/logr's dependency-free stderr backend) so the CLI does
// not need an extra logging library beyond the logr abstraction already
// used throughout the module.
func loggerFromFlags() *vsslog.Logger {
	if quiet {
		return vsslog.Discard()
	}
	level := vsslog.LevelInfo
	if verbose {
		level = vsslog.LevelTrace
	}
	log := funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
		} else {
			fmt.Fprintln(os.Stderr, args)
		}
	}, funcr.Options{Verbosity: level})
	return vsslog.New(log)
}

func openOptions() []vssopts.Option {
	return []vssopts.Option{
		vssopts.WithLogger(loggerFromFlags()),
		vssopts.WithVolumeOffset(volumeOffset),
		vssopts.WithVerboseDiagnostics(verbose),
	}
}
