package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tmzncty/modelverify/pkg/verify/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "modelverify [repository]",
		Short: "Verify a locally cached model repository against its official manifest",
		Long: `Modelverify checks that every file of a locally cached model repository
matches the SHA-256 digest and size published by the ModelScope hub, and
can repair the cache by deleting mismatched files and re-downloading the
full repository.

Examples:
  modelverify Qwen/Qwen3-235B-A22B --local-dir /AISPK/Qwen/Qwen3-235B-A22B
  modelverify -o json Qwen/Qwen3-235B-A22B        # machine-readable report
  modelverify --repair Qwen/Qwen3-235B-A22B       # verify, then prompt to repair
  modelverify history                             # past verification runs`,
		Args: cobra.MaximumNArgs(1),
		RunE: runVerify,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/modelverify/config.yaml)")
	rootCmd.PersistentFlags().StringP("local-dir", "l", "", "local model directory to verify")
	rootCmd.PersistentFlags().StringP("revision", "r", "", "manifest revision (default: master)")
	rootCmd.PersistentFlags().String("cache-root", "", "snapshot cache directory used when re-downloading")
	rootCmd.PersistentFlags().String("api-base", "", "ModelScope API base URL")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "digest worker count (0=auto, capped at 8)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "report format: pretty, plain, json")
	rootCmd.PersistentFlags().Bool("repair", false, "offer to delete mismatched files and re-download")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "answer yes to all confirmation prompts")
	rootCmd.PersistentFlags().Bool("cache", false, "reuse digests of unchanged files from the digest cache")
	rootCmd.PersistentFlags().Bool("watch", false, "flag files modified by other processes during the scan")
	rootCmd.PersistentFlags().Bool("fetch-debug", false, "enable downloader SDK debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("local_dir", rootCmd.PersistentFlags().Lookup("local-dir"))
	_ = viper.BindPFlag("revision", rootCmd.PersistentFlags().Lookup("revision"))
	_ = viper.BindPFlag("cache_root", rootCmd.PersistentFlags().Lookup("cache-root"))
	_ = viper.BindPFlag("api_base", rootCmd.PersistentFlags().Lookup("api-base"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("repair", rootCmd.PersistentFlags().Lookup("repair"))
	_ = viper.BindPFlag("yes", rootCmd.PersistentFlags().Lookup("yes"))
	_ = viper.BindPFlag("cache.enabled", rootCmd.PersistentFlags().Lookup("cache"))
	_ = viper.BindPFlag("watch", rootCmd.PersistentFlags().Lookup("watch"))
	_ = viper.BindPFlag("fetch_debug", rootCmd.PersistentFlags().Lookup("fetch-debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "modelverify"))
		}
	}

	viper.SetEnvPrefix("MODELVERIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints a message unless quiet mode is enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
