package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/romkit/internal/logger"
	"github.com/joshuapare/romkit/pkg/romerr"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "romctl",
	Short: "Inspect, patch and edit SNES ROM images",
	Long: `romctl is a tool for working with SNES ROM images. It reports header
metadata, creates and applies IPS patches, exports and imports data tables
described by YAML schema files, and plans free space inside an image.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write structured debug logs to this file")
}

func initLogging() error {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	return logger.Init(logger.Options{
		Enabled: verbose || logFile != "",
		File:    logFile,
		Level:   level,
	})
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		if verbose {
			fmt.Fprintln(os.Stderr, romerr.Details(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// formatSize renders a byte count the way info reports file sizes.
func formatSize(size int) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%d bytes", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	}
}
