// Zugctl is a command line client for V-ZUG home appliances.
//
// It talks to the appliance's local HTTP interface to read device
// state, consumption data and firmware update status, to browse and
// change the configuration tree, and to start or modify programs.
// Appliances can be addressed directly by URL or through named entries
// in a local registry file.
//
// Usage:
//
//	zugctl [command] [flags]
//
// See 'zugctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openzug/openzug/internal/logging"
	"github.com/openzug/openzug/internal/version"
)

func main() {
	logging.InitializeFromEnv()
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zugctl",
	Short: "V-ZUG Appliance Command Line Client",
	Long: `A command line client for V-ZUG home appliances.

Reads device state, eco consumption data and firmware update status,
browses and changes the configuration tree, and starts or modifies
programs over the appliance's local HTTP interface.

Appliances can be addressed directly with --host or through named
entries managed with 'zugctl devices'.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("zugctl %s\n", version.Full())
	},
}
