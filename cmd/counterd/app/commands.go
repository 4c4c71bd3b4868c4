// Package app provides the commands of counterd
package app

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set by the build
var Version = "dev"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "counterd",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Timeline counter service",
		Long: `counterd keeps the counters shown as timeline items consistent under
concurrent increment, decrement and reset notifications.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "counterd %s %s %s/%s\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
