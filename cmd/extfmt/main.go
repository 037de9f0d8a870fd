// Command extfmt is a thin CLI over pkg/ext/format (spec.md §6):
// everything here is argument parsing and wiring, with no formatting
// logic of its own, following direktiv-vorteil's cmd/vorteil main.go
// convention of a small main() that hands off to a cobra root command
// and exits 1 on any error.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "extfmt",
	Short: "Format devices and images as native ext2, ext3, or ext4 filesystems",
	Long: `extfmt writes ext2, ext3, and ext4 filesystems directly, without shelling
out to mke2fs or any other external tool.`,
}

func init() {
	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(dryRunCmd)
	rootCmd.AddCommand(verifyCmd)
}
