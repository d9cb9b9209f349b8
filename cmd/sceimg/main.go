// Command sceimg extracts image assets from a game data container: a JSON
// manifest describing each embedded image plus the binary payload holding
// the raw bytes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sceimg",
	Short: "Extract images from a manifest-indexed data container",
	Long: `sceimg reads a JSON manifest describing images embedded in a binary
payload file, decodes each record (raw RGBA, grayscale, or palette-indexed
pixels, optionally zstd-compressed), and writes standard image files.

A record that cannot be decoded does not stop the run; failures are
reported at the end and reflected in the exit code.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sceimg:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
