package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	sceimg "github.com/North101/sce-image-extractor"
)

var listCmd = &cobra.Command{
	Use:   "list <manifest.json>",
	Short: "List the records declared in a manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(_ *cobra.Command, args []string) error {
	m, err := sceimg.LoadManifestFile(args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tID\tOFFSET\tLENGTH\tSIZE\tFORMAT\tCOMPRESSION")
	for i := range m.Records {
		rec := &m.Records[i]
		compression := rec.Compression
		if compression == "" {
			compression = "none"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%dx%d\t%s\t%s\n",
			i, rec.Name(i), rec.Offset, rec.Length, rec.Width, rec.Height,
			rec.Format, compression)
	}
	return w.Flush()
}
