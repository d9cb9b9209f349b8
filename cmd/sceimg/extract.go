package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	sceimg "github.com/North101/sce-image-extractor"
)

var extractFlags struct {
	payload   string
	output    string
	format    string
	filter    string
	only      []int
	overwrite bool
	workers   int
	summary   bool
	verbose   bool
}

var extractCmd = &cobra.Command{
	Use:   "extract <manifest.json>",
	Short: "Extract manifest records to image files",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVarP(&extractFlags.payload, "payload", "p", "", "payload file (default: the manifest's payload field)")
	f.StringVarP(&extractFlags.output, "output", "o", "./images", "output directory")
	f.StringVarP(&extractFlags.format, "format", "f", "png", "output image format (png, bmp, tiff)")
	f.StringVar(&extractFlags.filter, "filter", "", "only extract records whose name matches this glob")
	f.IntSliceVar(&extractFlags.only, "only", nil, "only extract these record indices")
	f.BoolVar(&extractFlags.overwrite, "overwrite", true, "overwrite existing output files")
	f.IntVar(&extractFlags.workers, "workers", 0, "worker count (0 auto, <0 serial)")
	f.BoolVar(&extractFlags.summary, "summary", false, "write "+sceimg.SummaryFileName+" to the output directory")
	f.BoolVarP(&extractFlags.verbose, "verbose", "v", false, "log per-record progress")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	format, err := sceimg.ParseImageFormat(extractFlags.format)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if extractFlags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	archive, err := sceimg.OpenFile(args[0], extractFlags.payload, sceimg.WithLogger(logger))
	if err != nil {
		return err
	}
	defer archive.Close()

	opts := []sceimg.ExtractOption{
		sceimg.ExtractWithFormat(format),
		sceimg.ExtractWithOverwrite(extractFlags.overwrite),
		sceimg.ExtractWithWorkers(extractFlags.workers),
		sceimg.ExtractWithSummaryFile(extractFlags.summary),
	}
	if len(extractFlags.only) > 0 {
		opts = append(opts, sceimg.ExtractWithOnly(extractFlags.only...))
	}
	if extractFlags.filter != "" {
		opts = append(opts, sceimg.ExtractWithFilter(extractFlags.filter))
	}

	summary, err := archive.Extract(cmd.Context(), extractFlags.output, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("extracted %d, skipped %d, failed %d\n",
		summary.Extracted, summary.Skipped, summary.Failed)
	for _, failure := range summary.Failures {
		if failure.ID != "" {
			fmt.Fprintf(os.Stderr, "record %d (%s): %v\n", failure.Record, failure.ID, failure.Err)
		} else {
			fmt.Fprintf(os.Stderr, "record %d: %v\n", failure.Record, failure.Err)
		}
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d record(s) failed", summary.Failed)
	}
	return nil
}
