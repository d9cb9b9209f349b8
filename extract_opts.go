package sceimg

// ExtractOption configures an extraction run.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	format      ImageFormat
	overwrite   bool
	workers     int
	only        []int
	filter      string
	progress    ProgressFunc
	summaryFile bool
}

func newExtractConfig(opts []ExtractOption) extractConfig {
	cfg := extractConfig{overwrite: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// ExtractWithFormat sets the output image format. The default is PNG.
func ExtractWithFormat(format ImageFormat) ExtractOption {
	return func(c *extractConfig) {
		c.format = format
	}
}

// ExtractWithOverwrite controls whether existing output files are replaced.
// By default they are; with overwrite disabled, existing files are counted
// as skipped.
func ExtractWithOverwrite(overwrite bool) ExtractOption {
	return func(c *extractConfig) {
		c.overwrite = overwrite
	}
}

// ExtractWithWorkers sets the number of workers for parallel processing.
// Values < 0 force serial processing. Zero uses automatic heuristics.
// Values > 0 force a specific worker count.
func ExtractWithWorkers(n int) ExtractOption {
	return func(c *extractConfig) {
		c.workers = n
	}
}

// ExtractWithOnly restricts the run to the given record indices.
// Unknown indices are ignored.
func ExtractWithOnly(indices ...int) ExtractOption {
	return func(c *extractConfig) {
		c.only = indices
	}
}

// ExtractWithFilter restricts the run to records whose dir-qualified name
// matches the given path.Match pattern (e.g. "backgrounds/*").
func ExtractWithFilter(pattern string) ExtractOption {
	return func(c *extractConfig) {
		c.filter = pattern
	}
}

// ExtractWithProgress registers a callback invoked once per processed
// record. The callback must be safe for concurrent calls.
func ExtractWithProgress(fn ProgressFunc) ExtractOption {
	return func(c *extractConfig) {
		c.progress = fn
	}
}

// ExtractWithSummaryFile controls whether a machine-readable summary of
// exported records is written to the destination directory (see
// SummaryFileName). Disabled by default.
func ExtractWithSummaryFile(enabled bool) ExtractOption {
	return func(c *extractConfig) {
		c.summaryFile = enabled
	}
}
