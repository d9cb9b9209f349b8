package sceimg

// ProgressEvent reports one record's outcome during extraction.
type ProgressEvent struct {
	// Record is the record's zero-based manifest index.
	Record int

	// ID is the record's ID, if it has one.
	ID string

	// Path is the output file written for the record, relative to the
	// extraction destination. Empty when the record failed or was skipped.
	Path string

	// Done is the number of records processed so far, including this one.
	Done int

	// Total is the number of records selected for this run.
	Total int

	// Err is the record's failure, if any.
	Err error
}

// ProgressFunc receives progress updates during extraction.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)
