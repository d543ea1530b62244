package runner

import "github.com/php-hints/phphints/resolver"

// FileResult holds the hints computed for one file.
type FileResult struct {
	Path  string
	Text  string
	Hints []resolver.Hint
	Err   error
}

// Result aggregates a run.
type Result struct {
	Files  []FileResult
	Hints  int
	Errors int
}

// NewResult creates an empty Result.
func NewResult() *Result {
	return &Result{}
}

// Add records one file.
func (r *Result) Add(f FileResult) {
	r.Files = append(r.Files, f)

	if f.Err != nil {
		r.Errors++

		return
	}

	r.Hints += len(f.Hints)
}

// Ok reports whether every file was processed.
func (r *Result) Ok() bool {
	return r.Errors == 0
}

// FailedFiles returns the files that could not be processed.
func (r *Result) FailedFiles() []FileResult {
	var failed []FileResult

	for _, f := range r.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}

	return failed
}
