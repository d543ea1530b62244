package runner

import (
	"fmt"
	"io"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/php-hints/phphints/resolver"
)

// TextFormatter prints each file's hinted lines with the labels inlined.
type TextFormatter struct {
	w      io.Writer
	styles *Styles

	// Full prints every line of each file rather than only hinted ones.
	Full bool
}

// NewTextFormatter creates a TextFormatter. A nil styles uses PlainStyles.
func NewTextFormatter(w io.Writer, styles *Styles) *TextFormatter {
	if styles == nil {
		styles = PlainStyles()
	}

	return &TextFormatter{w: w, styles: styles}
}

// HandleFile implements Handler.
func (f *TextFormatter) HandleFile(file FileResult) error {
	s := f.styles

	if file.Err != nil {
		_, err := fmt.Fprintf(f.w, "%s %s: %v\n", s.Error.Render(s.SymbolError), s.Path.Render(file.Path), file.Err)

		return err
	}

	if len(file.Hints) == 0 && !f.Full {
		return nil
	}

	_, err := fmt.Fprintf(f.w, "%s %s\n", s.Path.Render(file.Path), s.Dim.Render(countLabel(len(file.Hints))))
	if err != nil {
		return err
	}

	render := func(h resolver.Hint) string {
		return s.Hint.Render(h.Label) + " "
	}

	if f.Full {
		for i, line := range strings.Split(Annotate(file.Text, file.Hints, render), "\n") {
			if err := f.line(i, line); err != nil {
				return err
			}
		}

		return nil
	}

	annotated := AnnotatedLines(file.Text, file.Hints, render)

	for i := range strings.Count(file.Text, "\n") + 1 {
		line, ok := annotated[uint32(i)] //nolint:gosec // line numbers fit
		if !ok {
			continue
		}

		if err := f.line(i, line); err != nil {
			return err
		}
	}

	return nil
}

func (f *TextFormatter) line(i int, text string) error {
	_, err := fmt.Fprintf(f.w, "%s %s %s\n",
		f.styles.LineNumber.Render(fmt.Sprintf("%4d", i+1)),
		f.styles.Dim.Render(f.styles.Gutter),
		text)

	return err
}

// Summary implements Handler.
func (f *TextFormatter) Summary(result *Result) error {
	files := len(result.Files) - result.Errors

	msg := fmt.Sprintf("%s in %d %s", countLabel(result.Hints), files, plural(files, "file", "files"))
	if result.Errors > 0 {
		msg += ", " + f.styles.Error.Render(fmt.Sprintf("%d %s", result.Errors, plural(result.Errors, "error", "errors")))
	}

	_, err := fmt.Fprintf(f.w, "\n%s\n", f.styles.Bold.Render(msg))

	return err
}

func countLabel(n int) string {
	return fmt.Sprintf("%d %s", n, plural(n, "hint", "hints"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}

// JSONFormatter writes the whole run as one JSON document when the run
// completes.
type JSONFormatter struct {
	w io.Writer
}

// NewJSONFormatter creates a JSONFormatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{w: w}
}

type jsonFile struct {
	Path  string          `json:"path"`
	Hints []resolver.Hint `json:"hints"`
	Error string          `json:"error,omitempty"`
}

type jsonReport struct {
	Files  []jsonFile `json:"files"`
	Hints  int        `json:"hints"`
	Errors int        `json:"errors"`
}

// HandleFile implements Handler. Files are written by Summary.
func (f *JSONFormatter) HandleFile(FileResult) error {
	return nil
}

// Summary implements Handler.
func (f *JSONFormatter) Summary(result *Result) error {
	report := jsonReport{
		Files:  make([]jsonFile, 0, len(result.Files)),
		Hints:  result.Hints,
		Errors: result.Errors,
	}

	for _, file := range result.Files {
		jf := jsonFile{Path: file.Path, Hints: file.Hints}
		if jf.Hints == nil {
			jf.Hints = []resolver.Hint{}
		}

		if file.Err != nil {
			jf.Error = file.Err.Error()
		}

		report.Files = append(report.Files, jf)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(f.w, "%s\n", data)

	return err
}
