package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/storyscript/storyc/pkg/storyerror"
)

// ReportError writes err to w. Diagnostics are rendered with their source
// line; joined errors are reported one by one.
func ReportError(w io.Writer, err error, color bool) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			ReportError(w, e, color)
		}
		return
	}

	var diagnostic *storyerror.Error
	if errors.As(err, &diagnostic) {
		_, _ = fmt.Fprintln(w, diagnostic.Report(color))
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}

// useColor decides whether output written to w is coloured. Writers other
// than files are coloured only when forced.
func useColor(mode string, w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return storyerror.UseColor(mode, f)
	}
	return mode == storyerror.ColorAlways
}
