// Package outputproviders renders command results as console tables,
// markdown or JSON.
package outputproviders

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/praetorian-inc/msinfo/pkg/types"
)

const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Formats lists the accepted --format values.
var Formats = []string{FormatTable, FormatMarkdown, FormatJSON}

// consoleMaxColWidth keeps long descriptions from blowing out the table.
const consoleMaxColWidth = 60

// New returns the provider for format. A jq query is only meaningful for
// JSON output.
func New(format string, w io.Writer, query string) (types.OutputProvider, error) {
	if query != "" && format != FormatJSON {
		return nil, fmt.Errorf("--jq requires --format %s", FormatJSON)
	}

	switch format {
	case "", FormatTable:
		return NewConsoleProvider(w, consoleMaxColWidth), nil
	case FormatMarkdown:
		return NewMarkdownProvider(w), nil
	case FormatJSON:
		return NewJSONProvider(w, query), nil
	}
	return nil, fmt.Errorf("unknown output format %q (expected one of %v)", format, Formats)
}

// OpenOutput creates path, and any missing parent directories, for writing.
func OpenOutput(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}
