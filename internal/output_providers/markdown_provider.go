package outputproviders

import (
	"io"

	"github.com/praetorian-inc/msinfo/pkg/types"
)

type MarkdownProvider struct {
	out io.Writer
}

func NewMarkdownProvider(w io.Writer) *MarkdownProvider {
	return &MarkdownProvider{out: w}
}

func (mp *MarkdownProvider) Write(result types.Result) error {
	table := result.Table
	if table.TableHeading == "" {
		table.TableHeading = result.Title
	}
	_, err := io.WriteString(mp.out, table.ToString()+"\n")
	return err
}
