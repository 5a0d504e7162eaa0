package outputproviders

import (
	"encoding/json"
	"io"

	"github.com/praetorian-inc/msinfo/internal/jq"
	"github.com/praetorian-inc/msinfo/pkg/types"
)

// JSONProvider writes the records behind a result, optionally reshaped by
// a jq expression.
type JSONProvider struct {
	out   io.Writer
	query string
}

func NewJSONProvider(w io.Writer, query string) *JSONProvider {
	return &JSONProvider{out: w, query: query}
}

func (jp *JSONProvider) Write(result types.Result) error {
	var (
		data []byte
		err  error
	)
	if jp.query != "" {
		data, err = jq.Filter(result.Data, jp.query)
	} else {
		data, err = json.MarshalIndent(result.Data, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = jp.out.Write(append(data, '\n'))
	return err
}
