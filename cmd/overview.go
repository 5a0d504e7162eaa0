package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/msinfo/pkg/browse"
	"github.com/praetorian-inc/msinfo/pkg/categorize"
	"github.com/praetorian-inc/msinfo/pkg/types"
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Summarize the application and permission catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _ := newService()

		ov, err := load(cmd.Context(), "overview", browse.Overview{}, svc.Overview)
		if err != nil {
			return err
		}
		return render(cmd, overviewResult(ov))
	},
}

func init() {
	rootCmd.AddCommand(overviewCmd)
}

func overviewResult(ov browse.Overview) types.Result {
	rows := [][]string{
		{"Applications", strconv.Itoa(ov.Applications)},
		{"Application permissions", strconv.Itoa(ov.ApplicationPermissions)},
		{"Delegated permissions", strconv.Itoa(ov.DelegatedPermissions)},
		{"Application sources", strings.Join(ov.Sources, ", ")},
	}
	for _, name := range categorize.Categories() {
		if n := ov.Categories[name]; n > 0 {
			rows = append(rows, []string{"Category: " + name, strconv.Itoa(n)})
		}
	}
	return types.Result{
		Title: "Overview",
		Table: types.MarkdownTable{TableHeading: "Overview", Headers: []string{"Metric", "Value"}, Rows: rows},
		Data:  ov,
	}
}

