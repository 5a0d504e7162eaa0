package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/msinfo/internal/message"
	"github.com/praetorian-inc/msinfo/pkg/browse"
	"github.com/praetorian-inc/msinfo/pkg/types"
)

var appsCmd = &cobra.Command{
	Use:     "apps",
	Aliases: []string{"applications"},
	Short:   "Browse Microsoft first-party applications",
}

var appsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List first-party applications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")
		svc, _ := newService()

		apps, err := load(cmd.Context(), "apps", []types.Application{}, func(ctx context.Context) ([]types.Application, error) {
			return svc.Applications(ctx, search)
		})
		if err != nil {
			return err
		}
		message.Info("%d applications", len(apps))
		return render(cmd, applicationsResult(apps))
	},
}

var appsShowCmd = &cobra.Command{
	Use:   "show <appId>",
	Short: "Show one first-party application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _ := newService()

		app, err := load(cmd.Context(), "apps/"+args[0], types.Application{}, func(ctx context.Context) (types.Application, error) {
			return svc.Application(ctx, args[0])
		})
		if err != nil {
			return notFound(err, "apps list")
		}
		return render(cmd, applicationResult(app))
	},
}

var appsAccessCmd = &cobra.Command{
	Use:   "access <appId>",
	Short: "List the permissions a registered application in your tenant requests",
	Long: `List the permissions a registered application in the signed-in tenant
requests. Microsoft Graph permissions are resolved to their names. This command
always signs in.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, mgr := newService()
		if err := signIn(cmd.Context(), mgr); err != nil {
			return err
		}

		entries, err := load(cmd.Context(), "apps/"+args[0]+"/access", []browse.AccessEntry{}, func(ctx context.Context) ([]browse.AccessEntry, error) {
			return svc.RequiredAccess(ctx, args[0])
		})
		if err != nil {
			return err
		}
		return render(cmd, accessResult(args[0], entries))
	},
}

func init() {
	appsListCmd.Flags().StringP("search", "s", "", "filter by display name or application id")

	appsCmd.AddCommand(appsListCmd, appsShowCmd, appsAccessCmd)
	rootCmd.AddCommand(appsCmd)
}

func applicationsResult(apps []types.Application) types.Result {
	table := types.MarkdownTable{
		TableHeading: "Applications",
		Headers:      []string{"Name", "App ID", "Source", "Owner Tenant"},
		Rows:         make([][]string, 0, len(apps)),
	}
	for _, a := range apps {
		table.Rows = append(table.Rows, []string{a.AppDisplayName, a.AppId, a.Source, a.AppOwnerOrganizationId})
	}
	return types.Result{Title: "Applications", Table: table, Data: apps}
}

func applicationResult(app types.Application) types.Result {
	return types.Result{
		Title: app.AppDisplayName,
		Table: types.MarkdownTable{
			TableHeading: app.AppDisplayName,
			Headers:      []string{"Field", "Value"},
			Rows: [][]string{
				{"Name", app.AppDisplayName},
				{"App ID", app.AppId},
				{"Owner Tenant", app.AppOwnerOrganizationId},
				{"Source", app.Source},
			},
		},
		Data: app,
	}
}

func accessResult(appID string, entries []browse.AccessEntry) types.Result {
	title := fmt.Sprintf("Permissions requested by %s", appID)
	table := types.MarkdownTable{
		TableHeading: title,
		Headers:      []string{"Resource", "Permission", "Type", "Category", "ID"},
		Rows:         make([][]string, 0, len(entries)),
	}
	for _, e := range entries {
		value := e.Value
		if value == "" {
			value = "-"
		}
		table.Rows = append(table.Rows, []string{e.ResourceAppId, value, string(e.Type), e.Category, e.Id})
	}
	return types.Result{Title: title, Table: table, Data: entries}
}
