package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/msinfo/internal/message"
	"github.com/praetorian-inc/msinfo/pkg/categorize"
	"github.com/praetorian-inc/msinfo/pkg/graph"
	"github.com/praetorian-inc/msinfo/pkg/types"
)

var permsCmd = &cobra.Command{
	Use:     "perms",
	Aliases: []string{"permissions"},
	Short:   "Browse Microsoft Graph permissions",
}

var permsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List Microsoft Graph permissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := filterOptions(cmd)
		if err != nil {
			return err
		}
		svc, mgr := newService()
		maybeSignIn(cmd, mgr)

		perms, err := load(cmd.Context(), "perms", []types.Permission{}, func(ctx context.Context) ([]types.Permission, error) {
			return svc.Permissions(ctx, opts)
		})
		if err != nil {
			return err
		}
		message.Info("%d permissions", len(perms))
		if !mgr.SignedIn() {
			message.Info("Showing published data only; pass --sign-in to add live tenant metadata")
		}
		return render(cmd, permissionsResult(perms))
	},
}

var permsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one Microsoft Graph permission",
	Long: `Show one Microsoft Graph permission by id. Application and delegated
permissions may share an id; use --type to pick one. Without --type the
application permission wins. With --sign-in the registered applications in
your tenant that request the permission are listed as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := typeFlag(cmd)
		if err != nil {
			return err
		}
		svc, mgr := newService()
		maybeSignIn(cmd, mgr)

		p, err := load(cmd.Context(), "perms/"+args[0], types.Permission{}, func(ctx context.Context) (types.Permission, error) {
			return svc.Permission(ctx, kind, args[0])
		})
		if err != nil {
			return notFound(err, "perms list")
		}

		results := []types.Result{permissionResult(p)}
		if mgr.SignedIn() {
			_, apps, err := svc.ApplicationsUsing(cmd.Context(), p.Type, p.Id)
			if err != nil {
				message.Warning("Failed to list applications using %s: %v", p.Value, err)
			} else {
				results = append(results, usageResult(p, apps))
			}
		}
		return render(cmd, results...)
	},
}

var permsUsageCmd = &cobra.Command{
	Use:   "usage <id>",
	Short: "List registered applications in your tenant that request a permission",
	Long: `List the registered applications in the signed-in tenant that request a
Microsoft Graph permission. This command always signs in.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := typeFlag(cmd)
		if err != nil {
			return err
		}
		svc, mgr := newService()
		if err := signIn(cmd.Context(), mgr); err != nil {
			return err
		}

		var p types.Permission
		apps, err := load(cmd.Context(), "perms/"+args[0]+"/usage", []graph.RegisteredApplication{}, func(ctx context.Context) ([]graph.RegisteredApplication, error) {
			var (
				apps []graph.RegisteredApplication
				err  error
			)
			p, apps, err = svc.ApplicationsUsing(ctx, kind, args[0])
			return apps, err
		})
		if err != nil {
			return notFound(err, "perms list")
		}
		return render(cmd, usageResult(p, apps))
	},
}

var permsCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List permission categories with counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _ := newService()

		perms, err := load(cmd.Context(), "perms", []types.Permission{}, func(ctx context.Context) ([]types.Permission, error) {
			return svc.Permissions(ctx, categorize.Options{})
		})
		if err != nil {
			return err
		}
		return render(cmd, categoriesResult(perms))
	},
}

func init() {
	for _, c := range []*cobra.Command{permsListCmd, permsShowCmd, permsUsageCmd} {
		c.Flags().StringP("type", "t", "", "permission type (Application, Delegated)")
	}
	permsListCmd.Flags().StringP("search", "s", "", "filter by value, name or description")
	permsListCmd.Flags().StringP("category", "c", categorize.All, "filter by category (see `msinfo perms categories`)")
	addSignInFlag(permsListCmd)
	addSignInFlag(permsShowCmd)

	permsCmd.AddCommand(permsListCmd, permsShowCmd, permsUsageCmd, permsCategoriesCmd)
	rootCmd.AddCommand(permsCmd)
}

func typeFlag(cmd *cobra.Command) (types.PermissionType, error) {
	raw, _ := cmd.Flags().GetString("type")
	if strings.EqualFold(raw, categorize.All) {
		return "", nil
	}
	return types.ParsePermissionType(raw)
}

func filterOptions(cmd *cobra.Command) (categorize.Options, error) {
	kind, err := typeFlag(cmd)
	if err != nil {
		return categorize.Options{}, err
	}
	search, _ := cmd.Flags().GetString("search")
	category, _ := cmd.Flags().GetString("category")
	category = strings.ToLower(category)
	if category != "" && category != categorize.All && !categorize.IsCategory(category) {
		return categorize.Options{}, fmt.Errorf("unknown category %q (expected one of %s)", category, strings.Join(categorize.Categories(), ", "))
	}
	return categorize.Options{Search: search, Type: kind, Category: category}, nil
}

// permissionView adds the derived category to a permission.
type permissionView struct {
	types.Permission
	Category string `json:"Category"`
}

func viewOf(p types.Permission) permissionView {
	return permissionView{Permission: p, Category: categorize.Categorize(p.Value)}
}

func permissionsResult(perms []types.Permission) types.Result {
	views := make([]permissionView, 0, len(perms))
	table := types.MarkdownTable{
		TableHeading: "Permissions",
		Headers:      []string{"Value", "Type", "Category", "Admin Consent", "Name", "ID"},
		Rows:         make([][]string, 0, len(perms)),
	}
	for _, p := range perms {
		v := viewOf(p)
		views = append(views, v)
		table.Rows = append(table.Rows, []string{p.Value, string(p.Type), v.Category, optionalBool(p.RequiresAdminConsent), p.Name(), p.Id})
	}
	return types.Result{Title: "Permissions", Table: table, Data: views}
}

func permissionResult(p types.Permission) types.Result {
	v := viewOf(p)
	rows := [][]string{
		{"Value", p.Value},
		{"ID", p.Id},
		{"Type", string(p.Type)},
		{"Category", v.Category},
		{"Name", p.Name()},
		{"Description", p.Summary()},
	}
	if p.Augmented() {
		rows = append(rows,
			[]string{"Admin Consent", optionalBool(p.RequiresAdminConsent)},
			[]string{"Built In", optionalBool(p.IsBuiltIn)},
			[]string{"Allowed Member Types", strings.Join(p.AllowedMemberTypes, ", ")},
			[]string{"Origin", p.Origin},
		)
	}
	return types.Result{
		Title: p.Value,
		Table: types.MarkdownTable{TableHeading: p.Value, Headers: []string{"Field", "Value"}, Rows: rows},
		Data:  v,
	}
}

func usageResult(p types.Permission, apps []graph.RegisteredApplication) types.Result {
	title := fmt.Sprintf("Applications requesting %s (%s)", p.Value, p.Type)
	table := types.MarkdownTable{
		TableHeading: title,
		Headers:      []string{"Name", "App ID", "Object ID"},
		Rows:         make([][]string, 0, len(apps)),
	}
	for _, a := range apps {
		table.Rows = append(table.Rows, []string{a.DisplayName, a.AppId, a.Id})
	}
	return types.Result{Title: title, Table: table, Data: apps}
}

type categoryCount struct {
	Category    string `json:"category"`
	Application int    `json:"application"`
	Delegated   int    `json:"delegated"`
	Total       int    `json:"total"`
}

func countCategories(perms []types.Permission) []categoryCount {
	counts := make(map[string]*categoryCount)
	out := make([]categoryCount, 0)
	for _, name := range categorize.Categories() {
		counts[name] = &categoryCount{Category: name}
	}
	for _, p := range perms {
		c := counts[categorize.Categorize(p.Value)]
		if p.Type == types.DelegatedPermission {
			c.Delegated++
		} else {
			c.Application++
		}
		c.Total++
	}
	for _, name := range categorize.Categories() {
		out = append(out, *counts[name])
	}
	return out
}

func categoriesResult(perms []types.Permission) types.Result {
	counts := countCategories(perms)
	table := types.MarkdownTable{
		TableHeading: "Permission Categories",
		Headers:      []string{"Category", "Application", "Delegated", "Total"},
		Rows:         make([][]string, 0, len(counts)),
	}
	for _, c := range counts {
		table.Rows = append(table.Rows, []string{c.Category, strconv.Itoa(c.Application), strconv.Itoa(c.Delegated), strconv.Itoa(c.Total)})
	}
	return types.Result{Title: "Permission Categories", Table: table, Data: counts}
}

func optionalBool(b *bool) string {
	if b == nil {
		return "-"
	}
	if *b {
		return "yes"
	}
	return "no"
}
