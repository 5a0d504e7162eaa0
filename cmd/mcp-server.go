package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/msinfo/internal/message"
	"github.com/praetorian-inc/msinfo/pkg/browse"
	"github.com/praetorian-inc/msinfo/pkg/categorize"
	"github.com/praetorian-inc/msinfo/pkg/session"
	"github.com/praetorian-inc/msinfo/pkg/types"
	"github.com/praetorian-inc/msinfo/version"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Launch msinfo's MCP server",
	Long: `Launch msinfo's MCP server on stdio. One session is kept for the lifetime
of the server; use the sign_in tool before the tools that need live tenant data.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol; messages stay on stderr
		message.SetOutput(os.Stderr)

		svc, mgr := newService()
		s := server.NewMCPServer(
			"msinfo",
			version.FullVersion(),
			server.WithToolCapabilities(false),
			server.WithLogging(),
		)
		newToolset(svc, mgr).register(s)

		logger.Info("Starting MCP server", "version", version.AbbreviatedVersion())
		if err := server.ServeStdio(s); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

type toolset struct {
	svc *browse.Service
	mgr *session.Manager
}

func newToolset(svc *browse.Service, mgr *session.Manager) *toolset {
	return &toolset{svc: svc, mgr: mgr}
}

func readOnly(title string) mcp.ToolOption {
	return mcp.WithToolAnnotation(mcp.ToolAnnotation{
		Title:         title,
		ReadOnlyHint:  mcp.ToBoolPtr(true),
		OpenWorldHint: mcp.ToBoolPtr(true),
	})
}

func (t *toolset) register(s *server.MCPServer) {
	typeParam := mcp.WithString("type",
		mcp.Description("Permission type: Application or Delegated. Empty means either."),
		mcp.Enum("", string(types.ApplicationPermission), string(types.DelegatedPermission)),
	)

	s.AddTool(mcp.NewTool("search_applications",
		mcp.WithDescription("Search Microsoft first-party applications by display name or application id."),
		mcp.WithString("search", mcp.Description("Case-insensitive text to match. Empty lists every application.")),
		readOnly("Search applications"),
	), t.searchApplications)

	s.AddTool(mcp.NewTool("get_application",
		mcp.WithDescription("Get one Microsoft first-party application by application id."),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("Application (client) id")),
		readOnly("Get application"),
	), t.getApplication)

	s.AddTool(mcp.NewTool("search_permissions",
		mcp.WithDescription("Search Microsoft Graph permissions by value, name or description, optionally filtered by type and category. Results include live tenant metadata when signed in."),
		mcp.WithString("search", mcp.Description("Case-insensitive text to match")),
		typeParam,
		mcp.WithString("category", mcp.Description("Category name from permission_categories, or all")),
		readOnly("Search permissions"),
	), t.searchPermissions)

	s.AddTool(mcp.NewTool("get_permission",
		mcp.WithDescription("Get one Microsoft Graph permission by id. Application and delegated permissions may share an id; without type the application permission is returned."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Permission id")),
		typeParam,
		readOnly("Get permission"),
	), t.getPermission)

	s.AddTool(mcp.NewTool("permission_categories",
		mcp.WithDescription("List permission categories with application and delegated counts."),
		readOnly("Permission categories"),
	), t.permissionCategories)

	s.AddTool(mcp.NewTool("overview",
		mcp.WithDescription("Summarize the catalog: application and permission counts, counts per category and application sources."),
		readOnly("Overview"),
	), t.overview)

	s.AddTool(mcp.NewTool("sign_in",
		mcp.WithDescription("Sign in interactively to Microsoft Entra ID. Required before applications_using_permission and application_required_access."),
	), t.signIn)

	s.AddTool(mcp.NewTool("sign_out",
		mcp.WithDescription("Sign out of the current account."),
	), t.signOut)

	s.AddTool(mcp.NewTool("whoami",
		mcp.WithDescription("Show the signed-in account, if any."),
		readOnly("Who am I"),
	), t.whoami)

	s.AddTool(mcp.NewTool("applications_using_permission",
		mcp.WithDescription("List registered applications in the signed-in tenant that request a Microsoft Graph permission."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Permission id")),
		typeParam,
		readOnly("Applications using permission"),
	), t.applicationsUsingPermission)

	s.AddTool(mcp.NewTool("application_required_access",
		mcp.WithDescription("List the permissions a registered application in the signed-in tenant requests."),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("Application (client) id")),
		readOnly("Application required access"),
	), t.applicationRequiredAccess)
}

func argString(request mcp.CallToolRequest, key string) string {
	return request.GetString(key, "")
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	logger.Error("Tool call failed", "error", err)
	msg := err.Error()
	switch {
	case errors.Is(err, session.ErrNotSignedIn):
		msg += "; call sign_in first"
	case errors.Is(err, browse.ErrNotFound):
		msg += "; use the search tools to find valid ids"
	}
	return mcp.NewToolResultError(msg), nil
}

func (t *toolset) searchApplications(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apps, err := t.svc.Applications(ctx, argString(request, "search"))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(apps)
}

func (t *toolset) getApplication(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	app, err := t.svc.Application(ctx, argString(request, "app_id"))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(app)
}

func (t *toolset) searchPermissions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := types.ParsePermissionType(argString(request, "type"))
	if err != nil {
		return errorResult(err)
	}
	category := strings.ToLower(argString(request, "category"))
	if category != "" && category != categorize.All && !categorize.IsCategory(category) {
		return errorResult(fmt.Errorf("unknown category %q", category))
	}

	perms, err := t.svc.Permissions(ctx, categorize.Options{
		Search:   argString(request, "search"),
		Type:     kind,
		Category: category,
	})
	if err != nil {
		return errorResult(err)
	}
	views := make([]permissionView, 0, len(perms))
	for _, p := range perms {
		views = append(views, viewOf(p))
	}
	return jsonResult(views)
}

func (t *toolset) getPermission(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := types.ParsePermissionType(argString(request, "type"))
	if err != nil {
		return errorResult(err)
	}
	p, err := t.svc.Permission(ctx, kind, argString(request, "id"))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(viewOf(p))
}

func (t *toolset) permissionCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	perms, err := t.svc.Permissions(ctx, categorize.Options{})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(countCategories(perms))
}

func (t *toolset) overview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ov, err := t.svc.Overview(ctx)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(ov)
}

func (t *toolset) signIn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	acct, err := t.mgr.SignIn(ctx)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(acct)
}

func (t *toolset) signOut(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !t.mgr.SignedIn() {
		return mcp.NewToolResultText("Not signed in."), nil
	}
	if err := t.mgr.SignOut(ctx); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText("Signed out."), nil
}

func (t *toolset) whoami(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	acct := t.mgr.CurrentAccount()
	if acct == nil {
		return mcp.NewToolResultText("Not signed in."), nil
	}
	return jsonResult(acct)
}

func (t *toolset) applicationsUsingPermission(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := types.ParsePermissionType(argString(request, "type"))
	if err != nil {
		return errorResult(err)
	}
	p, apps, err := t.svc.ApplicationsUsing(ctx, kind, argString(request, "id"))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(map[string]any{
		"permission":   viewOf(p),
		"applications": apps,
	})
}

func (t *toolset) applicationRequiredAccess(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := t.svc.RequiredAccess(ctx, argString(request, "app_id"))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(entries)
}
