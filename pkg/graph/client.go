// Package graph reads live permission metadata from Microsoft Graph on behalf
// of the signed-in account.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/google/uuid"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/applications"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/serviceprincipals"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"

	"github.com/praetorian-inc/msinfo/pkg/types"
)

const (
	// AppID is the application id of the Microsoft Graph service principal,
	// which is also the resource id applications use to request Graph access.
	AppID = "00000003-0000-0000-c000-000000000000"

	// Resource access kinds as they appear in requiredResourceAccess.
	AccessRole  = "Role"
	AccessScope = "Scope"
)

// Scopes the Graph client binds its token to.
var Scopes = []string{"https://graph.microsoft.com/Application.Read.All"}

// ErrUninitialized is returned by every query on a client that was never
// bound to a signed-in account.
var ErrUninitialized = errors.New("graph client not initialized")

// Client is a thin wrapper around the Graph SDK scoped to the read-only queries
// msinfo needs. The zero value and a nil *Client are uninitialized.
type Client struct {
	service *msgraphsdk.GraphServiceClient
}

// NewClient builds an authenticated client. The credential is expected to be
// bound to a single account.
func NewClient(cred azcore.TokenCredential, scopes []string) (*Client, error) {
	if cred == nil {
		return nil, ErrUninitialized
	}
	service, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to create Graph client: %w", err)
	}
	return &Client{service: service}, nil
}

func (c *Client) ready() error {
	if c == nil || c.service == nil {
		return ErrUninitialized
	}
	return nil
}

// ServicePrincipalPermissions returns the application roles and delegated
// scopes declared by the service principal of appID. A missing service
// principal yields empty collections.
func (c *Client) ServicePrincipalPermissions(ctx context.Context, appID string) (*ServicePrincipalPermissions, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	filter := appIDFilter(appID)
	resp, err := c.service.ServicePrincipals().Get(ctx, &serviceprincipals.ServicePrincipalsRequestBuilderGetRequestConfiguration{
		QueryParameters: &serviceprincipals.ServicePrincipalsRequestBuilderGetQueryParameters{
			Filter: &filter,
			Select: []string{"id", "appId", "displayName", "appRoles", "oauth2PermissionScopes"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up service principal %s: %w", appID, err)
	}

	result := &ServicePrincipalPermissions{
		AppRoles:               []AppRole{},
		OAuth2PermissionScopes: []PermissionScope{},
	}
	if resp == nil || len(resp.GetValue()) == 0 {
		slog.Debug("Service principal not found", "app_id", appID)
		return result, nil
	}

	sp := resp.GetValue()[0]
	for _, role := range sp.GetAppRoles() {
		if role != nil {
			result.AppRoles = append(result.AppRoles, convertAppRole(role))
		}
	}
	for _, scope := range sp.GetOauth2PermissionScopes() {
		if scope != nil {
			result.OAuth2PermissionScopes = append(result.OAuth2PermissionScopes, convertScope(scope))
		}
	}

	slog.Debug("Fetched service principal permissions",
		"app_id", appID,
		"app_roles", len(result.AppRoles),
		"scopes", len(result.OAuth2PermissionScopes))
	return result, nil
}

// ListApplications returns every application registration visible to the
// signed-in account together with its required resource access.
func (c *Client) ListApplications(ctx context.Context) ([]RegisteredApplication, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	top := int32(999)
	resp, err := c.service.Applications().Get(ctx, &applications.ApplicationsRequestBuilderGetRequestConfiguration{
		QueryParameters: &applications.ApplicationsRequestBuilderGetQueryParameters{
			Select: []string{"id", "appId", "displayName", "requiredResourceAccess"},
			Top:    &top,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	apps := []RegisteredApplication{}
	if resp == nil {
		return apps, nil
	}

	pageIterator, err := msgraphcore.NewPageIterator[models.Applicationable](
		resp,
		c.service.GetAdapter(),
		models.CreateApplicationCollectionResponseFromDiscriminatorValue)
	if err != nil {
		return nil, fmt.Errorf("failed to create page iterator: %w", err)
	}

	err = pageIterator.Iterate(ctx, func(app models.Applicationable) bool {
		if app != nil {
			apps = append(apps, convertApplication(app))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}

	return apps, nil
}

// ApplicationsUsingPermission lists the registered applications that request
// permissionID from Microsoft Graph as the given kind.
func (c *Client) ApplicationsUsingPermission(ctx context.Context, permissionID string, kind types.PermissionType) ([]RegisteredApplication, error) {
	apps, err := c.ListApplications(ctx)
	if err != nil {
		return nil, err
	}
	return Declaring(apps, permissionID, kind), nil
}

// RequiredResourceAccess returns the resource access declared by the
// application registration with the given appID.
func (c *Client) RequiredResourceAccess(ctx context.Context, appID string) ([]RequiredResourceAccess, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	filter := appIDFilter(appID)
	resp, err := c.service.Applications().Get(ctx, &applications.ApplicationsRequestBuilderGetRequestConfiguration{
		QueryParameters: &applications.ApplicationsRequestBuilderGetQueryParameters{
			Filter: &filter,
			Select: []string{"id", "appId", "displayName", "requiredResourceAccess"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get application %s: %w", appID, err)
	}

	if resp == nil || len(resp.GetValue()) == 0 || resp.GetValue()[0] == nil {
		return []RequiredResourceAccess{}, nil
	}
	return convertApplication(resp.GetValue()[0]).RequiredResourceAccess, nil
}

// single quotes are doubled inside OData string literals
func appIDFilter(appID string) string {
	return fmt.Sprintf("appId eq '%s'", strings.ReplaceAll(appID, "'", "''"))
}

func convertAppRole(role models.AppRoleable) AppRole {
	return AppRole{
		Id:                 uuidValue(role.GetId()),
		Value:              stringValue(role.GetValue()),
		DisplayName:        stringValue(role.GetDisplayName()),
		Description:        stringValue(role.GetDescription()),
		IsEnabled:          boolValue(role.GetIsEnabled()),
		AllowedMemberTypes: role.GetAllowedMemberTypes(),
		Origin:             stringValue(role.GetOrigin()),
	}
}

func convertScope(scope models.PermissionScopeable) PermissionScope {
	return PermissionScope{
		Id:                      uuidValue(scope.GetId()),
		Value:                   stringValue(scope.GetValue()),
		AdminConsentDisplayName: stringValue(scope.GetAdminConsentDisplayName()),
		AdminConsentDescription: stringValue(scope.GetAdminConsentDescription()),
		UserConsentDisplayName:  stringValue(scope.GetUserConsentDisplayName()),
		Type:                    stringValue(scope.GetTypeEscaped()),
		IsEnabled:               boolValue(scope.GetIsEnabled()),
		Origin:                  stringValue(scope.GetOrigin()),
	}
}

func convertApplication(app models.Applicationable) RegisteredApplication {
	result := RegisteredApplication{
		Id:                     stringValue(app.GetId()),
		AppId:                  stringValue(app.GetAppId()),
		DisplayName:            stringValue(app.GetDisplayName()),
		RequiredResourceAccess: []RequiredResourceAccess{},
	}
	for _, rra := range app.GetRequiredResourceAccess() {
		if rra == nil {
			continue
		}
		entry := RequiredResourceAccess{
			ResourceAppId:  stringValue(rra.GetResourceAppId()),
			ResourceAccess: []ResourceAccess{},
		}
		for _, ra := range rra.GetResourceAccess() {
			if ra == nil {
				continue
			}
			entry.ResourceAccess = append(entry.ResourceAccess, ResourceAccess{
				Id:   uuidValue(ra.GetId()),
				Type: stringValue(ra.GetTypeEscaped()),
			})
		}
		result.RequiredResourceAccess = append(result.RequiredResourceAccess, entry)
	}
	return result
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolValue(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

func uuidValue(u *uuid.UUID) string {
	if u == nil {
		return ""
	}
	return u.String()
}
