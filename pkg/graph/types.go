package graph

import (
	"strings"

	"github.com/praetorian-inc/msinfo/pkg/types"
)

// AppRole is an application permission published by a service principal.
type AppRole struct {
	Id                 string   `json:"id"`
	Value              string   `json:"value"`
	DisplayName        string   `json:"displayName,omitempty"`
	Description        string   `json:"description,omitempty"`
	IsEnabled          bool     `json:"isEnabled"`
	AllowedMemberTypes []string `json:"allowedMemberTypes,omitempty"`
	Origin             string   `json:"origin,omitempty"`
}

// PermissionScope is a delegated permission published by a service principal.
// Type is "Admin" when admin consent is required and "User" otherwise.
type PermissionScope struct {
	Id                      string `json:"id"`
	Value                   string `json:"value"`
	AdminConsentDisplayName string `json:"adminConsentDisplayName,omitempty"`
	AdminConsentDescription string `json:"adminConsentDescription,omitempty"`
	UserConsentDisplayName  string `json:"userConsentDisplayName,omitempty"`
	Type                    string `json:"type,omitempty"`
	IsEnabled               bool   `json:"isEnabled"`
	Origin                  string `json:"origin,omitempty"`
}

type ServicePrincipalPermissions struct {
	AppRoles               []AppRole         `json:"appRoles"`
	OAuth2PermissionScopes []PermissionScope `json:"oauth2PermissionScopes"`
}

type ResourceAccess struct {
	Id   string `json:"id"`
	Type string `json:"type"`
}

type RequiredResourceAccess struct {
	ResourceAppId  string           `json:"resourceAppId"`
	ResourceAccess []ResourceAccess `json:"resourceAccess"`
}

// RegisteredApplication is an application registration in the signed-in tenant.
type RegisteredApplication struct {
	Id                     string                   `json:"id"`
	AppId                  string                   `json:"appId"`
	DisplayName            string                   `json:"displayName"`
	RequiredResourceAccess []RequiredResourceAccess `json:"requiredResourceAccess"`
}

// AccessKind maps a permission type onto the resource access kind used in
// requiredResourceAccess.
func AccessKind(kind types.PermissionType) string {
	if kind == types.DelegatedPermission {
		return AccessScope
	}
	return AccessRole
}

// Requests reports whether app asks Microsoft Graph for permissionID as the
// given kind. Entries for other resources never count.
func (app RegisteredApplication) Requests(permissionID string, kind types.PermissionType) bool {
	want := AccessKind(kind)
	for _, rra := range app.RequiredResourceAccess {
		if !strings.EqualFold(rra.ResourceAppId, AppID) {
			continue
		}
		for _, ra := range rra.ResourceAccess {
			if strings.EqualFold(ra.Id, permissionID) && strings.EqualFold(ra.Type, want) {
				return true
			}
		}
	}
	return false
}

// Declaring keeps the applications that request permissionID as kind,
// preserving order.
func Declaring(apps []RegisteredApplication, permissionID string, kind types.PermissionType) []RegisteredApplication {
	out := make([]RegisteredApplication, 0)
	for _, app := range apps {
		if app.Requests(permissionID, kind) {
			out = append(out, app)
		}
	}
	return out
}

// Merge returns a copy of perms with the live fields filled in from the
// matching role (application permissions) or scope (delegated permissions).
// Records without a live counterpart are copied unchanged.
func Merge(perms []types.Permission, live *ServicePrincipalPermissions) []types.Permission {
	out := make([]types.Permission, len(perms))
	copy(out, perms)
	if live == nil {
		return out
	}

	roles := make(map[string]AppRole, len(live.AppRoles))
	for _, r := range live.AppRoles {
		roles[strings.ToLower(r.Id)] = r
	}
	scopes := make(map[string]PermissionScope, len(live.OAuth2PermissionScopes))
	for _, s := range live.OAuth2PermissionScopes {
		scopes[strings.ToLower(s.Id)] = s
	}

	for i := range out {
		id := strings.ToLower(out[i].Id)
		switch out[i].Type {
		case types.ApplicationPermission:
			role, ok := roles[id]
			if !ok {
				continue
			}
			out[i].IsBuiltIn = boolPtr(role.IsEnabled)
			// application permissions always need an administrator
			out[i].RequiresAdminConsent = boolPtr(true)
			out[i].AllowedMemberTypes = append([]string(nil), role.AllowedMemberTypes...)
			out[i].Origin = role.Origin
		case types.DelegatedPermission:
			scope, ok := scopes[id]
			if !ok {
				continue
			}
			out[i].IsBuiltIn = boolPtr(scope.IsEnabled)
			out[i].RequiresAdminConsent = boolPtr(strings.EqualFold(scope.Type, "Admin"))
			out[i].Origin = scope.Origin
		}
	}
	return out
}

func boolPtr(b bool) *bool {
	return &b
}
