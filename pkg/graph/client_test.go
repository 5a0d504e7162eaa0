package graph

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/microsoft/kiota-abstractions-go/authentication"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/msinfo/pkg/types"
)

const (
	directoryReadAll = "7ab1d382-f21e-4acd-a863-ba3e13f7da61"
	userRead         = "e1fe6dd8-ba31-4d61-89e7-88639da4683d"
	exchangeAppID    = "00000002-0000-0ff1-ce00-000000000000"
)

func clientFor(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	adapter, err := msgraphsdk.NewGraphRequestAdapter(&authentication.AnonymousAuthenticationProvider{})
	require.NoError(t, err)
	adapter.SetBaseUrl(srv.URL + "/v1.0")
	return &Client{service: msgraphsdk.NewGraphServiceClient(adapter)}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestUninitializedClient(t *testing.T) {
	var nilClient *Client

	_, err := nilClient.ServicePrincipalPermissions(t.Context(), AppID)
	assert.ErrorIs(t, err, ErrUninitialized)

	_, err = nilClient.ApplicationsUsingPermission(t.Context(), directoryReadAll, types.ApplicationPermission)
	assert.ErrorIs(t, err, ErrUninitialized)

	_, err = (&Client{}).RequiredResourceAccess(t.Context(), AppID)
	assert.ErrorIs(t, err, ErrUninitialized)

	_, err = NewClient(nil, Scopes)
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestServicePrincipalPermissions(t *testing.T) {
	var filter atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/servicePrincipals", r.URL.Path)
		filter.Store(r.URL.Query().Get("$filter"))
		writeJSON(w, http.StatusOK, `{
			"value": [{
				"id": "sp-object-id",
				"appId": "`+AppID+`",
				"displayName": "Microsoft Graph",
				"appRoles": [{
					"id": "`+directoryReadAll+`",
					"value": "Directory.Read.All",
					"displayName": "Read directory data",
					"description": "Allows the app to read directory data.",
					"isEnabled": true,
					"allowedMemberTypes": ["Application"],
					"origin": "Application"
				}],
				"oauth2PermissionScopes": [{
					"id": "`+userRead+`",
					"value": "User.Read",
					"adminConsentDisplayName": "Sign in and read user profile",
					"adminConsentDescription": "Allows users to sign-in to the app.",
					"userConsentDisplayName": "Sign you in and read your profile",
					"type": "User",
					"isEnabled": true,
					"origin": "Application"
				}]
			}]
		}`)
	}))
	defer srv.Close()

	perms, err := clientFor(t, srv).ServicePrincipalPermissions(t.Context(), AppID)
	require.NoError(t, err)

	assert.Equal(t, "appId eq '"+AppID+"'", filter.Load())

	require.Len(t, perms.AppRoles, 1)
	assert.Equal(t, AppRole{
		Id:                 directoryReadAll,
		Value:              "Directory.Read.All",
		DisplayName:        "Read directory data",
		Description:        "Allows the app to read directory data.",
		IsEnabled:          true,
		AllowedMemberTypes: []string{"Application"},
		Origin:             "Application",
	}, perms.AppRoles[0])

	require.Len(t, perms.OAuth2PermissionScopes, 1)
	scope := perms.OAuth2PermissionScopes[0]
	assert.Equal(t, userRead, scope.Id)
	assert.Equal(t, "User", scope.Type)
	assert.Equal(t, "Sign you in and read your profile", scope.UserConsentDisplayName)
}

func TestServicePrincipalPermissions_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"value": []}`)
	}))
	defer srv.Close()

	perms, err := clientFor(t, srv).ServicePrincipalPermissions(t.Context(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, perms.AppRoles)
	assert.NotNil(t, perms.OAuth2PermissionScopes)
	assert.Empty(t, perms.AppRoles)
	assert.Empty(t, perms.OAuth2PermissionScopes)
}

func TestServicePrincipalPermissions_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"error": {"code": "Authorization_RequestDenied", "message": "Insufficient privileges to complete the operation."}}`)
	}))
	defer srv.Close()

	perms, err := clientFor(t, srv).ServicePrincipalPermissions(t.Context(), AppID)
	require.Error(t, err)
	assert.Nil(t, perms)
	assert.Contains(t, err.Error(), "failed to look up service principal")
}

func applicationsServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1.0/applications", r.URL.Path)

		if r.URL.Query().Get("$skiptoken") == "page2" {
			writeJSON(w, http.StatusOK, `{
				"value": [
					{
						"id": "obj-3",
						"appId": "app-3",
						"displayName": "Same id on another resource",
						"requiredResourceAccess": [{
							"resourceAppId": "`+exchangeAppID+`",
							"resourceAccess": [{"id": "`+directoryReadAll+`", "type": "Role"}]
						}]
					},
					{
						"id": "obj-4",
						"appId": "app-4",
						"displayName": "Role among several",
						"requiredResourceAccess": [
							{
								"resourceAppId": "`+exchangeAppID+`",
								"resourceAccess": [{"id": "`+userRead+`", "type": "Scope"}]
							},
							{
								"resourceAppId": "`+AppID+`",
								"resourceAccess": [
									{"id": "`+userRead+`", "type": "Scope"},
									{"id": "`+directoryReadAll+`", "type": "Role"}
								]
							}
						]
					}
				]
			}`)
			return
		}

		writeJSON(w, http.StatusOK, `{
			"@odata.nextLink": "`+srv.URL+`/v1.0/applications?$skiptoken=page2",
			"value": [
				{
					"id": "obj-1",
					"appId": "app-1",
					"displayName": "Uses role",
					"requiredResourceAccess": [{
						"resourceAppId": "`+AppID+`",
						"resourceAccess": [{"id": "`+directoryReadAll+`", "type": "Role"}]
					}]
				},
				{
					"id": "obj-2",
					"appId": "app-2",
					"displayName": "Same id as a scope",
					"requiredResourceAccess": [{
						"resourceAppId": "`+AppID+`",
						"resourceAccess": [{"id": "`+directoryReadAll+`", "type": "Scope"}]
					}]
				},
				{
					"id": "obj-5",
					"appId": "app-5",
					"displayName": "No access requested",
					"requiredResourceAccess": []
				}
			]
		}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func appIDs(apps []RegisteredApplication) []string {
	ids := make([]string, len(apps))
	for i, a := range apps {
		ids[i] = a.AppId
	}
	return ids
}

func TestListApplications_FollowsNextLink(t *testing.T) {
	srv := applicationsServer(t)

	apps, err := clientFor(t, srv).ListApplications(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"app-1", "app-2", "app-5", "app-3", "app-4"}, appIDs(apps))
}

func TestApplicationsUsingPermission(t *testing.T) {
	srv := applicationsServer(t)
	client := clientFor(t, srv)

	apps, err := client.ApplicationsUsingPermission(t.Context(), directoryReadAll, types.ApplicationPermission)
	require.NoError(t, err)
	assert.Equal(t, []string{"app-1", "app-4"}, appIDs(apps))

	apps, err = client.ApplicationsUsingPermission(t.Context(), directoryReadAll, types.DelegatedPermission)
	require.NoError(t, err)
	assert.Equal(t, []string{"app-2"}, appIDs(apps))

	apps, err = client.ApplicationsUsingPermission(t.Context(), "x", types.ApplicationPermission)
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestRequiredResourceAccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("$filter") != "appId eq 'app-1'" {
			writeJSON(w, http.StatusOK, `{"value": []}`)
			return
		}
		writeJSON(w, http.StatusOK, `{
			"value": [{
				"id": "obj-1",
				"appId": "app-1",
				"displayName": "Uses role",
				"requiredResourceAccess": [{
					"resourceAppId": "`+AppID+`",
					"resourceAccess": [{"id": "`+directoryReadAll+`", "type": "Role"}]
				}]
			}]
		}`)
	}))
	defer srv.Close()
	client := clientFor(t, srv)

	access, err := client.RequiredResourceAccess(t.Context(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, []RequiredResourceAccess{{
		ResourceAppId:  AppID,
		ResourceAccess: []ResourceAccess{{Id: directoryReadAll, Type: AccessRole}},
	}}, access)

	access, err = client.RequiredResourceAccess(t.Context(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, access)
}
