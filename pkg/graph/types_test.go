package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/msinfo/pkg/types"
)

func TestDeclaring(t *testing.T) {
	apps := []RegisteredApplication{
		{AppId: "role", RequiredResourceAccess: []RequiredResourceAccess{
			{ResourceAppId: AppID, ResourceAccess: []ResourceAccess{{Id: "x", Type: "Role"}}},
		}},
		{AppId: "scope", RequiredResourceAccess: []RequiredResourceAccess{
			{ResourceAppId: AppID, ResourceAccess: []ResourceAccess{{Id: "x", Type: "Scope"}}},
		}},
		{AppId: "other-resource", RequiredResourceAccess: []RequiredResourceAccess{
			{ResourceAppId: exchangeAppID, ResourceAccess: []ResourceAccess{{Id: "x", Type: "Role"}}},
		}},
		{AppId: "different-id", RequiredResourceAccess: []RequiredResourceAccess{
			{ResourceAppId: AppID, ResourceAccess: []ResourceAccess{{Id: "y", Type: "Role"}}},
		}},
		{AppId: "nothing"},
	}

	assert.Equal(t, []string{"role"}, appIDs(Declaring(apps, "x", types.ApplicationPermission)))
	assert.Equal(t, []string{"scope"}, appIDs(Declaring(apps, "x", types.DelegatedPermission)))
	assert.Empty(t, Declaring(apps, "z", types.ApplicationPermission))
	assert.Empty(t, Declaring(nil, "x", types.ApplicationPermission))
}

func TestAccessKind(t *testing.T) {
	assert.Equal(t, AccessRole, AccessKind(types.ApplicationPermission))
	assert.Equal(t, AccessScope, AccessKind(types.DelegatedPermission))
}

func TestMerge(t *testing.T) {
	perms := []types.Permission{
		{Id: directoryReadAll, Value: "Directory.Read.All", Type: types.ApplicationPermission},
		{Id: userRead, Value: "User.Read", Type: types.DelegatedPermission},
		{Id: "5b567255-7703-4780-807c-7be8301ae99b", Value: "Group.Read.All", Type: types.DelegatedPermission},
		{Id: "not-live", Value: "Legacy.Read", Type: types.ApplicationPermission},
	}
	live := &ServicePrincipalPermissions{
		AppRoles: []AppRole{
			{Id: directoryReadAll, IsEnabled: true, AllowedMemberTypes: []string{"Application"}, Origin: "Application"},
			// a role sharing the id of a scope must not leak onto the delegated record
			{Id: userRead, IsEnabled: false},
		},
		OAuth2PermissionScopes: []PermissionScope{
			{Id: userRead, Type: "User", IsEnabled: true, Origin: "Application"},
			{Id: "5B567255-7703-4780-807C-7BE8301AE99B", Type: "Admin", IsEnabled: true},
		},
	}

	merged := Merge(perms, live)
	require.Len(t, merged, 4)

	dir := merged[0]
	require.NotNil(t, dir.IsBuiltIn)
	require.NotNil(t, dir.RequiresAdminConsent)
	assert.True(t, *dir.IsBuiltIn)
	assert.True(t, *dir.RequiresAdminConsent)
	assert.Equal(t, []string{"Application"}, dir.AllowedMemberTypes)
	assert.Equal(t, "Application", dir.Origin)

	user := merged[1]
	require.NotNil(t, user.IsBuiltIn)
	assert.True(t, *user.IsBuiltIn)
	assert.False(t, *user.RequiresAdminConsent)
	assert.Nil(t, user.AllowedMemberTypes)

	group := merged[2]
	require.NotNil(t, group.RequiresAdminConsent)
	assert.True(t, *group.RequiresAdminConsent)

	assert.False(t, merged[3].Augmented())

	// the input is left untouched
	assert.Nil(t, perms[0].IsBuiltIn)
	assert.False(t, perms[1].Augmented())
}

func TestMerge_NilLive(t *testing.T) {
	perms := []types.Permission{{Id: "1", Type: types.ApplicationPermission}}
	merged := Merge(perms, nil)
	assert.Equal(t, perms, merged)
	assert.False(t, merged[0].Augmented())
}
