package catalog

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/msinfo/pkg/types"
)

// Catalog loads the three published documents.
type Catalog struct {
	fetcher   *Fetcher
	endpoints Endpoints
}

func New(fetcher *Fetcher, endpoints Endpoints) *Catalog {
	return &Catalog{fetcher: fetcher, endpoints: endpoints}
}

// Applications returns the first-party application list.
func (c *Catalog) Applications(ctx context.Context) ([]types.Application, error) {
	return fetchJSON[types.Application](ctx, c.fetcher, c.endpoints.Applications)
}

// ApplicationPermissions returns the application (role) permission definitions.
func (c *Catalog) ApplicationPermissions(ctx context.Context) ([]types.Permission, error) {
	return c.permissions(ctx, c.endpoints.ApplicationPermissions, types.ApplicationPermission)
}

// DelegatedPermissions returns the delegated (scope) permission definitions.
func (c *Catalog) DelegatedPermissions(ctx context.Context) ([]types.Permission, error) {
	return c.permissions(ctx, c.endpoints.DelegatedPermissions, types.DelegatedPermission)
}

// PermissionsFor returns the definitions of a single type.
func (c *Catalog) PermissionsFor(ctx context.Context, kind types.PermissionType) ([]types.Permission, error) {
	if kind == types.DelegatedPermission {
		return c.DelegatedPermissions(ctx)
	}
	return c.ApplicationPermissions(ctx)
}

func (c *Catalog) permissions(ctx context.Context, url string, kind types.PermissionType) ([]types.Permission, error) {
	perms, err := fetchJSON[types.Permission](ctx, c.fetcher, url)
	if err != nil {
		return nil, err
	}
	for i := range perms {
		perms[i].Type = kind
	}
	return perms, nil
}

// Permissions fetches both permission documents concurrently. If either
// request fails the other is cancelled and both results are discarded.
func (c *Catalog) Permissions(ctx context.Context) (application, delegated []types.Permission, err error) {
	g, gctx := errgroup.WithContext(ctx)

	var app, del []types.Permission
	g.Go(func() error {
		var err error
		app, err = c.ApplicationPermissions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		del, err = c.DelegatedPermissions(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return app, del, nil
}

// FindApplication looks an application up by AppId.
func FindApplication(apps []types.Application, appID string) (types.Application, bool) {
	for _, a := range apps {
		if a.AppId == appID {
			return a, true
		}
	}
	return types.Application{}, false
}

// FindPermission looks a permission up by Id. Ids are only unique within a
// type, so an empty kind searches application permissions before delegated ones.
func FindPermission(application, delegated []types.Permission, kind types.PermissionType, id string) (types.Permission, bool) {
	var partitions [][]types.Permission
	switch kind {
	case types.ApplicationPermission:
		partitions = [][]types.Permission{application}
	case types.DelegatedPermission:
		partitions = [][]types.Permission{delegated}
	default:
		partitions = [][]types.Permission{application, delegated}
	}

	for _, perms := range partitions {
		for _, p := range perms {
			if p.Id == id {
				return p, true
			}
		}
	}
	return types.Permission{}, false
}
