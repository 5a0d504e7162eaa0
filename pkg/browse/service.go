package browse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	u "github.com/mpvl/unique"
	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/msinfo/pkg/catalog"
	"github.com/praetorian-inc/msinfo/pkg/categorize"
	"github.com/praetorian-inc/msinfo/pkg/graph"
	"github.com/praetorian-inc/msinfo/pkg/session"
	"github.com/praetorian-inc/msinfo/pkg/types"
)

// ErrNotFound is returned by detail lookups for ids absent from the catalog.
var ErrNotFound = errors.New("not found")

// GraphSource hands out the Graph client of the current sign-in, or nil.
// *session.Manager implements it.
type GraphSource interface {
	Graph() *graph.Client
}

// Directory is the subset of Graph queries the pages issue.
type Directory interface {
	ServicePrincipalPermissions(ctx context.Context, appID string) (*graph.ServicePrincipalPermissions, error)
	ApplicationsUsingPermission(ctx context.Context, permissionID string, kind types.PermissionType) ([]graph.RegisteredApplication, error)
	RequiredResourceAccess(ctx context.Context, appID string) ([]graph.RequiredResourceAccess, error)
}

type Service struct {
	catalog *catalog.Catalog
	live    func() Directory
	logger  *slog.Logger
}

// NewService serves pages from c. src may be nil, in which case only
// static data is available.
func NewService(c *catalog.Catalog, src GraphSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog: c,
		live: func() Directory {
			if src == nil {
				return nil
			}
			if client := src.Graph(); client != nil {
				return client
			}
			return nil
		},
		logger: logger,
	}
}

// Applications lists the catalog applications matching search.
func (s *Service) Applications(ctx context.Context, search string) ([]types.Application, error) {
	apps, err := s.catalog.Applications(ctx)
	if err != nil {
		return nil, err
	}
	return categorize.FilterApplications(apps, search), nil
}

func (s *Service) Application(ctx context.Context, appID string) (types.Application, error) {
	apps, err := s.catalog.Applications(ctx)
	if err != nil {
		return types.Application{}, err
	}
	app, ok := catalog.FindApplication(apps, appID)
	if !ok {
		return types.Application{}, fmt.Errorf("application %s: %w", appID, ErrNotFound)
	}
	return app, nil
}

// Permissions lists the catalog permissions matching opts. When a Graph
// client is available the records are augmented with live metadata; an
// augmentation failure is logged and the static records are returned.
func (s *Service) Permissions(ctx context.Context, opts categorize.Options) ([]types.Permission, error) {
	app, del, err := s.permissions(ctx, opts.Type)
	if err != nil {
		return nil, err
	}
	perms := make([]types.Permission, 0, len(app)+len(del))
	perms = append(perms, app...)
	perms = append(perms, del...)
	return categorize.Filter(perms, opts), nil
}

// Permission returns one permission. Ids are only unique per type, so an
// empty kind prefers the application permission.
func (s *Service) Permission(ctx context.Context, kind types.PermissionType, id string) (types.Permission, error) {
	app, del, err := s.permissions(ctx, kind)
	if err != nil {
		return types.Permission{}, err
	}
	p, ok := catalog.FindPermission(app, del, kind, id)
	if !ok {
		return types.Permission{}, fmt.Errorf("permission %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *Service) permissions(ctx context.Context, kind types.PermissionType) (app, del []types.Permission, err error) {
	switch kind {
	case types.ApplicationPermission:
		app, err = s.catalog.PermissionsFor(ctx, kind)
	case types.DelegatedPermission:
		del, err = s.catalog.PermissionsFor(ctx, kind)
	default:
		app, del, err = s.catalog.Permissions(ctx)
	}
	if err != nil {
		return nil, nil, err
	}

	dir := s.live()
	if dir == nil {
		return app, del, nil
	}
	live, err := dir.ServicePrincipalPermissions(ctx, graph.AppID)
	if err != nil {
		s.logger.Warn("Failed to augment permissions with live Graph data", "error", err)
		return app, del, nil
	}
	return graph.Merge(app, live), graph.Merge(del, live), nil
}

// ApplicationsUsing lists the tenant's registered applications that request
// the permission. It requires a signed-in account.
func (s *Service) ApplicationsUsing(ctx context.Context, kind types.PermissionType, permissionID string) (types.Permission, []graph.RegisteredApplication, error) {
	dir := s.live()
	if dir == nil {
		return types.Permission{}, nil, fmt.Errorf("%w: %w", session.ErrNotSignedIn, graph.ErrUninitialized)
	}

	p, err := s.Permission(ctx, kind, permissionID)
	if err != nil {
		return types.Permission{}, nil, err
	}
	apps, err := dir.ApplicationsUsingPermission(ctx, p.Id, p.Type)
	if err != nil {
		return p, nil, err
	}
	return p, apps, nil
}

// AccessEntry is one permission an application requests, resolved against
// the catalog when the resource is Microsoft Graph.
type AccessEntry struct {
	ResourceAppId string               `json:"resourceAppId"`
	Id            string               `json:"id"`
	Type          types.PermissionType `json:"type"`
	Value         string               `json:"value,omitempty"`
	Category      string               `json:"category,omitempty"`
}

// RequiredAccess lists the permissions a registered application requests.
// It requires a signed-in account.
func (s *Service) RequiredAccess(ctx context.Context, appID string) ([]AccessEntry, error) {
	dir := s.live()
	if dir == nil {
		return nil, fmt.Errorf("%w: %w", session.ErrNotSignedIn, graph.ErrUninitialized)
	}

	required, err := dir.RequiredResourceAccess(ctx, appID)
	if err != nil {
		return nil, err
	}

	app, del, err := s.catalog.Permissions(ctx)
	if err != nil {
		s.logger.Warn("Failed to resolve Graph permission names", "error", err)
	}

	entries := make([]AccessEntry, 0)
	for _, rra := range required {
		for _, ra := range rra.ResourceAccess {
			kind := types.DelegatedPermission
			if strings.EqualFold(ra.Type, graph.AccessRole) {
				kind = types.ApplicationPermission
			}
			entry := AccessEntry{ResourceAppId: rra.ResourceAppId, Id: ra.Id, Type: kind}
			if strings.EqualFold(rra.ResourceAppId, graph.AppID) {
				if p, ok := catalog.FindPermission(app, del, kind, ra.Id); ok {
					entry.Value = p.Value
					entry.Category = categorize.Categorize(p.Value)
				}
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Overview summarizes the catalog.
type Overview struct {
	Applications           int            `json:"applications"`
	ApplicationPermissions int            `json:"applicationPermissions"`
	DelegatedPermissions   int            `json:"delegatedPermissions"`
	Categories             map[string]int `json:"categories"`
	Sources                []string       `json:"sources"`
}

func (s *Service) Overview(ctx context.Context) (Overview, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		apps     []types.Application
		app, del []types.Permission
	)
	g.Go(func() error {
		var err error
		apps, err = s.catalog.Applications(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		app, del, err = s.catalog.Permissions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	categories := categorize.Count(app)
	for category, n := range categorize.Count(del) {
		categories[category] += n
	}

	sources := make([]string, 0, len(apps))
	for _, a := range apps {
		if a.Source != "" {
			sources = append(sources, a.Source)
		}
	}
	r := u.StringSlice{P: &sources}
	u.Sort(r)
	u.Strings(r.P)

	return Overview{
		Applications:           len(apps),
		ApplicationPermissions: len(app),
		DelegatedPermissions:   len(del),
		Categories:             categories,
		Sources:                sources,
	}, nil
}
