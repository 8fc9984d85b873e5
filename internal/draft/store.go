// internal/draft/store.go
//
// Draft Store Accessor: the current, mutable state of a tenant.
//
// Context
// -------
// Every read goes straight to the backend.  Nothing here is cached, since
// the publish pipeline must snapshot what the editor saved a moment ago
// rather than what some earlier request saw.  "Organization not found"
// surfaces as apperr.KindNotFound so the coordinator can short-circuit.
//
// Writes carry the owning org_id in their body.  A payload whose embedded
// tenant id disagrees with the path tenant is rejected before any I/O.
//
// Notes
// -----
// • Status flips are not idempotent in the backend's audit log, so
//   callers must not retry them blindly.
// • Oxford commas, two spaces after periods.
package draft

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/gateway"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
)

// Store reads and writes draft state through the gateway.
type Store struct {
	gw gateway.Caller
}

// New returns a Store backed by gw.
func New(gw gateway.Caller) *Store { return &Store{gw: gw} }

func orgQuery(org site.OrgID) url.Values {
	return url.Values{"org_id": {org.String()}}
}

func requireOrg(op string, org site.OrgID) error {
	if org.Empty() {
		return apperr.New(apperr.KindValidation, op, "org id is required")
	}
	return nil
}

//
// Reads
//

// ListPages returns every page of org in backend order.
func (s *Store) ListPages(ctx context.Context, org site.OrgID) ([]site.Page, error) {
	const op = "draft.list_pages"
	if err := requireOrg(op, org); err != nil {
		return nil, err
	}
	pages, err := gateway.Fetch[[]site.Page](ctx, s.gw, gateway.Request{
		Group: gateway.GroupContent,
		Path:  "pages",
		Query: orgQuery(org),
	})
	if err != nil {
		return nil, scoped(op, err)
	}
	return pages, nil
}

// DesignSettings returns org's current design settings.
func (s *Store) DesignSettings(ctx context.Context, org site.OrgID) (site.DesignSettings, error) {
	const op = "draft.design_settings"
	if err := requireOrg(op, org); err != nil {
		return site.DesignSettings{}, err
	}
	ds, err := gateway.Fetch[site.DesignSettings](ctx, s.gw, gateway.Request{
		Group: gateway.GroupDesign,
		Path:  "design_settings",
		Query: orgQuery(org),
	})
	if err != nil {
		return site.DesignSettings{}, scoped(op, err)
	}
	if ds.OrgID.Empty() {
		ds.OrgID = org
	}
	return ds, nil
}

// SiteConfig returns org's current site configuration.
func (s *Store) SiteConfig(ctx context.Context, org site.OrgID) (site.SiteConfig, error) {
	const op = "draft.site_config"
	if err := requireOrg(op, org); err != nil {
		return site.SiteConfig{}, err
	}
	sc, err := gateway.Fetch[site.SiteConfig](ctx, s.gw, gateway.Request{
		Group: gateway.GroupSite,
		Path:  "site_config",
		Query: orgQuery(org),
	})
	if err != nil {
		return site.SiteConfig{}, scoped(op, err)
	}
	if sc.OrgID.Empty() {
		sc.OrgID = org
	}
	return sc, nil
}

//
// Writes
//

// SetPagePublished flips one page's published flag.
func (s *Store) SetPagePublished(ctx context.Context, org site.OrgID, pageID int64, published bool) error {
	const op = "draft.set_page_published"
	if err := requireOrg(op, org); err != nil {
		return err
	}
	_, err := s.gw.Do(ctx, gateway.Request{
		Group:  gateway.GroupContent,
		Method: http.MethodPatch,
		Path:   "pages/" + strconv.FormatInt(pageID, 10),
		Body:   map[string]any{"org_id": org, "published": published},
	})
	return scoped(op, err)
}

// SetAllPagesStatus drives every page of org to status in one bulk write
// and returns how many pages the backend touched.
func (s *Store) SetAllPagesStatus(ctx context.Context, org site.OrgID, status site.PageStatus) (int, error) {
	const op = "draft.set_all_pages_status"
	if err := requireOrg(op, org); err != nil {
		return 0, err
	}
	out, err := gateway.Fetch[struct {
		Updated int `json:"updated"`
	}](ctx, s.gw, gateway.Request{
		Group:  gateway.GroupContent,
		Method: http.MethodPost,
		Path:   "pages/status",
		Body:   map[string]any{"org_id": org, "status": status},
	})
	if err != nil {
		return 0, scoped(op, err)
	}
	return out.Updated, nil
}

// SetOrganizationActive sets the tenant's active flag.
func (s *Store) SetOrganizationActive(ctx context.Context, org site.OrgID, active bool) error {
	const op = "draft.set_org_active"
	if err := requireOrg(op, org); err != nil {
		return err
	}
	_, err := s.gw.Do(ctx, gateway.Request{
		Group:  gateway.GroupSite,
		Method: http.MethodPatch,
		Path:   "organizations/" + url.PathEscape(org.String()),
		Body:   map[string]any{"active": active},
	})
	return scoped(op, err)
}

// UpdateDesignSettings replaces org's design settings.
func (s *Store) UpdateDesignSettings(ctx context.Context, org site.OrgID, ds site.DesignSettings) (site.DesignSettings, error) {
	const op = "draft.update_design_settings"
	if err := guardTenant(op, org, ds.OrgID); err != nil {
		return site.DesignSettings{}, err
	}
	ds.OrgID = org
	out, err := gateway.Fetch[site.DesignSettings](ctx, s.gw, gateway.Request{
		Group:  gateway.GroupDesign,
		Method: http.MethodPost,
		Path:   "design_settings",
		Body:   ds,
	})
	return out, scoped(op, err)
}

// UpdateSiteConfig replaces org's site configuration.
func (s *Store) UpdateSiteConfig(ctx context.Context, org site.OrgID, sc site.SiteConfig) (site.SiteConfig, error) {
	const op = "draft.update_site_config"
	if err := guardTenant(op, org, sc.OrgID); err != nil {
		return site.SiteConfig{}, err
	}
	sc.OrgID = org
	out, err := gateway.Fetch[site.SiteConfig](ctx, s.gw, gateway.Request{
		Group:  gateway.GroupSite,
		Method: http.MethodPost,
		Path:   "site_config",
		Body:   sc,
	})
	return out, scoped(op, err)
}

// guardTenant rejects a payload that names a different tenant than the
// path.  An empty payload tenant is filled in by the caller.
func guardTenant(op string, path, payload site.OrgID) error {
	if err := requireOrg(op, path); err != nil {
		return err
	}
	if !payload.Empty() && payload != path {
		return apperr.New(apperr.KindValidation, op,
			fmt.Sprintf("payload org_id %q does not match %q", payload, path))
	}
	return nil
}

// scoped re-labels a gateway error with the accessor step that issued it,
// keeping the original kind.
func scoped(op string, err error) error {
	if err == nil {
		return nil
	}
	return &apperr.Error{Kind: apperr.KindOf(err), Op: op, Err: err}
}
