package draft

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/xanotest"
)

func seeded(t *testing.T) (*xanotest.Backend, *Store) {
	t.Helper()
	be := xanotest.New()
	be.AddOrg(site.Organization{ID: "42", Name: "Happy Tails", Active: true})
	be.AddPage(site.Page{OrgID: "42", Slug: "home", Title: "Home", Published: true})
	be.AddPage(site.Page{OrgID: "42", Slug: "about", Title: "About Us"})
	be.SetDesign(site.DesignSettings{OrgID: "42", Colors: map[string]string{"primary": "#ff7a00"}})
	be.SetConfig(site.SiteConfig{OrgID: "42", SiteName: "Happy Tails Rescue"})
	return be, New(be.Client(t))
}

func TestListPages_ReadsFreshState(t *testing.T) {
	be, s := seeded(t)
	ctx := context.Background()

	pages, err := s.ListPages(ctx, "42")
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if len(pages) != 2 || pages[0].Slug != "home" || pages[1].Slug != "about" {
		t.Fatalf("pages = %+v", pages)
	}

	be.AddPage(site.Page{OrgID: "42", Slug: "adopt", Title: "Adopt"})
	pages, err = s.ListPages(ctx, "42")
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("second read saw %d pages, want 3", len(pages))
	}
	if n := be.Calls("GET /content/pages"); n != 2 {
		t.Fatalf("backend calls = %d, want 2", n)
	}
}

func TestListPages_UnknownOrgIsNotFound(t *testing.T) {
	_, s := seeded(t)
	_, err := s.ListPages(context.Background(), "999")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("kind = %v, want not_found", apperr.KindOf(err))
	}
	if op := apperr.OpOf(err); op != "draft.list_pages" {
		t.Fatalf("op = %q", op)
	}
}

func TestReads_RequireOrg(t *testing.T) {
	_, s := seeded(t)
	if _, err := s.ListPages(context.Background(), " "); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("kind = %v, want validation_error", apperr.KindOf(err))
	}
}

func TestDesignAndConfig(t *testing.T) {
	_, s := seeded(t)
	ctx := context.Background()

	ds, err := s.DesignSettings(ctx, "42")
	if err != nil || ds.Colors["primary"] != "#ff7a00" {
		t.Fatalf("design = %+v, %v", ds, err)
	}
	sc, err := s.SiteConfig(ctx, "42")
	if err != nil || sc.SiteName != "Happy Tails Rescue" {
		t.Fatalf("config = %+v, %v", sc, err)
	}
}

func TestSetPagePublished(t *testing.T) {
	be, s := seeded(t)
	about := be.Pages("42")[1]

	if err := s.SetPagePublished(context.Background(), "42", about.ID, true); err != nil {
		t.Fatalf("SetPagePublished: %v", err)
	}
	if !be.Pages("42")[1].Published {
		t.Fatalf("page not flipped")
	}
}

func TestSetAllPagesStatus(t *testing.T) {
	be, s := seeded(t)
	n, err := s.SetAllPagesStatus(context.Background(), "42", site.PageStatusDraft)
	if err != nil {
		t.Fatalf("SetAllPagesStatus: %v", err)
	}
	if n != 2 {
		t.Fatalf("updated = %d, want 2", n)
	}
	for _, p := range be.Pages("42") {
		if p.Published {
			t.Fatalf("page %s still published", p.Slug)
		}
	}
}

func TestSetOrganizationActive_UpstreamFailure(t *testing.T) {
	be, s := seeded(t)
	be.Fail("PATCH /site/organizations/{org}", http.StatusInternalServerError, "write conflict", 1)

	err := s.SetOrganizationActive(context.Background(), "42", false)
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("kind = %v, want upstream_error", apperr.KindOf(err))
	}
	if o, _ := be.Org("42"); !o.Active {
		t.Fatalf("org flipped despite failure")
	}
}

func TestUpdateDesignSettings_TenantGuard(t *testing.T) {
	be, s := seeded(t)
	ctx := context.Background()

	_, err := s.UpdateDesignSettings(ctx, "42", site.DesignSettings{OrgID: "7"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("kind = %v, want validation_error", apperr.KindOf(err))
	}
	if n := be.Calls("POST /design/design_settings"); n != 0 {
		t.Fatalf("guard let %d calls through", n)
	}

	out, err := s.UpdateDesignSettings(ctx, "42", site.DesignSettings{
		Fonts:  map[string]string{"heading": "Lora"},
		Layout: json.RawMessage(`{"hero":"wide"}`),
	})
	if err != nil {
		t.Fatalf("UpdateDesignSettings: %v", err)
	}
	if out.OrgID != "42" || be.Design("42").Fonts["heading"] != "Lora" {
		t.Fatalf("stored = %+v", be.Design("42"))
	}
}

func TestUpdateSiteConfig(t *testing.T) {
	be, s := seeded(t)
	_, err := s.UpdateSiteConfig(context.Background(), "42", site.SiteConfig{OrgID: "42", SiteName: "Happy Tails", Tagline: "Every dog deserves a couch"})
	if err != nil {
		t.Fatalf("UpdateSiteConfig: %v", err)
	}
	if got := be.Config("42").Tagline; got != "Every dog deserves a couch" {
		t.Fatalf("tagline = %q", got)
	}
}
