// internal/site/site_test.go
//
// Boundary decoding tests: every element shape the editor has ever saved
// must decode to the same ordered slice.

package site

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSections_Shapes(t *testing.T) {
	cases := map[string]string{
		"array":          `[{"id":"a","type":"hero"},{"id":"b","type":"text"}]`,
		"object":         `{"1":{"id":"b","type":"text"},"0":{"id":"a","type":"hero"}}`,
		"string array":   `"[{\"id\":\"a\",\"type\":\"hero\"},{\"id\":\"b\",\"type\":\"text\"}]"`,
		"string object":  `"{\"0\":{\"id\":\"a\",\"type\":\"hero\"},\"1\":{\"id\":\"b\",\"type\":\"text\"}}"`,
		"numeric id arr": `[{"id":1,"type":"hero"},{"id":2,"type":"text"}]`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			var s Sections
			if err := json.Unmarshal([]byte(in), &s); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(s) != 2 || s[0].Type != "hero" || s[1].Type != "text" {
				t.Fatalf("unexpected sections: %#v", s)
			}
		})
	}
}

func TestSections_ObjectOrdersNumerically(t *testing.T) {
	in := `{"10":{"type":"c"},"2":{"type":"b"},"1":{"type":"a"},"x":{"type":"z"}}`
	var s Sections
	if err := json.Unmarshal([]byte(in), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := ""
	for _, sec := range s {
		got += sec.Type
	}
	if got != "abcz" {
		t.Fatalf("order = %q, want abcz", got)
	}
}

func TestSections_NullAndRejects(t *testing.T) {
	var s Sections
	if err := json.Unmarshal([]byte(`null`), &s); err != nil || len(s) != 0 {
		t.Fatalf("null: %v %#v", err, s)
	}

	var bad Sections
	err := json.Unmarshal([]byte(`{"els": 12}`), &bad)
	if err == nil {
		t.Fatalf("expected error for object of scalars")
	}

	err = bad.UnmarshalJSON([]byte(`42`))
	if !errors.Is(err, ErrSectionsShape) {
		t.Fatalf("err = %v, want ErrSectionsShape", err)
	}

	err = bad.UnmarshalJSON([]byte(`"\"[]\""`))
	if !errors.Is(err, ErrSectionsShape) {
		t.Fatalf("triple-encoded: err = %v, want ErrSectionsShape", err)
	}
}

func TestSections_MarshalNeverNull(t *testing.T) {
	b, err := json.Marshal(Page{Slug: "home"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	_ = json.Unmarshal(b, &raw)
	if string(raw["page_elements"]) != "[]" {
		t.Fatalf("page_elements = %s, want []", raw["page_elements"])
	}
}

func TestOrgID_NumberAndString(t *testing.T) {
	var p struct {
		A OrgID `json:"a"`
		B OrgID `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":42,"b":"org-7"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.A != "42" || p.B != "org-7" {
		t.Fatalf("got %q %q", p.A, p.B)
	}
	out, _ := json.Marshal(p)
	if string(out) != `{"a":42,"b":"org-7"}` {
		t.Fatalf("marshal = %s", out)
	}
}

func TestBundle_StringEncoded(t *testing.T) {
	in := `{"version":5,"status":"published","bundle":"{\"pages\":[{\"slug\":\"home\",\"published\":true}]}"}`
	var s Snapshot
	if err := json.Unmarshal([]byte(in), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(s.Bundle.Pages) != 1 || s.Bundle.Pages[0].Slug != "home" {
		t.Fatalf("bundle not decoded: %#v", s.Bundle)
	}
	if !s.Live() {
		t.Fatalf("published snapshot should be live")
	}
}

func TestPageStatusTransitions(t *testing.T) {
	if !PageStatusDraft.CanTransitionTo(PageStatusPublished) {
		t.Fatalf("draft → published must be allowed")
	}
	if !PageStatusPublished.CanTransitionTo(PageStatusDraft) {
		t.Fatalf("published → draft must be allowed")
	}
	if PageStatusDraft.CanTransitionTo(PageStatusDraft) {
		t.Fatalf("draft → draft must not be a transition")
	}
}

func TestParseSiteAction(t *testing.T) {
	a, err := ParseSiteAction(" Publish ")
	if err != nil || a != ActionPublish {
		t.Fatalf("got %q %v", a, err)
	}
	if !a.OrgActive() || a.PageStatus() != PageStatusPublished {
		t.Fatalf("publish action mapping wrong")
	}
	if _, err := ParseSiteAction("archive"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}
