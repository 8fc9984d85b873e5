package site

import "testing"

func TestSameSlug(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"adopt", "adopt", true},
		{"/adopt/", "adopt", true},
		{" Adopt ", "adopt", true},
		{"adopt", "adopt-a-dog", false},
		{"", "home", false},
	}
	for _, tc := range tests {
		if got := SameSlug(tc.a, tc.b); got != tc.want {
			t.Errorf("SameSlug(%q, %q) = %v", tc.a, tc.b, got)
		}
	}
}

func TestPagePath(t *testing.T) {
	tests := map[string]string{
		"home":       "/",
		"":           "/",
		"/about/":    "/about",
		"adopt-dogs": "/adopt-dogs",
	}
	for in, want := range tests {
		if got := PagePath(in); got != want {
			t.Errorf("PagePath(%q) = %q, want %q", in, got, want)
		}
	}
}
