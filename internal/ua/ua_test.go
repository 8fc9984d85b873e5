package ua

import (
	"testing"

	surfer "github.com/avct/uasurfer"
)

func TestParse_DesktopChrome(t *testing.T) {
	info := Parse("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.6422.60 Safari/537.36")
	if info.Browser != "Chrome" {
		t.Fatalf("browser = %q", info.Browser)
	}
	if info.Device != "Desktop" {
		t.Fatalf("device = %q", info.Device)
	}
	if info.IsBot {
		t.Fatalf("flagged as bot")
	}
}

func TestParse_Empty(t *testing.T) {
	if got := Parse("  "); got != (Info{}) {
		t.Fatalf("info = %+v", got)
	}
}

func TestDotted(t *testing.T) {
	cases := map[surfer.Version]string{
		{Major: 17}:                     "17",
		{Major: 17, Minor: 3}:           "17.3",
		{Major: 17, Minor: 3, Patch: 1}: "17.3.1",
		{Major: 17, Patch: 2}:           "17.0.2",
		{}:                              "",
	}
	for v, want := range cases {
		if got := dotted(v); got != want {
			t.Errorf("dotted(%+v) = %q, want %q", v, got, want)
		}
	}
}
