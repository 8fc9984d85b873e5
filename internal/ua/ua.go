// internal/ua/ua.go
//
// User-Agent parsing for analytics metadata.
//
// Context
// -------
// Publish and generation events carry a coarse description of the browser
// that triggered them, so the dashboard can tell an editor on a phone from
// an automation script.  This wrapper keeps uasurfer's enums out of the
// rest of the codebase.
package ua

import (
	"strconv"
	"strings"

	surfer "github.com/avct/uasurfer"
)

// Info carries the attributes recorded on analytics events.  Device is one
// of "Desktop", "Mobile", "Tablet", or "Other".
type Info struct {
	Browser   string `json:"browser,omitempty"`
	Version   string `json:"browser_version,omitempty"`
	OS        string `json:"os,omitempty"`
	OSVersion string `json:"os_version,omitempty"`
	Device    string `json:"device,omitempty"`
	IsBot     bool   `json:"bot,omitempty"`
}

// Parse converts a raw header into an Info.  An empty header yields the
// zero Info.
func Parse(raw string) Info {
	if strings.TrimSpace(raw) == "" {
		return Info{}
	}
	u := surfer.Parse(raw)

	info := Info{
		Browser:   strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:   dotted(u.Browser.Version),
		OS:        strings.TrimPrefix(u.OS.Name.String(), "OS"),
		OSVersion: dotted(u.OS.Version),
		IsBot:     u.IsBot(),
	}
	switch u.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "Desktop"
	case surfer.DeviceTablet:
		info.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}
	return info
}

// dotted renders 17.0.0 as "17", 17.3.0 as "17.3", and 17.3.1 as "17.3.1".
func dotted(v surfer.Version) string {
	parts := []int{v.Major, v.Minor, v.Patch}
	n := len(parts)
	for n > 1 && parts[n-1] == 0 {
		n--
	}
	if n == 1 && parts[0] == 0 {
		return ""
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = strconv.Itoa(parts[i])
	}
	return strings.Join(out, ".")
}
