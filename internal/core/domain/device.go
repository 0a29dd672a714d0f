package domain

import (
	"fmt"
	"strings"
	"time"
)

// Device is a read-only projection of a managed device as reported by the
// remote API. Devices are never mutated locally.
type Device struct {
	// ID is the opaque identifier used for API calls.
	ID string `json:"id"`

	// Name is the display name used for exact-match lookup.
	// The API does not guarantee uniqueness.
	Name string `json:"name"`

	// Platform is the raw operating-system tag, e.g. "Windows" or "iPadOS".
	Platform string `json:"platform"`

	// LastSyncAt is the last check-in time. Nil means never synced.
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`

	// Owner identifies the assigned user. Display only.
	Owner string `json:"owner,omitempty"`
}

// NeverSynced returns true if the device has no recorded check-in.
func (d *Device) NeverSynced() bool {
	return d.LastSyncAt == nil || d.LastSyncAt.IsZero()
}

// Platform is an operating-system family used for bulk operations.
type Platform string

// Supported platforms.
const (
	PlatformWindows Platform = "Windows"
	PlatformMacOS   Platform = "macOS"
	PlatformIOS     Platform = "iOS"
	PlatformAndroid Platform = "Android"
	PlatformLinux   Platform = "Linux"
)

// platformTags maps each platform to the raw tags it covers.
var platformTags = map[Platform][]string{
	PlatformWindows: {"Windows"},
	PlatformMacOS:   {"macOS"},
	PlatformIOS:     {"iOS", "iPadOS"},
	PlatformAndroid: {"Android"},
	PlatformLinux:   {"Linux"},
}

// AllPlatforms returns every supported platform in display order.
func AllPlatforms() []Platform {
	return []Platform{PlatformWindows, PlatformMacOS, PlatformIOS, PlatformAndroid, PlatformLinux}
}

// DefaultPlatforms is the platform set used by a sync of all platforms
// when none are configured.
func DefaultPlatforms() []Platform {
	return []Platform{PlatformWindows, PlatformMacOS, PlatformIOS, PlatformAndroid}
}

// IsValid returns true if the platform is recognised.
func (p Platform) IsValid() bool {
	_, ok := platformTags[p]
	return ok
}

// String returns the string representation.
func (p Platform) String() string {
	return string(p)
}

// Tags returns the raw operating-system tags covered by this platform.
// iOS covers both iOS and iPadOS.
func (p Platform) Tags() []string {
	tags := platformTags[p]
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// Matches returns true if the raw tag belongs to this platform.
// Comparison is case-insensitive.
func (p Platform) Matches(tag string) bool {
	for _, t := range platformTags[p] {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// ParsePlatform resolves a user-supplied platform name.
// Matching is case-insensitive; "ipados" and "mac" are accepted aliases.
func ParsePlatform(s string) (Platform, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "windows", "win":
		return PlatformWindows, nil
	case "macos", "mac", "osx":
		return PlatformMacOS, nil
	case "ios", "ipados":
		return PlatformIOS, nil
	case "android":
		return PlatformAndroid, nil
	case "linux":
		return PlatformLinux, nil
	}
	return "", fmt.Errorf("%w: unknown platform %q", ErrConfiguration, s)
}

// ParsePlatforms resolves a list of platform names, keeping order and
// dropping duplicates.
func ParsePlatforms(names []string) ([]Platform, error) {
	seen := make(map[Platform]bool, len(names))
	out := make([]Platform, 0, len(names))
	for _, n := range names {
		p, err := ParsePlatform(n)
		if err != nil {
			return nil, err
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

// DeviceQuery narrows a device listing on the server side.
type DeviceQuery struct {
	// Tags restricts the listing to these raw operating-system tags.
	// Empty means every device.
	Tags []string
}

// DeviceSnapshot is the device set fetched once at the start of a run.
// It is held for the duration of that run only.
type DeviceSnapshot struct {
	Devices   []Device
	FetchedAt time.Time
}

// NewDeviceSnapshot creates a snapshot from a fetched device list.
func NewDeviceSnapshot(devices []Device, fetchedAt time.Time) *DeviceSnapshot {
	return &DeviceSnapshot{Devices: devices, FetchedAt: fetchedAt}
}

// Len returns the number of devices in the snapshot.
func (s *DeviceSnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Devices)
}

// FindByName returns the first device whose name equals name exactly
// (case-sensitive), or nil. The returned pointer refers into the snapshot,
// so repeated lookups of the same name return the same pointer.
func (s *DeviceSnapshot) FindByName(name string) *Device {
	if s == nil {
		return nil
	}
	for i := range s.Devices {
		if s.Devices[i].Name == name {
			return &s.Devices[i]
		}
	}
	return nil
}

// FindByPlatform returns every device belonging to platform, in snapshot order.
func (s *DeviceSnapshot) FindByPlatform(platform Platform) []Device {
	if s == nil {
		return nil
	}
	return FilterByPlatform(s.Devices, platform)
}

// FilterByPlatform returns the devices whose tag belongs to platform.
func FilterByPlatform(devices []Device, platform Platform) []Device {
	var out []Device
	for _, d := range devices {
		if platform.Matches(d.Platform) {
			out = append(out, d)
		}
	}
	return out
}
