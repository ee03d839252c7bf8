// Package platform resolves the host operating system into the small
// variant used for error-pattern applicability and remediation command
// selection. Resolved once at startup and passed around as a value.
package platform

import "runtime"

// Platform identifies the host operating system family.
type Platform int

const (
	Other Platform = iota
	Windows
	Linux
	Darwin
)

// Current returns the platform of the running process.
func Current() Platform {
	return FromGOOS(runtime.GOOS)
}

// FromGOOS maps a GOOS value to a Platform. Unknown systems map to Other.
func FromGOOS(goos string) Platform {
	switch goos {
	case "windows":
		return Windows
	case "linux":
		return Linux
	case "darwin":
		return Darwin
	default:
		return Other
	}
}

// Name returns the spelling used in pattern files ("Windows", "Linux",
// "Darwin"). Anything else reports as "Other" and only matches patterns
// declared for all platforms.
func (p Platform) Name() string {
	switch p {
	case Windows:
		return "Windows"
	case Linux:
		return "Linux"
	case Darwin:
		return "Darwin"
	default:
		return "Other"
	}
}

func (p Platform) String() string { return p.Name() }
