// Package useragent classifies raw User-Agent strings into the coarse
// device/browser/OS buckets stored with each click event.
package useragent

import "strings"

const (
	// Unknown is the fallback for browser and OS when nothing matches.
	Unknown = "Unknown"

	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
)

// Info is the parsed classification of a User-Agent string.
type Info struct {
	Device  string
	Browser string
	OS      string
}

// Parse classifies a User-Agent string. It never fails: unmatched
// strings come back as desktop/Unknown/Unknown.
func Parse(ua string) Info {
	lower := strings.ToLower(ua)
	return Info{
		Device:  device(lower),
		Browser: browser(lower),
		OS:      operatingSystem(lower),
	}
}

func device(ua string) string {
	switch {
	case strings.Contains(ua, "bot"),
		strings.Contains(ua, "crawler"),
		strings.Contains(ua, "spider"):
		return DeviceBot
	case strings.Contains(ua, "ipad"),
		strings.Contains(ua, "tablet"):
		return DeviceTablet
	case strings.Contains(ua, "mobile"),
		strings.Contains(ua, "iphone"),
		strings.Contains(ua, "android"):
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

func browser(ua string) string {
	// Order matters: Chrome UAs contain "safari", Edge UAs contain "chrome".
	switch {
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge"):
		return "Edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "safari"):
		return "Safari"
	default:
		return Unknown
	}
}

func operatingSystem(ua string) string {
	switch {
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"),
		strings.Contains(ua, "ios"):
		return "iOS"
	case strings.Contains(ua, "mac os"), strings.Contains(ua, "macintosh"):
		return "macOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return Unknown
	}
}
