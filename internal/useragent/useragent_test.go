package useragent

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		device  string
		browser string
		os      string
	}{
		{
			name:    "chrome on windows",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			device:  DeviceDesktop,
			browser: "Chrome",
			os:      "Windows",
		},
		{
			name:    "safari on iphone",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			device:  DeviceMobile,
			browser: "Safari",
			os:      "iOS",
		},
		{
			name:    "firefox on linux",
			ua:      "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			device:  DeviceDesktop,
			browser: "Firefox",
			os:      "Linux",
		},
		{
			name:    "edge on windows",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			device:  DeviceDesktop,
			browser: "Edge",
			os:      "Windows",
		},
		{
			name:    "chrome on android tablet",
			ua:      "Mozilla/5.0 (Linux; Android 13; SM-X700 Tablet) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			device:  DeviceTablet,
			browser: "Chrome",
			os:      "Android",
		},
		{
			name:    "googlebot",
			ua:      "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			device:  DeviceBot,
			browser: Unknown,
			os:      Unknown,
		},
		{
			name:    "empty string",
			ua:      "",
			device:  DeviceDesktop,
			browser: Unknown,
			os:      Unknown,
		},
		{
			name:    "garbage",
			ua:      "curl/8.4.0",
			device:  DeviceDesktop,
			browser: Unknown,
			os:      Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.ua)
			if got.Device != tt.device {
				t.Errorf("device: got %q, want %q", got.Device, tt.device)
			}
			if got.Browser != tt.browser {
				t.Errorf("browser: got %q, want %q", got.Browser, tt.browser)
			}
			if got.OS != tt.os {
				t.Errorf("os: got %q, want %q", got.OS, tt.os)
			}
		})
	}
}
