package channel

import "strings"

var (
	mobileMarkers  = []string{"android", "iphone", "ipad", "ipod", "mobile", "opera mini", "iemobile", "blackberry"}
	inAppMarkers   = []string{"fban", "fbav", "instagram", "line/", "tiktok", "snapchat"}
	appSchemeHosts = []string{"android", "iphone", "ipad", "ipod"}
)

// DetectCapabilities derives capabilities from a User-Agent header. It is the
// only place that inspects the header.
func DetectCapabilities(userAgent string) DeviceCapabilities {
	ua := strings.ToLower(userAgent)
	caps := DeviceCapabilities{
		Mobile:       containsAny(ua, mobileMarkers),
		InAppBrowser: containsAny(ua, inAppMarkers),
	}
	caps.AppScheme = containsAny(ua, appSchemeHosts) && !caps.InAppBrowser
	return caps
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
