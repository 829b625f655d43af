package validator

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

var blockedHosts = []string{
	"localhost", "localhost.localdomain", "0.0.0.0",
}

// IsCallbackURL checks that a webhook target is an absolute http(s) URL the
// remote service can reach.
func IsCallbackURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid url format")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.New("url host is required")
	}

	for _, blocked := range blockedHosts {
		if host == blocked {
			return errors.New("url host is not publicly reachable")
		}
	}

	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified()) {
		return errors.New("url host is not publicly reachable")
	}

	return nil
}

func IsSubscriptionName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > 255 {
		return errors.New("name must be at most 255 characters")
	}
	return nil
}
