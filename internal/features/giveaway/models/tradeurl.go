package models

import (
	"net/url"
	"regexp"
	"strings"
)

var tradeTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,64}$`)

// IsValidTradeURL reports whether raw is a Steam trade offer URL of
// the form
//
//	https://steamcommunity.com/tradeoffer/new/?partner=<digits>&token=<token>
//
// with the exact path /tradeoffer/new/, a numeric partner id and a
// 6-64 char url-safe token. Both http and https schemes are accepted.
func IsValidTradeURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !strings.EqualFold(u.Hostname(), "steamcommunity.com") {
		return false
	}
	if u.Path != "/tradeoffer/new/" {
		return false
	}
	q := u.Query()
	partner := q.Get("partner")
	if partner == "" || strings.Trim(partner, "0123456789") != "" {
		return false
	}
	return tradeTokenPattern.MatchString(q.Get("token"))
}
