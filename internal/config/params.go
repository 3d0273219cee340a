package config

import (
	"net/url"
)

// PrimaryBrandColor is the default widget accent color when the
// embedding page does not override it.
const PrimaryBrandColor = "#0BC586"

// WidgetParams are the per-embed display options carried on the
// embedding URL's query string. They are read once when the widget
// view is rendered and are immutable for the widget instance.
type WidgetParams struct {
	IsDarkModePage     bool
	PrimaryColor       string
	IsShowSortOption   bool
	IsAllowSocialLogin bool
	IsShowLogo         bool
}

// ParseWidgetParams reads widget display options from embed query
// parameters. Absent values fall back to their defaults: dark mode
// off, brand primary color, and all three UI toggles on.
func ParseWidgetParams(values url.Values) WidgetParams {
	p := WidgetParams{
		IsDarkModePage:     false,
		PrimaryColor:       PrimaryBrandColor,
		IsShowSortOption:   true,
		IsAllowSocialLogin: true,
		IsShowLogo:         true,
	}

	if v := values.Get("darkMode"); v != "" {
		p.IsDarkModePage = v == "true"
	}
	if v := values.Get("primaryColor"); v != "" {
		if decoded, err := url.QueryUnescape(v); err == nil && decoded != "" {
			p.PrimaryColor = decoded
		}
	}
	if v := values.Get("isShowSortOption"); v != "" {
		p.IsShowSortOption = v == "true"
	}
	if v := values.Get("isAllowSocialLogin"); v != "" {
		p.IsAllowSocialLogin = v == "true"
	}
	if v := values.Get("isShowLogo"); v != "" {
		p.IsShowLogo = v == "true"
	}

	return p
}
