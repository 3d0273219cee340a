package config

import (
	"net/url"
	"testing"
)

func TestParseWidgetParamsDefaults(t *testing.T) {
	p := ParseWidgetParams(url.Values{})

	if p.IsDarkModePage {
		t.Error("expected dark mode off by default")
	}
	if p.PrimaryColor != PrimaryBrandColor {
		t.Errorf("expected brand color %q, got %q", PrimaryBrandColor, p.PrimaryColor)
	}
	if !p.IsShowSortOption || !p.IsAllowSocialLogin || !p.IsShowLogo {
		t.Errorf("expected UI toggles on by default, got %+v", p)
	}
}

func TestParseWidgetParamsExplicit(t *testing.T) {
	values := url.Values{
		"darkMode":           {"true"},
		"primaryColor":       {"%23FF0000"},
		"isShowSortOption":   {"false"},
		"isAllowSocialLogin": {"false"},
		"isShowLogo":         {"false"},
	}

	p := ParseWidgetParams(values)

	if !p.IsDarkModePage {
		t.Error("expected dark mode on")
	}
	if p.PrimaryColor != "#FF0000" {
		t.Errorf("expected decoded color #FF0000, got %q", p.PrimaryColor)
	}
	if p.IsShowSortOption || p.IsAllowSocialLogin || p.IsShowLogo {
		t.Errorf("expected UI toggles off, got %+v", p)
	}
}

func TestParseWidgetParamsIgnoresGarbageBool(t *testing.T) {
	values := url.Values{"darkMode": {"yes"}}

	p := ParseWidgetParams(values)
	if p.IsDarkModePage {
		t.Error("expected non-true value to keep dark mode off")
	}
}
