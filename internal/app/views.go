package app

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/commentlab/widgetd/internal/config"
)

var widgetTmpl = template.Must(template.New("widget").Parse(`<!DOCTYPE html>
<html{{if .Params.IsDarkModePage}} class="dark"{{end}}>
<head>
<meta charset="utf-8">
<title>Comments</title>
<style>:root { --primary-color: {{.Params.PrimaryColor}}; }</style>
</head>
<body>
<div id="widget-root"
  data-port-open="{{.PortOpen}}"
  data-show-sort-option="{{.Params.IsShowSortOption}}"
  data-allow-social-login="{{.Params.IsAllowSocialLogin}}"
  data-show-logo="{{.Params.IsShowLogo}}">
{{- if not .PortOpen}}
<p>Waiting for the hosting page to open the comment channel…</p>
{{- end}}
{{- if and .Params.IsAllowSocialLogin (not .LoggedIn)}}
<nav id="social-login">
{{- range .Providers}}
<a href="/api/login/{{.}}" target="_blank">Sign in with {{.}}</a>
{{- end}}
</nav>
{{- end}}
</div>
</body>
</html>
`))

type widgetViewData struct {
	Params    config.WidgetParams
	PortOpen  bool
	LoggedIn  bool
	Providers []string
}

// WidgetView renders the widget shell. The comment area itself is
// only live once the hosting page has opened the frame port.
func (h *Handler) WidgetView(w http.ResponseWriter, r *http.Request) {
	params := config.ParseWidgetParams(r.URL.Query())

	data := widgetViewData{
		Params:    params,
		PortOpen:  h.channel.HasPort(),
		LoggedIn:  h.sessions.User() != nil,
		Providers: h.providers.Names(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := widgetTmpl.Execute(w, data); err != nil {
		slog.Debug("Failed to render widget view", "error", err)
	}
}
