// Package provider builds the OAuth authorize URLs for the social
// login entry points the widget renders. The authorization code that
// comes back on the callback route is exchanged through the gateway,
// not through these configs.
package provider

import (
	"fmt"

	"golang.org/x/oauth2"

	"github.com/commentlab/widgetd/internal/config"
)

// Endpoints for the providers the comment platform supports.
var (
	kakaoEndpoint = oauth2.Endpoint{
		AuthURL:  "https://kauth.kakao.com/oauth/authorize",
		TokenURL: "https://kauth.kakao.com/oauth/token",
	}
	naverEndpoint = oauth2.Endpoint{
		AuthURL:  "https://nid.naver.com/oauth2.0/authorize",
		TokenURL: "https://nid.naver.com/oauth2.0/token",
	}
	githubEndpoint = oauth2.Endpoint{
		AuthURL:  "https://github.com/login/oauth/authorize",
		TokenURL: "https://github.com/login/oauth/access_token",
	}
)

// Registry holds one oauth2.Config per supported provider.
type Registry struct {
	configs map[string]*oauth2.Config
}

// NewRegistry builds the provider registry from configured client
// credentials. Providers without a client id are left out.
func NewRegistry(cfg config.ProviderConfig) *Registry {
	r := &Registry{configs: make(map[string]*oauth2.Config)}

	add := func(name, clientID, clientSecret string, endpoint oauth2.Endpoint, scopes []string) {
		if clientID == "" {
			return
		}
		r.configs[name] = &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectBase + "/oauth/" + name,
			Scopes:       scopes,
		}
	}

	add("kakao", cfg.KakaoClientID, cfg.KakaoClientSecret, kakaoEndpoint, nil)
	add("naver", cfg.NaverClientID, cfg.NaverClientSecret, naverEndpoint, nil)
	add("github", cfg.GithubClientID, cfg.GithubClientSecret, githubEndpoint, []string{"read:user"})

	return r
}

// Names returns the providers available for login buttons.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	return names
}

// Has reports whether the provider is configured.
func (r *Registry) Has(name string) bool {
	_, ok := r.configs[name]
	return ok
}

// AuthorizeURL returns the provider's authorization URL for a login
// popup, carrying the given state value.
func (r *Registry) AuthorizeURL(name, state string) (string, error) {
	cfg, ok := r.configs[name]
	if !ok {
		return "", fmt.Errorf("unknown oauth provider %q", name)
	}
	return cfg.AuthCodeURL(state), nil
}
