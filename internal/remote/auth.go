package remote

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/stacklok/thv-history-sync/internal/config"
)

// NewAuthenticatedClient returns an *http.Client that authenticates requests
// according to the auth configuration. The context is used for token
// requests made by the OAuth2 client.
func NewAuthenticatedClient(ctx context.Context, auth *config.RemoteAuthConfig) (*http.Client, error) {
	switch auth.GetType() {
	case config.AuthTypeNone:
		return &http.Client{}, nil

	case config.AuthTypeBearer:
		token, err := auth.GetToken()
		if err != nil {
			return nil, err
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		return oauth2.NewClient(ctx, ts), nil

	case config.AuthTypeOAuth2:
		secret, err := auth.GetClientSecret()
		if err != nil {
			return nil, err
		}
		cc := &clientcredentials.Config{
			ClientID:     auth.ClientID,
			ClientSecret: secret,
			TokenURL:     auth.TokenURL,
			Scopes:       auth.Scopes,
		}
		return cc.Client(ctx), nil

	default:
		return nil, fmt.Errorf("unsupported remote auth type %q", auth.Type)
	}
}
