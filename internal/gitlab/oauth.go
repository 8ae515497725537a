// Package gitlab authenticates organizers through a GitLab instance.
package gitlab

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/xanzy/go-gitlab"
	"golang.org/x/oauth2"

	"github.com/bigredeye/notmanyjudges/internal/config"
)

type User struct {
	ID    int
	Login string
}

type AuthClient struct {
	conf    *oauth2.Config
	baseURL string
}

func NewAuthClient(config *config.Config) *AuthClient {
	baseURL := strings.TrimSuffix(config.GitLab.BaseURL, "/")
	return &AuthClient{
		conf: &oauth2.Config{
			ClientID:     config.GitLab.Application.ClientID,
			ClientSecret: config.GitLab.Application.Secret,
			Scopes:       []string{"read_user"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  baseURL + "/oauth/authorize",
				TokenURL: baseURL + "/oauth/token",
			},
			RedirectURL: config.Endpoints.HostName + config.Endpoints.OauthCallback,
		},
		baseURL: baseURL,
	}
}

func (c *AuthClient) LoginURL(state string) string {
	return c.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (c *AuthClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get oauth2 token pair from GitLab")
	}
	return token, nil
}

func (c *AuthClient) CurrentUser(ctx context.Context, token *oauth2.Token) (*User, error) {
	return GetOAuthGitLabUser(ctx, token.AccessToken, c.baseURL)
}

func GetOAuthGitLabUser(ctx context.Context, token, baseURL string) (*User, error) {
	client, err := gitlab.NewOAuthClient(token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gitlab client")
	}

	user, resp, err := client.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get current user")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("failed to get current user: %s", resp.Status)
	}

	return &User{
		ID:    user.ID,
		Login: user.Username,
	}, nil
}
