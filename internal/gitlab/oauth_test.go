package gitlab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bigredeye/notmanyjudges/internal/config"
)

func TestLoginURL(t *testing.T) {
	conf := &config.Config{}
	conf.GitLab.BaseURL = "https://gitlab.example.org/"
	conf.GitLab.Application.ClientID = "client"
	conf.Endpoints.HostName = "https://judges.example.org"
	conf.Endpoints.OauthCallback = "/oauth/callback"

	u, err := url.Parse(NewAuthClient(conf).LoginURL("xyz"))
	if err != nil {
		t.Fatal(err)
	}
	if u.Host != "gitlab.example.org" || u.Path != "/oauth/authorize" {
		t.Errorf("unexpected authorize url %s", u)
	}
	q := u.Query()
	if q.Get("state") != "xyz" || q.Get("client_id") != "client" {
		t.Errorf("unexpected query %v", q)
	}
	if q.Get("redirect_uri") != "https://judges.example.org/oauth/callback" {
		t.Errorf("unexpected redirect %q", q.Get("redirect_uri"))
	}
}

func TestGetOAuthGitLabUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/user" || r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 17, "username": "organizer"}`))
	}))
	defer srv.Close()

	user, err := GetOAuthGitLabUser(context.Background(), "secret", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&User{ID: 17, Login: "organizer"}, user); diff != "" {
		t.Error(diff)
	}

	if _, err := GetOAuthGitLabUser(context.Background(), "wrong", srv.URL); err == nil {
		t.Error("expected error for bad token")
	}
}
