package ghclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestApiURLsDotComVsEnterprise(t *testing.T) {
	restBase, graphqlURL := apiURLs("github.com")
	if restBase != "https://api.github.com/" || graphqlURL != "https://api.github.com/graphql" {
		t.Fatalf("apiURLs(github.com) = (%q, %q)", restBase, graphqlURL)
	}

	restBase, graphqlURL = apiURLs("")
	if restBase != "https://api.github.com/" || graphqlURL != "https://api.github.com/graphql" {
		t.Fatalf("apiURLs(\"\") = (%q, %q)", restBase, graphqlURL)
	}

	restBase, graphqlURL = apiURLs("ghe.acme.internal")
	if restBase != "https://ghe.acme.internal/api/v3/" || graphqlURL != "https://ghe.acme.internal/api/graphql" {
		t.Fatalf("apiURLs(enterprise) = (%q, %q)", restBase, graphqlURL)
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusForbidden, ErrAuth},
		{http.StatusTooManyRequests, ErrRateLimit},
		{http.StatusInternalServerError, ErrServer},
		{http.StatusNotFound, ErrUnknown},
	}
	for _, tc := range cases {
		if got := classifyStatus(tc.status); got != tc.want {
			t.Fatalf("classifyStatus(%d) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := &Client{httpClient: srv.Client(), graphqlURL: srv.URL}
	return c, srv.Close
}

func TestQueryGraphQLDecodesDataField(t *testing.T) {
	c, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"repository":{"label":{"id":"LA_1","name":"ralph:status:queued"}}}}`))
	})
	defer closeSrv()

	var resp struct {
		Repository struct {
			Label struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"label"`
		} `json:"repository"`
	}
	if err := c.QueryGraphQL(context.Background(), "query{}", nil, &resp); err != nil {
		t.Fatalf("QueryGraphQL: %v", err)
	}
	if resp.Repository.Label.ID != "LA_1" {
		t.Fatalf("decoded id = %q, want LA_1", resp.Repository.Label.ID)
	}
}

func TestQueryGraphQLSurfacesTopLevelErrors(t *testing.T) {
	c, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"Could not resolve to a Label"}]}`))
	})
	defer closeSrv()

	err := c.QueryGraphQL(context.Background(), "query{}", nil, nil)
	if err == nil {
		t.Fatalf("expected an error for a graphql errors[] response")
	}
	apiErr, ok := err.(*GitHubApiError)
	if !ok {
		t.Fatalf("err = %T, want *GitHubApiError", err)
	}
	if apiErr.Code != ErrValidation {
		t.Fatalf("Code = %v, want validation", apiErr.Code)
	}
}

func TestQueryGraphQLSurfacesNonOKStatus(t *testing.T) {
	c, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`internal error`))
	})
	defer closeSrv()

	err := c.QueryGraphQL(context.Background(), "query{}", nil, nil)
	apiErr, ok := err.(*GitHubApiError)
	if !ok {
		t.Fatalf("err = %T, want *GitHubApiError", err)
	}
	if apiErr.Code != ErrServer {
		t.Fatalf("Code = %v, want server", apiErr.Code)
	}
}
