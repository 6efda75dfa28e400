// Package ghclient wraps google/go-github with the authentication,
// pagination, label, and rate-limit handling ralph-core's scheduler and
// reconcilers need on top of the bare REST/GraphQL surface.
package ghclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/ralphcore/ralph/internal/config"
)

// Client bundles the REST client and a raw GraphQL POST helper, sharing one
// authenticated transport between them. GraphQL calls are issued as plain
// HTTP POSTs rather than through a generated client, since the handful of
// mutations ralph-core needs (label add/remove, sub-issue/blocked-by reads)
// don't justify a schema-codegen dependency.
type Client struct {
	REST       *github.Client
	httpClient *http.Client
	graphqlURL string

	tokenSrc *installationTokenSource // nil when authenticating via PAT
	host     string
}

// New builds a Client from GitHubConfig. App-installation auth (AppID +
// InstallationID + PrivateKeyPath all set) takes precedence over a static
// PAT.
func New(cfg config.GitHubConfig) (*Client, error) {
	host := cfg.Host
	if host == "" {
		host = "github.com"
	}
	restBase, graphqlURL := apiURLs(host)

	var httpClient *http.Client
	var tokenSrc *installationTokenSource

	switch {
	case cfg.AppID != 0 && cfg.InstallationID != 0 && cfg.PrivateKeyPath != "":
		src, err := newInstallationTokenSource(cfg, restBase)
		if err != nil {
			return nil, fmt.Errorf("ghclient: building installation token source: %w", err)
		}
		tokenSrc = src
		httpClient = &http.Client{Transport: &installationRoundTripper{src: src}}
	case cfg.Token != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	default:
		return nil, fmt.Errorf("ghclient: no credentials configured (need token or app_id/installation_id/private_key_path)")
	}

	rest := github.NewClient(httpClient)
	if host != "github.com" {
		var err error
		rest, err = rest.WithEnterpriseURLs(restBase, restBase)
		if err != nil {
			return nil, fmt.Errorf("ghclient: configuring enterprise urls: %w", err)
		}
	}

	return &Client{REST: rest, httpClient: httpClient, graphqlURL: graphqlURL, tokenSrc: tokenSrc, host: host}, nil
}

// graphqlErrors is the subset of a GraphQL response envelope ralph-core
// inspects for top-level errors.
type graphqlErrors struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// QueryGraphQL issues a GraphQL query/mutation and decodes the "data" field
// of the response into out. Exported for callers outside ghclient (relate,
// labels) that need ad-hoc queries this package doesn't wrap.
func (c *Client) QueryGraphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	return c.graphqlDo(ctx, query, variables, out)
}

// graphqlDo issues a GraphQL query/mutation and decodes the "data" field of
// the response into out.
func (c *Client) graphqlDo(ctx context.Context, query string, variables map[string]any, out any) error {
	payload := map[string]any{"query": query, "variables": variables}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ghclient: marshaling graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ghclient: building graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Classify(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ghclient: reading graphql response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &GitHubApiError{Code: classifyStatus(resp.StatusCode), Status: resp.StatusCode, ResponseText: string(respBody)}
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("ghclient: decoding graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return &GitHubApiError{Code: ErrValidation, Status: resp.StatusCode, ResponseText: envelope.Errors[0].Message}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("ghclient: decoding graphql data: %w", err)
		}
	}
	return nil
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuth
	case status == http.StatusTooManyRequests:
		return ErrRateLimit
	case status >= 500:
		return ErrServer
	default:
		return ErrUnknown
	}
}

func apiURLs(host string) (restBase, graphqlURL string) {
	if host == "github.com" || host == "" {
		return "https://api.github.com/", "https://api.github.com/graphql"
	}
	return fmt.Sprintf("https://%s/api/v3/", host), fmt.Sprintf("https://%s/api/graphql", host)
}

// bgCtx is used for the one call (installation token minting) that happens
// outside any caller-supplied context, since it's invoked lazily from
// within an http.RoundTripper.
func bgCtx() context.Context { return context.Background() }

// GetIssue fetches a single issue.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error) {
	issue, resp, err := c.REST.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, resp, Classify(err)
	}
	return issue, resp, nil
}

// ListSubIssues lists an issue's sub-issues via the REST sub-issues endpoint,
// draining every page. Returns a not_found GitHubApiError if the endpoint
// isn't available for this repo (not yet opted into sub-issues).
func (c *Client) ListSubIssues(ctx context.Context, owner, repo string, number int) ([]*github.Issue, error) {
	return PaginateREST(ctx, func(opt *github.ListOptions) ([]*github.Issue, *github.Response, error) {
		return c.REST.Issues.ListSubIssues(ctx, owner, repo, number, &github.IssueListOptions{ListOptions: *opt})
	})
}

// ListIssueComments lists comments on an issue or PR, newest last.
func (c *Client) ListIssueComments(ctx context.Context, owner, repo string, number int, opt *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error) {
	comments, resp, err := c.REST.Issues.ListComments(ctx, owner, repo, number, opt)
	if err != nil {
		return nil, resp, Classify(err)
	}
	return comments, resp, nil
}

// CreateComment posts a new comment on an issue or PR.
func (c *Client) CreateComment(ctx context.Context, owner, repo string, number int, body string) (*github.IssueComment, error) {
	comment, _, err := c.REST.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{Body: &body})
	if err != nil {
		return nil, Classify(err)
	}
	return comment, nil
}

// CloseIssue sets an issue's state to closed.
func (c *Client) CloseIssue(ctx context.Context, owner, repo string, number int) error {
	closed := "closed"
	_, _, err := c.REST.Issues.Edit(ctx, owner, repo, number, &github.IssueRequest{State: &closed})
	if err != nil {
		return Classify(err)
	}
	return nil
}

// UpdateComment edits an existing comment in place (used for idempotent
// marker-comment writeback).
func (c *Client) UpdateComment(ctx context.Context, owner, repo string, commentID int64, body string) error {
	_, _, err := c.REST.Issues.EditComment(ctx, owner, repo, commentID, &github.IssueComment{Body: &body})
	if err != nil {
		return Classify(err)
	}
	return nil
}

// GetPullRequest fetches a single PR.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	pr, _, err := c.REST.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, Classify(err)
	}
	return pr, nil
}

// ListCheckRuns lists check runs for a commit ref (used to poll required
// checks before merge).
func (c *Client) ListCheckRuns(ctx context.Context, owner, repo, ref string) (*github.ListCheckRunsResults, error) {
	res, _, err := c.REST.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, nil)
	if err != nil {
		return nil, Classify(err)
	}
	return res, nil
}

// DefaultBranch fetches a repo's configured default branch (e.g. "main").
func (c *Client) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	r, _, err := c.REST.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", Classify(err)
	}
	return r.GetDefaultBranch(), nil
}

// ListMergedPullRequests lists every merged PR targeting base, closed-state,
// newest-updated-first, across as many pages as exist — the reconcilers
// re-filter by merge time against their own cursor, so this intentionally
// doesn't take a since parameter.
func (c *Client) ListMergedPullRequests(ctx context.Context, owner, repo, base string) ([]*github.PullRequest, error) {
	return PaginateREST(ctx, func(opt *github.ListOptions) ([]*github.PullRequest, *github.Response, error) {
		prs, resp, err := c.REST.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
			State:       "closed",
			Base:        base,
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: *opt,
		})
		if err != nil {
			return nil, resp, err
		}
		var merged []*github.PullRequest
		for _, pr := range prs {
			if pr.MergedAt != nil {
				merged = append(merged, pr)
			}
		}
		return merged, resp, nil
	})
}

// CreatePullRequest opens a PR from head onto base. Callers are responsible
// for idempotence (checking for an existing open PR for the branch first);
// this is a thin wrapper over the REST create call.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo, title, head, base, body string) (*github.PullRequest, error) {
	pr, _, err := c.REST.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: &title,
		Head:  &head,
		Base:  &base,
		Body:  &body,
	})
	if err != nil {
		return nil, Classify(err)
	}
	return pr, nil
}

// ListPullRequestsForBranch lists open PRs whose head matches
// "owner:branch", used to find an existing PR before opening a new one.
func (c *Client) ListPullRequestsForBranch(ctx context.Context, owner, repo, branch string) ([]*github.PullRequest, error) {
	prs, _, err := c.REST.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		Head:  fmt.Sprintf("%s:%s", owner, branch),
		State: "open",
	})
	if err != nil {
		return nil, Classify(err)
	}
	return prs, nil
}

// RateLimits fetches the current rate-limit status across resources.
func (c *Client) RateLimits(ctx context.Context) (*github.RateLimits, error) {
	rl, _, err := c.REST.RateLimit.Get(ctx)
	if err != nil {
		return nil, Classify(err)
	}
	return rl, nil
}
