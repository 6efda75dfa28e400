package relate

import (
	"context"
	"strings"

	"github.com/google/go-github/v68/github"

	"github.com/ralphcore/ralph/internal/ghclient"
)

// Aggregator fetches relationship signals for an issue, walking the
// REST-then-GraphQL capability ladder per (repo, kind) and merging in
// body-derived blocked_by refs.
type Aggregator struct {
	GH     *ghclient.Client
	Ladder *CapabilityLadder
}

// Aggregate returns the full signal set and coverage for one issue.
func (a *Aggregator) Aggregate(ctx context.Context, owner, repo string, issueNumber int, body string) (Result, error) {
	nwo := owner + "/" + repo

	subSignals, subComplete := a.fetchSubIssues(ctx, owner, repo, issueNumber, nwo)
	blockedSignals, depsComplete := a.fetchBlockedBy(ctx, owner, repo, issueNumber, nwo)

	bodySignals := ParseBodyBlockedBy(body, nwo)

	all := make([]Signal, 0, len(subSignals)+len(blockedSignals)+len(bodySignals))
	all = append(all, subSignals...)
	all = append(all, blockedSignals...)
	all = append(all, bodySignals...)

	return Result{
		Signals: all,
		Coverage: Coverage{
			DepsComplete:      depsComplete,
			SubIssuesComplete: subComplete,
			BodyDeps:          len(bodySignals) > 0,
		},
	}, nil
}

// fetchSubIssues walks the REST-then-GraphQL ladder: it tries the REST
// sub-issues endpoint first, and only falls back to GraphQL when REST
// reports not_found (the repo hasn't opted into sub-issues, or this GitHub
// host predates the endpoint).
func (a *Aggregator) fetchSubIssues(ctx context.Context, owner, repo string, issueNumber int, nwo string) ([]Signal, bool) {
	issues, err := a.GH.ListSubIssues(ctx, owner, repo, issueNumber)
	if err == nil {
		a.Ladder.MarkRESTOK(nwo, KindSubIssue)
		return restSubIssuesToSignals(issues, nwo), true
	}
	if apiErr := ghclient.Classify(err); apiErr == nil || apiErr.Code != ghclient.ErrNotFound {
		a.Ladder.MarkUnavailable(nwo, KindSubIssue)
		return nil, false
	}

	signals, complete, err := a.graphQLSubIssues(ctx, owner, repo, issueNumber)
	if err != nil {
		a.Ladder.MarkUnavailable(nwo, KindSubIssue)
		return nil, false
	}
	a.Ladder.MarkGraphQLOK(nwo, KindSubIssue)
	return signals, complete
}

// restSubIssuesToSignals converts REST sub-issues into signals, defaulting
// to the parent's own repo when GitHub doesn't echo a cross-repo Repository.
func restSubIssuesToSignals(issues []*github.Issue, nwo string) []Signal {
	signals := make([]Signal, 0, len(issues))
	for _, iss := range issues {
		ref := nwo
		if r := iss.GetRepository(); r != nil && r.GetFullName() != "" {
			ref = r.GetFullName()
		}
		state := StateUnknown
		switch strings.ToLower(iss.GetState()) {
		case "open":
			state = StateOpen
		case "closed":
			state = StateClosed
		}
		signals = append(signals, Signal{Source: SourceGitHub, Kind: KindSubIssue, State: state, Ref: ref + "#" + itoa(iss.GetNumber())})
	}
	return signals
}

func (a *Aggregator) graphQLSubIssues(ctx context.Context, owner, repo string, issueNumber int) ([]Signal, bool, error) {
	query := `query($owner: String!, $repo: String!, $number: Int!) {
		repository(owner: $owner, name: $repo) {
			issue(number: $number) {
				subIssues(first: 100) {
					nodes { number state repository { nameWithOwner } }
					pageInfo { hasNextPage }
				}
			}
		}
	}`
	var resp struct {
		Repository struct {
			Issue struct {
				SubIssues struct {
					Nodes []struct {
						Number     int    `json:"number"`
						State      string `json:"state"`
						Repository struct {
							NameWithOwner string `json:"nameWithOwner"`
						} `json:"repository"`
					} `json:"nodes"`
					PageInfo graphqlPageInfoAlias `json:"pageInfo"`
				} `json:"subIssues"`
			} `json:"issue"`
		} `json:"repository"`
	}
	err := a.queryGraphQL(ctx, query, map[string]any{"owner": owner, "repo": repo, "number": issueNumber}, &resp)
	if err != nil {
		return nil, false, err
	}
	signals := make([]Signal, 0, len(resp.Repository.Issue.SubIssues.Nodes))
	for _, n := range resp.Repository.Issue.SubIssues.Nodes {
		state := StateUnknown
		switch strings.ToUpper(n.State) {
		case "OPEN":
			state = StateOpen
		case "CLOSED":
			state = StateClosed
		}
		signals = append(signals, Signal{Source: SourceGitHub, Kind: KindSubIssue, State: state, Ref: n.Repository.NameWithOwner + "#" + itoa(n.Number)})
	}
	return signals, !resp.Repository.Issue.SubIssues.PageInfo.HasNextPage, nil
}

// fetchBlockedBy goes straight to GraphQL: unlike sub-issues, issue
// dependencies ("blocked by") have no REST surface at all in go-github v68 —
// trackedInIssues is GraphQL-only, so there is no REST rung to try here.
// The ladder still records the outcome so future calls skip straight there.
func (a *Aggregator) fetchBlockedBy(ctx context.Context, owner, repo string, issueNumber int, nwo string) ([]Signal, bool) {
	signals, complete, err := a.graphQLBlockedBy(ctx, owner, repo, issueNumber)
	if err != nil {
		a.Ladder.MarkUnavailable(nwo, KindBlockedBy)
		return nil, false
	}
	a.Ladder.MarkGraphQLOK(nwo, KindBlockedBy)
	return signals, complete
}

func (a *Aggregator) graphQLBlockedBy(ctx context.Context, owner, repo string, issueNumber int) ([]Signal, bool, error) {
	query := `query($owner: String!, $repo: String!, $number: Int!) {
		repository(owner: $owner, name: $repo) {
			issue(number: $number) {
				trackedInIssues(first: 100) {
					nodes { number state repository { nameWithOwner } }
					pageInfo { hasNextPage }
				}
			}
		}
	}`
	var resp struct {
		Repository struct {
			Issue struct {
				TrackedInIssues struct {
					Nodes []struct {
						Number     int    `json:"number"`
						State      string `json:"state"`
						Repository struct {
							NameWithOwner string `json:"nameWithOwner"`
						} `json:"repository"`
					} `json:"nodes"`
					PageInfo graphqlPageInfoAlias `json:"pageInfo"`
				} `json:"trackedInIssues"`
			} `json:"issue"`
		} `json:"repository"`
	}
	err := a.queryGraphQL(ctx, query, map[string]any{"owner": owner, "repo": repo, "number": issueNumber}, &resp)
	if err != nil {
		return nil, false, err
	}
	signals := make([]Signal, 0, len(resp.Repository.Issue.TrackedInIssues.Nodes))
	for _, n := range resp.Repository.Issue.TrackedInIssues.Nodes {
		state := StateUnknown
		switch strings.ToUpper(n.State) {
		case "OPEN":
			state = StateOpen
		case "CLOSED":
			state = StateClosed
		}
		signals = append(signals, Signal{Source: SourceGitHub, Kind: KindBlockedBy, State: state, Ref: n.Repository.NameWithOwner + "#" + itoa(n.Number)})
	}
	return signals, !resp.Repository.Issue.TrackedInIssues.PageInfo.HasNextPage, nil
}

// graphqlPageInfoAlias mirrors ghclient's pageInfo fragment locally since
// that type isn't exported.
type graphqlPageInfoAlias struct {
	HasNextPage bool `json:"hasNextPage"`
}

func (a *Aggregator) queryGraphQL(ctx context.Context, query string, vars map[string]any, out any) error {
	return a.GH.QueryGraphQL(ctx, query, vars, out)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
