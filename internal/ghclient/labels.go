package ghclient

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/go-github/v68/github"
)

// LabelSpec is the canonical definition of one ralph-reserved label.
type LabelSpec struct {
	Name        string
	Color       string // hex, no leading '#'
	Description string
}

// StatusLabels are the mutually-exclusive `ralph:status:*` labels (spec §6).
var StatusLabels = []LabelSpec{
	{Name: "ralph:status:queued", Color: "0366D6", Description: "Queued for a ralph worker to claim"},
	{Name: "ralph:status:in-progress", Color: "FBCA04", Description: "A ralph worker is actively running this task"},
	{Name: "ralph:status:blocked", Color: "D73A4A", Description: "Blocked on an unresolved dependency"},
	{Name: "ralph:status:paused", Color: "6A737D", Description: "Paused by operator request"},
	{Name: "ralph:status:throttled", Color: "F9A825", Description: "Throttled by a rate limit or circuit breaker"},
	{Name: "ralph:status:in-bot", Color: "0E8A16", Description: "Landed on the bot integration branch, awaiting rollup"},
	{Name: "ralph:status:done", Color: "1A7F37", Description: "Completed and verified"},
	// escalated is a Task status (spec §3) and sits in the precedence table
	// (spec §4.D) between blocked and in-progress, but isn't in the §6
	// reserved-label list; on GitHub it surfaces as ralph:status:blocked with
	// blocked_source=escalation, per the resolve-path's "remove blocked
	// label" wording (spec §4.G). No separate GitHub label is created for it.
}

// CommandLabels are operator-settable labels that drive queue transitions.
var CommandLabels = []LabelSpec{
	{Name: "ralph:cmd:queue", Color: "0366D6", Description: "Request (re)queueing"},
	{Name: "ralph:cmd:pause", Color: "6A737D", Description: "Request a pause at the next checkpoint"},
	{Name: "ralph:cmd:stop", Color: "D73A4A", Description: "Request an immediate stop"},
	{Name: "ralph:cmd:satisfy", Color: "1A7F37", Description: "Mark a blocking dependency satisfied"},
}

// MetaBlockedLabel is advisory-only; ralph:status:blocked is authoritative
// for scheduling (spec §9 open question decision).
const MetaBlockedLabel = "ralph:meta:blocked"

// AllReservedLabels returns every label ralph-core creates/updates.
func AllReservedLabels() []LabelSpec {
	out := make([]LabelSpec, 0, len(StatusLabels)+len(CommandLabels)+1)
	out = append(out, StatusLabels...)
	out = append(out, CommandLabels...)
	out = append(out, LabelSpec{Name: MetaBlockedLabel, Color: "D73A4A", Description: "Advisory: a child issue is blocked (not authoritative for scheduling)"})
	return out
}

// labelIDCache memoizes a repo's label name -> GraphQL node ID mapping for
// the lifetime of the process, since label sets rarely change mid-run.
type labelIDCache struct {
	mu   sync.RWMutex
	byNW map[string]map[string]string // "owner/repo" -> label name (lowercased) -> node id
}

var globalLabelIDCache = &labelIDCache{byNW: map[string]map[string]string{}}

func (c *labelIDCache) get(nwo, name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byNW[nwo]
	if !ok {
		return "", false
	}
	id, ok := m[strings.ToLower(name)]
	return id, ok
}

func (c *labelIDCache) put(nwo, name, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.byNW[nwo]
	if !ok {
		m = map[string]string{}
		c.byNW[nwo] = m
	}
	m[strings.ToLower(name)] = id
}

// ListRepoLabels lists every label on a repo, paginating through all pages.
func (c *Client) ListRepoLabels(ctx context.Context, owner, repo string) ([]*github.Label, error) {
	return PaginateREST(ctx, func(opt *github.ListOptions) ([]*github.Label, *github.Response, error) {
		return c.REST.Issues.ListLabels(ctx, owner, repo, &github.ListOptions{Page: opt.Page, PerPage: opt.PerPage})
	})
}

// CreateLabel creates a new label on a repo.
func (c *Client) CreateLabel(ctx context.Context, owner, repo string, spec LabelSpec) (*github.Label, error) {
	lbl, _, err := c.REST.Issues.CreateLabel(ctx, owner, repo, &github.Label{
		Name:        &spec.Name,
		Color:       &spec.Color,
		Description: &spec.Description,
	})
	if err != nil {
		return nil, Classify(err)
	}
	return lbl, nil
}

// UpdateLabel updates an existing label's color/description in place,
// preserving its current name casing.
func (c *Client) UpdateLabel(ctx context.Context, owner, repo, currentName string, spec LabelSpec) (*github.Label, error) {
	lbl, _, err := c.REST.Issues.EditLabel(ctx, owner, repo, currentName, &github.Label{
		Name:        &currentName,
		Color:       &spec.Color,
		Description: &spec.Description,
	})
	if err != nil {
		return nil, Classify(err)
	}
	return lbl, nil
}

// sameLabelColor compares two colors case-insensitively, ignoring a leading '#'.
func sameLabelColor(a, b string) bool {
	clean := func(s string) string { return strings.ToLower(strings.TrimPrefix(s, "#")) }
	return clean(a) == clean(b)
}

// EnsureReservedLabels converges the repo's reserved labels toward
// AllReservedLabels(): creates missing ones, updates color/description on
// existing ones (case-insensitive name match, preferring the canonical
// casing already on GitHub if present), and never deletes anything.
func (c *Client) EnsureReservedLabels(ctx context.Context, owner, repo string) error {
	existing, err := c.ListRepoLabels(ctx, owner, repo)
	if err != nil {
		return err
	}
	byLower := map[string]*github.Label{}
	for _, l := range existing {
		byLower[strings.ToLower(l.GetName())] = l
	}

	for _, spec := range AllReservedLabels() {
		cur, ok := byLower[strings.ToLower(spec.Name)]
		if !ok {
			if _, err := c.CreateLabel(ctx, owner, repo, spec); err != nil {
				return fmt.Errorf("ghclient: creating label %q on %s/%s: %w", spec.Name, owner, repo, err)
			}
			continue
		}
		if sameLabelColor(cur.GetColor(), spec.Color) && cur.GetDescription() == spec.Description {
			continue
		}
		if _, err := c.UpdateLabel(ctx, owner, repo, cur.GetName(), spec); err != nil {
			return fmt.Errorf("ghclient: updating label %q on %s/%s: %w", spec.Name, owner, repo, err)
		}
	}
	return nil
}

// labelNodeID resolves a label's GraphQL node ID, using and populating the
// process-lifetime cache.
func (c *Client) labelNodeID(ctx context.Context, owner, repo, name string) (string, error) {
	nwo := owner + "/" + repo
	if id, ok := globalLabelIDCache.get(nwo, name); ok {
		return id, nil
	}

	query := `query($owner: String!, $repo: String!, $name: String!) {
		repository(owner: $owner, name: $repo) {
			label(name: $name) { id name }
		}
	}`
	var resp struct {
		Repository struct {
			Label *struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"label"`
		} `json:"repository"`
	}
	err := c.graphqlDo(ctx, query, map[string]any{"owner": owner, "repo": repo, "name": name}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Repository.Label == nil {
		return "", fmt.Errorf("ghclient: label %q not found on %s/%s", name, owner, repo)
	}
	globalLabelIDCache.put(nwo, resp.Repository.Label.Name, resp.Repository.Label.ID)
	return resp.Repository.Label.ID, nil
}

// MutateIssueLabels adds and removes labels on an issue/PR via the GraphQL
// addLabelsToLabelable / removeLabelsFromLabelable mutations, which (unlike
// the REST add/remove-label endpoints) accept node IDs and never race a
// concurrent labeler the way read-modify-write REST calls can.
func (c *Client) MutateIssueLabels(ctx context.Context, owner, repo string, issueNodeID string, add, remove []string) error {
	if err := c.mutateLabels(ctx, owner, repo, issueNodeID, add, "addLabelsToLabelable"); err != nil {
		return err
	}
	return c.mutateLabels(ctx, owner, repo, issueNodeID, remove, "removeLabelsFromLabelable")
}

func (c *Client) mutateLabels(ctx context.Context, owner, repo, issueNodeID string, names []string, mutationName string) error {
	if len(names) == 0 {
		return nil
	}
	labelIDs := make([]string, 0, len(names))
	for _, n := range names {
		id, err := c.labelNodeID(ctx, owner, repo, n)
		if err != nil {
			return err
		}
		labelIDs = append(labelIDs, id)
	}

	query := fmt.Sprintf(`mutation($labelableId: ID!, $labelIds: [ID!]!) {
		%s(input: {labelableId: $labelableId, labelIds: $labelIds}) {
			clientMutationId
		}
	}`, mutationName)

	return c.graphqlDo(ctx, query, map[string]any{"labelableId": issueNodeID, "labelIds": labelIDs}, nil)
}

// GetIssueNodeID fetches the GraphQL node ID for an issue, needed by
// MutateIssueLabels.
func (c *Client) GetIssueNodeID(ctx context.Context, owner, repo string, number int) (string, error) {
	issue, _, err := c.GetIssue(ctx, owner, repo, number)
	if err != nil {
		return "", err
	}
	return issue.GetNodeID(), nil
}
