package ghclient

import (
	"context"

	"github.com/google/go-github/v68/github"
)

// PaginateREST drains every page of a Link-header-paginated REST listing,
// calling fetch once per page and appending its results.
func PaginateREST[T any](ctx context.Context, fetch func(opt *github.ListOptions) ([]T, *github.Response, error)) ([]T, error) {
	var all []T
	opt := &github.ListOptions{PerPage: 100}
	for {
		page, resp, err := fetch(opt)
		if err != nil {
			return nil, Classify(err)
		}
		all = append(all, page...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return all, nil
}

// graphqlPageInfo mirrors a Relay-style pageInfo fragment.
type graphqlPageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// paginateGraphQL drains a GraphQL connection by repeatedly calling fetch
// with the previous page's end cursor, until pageInfo.hasNextPage is false.
// extract pulls the page's pageInfo and items out of the decoded page value.
func paginateGraphQL[T any](
	ctx context.Context,
	fetch func(ctx context.Context, after string) (T, graphqlPageInfo, error),
) ([]T, error) {
	var pages []T
	after := ""
	for {
		page, info, err := fetch(ctx, after)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
		if !info.HasNextPage || info.EndCursor == "" {
			break
		}
		after = info.EndCursor
	}
	return pages, nil
}
