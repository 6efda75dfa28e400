package notify

import "fmt"

// IssueURL returns the GitHub web URL for an issue or PR number in
// "owner/repo", the deep link channels attach alongside an Event's title.
// Returns "" when either input is missing so callers can set Event.URL
// unconditionally without an extra branch.
func IssueURL(repoKey string, issueNumber int) string {
	if repoKey == "" || issueNumber == 0 {
		return ""
	}
	return fmt.Sprintf("https://github.com/%s/issues/%d", repoKey, issueNumber)
}
