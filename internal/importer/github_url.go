package importer

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	githubHTTPPattern = regexp.MustCompile(
		`(?i)^(?:(?:https?|git)://)?(?:www\.)?github\.com/([a-z0-9][a-z0-9-]*)/([a-z0-9._-]+?)(?:\.git)?/?$`)
	githubSSHPattern = regexp.MustCompile(
		`(?i)^git@github\.com:([a-z0-9][a-z0-9-]*)/([a-z0-9._-]+?)(?:\.git)?$`)
)

// parseGitHubURL extracts owner and repository name from any accepted URL form.
func parseGitHubURL(raw string) (owner, repo string, ok bool) {
	raw = strings.TrimSpace(raw)
	for _, p := range []*regexp.Regexp{githubHTTPPattern, githubSSHPattern} {
		m := p.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		if m[2] == "." || m[2] == ".." {
			return "", "", false
		}
		return m[1], m[2], true
	}
	return "", "", false
}

// canonicalGitHubURL returns https://github.com/<owner>/<repo>, lowercased.
func canonicalGitHubURL(owner, repo string) string {
	return strings.ToLower(fmt.Sprintf("https://github.com/%s/%s", owner, repo))
}
