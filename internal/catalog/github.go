package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v58/github"
)

// GitHubTags serves version catalogs from GitHub repository tags: the
// source-repository view of a project's releases. Package keys are
// "owner/repo" paths.
type GitHubTags struct {
	client *github.Client
}

// NewGitHubTags builds a tags catalog. token may be empty for anonymous
// access (subject to the lower unauthenticated rate limit).
func NewGitHubTags(httpClient *http.Client, token string) *GitHubTags {
	client := github.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &GitHubTags{client: client}
}

// WithBaseURL points the catalog at a different API endpoint. Used for
// GitHub Enterprise and for tests.
func (g *GitHubTags) WithBaseURL(baseURL string) (*GitHubTags, error) {
	client, err := g.client.WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, err
	}
	return &GitHubTags{client: client}, nil
}

// Versions implements Provider, listing all tags of the repository with
// "v" prefixes stripped. Lookup failures surface as UnavailableError.
func (g *GitHubTags) Versions(ctx context.Context, pkg string) ([]string, error) {
	parts := strings.SplitN(pkg, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, &UnavailableError{Package: pkg, Err: fmt.Errorf("package key must be owner/repo")}
	}
	owner, repo := parts[0], parts[1]

	var versions []string
	opts := &github.ListOptions{PerPage: 100}

	for {
		tags, resp, err := g.client.Repositories.ListTags(ctx, owner, repo, opts)
		if err != nil {
			return nil, &UnavailableError{Package: pkg, Err: err}
		}

		for _, tag := range tags {
			name := strings.TrimPrefix(tag.GetName(), "v")
			if name != "" {
				versions = append(versions, name)
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return versions, nil
}
