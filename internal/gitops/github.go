package gitops

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fyrsmithlabs/sovereign/internal/config"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// ErrNoToken indicates a GitHub operation without a configured token.
var ErrNoToken = errors.New("GitHub token not set")

// NewGitHubClient creates a GitHub client authenticated with token.
func NewGitHubClient(ctx context.Context, token config.Secret) (*github.Client, error) {
	if !token.IsSet() {
		return nil, ErrNoToken
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
	tc := oauth2.NewClient(ctx, ts)
	return github.NewClient(tc), nil
}

// ensureRemoteRepo creates the GitHub repository and returns its clone URL.
// An existing repository with the same name is reused.
func ensureRemoteRepo(ctx context.Context, gh *github.Client, owner, name string, private bool) (string, error) {
	repo, _, err := gh.Repositories.Create(ctx, owner, &github.Repository{
		Name:    github.String(name),
		Private: github.Bool(private),
	})
	if err == nil {
		return repo.GetCloneURL(), nil
	}
	if !isAlreadyExists(err) {
		return "", fmt.Errorf("creating repository %s: %w", name, err)
	}

	if owner == "" {
		user, _, err := gh.Users.Get(ctx, "")
		if err != nil {
			return "", fmt.Errorf("resolving authenticated user: %w", err)
		}
		owner = user.GetLogin()
	}
	repo, _, err = gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return "", fmt.Errorf("fetching repository %s/%s: %w", owner, name, err)
	}
	return repo.GetCloneURL(), nil
}

func isAlreadyExists(err error) bool {
	var ge *github.ErrorResponse
	return errors.As(err, &ge) && ge.Response != nil &&
		ge.Response.StatusCode == http.StatusUnprocessableEntity
}
