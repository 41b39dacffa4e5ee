// Package gitops executes the version-control stages of the natural-language
// pipeline against a local working tree and GitHub.
//
// Supported actions:
//
//	git_init           initialise <work_dir>/<repo_name>
//	add_initial_files  seed README.md when missing and stage everything
//	commit             record the initial commit
//	github_push        create the GitHub repository and push to it
//
// Every other action answers {"success": false, "message": "Unknown action"}.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyrsmithlabs/sovereign/internal/config"
	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
)

// Action names.
const (
	ActionInit       = "git_init"
	ActionAddInitial = "add_initial_files"
	ActionCommit     = "commit"
	ActionPush       = "github_push"
)

const (
	remoteName    = "origin"
	commitMessage = "Initial commit"
)

// Actor runs git actions for one repository.
type Actor struct {
	cfg       config.GitConfig
	logger    *logging.Logger
	newGitHub func(ctx context.Context) (*github.Client, error)
	now       func() time.Time
}

// Option configures an Actor.
type Option func(*Actor)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Actor) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithGitHubClient overrides how the GitHub client is built.
func WithGitHubClient(fn func(ctx context.Context) (*github.Client, error)) Option {
	return func(a *Actor) {
		a.newGitHub = fn
	}
}

// NewActor creates an Actor for cfg.
func NewActor(cfg config.GitConfig, opts ...Option) *Actor {
	a := &Actor{
		cfg:    cfg,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	a.newGitHub = func(ctx context.Context) (*github.Client, error) {
		return NewGitHubClient(ctx, a.cfg.Token)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RepoPath is the local path of the managed repository.
func (a *Actor) RepoPath() string {
	return filepath.Join(a.cfg.WorkDir, a.cfg.RepoName)
}

// ExecuteGitAction runs action. The response always carries a boolean
// "success" and a string "message". Infrastructure failures are returned
// as errors.
func (a *Actor) ExecuteGitAction(ctx context.Context, action string) (map[string]any, error) {
	var (
		msg string
		err error
	)
	switch action {
	case ActionInit:
		msg, err = a.initRepo()
	case ActionAddInitial:
		msg, err = a.addInitialFiles()
	case ActionCommit:
		msg, err = a.commit()
	case ActionPush:
		msg, err = a.push(ctx)
	default:
		return result(false, "Unknown action"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	a.logger.Info(ctx, "git action completed",
		zap.String("action", action),
		zap.String("repo", a.RepoPath()),
	)
	return result(true, msg), nil
}

func result(success bool, message string) map[string]any {
	return map[string]any{"success": success, "message": message}
}

func (a *Actor) initRepo() (string, error) {
	_, err := git.PlainInit(a.RepoPath(), false)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		return fmt.Sprintf("Repo %s already initialized", a.cfg.RepoName), nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Repo %s initialized", a.cfg.RepoName), nil
}

func (a *Actor) addInitialFiles() (string, error) {
	repo, err := git.PlainOpen(a.RepoPath())
	if err != nil {
		return "", fmt.Errorf("opening repository: %w", err)
	}

	readme := filepath.Join(a.RepoPath(), "README.md")
	if _, err := os.Stat(readme); errors.Is(err, os.ErrNotExist) {
		content := fmt.Sprintf("# %s\n", a.cfg.RepoName)
		if err := os.WriteFile(readme, []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("writing README: %w", err)
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("staging files: %w", err)
	}
	return fmt.Sprintf("Added initial files to %s", a.cfg.RepoName), nil
}

func (a *Actor) commit() (string, error) {
	repo, err := git.PlainOpen(a.RepoPath())
	if err != nil {
		return "", fmt.Errorf("opening repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}

	hash, err := wt.Commit(commitMessage, &git.CommitOptions{
		Author: &object.Signature{
			Name:  a.cfg.AuthorName,
			Email: a.cfg.AuthorEmail,
			When:  a.now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return fmt.Sprintf("Committed %s", hash.String()[:7]), nil
}

func (a *Actor) push(ctx context.Context) (string, error) {
	repo, err := git.PlainOpen(a.RepoPath())
	if err != nil {
		return "", fmt.Errorf("opening repository: %w", err)
	}

	gh, err := a.newGitHub(ctx)
	if err != nil {
		return "", err
	}
	cloneURL, err := ensureRemoteRepo(ctx, gh, a.cfg.Owner, a.cfg.RepoName, a.cfg.Private)
	if err != nil {
		return "", err
	}
	if err := setRemote(repo, cloneURL); err != nil {
		return "", err
	}

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		Auth:       a.auth(cloneURL),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("pushing to %s: %w", cloneURL, err)
	}
	return "Pushed to GitHub", nil
}

// setRemote points origin at url, replacing a stale remote.
func setRemote(repo *git.Repository, url string) error {
	remote, err := repo.Remote(remoteName)
	switch {
	case err == nil:
		urls := remote.Config().URLs
		if len(urls) > 0 && urls[0] == url {
			return nil
		}
		if err := repo.DeleteRemote(remoteName); err != nil {
			return fmt.Errorf("removing remote: %w", err)
		}
	case !errors.Is(err, git.ErrRemoteNotFound):
		return fmt.Errorf("reading remote: %w", err)
	}

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: remoteName,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("creating remote: %w", err)
	}
	return nil
}

// auth returns token auth for HTTP remotes. Local remotes need none.
func (a *Actor) auth(url string) transport.AuthMethod {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil
	}
	return &githttp.BasicAuth{
		Username: "x-access-token",
		Password: a.cfg.Token.Value(),
	}
}
