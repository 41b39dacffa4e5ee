package gitops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fyrsmithlabs/sovereign/internal/config"
	"github.com/go-git/go-git/v5"
	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.GitConfig {
	t.Helper()
	return config.GitConfig{
		WorkDir:     t.TempDir(),
		RepoName:    "new_repo",
		AuthorName:  "sovereign",
		AuthorEmail: "sovereign@localhost",
		Token:       config.Secret("ghp_test"),
	}
}

func run(t *testing.T, a *Actor, action string) map[string]any {
	t.Helper()
	resp, err := a.ExecuteGitAction(context.Background(), action)
	require.NoError(t, err)
	return resp
}

func TestExecuteGitAction_Init(t *testing.T) {
	a := NewActor(testConfig(t))

	resp := run(t, a, ActionInit)
	assert.Equal(t, map[string]any{"success": true, "message": "Repo new_repo initialized"}, resp)
	assert.DirExists(t, filepath.Join(a.RepoPath(), ".git"))

	again := run(t, a, ActionInit)
	assert.Equal(t, true, again["success"])
	assert.Equal(t, "Repo new_repo already initialized", again["message"])
}

func TestExecuteGitAction_Unknown(t *testing.T) {
	a := NewActor(testConfig(t))

	for _, action := range []string{"git status", "", "push"} {
		resp := run(t, a, action)
		assert.Equal(t, map[string]any{"success": false, "message": "Unknown action"}, resp, action)
	}
}

func TestExecuteGitAction_AddAndCommit(t *testing.T) {
	a := NewActor(testConfig(t))
	a.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	run(t, a, ActionInit)
	resp := run(t, a, ActionAddInitial)
	assert.Equal(t, "Added initial files to new_repo", resp["message"])

	readme, err := os.ReadFile(filepath.Join(a.RepoPath(), "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "# new_repo\n", string(readme))

	resp = run(t, a, ActionCommit)
	assert.Equal(t, true, resp["success"])
	assert.Regexp(t, `^Committed [0-9a-f]{7}$`, resp["message"])

	repo, err := git.PlainOpen(a.RepoPath())
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Initial commit", commit.Message)
	assert.Equal(t, "sovereign", commit.Author.Name)
	assert.Equal(t, "sovereign@localhost", commit.Author.Email)
}

func TestExecuteGitAction_KeepsExistingReadme(t *testing.T) {
	a := NewActor(testConfig(t))
	run(t, a, ActionInit)
	readme := filepath.Join(a.RepoPath(), "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("custom\n"), 0o644))

	run(t, a, ActionAddInitial)

	data, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.Equal(t, "custom\n", string(data))
}

func TestExecuteGitAction_StagesBeforeInitFail(t *testing.T) {
	a := NewActor(testConfig(t))

	for _, action := range []string{ActionAddInitial, ActionCommit, ActionPush} {
		_, err := a.ExecuteGitAction(context.Background(), action)
		assert.Error(t, err, action)
	}
}

// fakeGitHub serves the repository endpoints used by github_push.
func fakeGitHub(t *testing.T, cloneURL string, exists bool) *github.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/repos", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if exists {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"Repository creation failed.","errors":[{"resource":"Repository","code":"custom","field":"name","message":"name already exists on this account"}]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"name": body["name"], "clone_url": cloneURL})
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"login":"octo"}`))
	})
	mux.HandleFunc("GET /repos/octo/new_repo", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "new_repo", "clone_url": cloneURL})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return client
}

func TestExecuteGitAction_Push(t *testing.T) {
	for _, exists := range []bool{false, true} {
		name := "create"
		if exists {
			name = "already exists"
		}
		t.Run(name, func(t *testing.T) {
			bare := t.TempDir()
			_, err := git.PlainInit(bare, true)
			require.NoError(t, err)

			gh := fakeGitHub(t, bare, exists)
			a := NewActor(testConfig(t), WithGitHubClient(func(context.Context) (*github.Client, error) {
				return gh, nil
			}))

			run(t, a, ActionInit)
			run(t, a, ActionAddInitial)
			run(t, a, ActionCommit)
			resp := run(t, a, ActionPush)
			assert.Equal(t, map[string]any{"success": true, "message": "Pushed to GitHub"}, resp)

			local, err := git.PlainOpen(a.RepoPath())
			require.NoError(t, err)
			localHead, err := local.Head()
			require.NoError(t, err)

			remote, err := git.PlainOpen(bare)
			require.NoError(t, err)
			ref, err := remote.Reference(localHead.Name(), true)
			require.NoError(t, err)
			assert.Equal(t, localHead.Hash(), ref.Hash())

			// A second push is a no-op.
			resp = run(t, a, ActionPush)
			assert.Equal(t, true, resp["success"])
		})
	}
}

func TestExecuteGitAction_PushWithoutToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Token = ""
	a := NewActor(cfg)
	run(t, a, ActionInit)

	_, err := a.ExecuteGitAction(context.Background(), ActionPush)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestAuth(t *testing.T) {
	a := NewActor(testConfig(t))
	assert.Nil(t, a.auth("/tmp/bare"))
	assert.NotNil(t, a.auth("https://github.com/octo/new_repo.git"))
}
