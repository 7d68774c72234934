package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// initRepo creates a repository with one initial commit in a temp directory.
func initRepo(t *testing.T) (string, *Client) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	writeFile(t, dir, "README.md", "state repo\n")
	if _, err := wt.Add("README.md"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err = wt.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@local", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("initial commit: %v", err)
	}
	return dir, NewClient(dir)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestStatusCleanAndDirty(t *testing.T) {
	dir, client := initRepo(t)

	changed, err := client.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if changed {
		t.Fatal("fresh repo should report no changes")
	}

	writeFile(t, dir, "telemetry.log", "42\n")
	changed, err = client.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !changed {
		t.Fatal("untracked file should count as a change")
	}
}

func TestStatusOutsideRepository(t *testing.T) {
	client := NewClient(t.TempDir())
	if _, err := client.Status(); err == nil {
		t.Fatal("expected error for non-repository directory")
	}
}

func TestEnsureBranchCreateAndIdempotent(t *testing.T) {
	dir, client := initRepo(t)

	if err := client.EnsureBranch("robot-unit1"); err != nil {
		t.Fatalf("create branch: %v", err)
	}
	// Re-running with the same name must be a no-op success.
	if err := client.EnsureBranch("robot-unit1"); err != nil {
		t.Fatalf("idempotent checkout: %v", err)
	}

	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Name().Short() != "robot-unit1" {
		t.Fatalf("expected HEAD on robot-unit1, got %s", head.Name().Short())
	}
}

func TestEnsureBranchKeepsLocalChanges(t *testing.T) {
	dir, client := initRepo(t)
	writeFile(t, dir, "README.md", "modified content\n")

	if err := client.EnsureBranch("robot-unit1"); err != nil {
		t.Fatalf("ensure branch: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "README.md"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "modified content\n" {
		t.Fatalf("local modification lost across checkout: %q", data)
	}
	changed, err := client.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !changed {
		t.Fatal("modification should survive the branch switch")
	}
}

func TestStageCommitFlow(t *testing.T) {
	dir, client := initRepo(t)
	writeFile(t, dir, "pose.json", `{"x":1}`)

	if err := client.StageAll(); err != nil {
		t.Fatalf("stage: %v", err)
	}
	hash, err := client.Commit("Auto-commit from unit1: 2026-08-23 10:00:00")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(hash) != 40 {
		t.Fatalf("unexpected commit hash %q", hash)
	}

	changed, err := client.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if changed {
		t.Fatal("tree should be clean after commit")
	}

	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		t.Fatalf("commit object: %v", err)
	}
	if commit.Message != "Auto-commit from unit1: 2026-08-23 10:00:00" {
		t.Fatalf("unexpected message %q", commit.Message)
	}
	if commit.Author.Name != "robosync" {
		t.Fatalf("unexpected author %q", commit.Author.Name)
	}
}

func TestCommitNothingStagedFails(t *testing.T) {
	_, client := initRepo(t)
	if _, err := client.Commit("empty"); err == nil {
		t.Fatal("expected commit to fail with nothing staged")
	}
}

func TestStageAllRespectsIgnoreRules(t *testing.T) {
	dir, client := initRepo(t)
	writeFile(t, dir, ".gitignore", "*.tmp\n")
	writeFile(t, dir, "scratch.tmp", "junk")
	writeFile(t, dir, "kept.txt", "keep")

	if err := client.StageAll(); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := client.Commit("snapshot"); err != nil {
		t.Fatalf("commit: %v", err)
	}

	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	head, _ := repo.Head()
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		t.Fatalf("commit object: %v", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if _, err := tree.File("kept.txt"); err != nil {
		t.Error("kept.txt should be committed")
	}
	if _, err := tree.File("scratch.tmp"); err == nil {
		t.Error("scratch.tmp should have been ignored")
	}
}

func TestPushWithoutRemoteIsClassified(t *testing.T) {
	_, client := initRepo(t)

	err := client.Push(context.Background(), "master")
	if err == nil {
		t.Fatal("expected push to fail without a configured remote")
	}
	var noRemote *NoRemoteError
	if !errors.As(err, &noRemote) {
		t.Fatalf("expected NoRemoteError, got %T: %v", err, err)
	}
}

func TestClassifyPushError(t *testing.T) {
	cases := []struct {
		detail string
		check  func(error) bool
	}{
		{"authentication required", func(err error) bool { var e *AuthError; return errors.As(err, &e) }},
		{"non-fast-forward update", func(err error) bool { var e *RejectedError; return errors.As(err, &e) }},
		{"dial tcp: connection refused", func(err error) bool { var e *NetworkError; return errors.As(err, &e) }},
		{"remote not found", func(err error) bool { var e *NoRemoteError; return errors.As(err, &e) }},
	}
	for _, tc := range cases {
		got := classifyPushError("origin", "robot-unit1", errors.New(tc.detail))
		if !tc.check(got) {
			t.Errorf("classification of %q wrong: %T", tc.detail, got)
		}
	}
	if classifyPushError("origin", "b", nil) != nil {
		t.Error("nil error should classify to nil")
	}
	plain := errors.New("something else entirely")
	if got := classifyPushError("origin", "b", plain); got != plain {
		t.Errorf("unknown errors should pass through unchanged, got %v", got)
	}
}
