// Package git provides the version-control facade used by the sync cycle:
// status, branch checkout, staging, commit and push against a single
// working directory.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/robolab/robosync/internal/logfields"
	gogit "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Client handles Git operations for one working directory.
type Client struct {
	workDir     string
	remote      string
	authorName  string
	authorEmail string
	now         func() time.Time
}

// NewClient creates a new Git client bound to the given working directory.
func NewClient(workDir string) *Client {
	return &Client{
		workDir:     workDir,
		remote:      "origin",
		authorName:  "robosync",
		authorEmail: "robosync@local",
		now:         time.Now,
	}
}

// WithRemote sets the remote used by Push (fluent helper).
func (c *Client) WithRemote(name string) *Client {
	if name != "" {
		c.remote = name
	}
	return c
}

// WithAuthor sets the commit author (fluent helper).
func (c *Client) WithAuthor(name, email string) *Client {
	if name != "" {
		c.authorName = name
	}
	if email != "" {
		c.authorEmail = email
	}
	return c
}

func (c *Client) open() (*gogit.Repository, *gogit.Worktree, error) {
	repo, err := gogit.PlainOpen(c.workDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open repository %s: %w", c.workDir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, nil, fmt.Errorf("worktree: %w", err)
	}
	return repo, wt, nil
}

// Status reports whether the working tree has any modification relative to
// HEAD. The tree is re-read on every call; staged-but-uncommitted changes
// count as modifications.
func (c *Client) Status() (bool, error) {
	_, wt, err := c.open()
	if err != nil {
		return false, err
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("status: %w", err)
	}
	return !status.IsClean(), nil
}

// EnsureBranch checks out the named branch, creating it from the current
// HEAD when it does not exist locally. Local modifications are kept across
// the checkout. Calling it when already on the branch is a no-op.
func (c *Client) EnsureBranch(name string) error {
	repo, wt, err := c.open()
	if err != nil {
		return err
	}
	branchRef := plumbing.NewBranchReferenceName(name)

	if head, herr := repo.Head(); herr == nil && head.Name() == branchRef {
		slog.Debug("Already on target branch", logfields.Branch(name))
		return nil
	}

	_, refErr := repo.Reference(branchRef, true)
	create := refErr != nil
	if err := wt.Checkout(&gogit.CheckoutOptions{Branch: branchRef, Create: create, Keep: true}); err != nil {
		if create {
			return fmt.Errorf("create branch %s: %w", name, err)
		}
		return fmt.Errorf("checkout branch %s: %w", name, err)
	}
	if create {
		slog.Info("Created device branch", logfields.Branch(name))
	} else {
		slog.Debug("Checked out device branch", logfields.Branch(name))
	}
	return nil
}

// StageAll stages every change in the working directory recursively,
// including deletions. Paths matched by the repository's own ignore rules
// are left alone; the client adds no exclusion logic of its own.
func (c *Client) StageAll() error {
	_, wt, err := c.open()
	if err != nil {
		return err
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return fmt.Errorf("stage all: %w", err)
	}
	return nil
}

// Commit creates a commit from the currently staged tree and returns its
// hash. It fails when nothing is staged.
func (c *Client) Commit(message string) (string, error) {
	_, wt, err := c.open()
	if err != nil {
		return "", err
	}
	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  c.authorName,
			Email: c.authorEmail,
			When:  c.now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}

// Push publishes the named branch to the configured remote. An up-to-date
// remote is success. Any other failure is returned classified; the caller
// decides whether it is fatal (for this service it never is).
func (c *Client) Push(ctx context.Context, branch string) error {
	repo, _, err := c.open()
	if err != nil {
		return err
	}
	refSpec := gitcfg.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err = repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: c.remote,
		RefSpecs:   []gitcfg.RefSpec{refSpec},
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return classifyPushError(c.remote, branch, err)
	}
	return nil
}
