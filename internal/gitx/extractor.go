package gitx

import (
	"context"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/bugrewind/bugrewind/internal/errors"
	"github.com/bugrewind/bugrewind/internal/logging"
	"github.com/bugrewind/bugrewind/internal/models"
)

// Extractor walks repository history and produces structured commit records.
// Each call re-walks history from HEAD; the walk itself is lazy, commits are
// materialized one at a time through the visitor.
type Extractor struct {
	repo   *Repo
	logger *logging.Logger
}

// WalkResult carries the extracted commits plus precise accounting of what
// the walk could not process.
type WalkResult struct {
	Commits []models.Commit
	Skipped int
	Errors  []*errors.Error
}

// NewExtractor creates an extractor over an opened repository.
func NewExtractor(repo *Repo, logger *logging.Logger) *Extractor {
	if logger == nil {
		logger, _ = logging.NewLogger(logging.DebugConfig())
	}
	return &Extractor{repo: repo, logger: logger.With("component", "extractor")}
}

// Walk visits up to maxCommits commits most-recent-first, calling visit for
// each one. A commit whose diff cannot be computed is skipped and counted,
// never aborting the walk. maxCommits <= 0 means no limit.
func (e *Extractor) Walk(ctx context.Context, maxCommits int, visit func(models.Commit) error) (skipped int, errs []*errors.Error, err error) {
	head, err := e.repo.Repository.Head()
	if err != nil {
		return 0, nil, errors.RepositoryAccess(err, e.repo.URL)
	}

	iter, err := e.repo.Repository.Log(&git.LogOptions{
		From:  head.Hash(),
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return 0, nil, errors.RepositoryAccess(err, e.repo.URL)
	}
	defer iter.Close()

	count := 0
	walkErr := iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if maxCommits > 0 && count >= maxCommits {
			return storer.ErrStop
		}

		record, recErr := e.commitRecord(ctx, c)
		if recErr != nil {
			skipped++
			errs = append(errs, errors.HistoryTraversal(recErr, c.Hash.String()))
			e.logger.Warn("skipping commit", "sha", c.Hash.String(), "error", recErr)
			return nil
		}

		count++
		return visit(record)
	})
	if walkErr != nil && walkErr != storer.ErrStop {
		return skipped, errs, walkErr
	}

	return skipped, errs, nil
}

// Extract collects up to maxCommits commit records most-recent-first.
func (e *Extractor) Extract(ctx context.Context, maxCommits int) (*WalkResult, error) {
	result := &WalkResult{}
	skipped, errs, err := e.Walk(ctx, maxCommits, func(c models.Commit) error {
		result.Commits = append(result.Commits, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Skipped = skipped
	result.Errors = errs

	e.logger.Info("extraction complete",
		"repo", e.repo.Name,
		"commits", len(result.Commits),
		"skipped", result.Skipped)
	return result, nil
}

// commitRecord resolves changed paths and line deltas against the first
// parent (root commits diff against the empty tree).
func (e *Extractor) commitRecord(ctx context.Context, c *object.Commit) (models.Commit, error) {
	record := models.Commit{
		SHA:            c.Hash.String(),
		RepoURL:        e.repo.URL,
		RepoName:       e.repo.Name,
		AuthorName:     c.Author.Name,
		AuthorEmail:    c.Author.Email,
		CommitterName:  c.Committer.Name,
		CommitterEmail: c.Committer.Email,
		CommitDate:     c.Author.When.UTC(),
		Message:        strings.TrimSpace(c.Message),
	}

	for _, parent := range c.ParentHashes {
		record.ParentSHAs = append(record.ParentSHAs, parent.String())
	}

	tree, err := c.Tree()
	if err != nil {
		return models.Commit{}, err
	}

	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return models.Commit{}, err
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return models.Commit{}, err
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return models.Commit{}, err
	}

	for _, change := range changes {
		fc, err := fileChange(change)
		if err != nil {
			return models.Commit{}, err
		}
		record.FilesChanged = append(record.FilesChanged, fc)
		record.TotalAdditions += fc.Additions
		record.TotalDeletions += fc.Deletions
	}
	record.FilesCount = len(record.FilesChanged)

	return record, nil
}

func fileChange(change *object.Change) (models.FileChange, error) {
	action, err := change.Action()
	if err != nil {
		return models.FileChange{}, err
	}

	fc := models.FileChange{}
	switch action {
	case merkletrie.Insert:
		fc.ChangeType = "A"
		fc.Path = change.To.Name
	case merkletrie.Delete:
		fc.ChangeType = "D"
		fc.Path = change.From.Name
	default:
		fc.ChangeType = "M"
		fc.Path = change.To.Name
		if change.From.Name != "" && change.From.Name != change.To.Name {
			fc.ChangeType = "R"
		}
	}

	patch, err := change.Patch()
	if err != nil {
		return models.FileChange{}, err
	}
	// Binary files produce no stats and keep zero deltas
	for _, stat := range patch.Stats() {
		fc.Additions += stat.Addition
		fc.Deletions += stat.Deletion
	}

	return fc, nil
}
