package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bugrewind/bugrewind/internal/cache"
	"github.com/bugrewind/bugrewind/internal/config"
	"github.com/bugrewind/bugrewind/internal/elastic"
	"github.com/bugrewind/bugrewind/internal/embed"
	"github.com/bugrewind/bugrewind/internal/gitx"
	"github.com/bugrewind/bugrewind/internal/models"
	"github.com/bugrewind/bugrewind/internal/temporal"
)

// commitIndexBatch is how many commit documents go into one bulk request.
const commitIndexBatch = 500

// Extractor walks repository history into commit records.
type Extractor interface {
	Extract(ctx context.Context, maxCommits int) (*gitx.WalkResult, error)
}

// Embedder turns commit messages into vectors, batch by batch.
type Embedder interface {
	EmbedAll(ctx context.Context, texts []string) (*embed.BatchResult, error)
}

// CommitWriter persists commit documents.
type CommitWriter interface {
	BulkIndex(ctx context.Context, commits []models.Commit) (*elastic.BulkReport, error)
}

// FilesWriter replaces a repository's file analytics documents.
type FilesWriter interface {
	Rebuild(ctx context.Context, repoID string, records []models.FileRecord) (string, *elastic.BulkReport, error)
}

// Orchestrator drives one intake run: extract history, embed messages,
// derive per-file analytics, and write both indices. Per-item faults are
// counted and reported; only unusable inputs or an unreachable store abort
// the run.
type Orchestrator struct {
	extractor Extractor
	embedder  Embedder
	commits   CommitWriter
	files     FilesWriter
	cache     *cache.Cache
	cfg       *config.Config
	logger    *logrus.Entry
}

func NewOrchestrator(
	extractor Extractor,
	embedder Embedder,
	commits CommitWriter,
	files FilesWriter,
	c *cache.Cache,
	cfg *config.Config,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		extractor: extractor,
		embedder:  embedder,
		commits:   commits,
		files:     files,
		cache:     c,
		cfg:       cfg,
		logger:    logger.WithField("component", "pipeline"),
	}
}

// Options scope one intake run.
type Options struct {
	RepoID     string
	MaxCommits int // 0 means full history
}

// Run executes the intake pipeline and always returns accounting, even
// alongside an error.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*models.IndexResult, error) {
	start := time.Now()
	result := &models.IndexResult{RepoID: opts.RepoID}

	walk, err := o.extractor.Extract(ctx, opts.MaxCommits)
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	result.Skipped = walk.Skipped
	for _, e := range walk.Errors {
		result.Errors = append(result.Errors, e.Error())
	}

	o.logger.WithFields(logrus.Fields{
		"repo_id": opts.RepoID,
		"commits": len(walk.Commits),
		"skipped": walk.Skipped,
	}).Info("history extracted")

	if len(walk.Commits) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	o.attachEmbeddings(ctx, walk.Commits, result)

	acc := temporal.NewAccumulator(o.cfg.Analysis)
	for _, c := range walk.Commits {
		acc.Add(c)
	}
	if n := acc.OversizedCommits(); n > 0 {
		o.logger.WithField("count", n).Debug("oversized commits excluded from co-change pairs")
	}

	if err := o.indexCommits(ctx, walk.Commits, result); err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	records := acc.FileRecords(opts.RepoID)
	buildID, report, err := o.files.Rebuild(ctx, opts.RepoID, records)
	if report != nil {
		result.FilesIndexed = report.Indexed
		for _, path := range report.Failed {
			result.Errors = append(result.Errors, fmt.Sprintf("index file %s: rejected", path))
		}
	}
	if err != nil {
		result.Duration = time.Since(start)
		return result, err
	}

	if err := o.cache.InvalidateRepo(ctx, opts.RepoID); err != nil {
		o.logger.WithError(err).Warn("cache invalidation failed")
	}

	result.Duration = time.Since(start)
	o.logger.WithFields(logrus.Fields{
		"repo_id":  opts.RepoID,
		"commits":  result.CommitsIndexed,
		"files":    result.FilesIndexed,
		"build_id": buildID,
		"duration": result.Duration.Round(time.Millisecond),
	}).Info("intake complete")
	return result, nil
}

// attachEmbeddings fills MessageEmbedding on each commit. Embedding is
// best-effort: a skipped batch leaves its commits lexical-only, and a nil
// embedder disables the stage entirely.
func (o *Orchestrator) attachEmbeddings(ctx context.Context, commits []models.Commit, result *models.IndexResult) {
	if o.embedder == nil {
		return
	}

	texts := make([]string, len(commits))
	for i, c := range commits {
		texts[i] = c.Message
	}

	batch, err := o.embedder.EmbedAll(ctx, texts)
	if err != nil {
		o.logger.WithError(err).Warn("embedding stage failed, indexing lexical-only")
		result.Errors = append(result.Errors, fmt.Sprintf("embedding: %v", err))
		return
	}

	for i := range commits {
		if i < len(batch.Vectors) && batch.Vectors[i] != nil {
			commits[i].MessageEmbedding = batch.Vectors[i]
		}
	}
	if batch.SkippedBatches > 0 {
		o.logger.WithField("batches", batch.SkippedBatches).Warn("some embedding batches skipped")
		result.Errors = append(result.Errors, fmt.Sprintf("embedding: %d batches skipped", batch.SkippedBatches))
	}
}

func (o *Orchestrator) indexCommits(ctx context.Context, commits []models.Commit, result *models.IndexResult) error {
	for from := 0; from < len(commits); from += commitIndexBatch {
		to := from + commitIndexBatch
		if to > len(commits) {
			to = len(commits)
		}

		report, err := o.commits.BulkIndex(ctx, commits[from:to])
		if report != nil {
			result.CommitsIndexed += report.Indexed
			for _, sha := range report.Failed {
				result.Errors = append(result.Errors, fmt.Sprintf("index commit %s: rejected", sha))
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
