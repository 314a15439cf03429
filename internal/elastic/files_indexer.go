package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	bugerrors "github.com/bugrewind/bugrewind/internal/errors"
	"github.com/bugrewind/bugrewind/internal/models"
)

// FilesIndexer maintains the per-file analytics index. Each rebuild is a
// versioned full replace: documents are written under a fresh build ID and
// stale documents for the repository are deleted afterward, so readers
// never observe an empty index mid-rebuild.
type FilesIndexer struct {
	client *Client
	index  string
	logger *logrus.Entry
}

func NewFilesIndexer(client *Client, logger *logrus.Logger) *FilesIndexer {
	return &FilesIndexer{
		client: client,
		index:  client.cfg.FilesIndex,
		logger: logger.WithField("component", "files_indexer"),
	}
}

// DocID is the document identity for a file: stable across rebuilds so a
// rewrite of the same path is an in-place replace, not a duplicate.
func DocID(repoID, filePath string) string {
	return repoID + ":" + filePath
}

// Rebuild replaces the repository's file documents with the given set.
// Returns the build ID stamped on the new documents and the write report.
// Documents rejected by the bulk endpoint are retried once individually;
// the rebuild aborts with IndexWrite only when more than half the batch
// fails, which almost always means a mapping or cluster problem rather
// than bad documents. A few stragglers do not block the generation swap.
func (fi *FilesIndexer) Rebuild(ctx context.Context, repoID string, records []models.FileRecord) (string, *BulkReport, error) {
	buildID := uuid.New().String()
	now := time.Now().UTC()

	for i := range records {
		records[i].BuildID = buildID
		records[i].IndexedAt = now
	}

	report, err := fi.bulkWrite(ctx, records)
	if err != nil {
		return buildID, report, err
	}
	if len(report.Failed)*2 > len(records) {
		return buildID, report, bugerrors.IndexWrite(
			fmt.Errorf("%d of %d file records rejected", len(report.Failed), len(records)),
			report.Failed[0],
		)
	}

	// New generation is fully written; now drop everything older. A failure
	// here leaves stale extras behind but never a gap, and the next rebuild
	// cleans them up.
	if err := fi.deleteStale(ctx, repoID, buildID); err != nil {
		fi.logger.WithError(err).Warn("stale document cleanup failed, old build remains")
		return buildID, report, err
	}

	if err := fi.client.Refresh(ctx, fi.index); err != nil {
		fi.logger.WithError(err).Debug("refresh failed after rebuild")
	}

	fi.logger.WithFields(logrus.Fields{
		"repo_id":  repoID,
		"build_id": buildID,
		"files":    report.Indexed,
		"failed":   len(report.Failed),
	}).Info("files index rebuilt")
	return buildID, report, nil
}

func (fi *FilesIndexer) bulkWrite(ctx context.Context, records []models.FileRecord) (*BulkReport, error) {
	report := &BulkReport{}
	if len(records) == 0 {
		return report, nil
	}

	var buf bytes.Buffer
	for _, r := range records {
		meta := map[string]map[string]string{
			"index": {"_index": fi.index, "_id": DocID(r.RepoID, r.FilePath)},
		}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			return report, fmt.Errorf("marshal bulk action: %w", err)
		}
		docLine, err := json.Marshal(r)
		if err != nil {
			return report, bugerrors.IndexWrite(fmt.Errorf("marshal file record: %w", err), r.FilePath)
		}
		buf.Write(metaLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	res, err := fi.client.es.Bulk(bytes.NewReader(buf.Bytes()), fi.client.es.Bulk.WithContext(ctx))
	if err != nil {
		return report, bugerrors.StoreUnavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return report, bugerrors.StoreUnavailable(fmt.Errorf("bulk request returned %s", res.Status()))
	}

	var bulkRes bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return report, fmt.Errorf("decode bulk response: %w", err)
	}

	var rejected []models.FileRecord
	rejectedBy := make(map[string]string)
	for i, item := range bulkRes.Items {
		st := item.status()
		if st >= 200 && st < 300 {
			report.Indexed++
			continue
		}
		if i < len(records) {
			rejected = append(rejected, records[i])
			rejectedBy[records[i].FilePath] = item.reason()
		}
	}

	// Retry rejects one at a time: isolates the poison document instead of
	// failing the whole batch again.
	for _, r := range rejected {
		if err := fi.indexOne(ctx, r); err != nil {
			fi.logger.WithFields(logrus.Fields{
				"file_path": r.FilePath,
				"reason":    rejectedBy[r.FilePath],
			}).WithError(err).Warn("file record rejected after retry")
			report.Failed = append(report.Failed, r.FilePath)
			continue
		}
		report.Indexed++
	}
	return report, nil
}

func (fi *FilesIndexer) indexOne(ctx context.Context, r models.FileRecord) error {
	docLine, err := json.Marshal(r)
	if err != nil {
		return bugerrors.IndexWrite(fmt.Errorf("marshal file record: %w", err), r.FilePath)
	}

	res, err := fi.client.es.Index(
		fi.index,
		bytes.NewReader(docLine),
		fi.client.es.Index.WithDocumentID(DocID(r.RepoID, r.FilePath)),
		fi.client.es.Index.WithContext(ctx),
	)
	if err != nil {
		return bugerrors.StoreUnavailable(err)
	}
	defer drain(res)
	if res.IsError() {
		return bugerrors.IndexWrite(fmt.Errorf("index returned %s", res.Status()), r.FilePath)
	}
	return nil
}

// deleteStale removes the repository's documents from previous builds.
func (fi *FilesIndexer) deleteStale(ctx context.Context, repoID, keepBuildID string) error {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"repo_id": repoID}},
				},
				"must_not": []any{
					map[string]any{"term": map[string]any{"build_id": keepBuildID}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("marshal delete query: %w", err)
	}

	res, err := fi.client.es.DeleteByQuery(
		[]string{fi.index},
		bytes.NewReader(body),
		fi.client.es.DeleteByQuery.WithContext(ctx),
		fi.client.es.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return bugerrors.StoreUnavailable(err)
	}
	defer drain(res)
	if res.IsError() {
		return bugerrors.StoreUnavailable(fmt.Errorf("delete by query returned %s", res.Status()))
	}
	return nil
}

// Get fetches a single file document, or nil when the file is unknown.
func (fi *FilesIndexer) Get(ctx context.Context, repoID, filePath string) (*models.FileRecord, error) {
	res, err := fi.client.es.Get(fi.index, DocID(repoID, filePath), fi.client.es.Get.WithContext(ctx))
	if err != nil {
		return nil, bugerrors.StoreUnavailable(err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return nil, nil
	}
	if res.IsError() {
		return nil, bugerrors.StoreUnavailable(fmt.Errorf("get returned %s", res.Status()))
	}

	var body struct {
		Source models.FileRecord `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode file document: %w", err)
	}
	return &body.Source, nil
}

// GetImpactSet returns the blast-radius view for a file: co-change
// neighbors above the score threshold, owners, covering tests, and churn.
// Returns nil when the file is not in the index.
func (fi *FilesIndexer) GetImpactSet(ctx context.Context, repoID, filePath string, minScore float64) (*models.ImpactSet, error) {
	record, err := fi.Get(ctx, repoID, filePath)
	if err != nil || record == nil {
		return nil, err
	}

	related := make([]models.RelatedFile, 0, len(record.CoChangeScores))
	for path, score := range record.CoChangeScores {
		if score >= minScore {
			related = append(related, models.RelatedFile{Path: path, Score: score})
		}
	}
	sort.Slice(related, func(i, j int) bool {
		if related[i].Score != related[j].Score {
			return related[i].Score > related[j].Score
		}
		return related[i].Path < related[j].Path
	})

	return &models.ImpactSet{
		FilePath:         record.FilePath,
		Owners:           record.Owners,
		RelatedFiles:     related,
		TestDependencies: record.TestDependencies,
		RecentChurn:      record.RecentChurn,
	}, nil
}

// ListByRepo pages through every file document for a repository, ordered
// by path. Used by the graph explorer to hydrate neighborhoods.
func (fi *FilesIndexer) ListByRepo(ctx context.Context, repoID string, size int) ([]models.FileRecord, error) {
	if size <= 0 {
		size = 1000
	}

	query := map[string]any{
		"size":  size,
		"query": map[string]any{"term": map[string]any{"repo_id": repoID}},
		"sort":  []any{map[string]any{"file_path": "asc"}},
	}

	var records []models.FileRecord
	var searchAfter []any
	for {
		if searchAfter != nil {
			query["search_after"] = searchAfter
		}
		body, err := json.Marshal(query)
		if err != nil {
			return nil, fmt.Errorf("marshal list query: %w", err)
		}

		res, err := fi.client.es.Search(
			fi.client.es.Search.WithContext(ctx),
			fi.client.es.Search.WithIndex(fi.index),
			fi.client.es.Search.WithBody(bytes.NewReader(body)),
		)
		if err != nil {
			return nil, bugerrors.StoreUnavailable(err)
		}

		var page struct {
			Hits struct {
				Hits []struct {
					Source models.FileRecord `json:"_source"`
					Sort   []any             `json:"sort"`
				} `json:"hits"`
			} `json:"hits"`
		}
		err = json.NewDecoder(res.Body).Decode(&page)
		res.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode list response: %w", err)
		}

		if len(page.Hits.Hits) == 0 {
			break
		}
		for _, h := range page.Hits.Hits {
			records = append(records, h.Source)
		}
		searchAfter = page.Hits.Hits[len(page.Hits.Hits)-1].Sort
		if len(page.Hits.Hits) < size {
			break
		}
	}
	return records, nil
}
