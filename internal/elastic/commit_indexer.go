package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	bugerrors "github.com/bugrewind/bugrewind/internal/errors"
	"github.com/bugrewind/bugrewind/internal/models"
)

// CommitIndexer writes commit documents keyed by SHA, so re-indexing the
// same history is an idempotent upsert.
type CommitIndexer struct {
	client *Client
	index  string
	logger *logrus.Entry
}

func NewCommitIndexer(client *Client, logger *logrus.Logger) *CommitIndexer {
	return &CommitIndexer{
		client: client,
		index:  client.cfg.CommitsIndex,
		logger: logger.WithField("component", "commit_indexer"),
	}
}

// BulkReport accounts for one bulk write: how many documents landed and
// which were rejected after retry.
type BulkReport struct {
	Indexed int
	Failed  []string // document IDs rejected after retry
}

// commitDoc stamps the indexing timestamp onto the wire form of a commit.
type commitDoc struct {
	models.Commit
	IndexedAt time.Time `json:"indexed_at"`
}

// BulkIndex writes a batch of commits. Documents rejected by the bulk
// endpoint are retried once individually; the batch aborts with IndexWrite
// when more than half its documents fail, which almost always means a
// mapping or cluster problem rather than bad documents.
func (ci *CommitIndexer) BulkIndex(ctx context.Context, commits []models.Commit) (*BulkReport, error) {
	report := &BulkReport{}
	if len(commits) == 0 {
		return report, nil
	}

	now := time.Now().UTC()
	body, err := ci.bulkBody(commits, now)
	if err != nil {
		return nil, err
	}

	res, err := ci.client.es.Bulk(bytes.NewReader(body), ci.client.es.Bulk.WithContext(ctx))
	if err != nil {
		return nil, bugerrors.StoreUnavailable(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, bugerrors.StoreUnavailable(fmt.Errorf("bulk request returned %s", res.Status()))
	}

	var bulkRes bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}

	var rejected []models.Commit
	rejectedBy := make(map[string]string)
	for i, item := range bulkRes.Items {
		st := item.status()
		if st >= 200 && st < 300 {
			report.Indexed++
			continue
		}
		if i < len(commits) {
			rejected = append(rejected, commits[i])
			rejectedBy[commits[i].SHA] = item.reason()
		}
	}

	// Retry rejects one at a time: isolates the poison document instead of
	// failing the whole batch again.
	for _, c := range rejected {
		if err := ci.indexOne(ctx, c, now); err != nil {
			ci.logger.WithFields(logrus.Fields{
				"sha":    c.SHA,
				"reason": rejectedBy[c.SHA],
			}).WithError(err).Warn("commit rejected after retry")
			report.Failed = append(report.Failed, c.SHA)
			continue
		}
		report.Indexed++
	}

	if len(report.Failed)*2 > len(commits) {
		return report, bugerrors.IndexWrite(
			fmt.Errorf("%d of %d commits rejected", len(report.Failed), len(commits)),
			report.Failed[0],
		)
	}
	return report, nil
}

func (ci *CommitIndexer) bulkBody(commits []models.Commit, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range commits {
		meta := map[string]map[string]string{
			"index": {"_index": ci.index, "_id": c.SHA},
		}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("marshal bulk action: %w", err)
		}
		docLine, err := json.Marshal(commitDoc{Commit: c, IndexedAt: now})
		if err != nil {
			return nil, bugerrors.IndexWrite(fmt.Errorf("marshal commit: %w", err), c.SHA)
		}
		buf.Write(metaLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (ci *CommitIndexer) indexOne(ctx context.Context, c models.Commit, now time.Time) error {
	docLine, err := json.Marshal(commitDoc{Commit: c, IndexedAt: now})
	if err != nil {
		return bugerrors.IndexWrite(fmt.Errorf("marshal commit: %w", err), c.SHA)
	}

	res, err := ci.client.es.Index(
		ci.index,
		bytes.NewReader(docLine),
		ci.client.es.Index.WithDocumentID(c.SHA),
		ci.client.es.Index.WithContext(ctx),
	)
	if err != nil {
		return bugerrors.StoreUnavailable(err)
	}
	defer drain(res)
	if res.IsError() {
		return bugerrors.IndexWrite(fmt.Errorf("index returned %s", res.Status()), c.SHA)
	}
	return nil
}

// bulkResponse is the subset of the bulk API response we act on.
type bulkResponse struct {
	Errors bool       `json:"errors"`
	Items  []bulkItem `json:"items"`
}

type bulkItem struct {
	Index *bulkItemResult `json:"index"`
}

type bulkItemResult struct {
	Status int `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func (i bulkItem) status() int {
	if i.Index == nil {
		return 0
	}
	return i.Index.Status
}

func (i bulkItem) reason() string {
	if i.Index == nil || i.Index.Error == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", i.Index.Error.Type, i.Index.Error.Reason)
}
