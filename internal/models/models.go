package models

import (
	"time"
)

// Commit is a single extracted commit. Immutable once extracted; re-extraction
// under the same SHA produces an identical document (idempotent upsert key).
type Commit struct {
	SHA            string       `json:"sha"`
	RepoURL        string       `json:"repo_url"`
	RepoName       string       `json:"repo_name"`
	AuthorName     string       `json:"author_name"`
	AuthorEmail    string       `json:"author_email"`
	CommitterName  string       `json:"committer_name"`
	CommitterEmail string       `json:"committer_email"`
	CommitDate     time.Time    `json:"commit_date"`
	Message        string       `json:"message"`
	FilesChanged   []FileChange `json:"files_changed"`
	TotalAdditions int          `json:"total_additions"`
	TotalDeletions int          `json:"total_deletions"`
	FilesCount     int          `json:"files_count"`
	ParentSHAs     []string     `json:"parent_shas"`

	// MessageEmbedding is empty when embedding generation is disabled or the
	// batch was skipped after provider failure (lexical-only capability).
	MessageEmbedding []float32 `json:"message_embedding,omitempty"`
}

// FileChange is one file touched by a commit, with line deltas against the
// first parent. Binary files carry zero deltas but still count as changed.
type FileChange struct {
	Path       string `json:"path"`
	ChangeType string `json:"change_type"` // A (added), M (modified), D (deleted), R (renamed)
	Additions  int    `json:"additions"`
	Deletions  int    `json:"deletions"`
}

// Owner is one ranked contributor to a file.
type Owner struct {
	Author       string    `json:"author"`
	AuthorName   string    `json:"author_name"`
	CommitCount  int       `json:"commit_count"`
	LinesChanged int       `json:"lines_changed"`
	LastTouched  time.Time `json:"last_touched"`
}

// FileRecord is the per-file document in the files index. Rebuilt wholesale
// per repository so co-change scores stay consistent with one commit window.
type FileRecord struct {
	FilePath         string             `json:"file_path"`
	RepoID           string             `json:"repo_id"`
	Extension        string             `json:"extension"`
	IsTestFile       bool               `json:"is_test_file"`
	Owners           []Owner            `json:"owners"`
	CoChangeScores   map[string]float64 `json:"co_change_scores"`
	TestDependencies []string           `json:"test_dependencies,omitempty"`
	TestsForFiles    []string           `json:"tests_for_files,omitempty"`
	RecentChurn      int                `json:"recent_churn"`
	TotalCommits     int                `json:"total_commits"`
	AvgChangeSize    float64            `json:"avg_change_size"`
	FirstSeen        time.Time          `json:"first_seen"`
	LastModified     time.Time          `json:"last_modified"`
	BuildID          string             `json:"build_id"`
	IndexedAt        time.Time          `json:"indexed_at"`
}

// SearchHit is one fused search result referencing a commit document.
type SearchHit struct {
	SHA          string    `json:"sha"`
	Message      string    `json:"message"`
	AuthorName   string    `json:"author_name"`
	CommitDate   time.Time `json:"commit_date"`
	FilesChanged []string  `json:"files_changed"`
	Score        float64   `json:"score"`
}

// RelatedFile is one co-change neighbor with its score.
type RelatedFile struct {
	Path  string  `json:"file"`
	Score float64 `json:"score"`
}

// ImpactSet is the blast-radius view for a single file: who owns it, what
// changes with it, and what tests exercise it.
type ImpactSet struct {
	FilePath         string        `json:"file_path"`
	Owners           []Owner       `json:"owners"`
	RelatedFiles     []RelatedFile `json:"related_files"`
	TestDependencies []string      `json:"test_dependencies"`
	RecentChurn      int           `json:"recent_churn"`
}

// GraphVertex is one file in a neighborhood graph.
type GraphVertex struct {
	FilePath    string  `json:"file_path"`
	Weight      float64 `json:"weight"` // significance: max edge score into this vertex
	RecentChurn int     `json:"recent_churn"`
	TopOwner    string  `json:"top_owner,omitempty"`
	Hops        int     `json:"hops"` // distance from seed
}

// GraphEdge is one weighted co-change edge.
type GraphEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Score  float64 `json:"score"`
}

// Graph is the ephemeral query-time neighborhood structure.
type Graph struct {
	Seed      string        `json:"seed"`
	Vertices  []GraphVertex `json:"vertices"`
	Edges     []GraphEdge   `json:"edges"`
	Truncated bool          `json:"truncated"` // vertex cap hit during expansion
}

// IndexResult is the structured accounting returned by every intake run.
// Callers always get counts, never a bare error for per-item faults.
type IndexResult struct {
	RepoID         string        `json:"repo_id"`
	CommitsIndexed int           `json:"commits_indexed"`
	FilesIndexed   int           `json:"files_indexed"`
	Skipped        int           `json:"skipped"`
	Errors         []string      `json:"errors,omitempty"`
	Duration       time.Duration `json:"duration"`
}
