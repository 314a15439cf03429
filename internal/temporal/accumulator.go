// Package temporal derives file relationships from commit history: which
// files change together, who owns them, and how hot they are.
package temporal

import (
	"time"

	"github.com/bugrewind/bugrewind/internal/config"
	"github.com/bugrewind/bugrewind/internal/models"
)

// pair is an unordered file pair, normalized so A < B lexicographically.
type pair struct {
	A, B string
}

func makePair(a, b string) pair {
	if a > b {
		a, b = b, a
	}
	return pair{A: a, B: b}
}

type authorStats struct {
	Name         string
	CommitCount  int
	LinesChanged int
	LastTouched  time.Time
}

type fileStats struct {
	CommitCount  int
	LinesChanged int
	FirstSeen    time.Time
	LastModified time.Time
	CommitTimes  []time.Time
}

// Accumulator is the explicit running state for one repository's analysis
// pass. One accumulator per repository run; nothing is shared across runs,
// so repositories can be processed concurrently without locking.
type Accumulator struct {
	cfg config.AnalysisConfig

	fileCounts map[string]*fileStats
	pairCounts map[pair]int
	authors    map[string]map[string]*authorStats // file path -> author email -> stats

	newest    time.Time
	commits   int
	oversized int // commits excluded from pair accumulation
}

// NewAccumulator creates an empty accumulator with the given knobs.
func NewAccumulator(cfg config.AnalysisConfig) *Accumulator {
	if cfg.MaxFilesPerCommit <= 0 {
		cfg.MaxFilesPerCommit = 50
	}
	if cfg.ChurnWindowDays <= 0 {
		cfg.ChurnWindowDays = 30
	}
	if cfg.TopOwners <= 0 {
		cfg.TopOwners = 3
	}
	if cfg.MinCoChangeScore <= 0 {
		cfg.MinCoChangeScore = 0.3
	}
	return &Accumulator{
		cfg:        cfg,
		fileCounts: make(map[string]*fileStats),
		pairCounts: make(map[pair]int),
		authors:    make(map[string]map[string]*authorStats),
	}
}

// Add folds one commit into the running totals. Commits touching more than
// MaxFilesPerCommit files still feed per-file counts, ownership, and churn,
// but are excluded from pair accumulation: the O(k^2) pair loop on a large
// merge or vendored import would dominate the whole pass, and such commits
// say little about real coupling anyway.
func (a *Accumulator) Add(c models.Commit) {
	a.commits++
	if c.CommitDate.After(a.newest) {
		a.newest = c.CommitDate
	}

	// Unique paths only; duplicate entries for one path (renames) collapse
	// into a single change with summed line deltas
	lines := make(map[string]int, len(c.FilesChanged))
	paths := make([]string, 0, len(c.FilesChanged))
	for _, fc := range c.FilesChanged {
		if fc.Path == "" {
			continue
		}
		if _, ok := lines[fc.Path]; !ok {
			paths = append(paths, fc.Path)
		}
		lines[fc.Path] += fc.Additions + fc.Deletions
	}

	for _, path := range paths {
		a.addFileChange(c, path, lines[path])
	}

	if len(paths) > a.cfg.MaxFilesPerCommit {
		a.oversized++
		return
	}

	for i := 0; i < len(paths); i++ {
		for j := i + 1; j < len(paths); j++ {
			a.pairCounts[makePair(paths[i], paths[j])]++
		}
	}
}

func (a *Accumulator) addFileChange(c models.Commit, path string, linesChanged int) {
	stats := a.fileCounts[path]
	if stats == nil {
		stats = &fileStats{FirstSeen: c.CommitDate, LastModified: c.CommitDate}
		a.fileCounts[path] = stats
	}
	stats.CommitCount++
	stats.LinesChanged += linesChanged
	stats.CommitTimes = append(stats.CommitTimes, c.CommitDate)
	if c.CommitDate.Before(stats.FirstSeen) {
		stats.FirstSeen = c.CommitDate
	}
	if c.CommitDate.After(stats.LastModified) {
		stats.LastModified = c.CommitDate
	}

	byAuthor := a.authors[path]
	if byAuthor == nil {
		byAuthor = make(map[string]*authorStats)
		a.authors[path] = byAuthor
	}
	author := byAuthor[c.AuthorEmail]
	if author == nil {
		author = &authorStats{Name: c.AuthorName}
		byAuthor[c.AuthorEmail] = author
	}
	author.CommitCount++
	author.LinesChanged += linesChanged
	if c.CommitDate.After(author.LastTouched) {
		author.LastTouched = c.CommitDate
	}
}

// Commits returns how many commits have been folded in.
func (a *Accumulator) Commits() int { return a.commits }

// OversizedCommits returns how many commits were excluded from pair
// accumulation by the file-count threshold.
func (a *Accumulator) OversizedCommits() int { return a.oversized }

// NewestCommit returns the timestamp the churn window anchors to.
func (a *Accumulator) NewestCommit() time.Time { return a.newest }

// FileCommitCount returns how many commits touched the given path.
func (a *Accumulator) FileCommitCount(path string) int {
	if stats := a.fileCounts[path]; stats != nil {
		return stats.CommitCount
	}
	return 0
}
