package temporal

import (
	"sort"
	"strings"
	"time"

	"github.com/bugrewind/bugrewind/internal/models"
)

// Owners ranks a file's contributors by lines changed, then commit count,
// then most recent touch, keeping the configured top N.
func (a *Accumulator) Owners(path string) []models.Owner {
	byAuthor := a.authors[path]
	if len(byAuthor) == 0 {
		return nil
	}

	owners := make([]models.Owner, 0, len(byAuthor))
	for email, stats := range byAuthor {
		owners = append(owners, models.Owner{
			Author:       email,
			AuthorName:   stats.Name,
			CommitCount:  stats.CommitCount,
			LinesChanged: stats.LinesChanged,
			LastTouched:  stats.LastTouched,
		})
	}

	sort.Slice(owners, func(i, j int) bool {
		if owners[i].LinesChanged != owners[j].LinesChanged {
			return owners[i].LinesChanged > owners[j].LinesChanged
		}
		if owners[i].CommitCount != owners[j].CommitCount {
			return owners[i].CommitCount > owners[j].CommitCount
		}
		if !owners[i].LastTouched.Equal(owners[j].LastTouched) {
			return owners[i].LastTouched.After(owners[j].LastTouched)
		}
		return owners[i].Author < owners[j].Author
	})

	if len(owners) > a.cfg.TopOwners {
		owners = owners[:a.cfg.TopOwners]
	}
	return owners
}

// Churn counts commits touching the file within the churn window anchored
// to the newest commit in the batch. Batch-relative, not wall-clock, so a
// rebuild from historical data reproduces the same numbers.
func (a *Accumulator) Churn(path string) int {
	stats := a.fileCounts[path]
	if stats == nil || a.newest.IsZero() {
		return 0
	}

	cutoff := a.WindowCutoff()
	churn := 0
	for _, t := range stats.CommitTimes {
		if !t.Before(cutoff) {
			churn++
		}
	}
	return churn
}

// IsTestFile reports whether the path matches any configured test pattern.
func (a *Accumulator) IsTestFile(path string) bool {
	lower := strings.ToLower(path)
	for _, pattern := range a.cfg.TestPathPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// testStem reduces a test path to the stem used for matching: strip test
// markers from the basename, keep the part before the first dot.
func testStem(path string) string {
	base := path
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.ToLower(base)
	for _, marker := range []string{".test.", ".spec.", "_test.", "_spec."} {
		base = strings.Replace(base, marker, ".", 1)
	}
	base = strings.TrimPrefix(base, "test_")
	base = strings.TrimPrefix(base, "spec_")
	if idx := strings.Index(base, "."); idx >= 0 {
		base = base[:idx]
	}
	return base
}

func sourceStem(path string) string {
	base := path
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.ToLower(base)
	if idx := strings.Index(base, "."); idx >= 0 {
		base = base[:idx]
	}
	return base
}

// TestDependencies finds test files whose stem matches the source file's.
// A heuristic over path naming conventions, not a guarantee: it knows
// nothing about imports or call graphs.
func (a *Accumulator) TestDependencies(sourcePath string) []string {
	stem := sourceStem(sourcePath)
	if stem == "" {
		return nil
	}

	var tests []string
	for path := range a.fileCounts {
		if path == sourcePath || !a.IsTestFile(path) {
			continue
		}
		if strings.Contains(testStem(path), stem) {
			tests = append(tests, path)
		}
	}
	sort.Strings(tests)
	return tests
}

// TestsForFiles is the inverse: source files a test file appears to cover.
func (a *Accumulator) TestsForFiles(testPath string) []string {
	stem := testStem(testPath)
	if stem == "" {
		return nil
	}

	var sources []string
	for path := range a.fileCounts {
		if path == testPath || a.IsTestFile(path) {
			continue
		}
		if strings.Contains(stem, sourceStem(path)) {
			sources = append(sources, path)
		}
	}
	sort.Strings(sources)
	return sources
}

// FileRecords assembles the complete per-file document set for a
// repository, sorted by path for deterministic output. BuildID and
// IndexedAt are stamped by the indexer at write time.
func (a *Accumulator) FileRecords(repoID string) []models.FileRecord {
	scores := a.Scores()

	paths := make([]string, 0, len(a.fileCounts))
	for path := range a.fileCounts {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	records := make([]models.FileRecord, 0, len(paths))
	for _, path := range paths {
		stats := a.fileCounts[path]

		record := models.FileRecord{
			FilePath:       path,
			RepoID:         repoID,
			Extension:      extension(path),
			IsTestFile:     a.IsTestFile(path),
			Owners:         a.Owners(path),
			CoChangeScores: scores[path],
			RecentChurn:    a.Churn(path),
			TotalCommits:   stats.CommitCount,
			FirstSeen:      stats.FirstSeen,
			LastModified:   stats.LastModified,
		}
		if record.CoChangeScores == nil {
			record.CoChangeScores = map[string]float64{}
		}
		if stats.CommitCount > 0 {
			record.AvgChangeSize = float64(stats.LinesChanged) / float64(stats.CommitCount)
		}

		if record.IsTestFile {
			record.TestsForFiles = a.TestsForFiles(path)
		} else {
			record.TestDependencies = a.TestDependencies(path)
		}

		records = append(records, record)
	}
	return records
}

func extension(path string) string {
	base := path
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		return base[idx:]
	}
	return ""
}

// WindowCutoff exposes the churn cutoff for callers that display it.
func (a *Accumulator) WindowCutoff() time.Time {
	if a.newest.IsZero() {
		return time.Time{}
	}
	return a.newest.AddDate(0, 0, -a.cfg.ChurnWindowDays)
}
