package temporal

import (
	"fmt"
	"testing"
	"time"

	"github.com/bugrewind/bugrewind/internal/config"
	"github.com/bugrewind/bugrewind/internal/models"
)

func commit(sha string, when time.Time, paths ...string) models.Commit {
	c := models.Commit{
		SHA:         sha,
		AuthorName:  "Test User",
		AuthorEmail: "test@example.com",
		CommitDate:  when,
	}
	for _, p := range paths {
		c.FilesChanged = append(c.FilesChanged, models.FileChange{Path: p, ChangeType: "M", Additions: 1})
	}
	return c
}

func analysisConfig() config.AnalysisConfig {
	return config.Default().Analysis
}

func TestJaccardScenario(t *testing.T) {
	// Commits 1-3 touch both a.py and b.py, commit 4 touches only a.py,
	// commit 5 touches only b.py: commits(a)=4, commits(b)=4, co=3,
	// Jaccard = 3/(4+4-3) = 0.6
	acc := NewAccumulator(analysisConfig())
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	acc.Add(commit("c1", base, "a.py", "b.py"))
	acc.Add(commit("c2", base.Add(time.Hour), "a.py", "b.py"))
	acc.Add(commit("c3", base.Add(2*time.Hour), "a.py", "b.py"))
	acc.Add(commit("c4", base.Add(3*time.Hour), "a.py"))
	acc.Add(commit("c5", base.Add(4*time.Hour), "b.py"))

	if got := acc.FileCommitCount("a.py"); got != 4 {
		t.Errorf("commits(a.py) = %d, want 4", got)
	}
	if got := acc.FileCommitCount("b.py"); got != 4 {
		t.Errorf("commits(b.py) = %d, want 4", got)
	}
	if got := acc.CoChangeScore("a.py", "b.py"); got != 0.6 {
		t.Errorf("CoChangeScore(a, b) = %f, want 0.6", got)
	}
}

func TestScoreSymmetricAndBounded(t *testing.T) {
	acc := NewAccumulator(analysisConfig())
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	acc.Add(commit("c1", base, "x.go", "y.go", "z.go"))
	acc.Add(commit("c2", base.Add(time.Hour), "x.go", "y.go"))
	acc.Add(commit("c3", base.Add(2*time.Hour), "z.go"))

	files := []string{"x.go", "y.go", "z.go"}
	for _, a := range files {
		for _, b := range files {
			if a == b {
				continue
			}
			ab := acc.CoChangeScore(a, b)
			ba := acc.CoChangeScore(b, a)
			if ab != ba {
				t.Errorf("score not symmetric: (%s,%s)=%f (%s,%s)=%f", a, b, ab, b, a, ba)
			}
			if ab < 0 || ab > 1 {
				t.Errorf("score out of range: (%s,%s)=%f", a, b, ab)
			}
		}
	}
}

func TestNoSharedCommitsMeansEmptyRelatedMap(t *testing.T) {
	acc := NewAccumulator(analysisConfig())
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	acc.Add(commit("c1", base, "alone.go"))
	acc.Add(commit("c2", base.Add(time.Hour), "other.go"))

	if related := acc.RelatedFiles("alone.go"); len(related) != 0 {
		t.Errorf("expected empty related list, got %v", related)
	}

	records := acc.FileRecords("test/repo")
	for _, r := range records {
		if len(r.CoChangeScores) != 0 {
			t.Errorf("expected empty co-change map for %s, got %v", r.FilePath, r.CoChangeScores)
		}
	}
}

func TestRelatedFilesSortedWithLexicographicTies(t *testing.T) {
	acc := NewAccumulator(analysisConfig())
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// b.go and c.go both always change with hub.go: identical scores
	acc.Add(commit("c1", base, "hub.go", "b.go", "c.go"))
	acc.Add(commit("c2", base.Add(time.Hour), "hub.go", "b.go", "c.go"))

	related := acc.RelatedFiles("hub.go")
	if len(related) != 2 {
		t.Fatalf("expected 2 related files, got %d", len(related))
	}
	if related[0].Path != "b.go" || related[1].Path != "c.go" {
		t.Errorf("ties not broken lexicographically: %v", related)
	}
	if related[0].Score != related[1].Score {
		t.Errorf("expected equal scores, got %f and %f", related[0].Score, related[1].Score)
	}
}

func TestScoreFloorFiltersWeakNeighbors(t *testing.T) {
	cfg := analysisConfig()
	cfg.MinCoChangeScore = 0.5
	acc := NewAccumulator(cfg)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// strong: always together (1.0); weak: together once out of four
	acc.Add(commit("c1", base, "core.go", "strong.go", "weak.go"))
	acc.Add(commit("c2", base.Add(time.Hour), "core.go", "strong.go"))
	acc.Add(commit("c3", base.Add(2*time.Hour), "core.go", "strong.go"))
	acc.Add(commit("c4", base.Add(3*time.Hour), "weak.go"))
	acc.Add(commit("c5", base.Add(4*time.Hour), "weak.go"))

	related := acc.RelatedFiles("core.go")
	if len(related) != 1 || related[0].Path != "strong.go" {
		t.Errorf("expected only strong.go above floor, got %v", related)
	}
}

func TestOversizedCommitExcludedFromPairs(t *testing.T) {
	cfg := analysisConfig()
	cfg.MaxFilesPerCommit = 3
	acc := NewAccumulator(cfg)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	big := commit("huge", base,
		"p1.go", "p2.go", "p3.go", "p4.go", "p5.go")
	acc.Add(big)

	if acc.OversizedCommits() != 1 {
		t.Errorf("expected 1 oversized commit, got %d", acc.OversizedCommits())
	}
	if score := acc.CoChangeScore("p1.go", "p2.go"); score != 0 {
		t.Errorf("oversized commit leaked into pair counts: score=%f", score)
	}
	// Per-file counts still accumulate
	if got := acc.FileCommitCount("p1.go"); got != 1 {
		t.Errorf("expected per-file count 1, got %d", got)
	}
}

func TestDuplicatePathsInOneCommitCountOnce(t *testing.T) {
	acc := NewAccumulator(analysisConfig())
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	c := models.Commit{SHA: "dup", AuthorEmail: "a@b.c", CommitDate: base}
	c.FilesChanged = []models.FileChange{
		{Path: "a.go", ChangeType: "M"},
		{Path: "a.go", ChangeType: "R"},
		{Path: "b.go", ChangeType: "M"},
	}
	acc.Add(c)
	acc.Add(commit("c2", base.Add(time.Hour), "a.go", "b.go"))

	if got := acc.FileCommitCount("a.go"); got != 2 {
		t.Errorf("duplicate path inflated commit count: %d", got)
	}
	// co=2, commits(a)=2, commits(b)=2: 2/(2+2-2) = 1.0
	if score := acc.CoChangeScore("a.go", "b.go"); score != 1.0 {
		t.Errorf("CoChangeScore = %f, want 1.0", score)
	}
}

func TestScoresDeterministicAcrossRuns(t *testing.T) {
	build := func() []models.FileRecord {
		acc := NewAccumulator(analysisConfig())
		base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 10; i++ {
			acc.Add(commit(fmt.Sprintf("c%d", i), base.Add(time.Duration(i)*time.Hour),
				"m.go", fmt.Sprintf("f%d.go", i%3)))
		}
		return acc.FileRecords("repo")
	}

	first := build()
	second := build()
	if len(first) != len(second) {
		t.Fatalf("record counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].FilePath != second[i].FilePath {
			t.Errorf("record order differs at %d: %s vs %s", i, first[i].FilePath, second[i].FilePath)
		}
	}
}
