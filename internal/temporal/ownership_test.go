package temporal

import (
	"testing"
	"time"

	"github.com/bugrewind/bugrewind/internal/models"
)

func authoredCommit(sha, email, name string, when time.Time, path string, lines int) models.Commit {
	return models.Commit{
		SHA:         sha,
		AuthorName:  name,
		AuthorEmail: email,
		CommitDate:  when,
		FilesChanged: []models.FileChange{
			{Path: path, ChangeType: "M", Additions: lines},
		},
	}
}

func TestOwnersRankedByLinesThenCommitsThenRecency(t *testing.T) {
	acc := NewAccumulator(analysisConfig())
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// alice: 100 lines / 1 commit; bob, carol, dave: 50 lines each, bob in
	// 3 commits, carol and dave in 1 commit with carol more recent
	acc.Add(authoredCommit("c1", "alice@example.com", "Alice", base, "svc.go", 100))
	acc.Add(authoredCommit("c2", "bob@example.com", "Bob", base.Add(time.Hour), "svc.go", 20))
	acc.Add(authoredCommit("c3", "bob@example.com", "Bob", base.Add(2*time.Hour), "svc.go", 20))
	acc.Add(authoredCommit("c4", "bob@example.com", "Bob", base.Add(3*time.Hour), "svc.go", 10))
	acc.Add(authoredCommit("c5", "carol@example.com", "Carol", base.Add(6*time.Hour), "svc.go", 50))
	acc.Add(authoredCommit("c6", "dave@example.com", "Dave", base.Add(4*time.Hour), "svc.go", 50))

	owners := acc.Owners("svc.go")
	if len(owners) != 3 {
		t.Fatalf("expected top-3 owners, got %d", len(owners))
	}
	if owners[0].Author != "alice@example.com" {
		t.Errorf("expected alice first (most lines), got %s", owners[0].Author)
	}
	if owners[1].Author != "bob@example.com" {
		t.Errorf("expected bob second (commit count tiebreak), got %s", owners[1].Author)
	}
	if owners[2].Author != "carol@example.com" {
		t.Errorf("expected carol third (recency tiebreak), got %s", owners[2].Author)
	}
}

func TestChurnAnchorsToNewestCommitInBatch(t *testing.T) {
	acc := NewAccumulator(analysisConfig())

	// All dates far in the past: wall-clock "now" must play no part
	newest := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	acc.Add(authoredCommit("c1", "a@b.c", "A", newest, "hot.go", 1))
	acc.Add(authoredCommit("c2", "a@b.c", "A", newest.AddDate(0, 0, -10), "hot.go", 1))
	acc.Add(authoredCommit("c3", "a@b.c", "A", newest.AddDate(0, 0, -29), "hot.go", 1))
	acc.Add(authoredCommit("c4", "a@b.c", "A", newest.AddDate(0, 0, -45), "hot.go", 1))

	if got := acc.Churn("hot.go"); got != 3 {
		t.Errorf("expected churn 3 within the 30-day window, got %d", got)
	}
	if got := acc.FileCommitCount("hot.go"); got != 4 {
		t.Errorf("expected total commits 4, got %d", got)
	}
	if got, want := acc.WindowCutoff(), newest.AddDate(0, 0, -30); !got.Equal(want) {
		t.Errorf("expected window cutoff %v, got %v", want, got)
	}
}

func TestIsTestFileDetection(t *testing.T) {
	acc := NewAccumulator(analysisConfig())

	tests := []struct {
		path string
		want bool
	}{
		{"src/auth/login.py", false},
		{"tests/test_login.py", true},
		{"src/auth/login_test.go", true},
		{"src/auth/login.test.ts", true},
		{"src/auth/login.spec.js", true},
		{"src/__tests__/login.js", true},
		{"contest/ranking.go", false},
	}

	for _, tt := range tests {
		if got := acc.IsTestFile(tt.path); got != tt.want {
			t.Errorf("IsTestFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestTestDependencyInference(t *testing.T) {
	acc := NewAccumulator(analysisConfig())
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	acc.Add(commit("c1", base, "src/auth/login.py", "tests/test_login.py"))
	acc.Add(commit("c2", base.Add(time.Hour), "src/billing/invoice.py"))

	deps := acc.TestDependencies("src/auth/login.py")
	if len(deps) != 1 || deps[0] != "tests/test_login.py" {
		t.Errorf("expected test_login.py as dependency, got %v", deps)
	}

	if deps := acc.TestDependencies("src/billing/invoice.py"); len(deps) != 0 {
		t.Errorf("expected no test dependencies for invoice.py, got %v", deps)
	}

	tested := acc.TestsForFiles("tests/test_login.py")
	if len(tested) != 1 || tested[0] != "src/auth/login.py" {
		t.Errorf("expected login.py as tested file, got %v", tested)
	}
}

func TestFileRecordsCarryMetadata(t *testing.T) {
	acc := NewAccumulator(analysisConfig())
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	acc.Add(authoredCommit("c1", "a@b.c", "A", base, "pkg/db.go", 10))
	acc.Add(authoredCommit("c2", "a@b.c", "A", base.Add(time.Hour), "pkg/db.go", 30))

	records := acc.FileRecords("owner/repo")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.RepoID != "owner/repo" {
		t.Errorf("repo id = %q", r.RepoID)
	}
	if r.Extension != ".go" {
		t.Errorf("extension = %q, want .go", r.Extension)
	}
	if r.TotalCommits != 2 {
		t.Errorf("total commits = %d, want 2", r.TotalCommits)
	}
	if r.AvgChangeSize != 20 {
		t.Errorf("avg change size = %f, want 20", r.AvgChangeSize)
	}
	if !r.FirstSeen.Equal(base) {
		t.Errorf("first seen = %v, want %v", r.FirstSeen, base)
	}
	if !r.LastModified.Equal(base.Add(time.Hour)) {
		t.Errorf("last modified = %v", r.LastModified)
	}
	if len(r.Owners) != 1 || r.Owners[0].LinesChanged != 40 {
		t.Errorf("unexpected owners: %+v", r.Owners)
	}
}
