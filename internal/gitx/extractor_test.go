package gitx

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// fixtureRepo builds a throwaway repository with a linear history. Each
// entry maps file path to content; one commit per entry set.
func fixtureRepo(t *testing.T, commits []map[string]string) *Repo {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}

	when := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, files := range commits {
		for path, content := range files {
			full := filepath.Join(dir, path)
			if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(full, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := wt.Add(path); err != nil {
				t.Fatal(err)
			}
		}
		_, err := wt.Commit("commit "+string(rune('a'+i)), &git.CommitOptions{
			Author: &object.Signature{
				Name:  "Test User",
				Email: "test@example.com",
				When:  when.Add(time.Duration(i) * time.Hour),
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	return &Repo{Repository: repo, Name: "test/fixture", URL: dir}
}

func TestExtractOrderAndStats(t *testing.T) {
	repo := fixtureRepo(t, []map[string]string{
		{"a.py": "line1\n"},
		{"a.py": "line1\nline2\n", "b.py": "hello\n"},
	})

	ext := NewExtractor(repo, nil)
	result, err := ext.Extract(context.Background(), 0)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(result.Commits) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(result.Commits))
	}
	if result.Skipped != 0 {
		t.Errorf("expected 0 skipped, got %d", result.Skipped)
	}

	// Most-recent-first
	newest := result.Commits[0]
	if newest.Message != "commit b" {
		t.Errorf("expected newest commit first, got %q", newest.Message)
	}
	if newest.FilesCount != 2 {
		t.Errorf("expected 2 files changed, got %d", newest.FilesCount)
	}

	byPath := map[string]int{}
	for _, fc := range newest.FilesChanged {
		byPath[fc.Path] = fc.Additions
	}
	if byPath["a.py"] != 1 {
		t.Errorf("expected 1 addition to a.py, got %d", byPath["a.py"])
	}
	if byPath["b.py"] != 1 {
		t.Errorf("expected 1 addition to b.py, got %d", byPath["b.py"])
	}

	// Root commit diffs against the empty tree
	root := result.Commits[1]
	if len(root.FilesChanged) != 1 || root.FilesChanged[0].ChangeType != "A" {
		t.Errorf("expected root commit to show a.py as added, got %+v", root.FilesChanged)
	}
	if len(root.ParentSHAs) != 0 {
		t.Errorf("expected root commit to have no parents, got %v", root.ParentSHAs)
	}
}

func TestExtractRespectsMaxCommits(t *testing.T) {
	repo := fixtureRepo(t, []map[string]string{
		{"a.py": "1\n"},
		{"a.py": "1\n2\n"},
		{"a.py": "1\n2\n3\n"},
	})

	ext := NewExtractor(repo, nil)
	result, err := ext.Extract(context.Background(), 2)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Commits) != 2 {
		t.Errorf("expected 2 commits with maxCommits=2, got %d", len(result.Commits))
	}
}

func TestExtractIsRepeatable(t *testing.T) {
	repo := fixtureRepo(t, []map[string]string{
		{"x.go": "package x\n"},
	})

	ext := NewExtractor(repo, nil)
	first, err := ext.Extract(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ext.Extract(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}

	if len(first.Commits) != len(second.Commits) {
		t.Fatalf("re-walk produced different commit counts: %d vs %d",
			len(first.Commits), len(second.Commits))
	}
	if first.Commits[0].SHA != second.Commits[0].SHA {
		t.Error("re-walk produced different SHAs")
	}
}

func TestOpenFailsOnMissingRepository(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope"), t.TempDir())
	if err == nil {
		t.Fatal("expected error opening a nonexistent repository")
	}
}

func TestRepoName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/facebook/react.git", "facebook/react"},
		{"https://github.com/facebook/react", "facebook/react"},
		{"git@github.com:tj/commander.js.git", "tj/commander.js"},
		{"https://gitlab.com/group/project/", "group/project"},
	}

	for _, tt := range tests {
		if got := RepoName(tt.url); got != tt.want {
			t.Errorf("RepoName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
