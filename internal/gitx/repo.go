package gitx

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	git "github.com/go-git/go-git/v5"

	"github.com/bugrewind/bugrewind/internal/errors"
	"github.com/bugrewind/bugrewind/internal/logging"
)

// Repo pairs an opened repository with its derived identity.
type Repo struct {
	Repository *git.Repository
	Name       string // owner/repo for remotes, directory name for local paths
	URL        string // original location as given by the caller
}

// Open makes a repository available locally. Local paths are opened in
// place; remote URLs are cloned into a content-hashed directory under
// cloneDir, reusing an existing valid clone when present.
func Open(ctx context.Context, location, cloneDir string) (*Repo, error) {
	if isLocalPath(location) {
		repo, err := git.PlainOpen(location)
		if err != nil {
			return nil, errors.RepositoryAccess(err, location)
		}
		return &Repo{
			Repository: repo,
			Name:       filepath.Base(strings.TrimRight(location, "/")),
			URL:        location,
		}, nil
	}

	repoPath := filepath.Join(cloneDir, repoHash(location))

	// Reuse an existing clone when it still opens cleanly
	if _, err := os.Stat(repoPath); err == nil {
		if repo, err := git.PlainOpen(repoPath); err == nil {
			logging.Debug("reusing existing clone", "url", location, "path", repoPath)
			return &Repo{Repository: repo, Name: RepoName(location), URL: location}, nil
		}
		logging.Warn("existing clone unusable, re-cloning", "path", repoPath)
		os.RemoveAll(repoPath)
	}

	if err := os.MkdirAll(filepath.Dir(repoPath), 0755); err != nil {
		return nil, errors.RepositoryAccess(err, location)
	}

	// Full clone: history depth matters here, shallow clones would starve
	// the co-change window
	logging.Info("cloning repository", "url", location)
	repo, err := git.PlainCloneContext(ctx, repoPath, false, &git.CloneOptions{
		URL:          location,
		SingleBranch: true,
	})
	if err != nil {
		logging.Error("clone failed", "url", location, "error", err)
		os.RemoveAll(repoPath)
		return nil, errors.RepositoryAccess(err, location)
	}

	return &Repo{Repository: repo, Name: RepoName(location), URL: location}, nil
}

var (
	httpsURLRegex = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/]+?)(?:\.git)?/?$`)
	sshURLRegex   = regexp.MustCompile(`git@[^:]+:([^/]+)/([^/]+?)(?:\.git)?$`)
)

// RepoName extracts owner/repo from a remote URL. Falls back to the last
// two path segments when the URL doesn't match a known format.
func RepoName(url string) string {
	if matches := httpsURLRegex.FindStringSubmatch(url); len(matches) == 3 {
		return matches[1] + "/" + matches[2]
	}
	if matches := sshURLRegex.FindStringSubmatch(url); len(matches) == 3 {
		return matches[1] + "/" + matches[2]
	}

	trimmed := strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return trimmed
}

func isLocalPath(location string) bool {
	if strings.Contains(location, "://") || strings.HasPrefix(location, "git@") {
		return false
	}
	info, err := os.Stat(location)
	return err == nil && info.IsDir()
}

// repoHash gives each remote a stable clone directory name
func repoHash(url string) string {
	url = strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", sum)[:16]
}
