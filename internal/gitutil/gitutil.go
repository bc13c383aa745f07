// Package gitutil reads local git metadata by direct file access.
// Nothing here spawns a git process; this runs inside the tracker tick.
package gitutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// FindRepoRoot walks up from a path to the nearest directory containing .git
func FindRepoRoot(path string) string {
	dir := path
	for {
		info, err := os.Stat(filepath.Join(dir, ".git"))
		if err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// CurrentBranch returns the checked-out branch name of the repo at root,
// or "" for detached HEAD or missing metadata
func CurrentBranch(root string) string {
	data, err := os.ReadFile(filepath.Join(root, ".git", "HEAD"))
	if err != nil {
		return ""
	}

	head := strings.TrimSpace(string(data))
	const refPrefix = "ref: refs/heads/"
	if !strings.HasPrefix(head, refPrefix) {
		return ""
	}
	return strings.TrimPrefix(head, refPrefix)
}

// LastCommitSubject returns the subject of the most recent commit recorded
// in the HEAD reflog, or ""
func LastCommitSubject(root string) string {
	data, err := os.ReadFile(filepath.Join(root, ".git", "logs", "HEAD"))
	if err != nil {
		return ""
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		tab := strings.IndexByte(line, '\t')
		if tab < 0 {
			continue
		}
		msg := line[tab+1:]
		if rest, ok := strings.CutPrefix(msg, "commit: "); ok {
			return rest
		}
		if rest, ok := strings.CutPrefix(msg, "commit (initial): "); ok {
			return rest
		}
	}
	return ""
}

var remoteURLPattern = regexp.MustCompile(`url\s*=\s*(.+)`)

// RemoteURLs returns all remote URLs from the repo's .git/config
func RemoteURLs(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, ".git", "config"))
	if err != nil {
		return nil
	}

	var urls []string
	for _, m := range remoteURLPattern.FindAllStringSubmatch(string(data), -1) {
		urls = append(urls, strings.TrimSpace(m[1]))
	}
	return urls
}

// RepoNameFromURL extracts the trailing repository name from a remote URL,
// handling both https and SSH scp-style forms and stripping .git
func RepoNameFromURL(remoteURL string) string {
	u := strings.TrimSuffix(strings.TrimSpace(remoteURL), ".git")
	u = strings.TrimSuffix(u, "/")

	// SSH scp form: git@host:org/repo
	if at := strings.Index(u, "@"); at >= 0 && !strings.Contains(u, "://") {
		if colon := strings.Index(u[at:], ":"); colon >= 0 {
			u = u[at+colon+1:]
		}
	}

	if idx := strings.LastIndex(u, "/"); idx >= 0 {
		u = u[idx+1:]
	}
	return u
}
