package gitutil

import (
	"os"
	"path/filepath"
	"testing"
)

func initRepo(t *testing.T, branch string) string {
	t.Helper()
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	if err := os.MkdirAll(gitDir, 0700); err != nil {
		t.Fatal(err)
	}
	head := "ref: refs/heads/" + branch + "\n"
	if err := os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte(head), 0600); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestFindRepoRoot(t *testing.T) {
	root := initRepo(t, "main")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0700); err != nil {
		t.Fatal(err)
	}

	if got := FindRepoRoot(nested); got != root {
		t.Errorf("FindRepoRoot() = %q, want %q", got, root)
	}
	if got := FindRepoRoot(t.TempDir()); got != "" {
		t.Errorf("expected no repo, got %q", got)
	}
}

func TestCurrentBranch(t *testing.T) {
	root := initRepo(t, "feature/TOKI-42-foo")
	if got := CurrentBranch(root); got != "feature/TOKI-42-foo" {
		t.Errorf("CurrentBranch() = %q", got)
	}
}

func TestCurrentBranchDetachedHead(t *testing.T) {
	root := initRepo(t, "main")
	detached := "0123456789abcdef0123456789abcdef01234567\n"
	if err := os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte(detached), 0600); err != nil {
		t.Fatal(err)
	}
	if got := CurrentBranch(root); got != "" {
		t.Errorf("detached HEAD should yield no branch, got %q", got)
	}
}

func TestLastCommitSubject(t *testing.T) {
	root := initRepo(t, "main")
	logsDir := filepath.Join(root, ".git", "logs")
	if err := os.MkdirAll(logsDir, 0700); err != nil {
		t.Fatal(err)
	}
	log := "0000 1111 u <u@x> 1700000000 +0000\tcommit (initial): init\n" +
		"1111 2222 u <u@x> 1700000100 +0000\tcommit: TOKI-42: fix tick loop\n"
	if err := os.WriteFile(filepath.Join(logsDir, "HEAD"), []byte(log), 0600); err != nil {
		t.Fatal(err)
	}

	if got := LastCommitSubject(root); got != "TOKI-42: fix tick loop" {
		t.Errorf("LastCommitSubject() = %q", got)
	}
}

func TestRemoteURLs(t *testing.T) {
	root := initRepo(t, "main")
	config := "[core]\n\tbare = false\n[remote \"origin\"]\n\turl = git@github.com:acme/toki.git\n\tfetch = +refs/heads/*:refs/remotes/origin/*\n"
	if err := os.WriteFile(filepath.Join(root, ".git", "config"), []byte(config), 0600); err != nil {
		t.Fatal(err)
	}

	urls := RemoteURLs(root)
	if len(urls) != 1 || urls[0] != "git@github.com:acme/toki.git" {
		t.Errorf("RemoteURLs() = %v", urls)
	}
}

func TestRepoNameFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://github.com/acme/toki.git", "toki"},
		{"git@github.com:acme/toki.git", "toki"},
		{"https://gitlab.com/group/sub/project", "project"},
		{"git@host:solo.git", "solo"},
	}
	for _, c := range cases {
		if got := RepoNameFromURL(c.url); got != c.want {
			t.Errorf("RepoNameFromURL(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}
