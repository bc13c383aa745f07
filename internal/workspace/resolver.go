// Package workspace maps a foreground window title to the filesystem
// workspace it most likely belongs to, by reading editor state files.
package workspace

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"toki/internal/logging"
)

// Resolver resolves window titles to workspace directories
type Resolver struct {
	stateFiles []string
	logger     *logging.Logger
}

// NewResolver creates a resolver over the default editor state files for
// the current user
func NewResolver(logger *logging.Logger) *Resolver {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return &Resolver{stateFiles: defaultStateFiles(home), logger: logger}
}

// NewResolverWithFiles creates a resolver over explicit state files
func NewResolverWithFiles(files []string, logger *logging.Logger) *Resolver {
	return &Resolver{stateFiles: files, logger: logger}
}

// defaultStateFiles lists known editor storage.json locations, Cursor first.
// Both Linux and macOS locations are listed; missing files are skipped.
func defaultStateFiles(home string) []string {
	return []string{
		filepath.Join(home, ".config", "Cursor", "User", "globalStorage", "storage.json"),
		filepath.Join(home, "Library", "Application Support", "Cursor", "User", "globalStorage", "storage.json"),
		filepath.Join(home, ".config", "Code", "User", "globalStorage", "storage.json"),
		filepath.Join(home, "Library", "Application Support", "Code", "User", "globalStorage", "storage.json"),
		filepath.Join(home, ".config", "Code", "storage.json"),
		filepath.Join(home, "Library", "Application Support", "Code", "storage.json"),
	}
}

// editor state files carry window folders in two known shapes
type storageState struct {
	WindowsState *struct {
		LastActiveWindow *windowEntry  `json:"lastActiveWindow"`
		OpenedWindows    []windowEntry `json:"openedWindows"`
	} `json:"windowsState"`
	OpenedPathsList *struct {
		Entries []struct {
			FolderURI string `json:"folderUri"`
		} `json:"entries"`
	} `json:"openedPathsList"`
}

type windowEntry struct {
	Folder string `json:"folder"`
}

// appNameTokens are title segments that name the editor itself
var appNameTokens = map[string]bool{
	"cursor":             true,
	"visual studio code": true,
	"code":               true,
	"vscode":             true,
}

var knownExtensions = map[string]bool{
	"rs": true, "ts": true, "js": true, "py": true, "go": true,
	"java": true, "cpp": true, "c": true, "h": true, "md": true,
	"json": true, "toml": true, "yaml": true, "yml": true,
}

// Resolve returns the workspace directory for a window title, or ""
func (r *Resolver) Resolve(windowTitle string) string {
	projectName := ExtractProjectFromTitle(windowTitle)

	files := r.existingStateFilesByRecency()
	if len(files) == 0 {
		return ""
	}

	if projectName != "" {
		if path := r.matchProjectName(files, projectName); path != "" {
			return path
		}
	}

	// No title match: fall back to the newest last-active window
	for _, f := range files {
		state := r.readState(f)
		if state == nil || state.WindowsState == nil || state.WindowsState.LastActiveWindow == nil {
			continue
		}
		if path := folderURIToPath(state.WindowsState.LastActiveWindow.Folder); path != "" {
			return path
		}
	}

	return ""
}

func (r *Resolver) matchProjectName(files []string, projectName string) string {
	lowerName := strings.ToLower(projectName)

	var substringMatch string
	for _, f := range files {
		for _, folder := range r.collectFolders(f) {
			base := strings.ToLower(filepath.Base(folder))
			if base == lowerName {
				return folder
			}
			if substringMatch == "" && (strings.Contains(base, lowerName) || strings.Contains(lowerName, base)) {
				substringMatch = folder
			}
		}
	}
	return substringMatch
}

func (r *Resolver) collectFolders(file string) []string {
	state := r.readState(file)
	if state == nil {
		return nil
	}

	var folders []string
	if state.WindowsState != nil {
		if w := state.WindowsState.LastActiveWindow; w != nil {
			if p := folderURIToPath(w.Folder); p != "" {
				folders = append(folders, p)
			}
		}
		for _, w := range state.WindowsState.OpenedWindows {
			if p := folderURIToPath(w.Folder); p != "" {
				folders = append(folders, p)
			}
		}
	}
	if state.OpenedPathsList != nil {
		for _, e := range state.OpenedPathsList.Entries {
			if p := folderURIToPath(e.FolderURI); p != "" {
				folders = append(folders, p)
			}
		}
	}
	return folders
}

func (r *Resolver) readState(file string) *storageState {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil
	}
	var state storageState
	if err := json.Unmarshal(data, &state); err != nil {
		r.logger.Warn("unreadable editor state file", map[string]interface{}{
			"file":  file,
			"error": err.Error(),
		})
		return nil
	}
	return &state
}

func (r *Resolver) existingStateFilesByRecency() []string {
	type fileInfo struct {
		path  string
		mtime int64
	}
	var files []fileInfo
	for _, f := range r.stateFiles {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: f, mtime: info.ModTime().UnixNano()})
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].mtime > files[j].mtime })

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths
}

// ExtractProjectFromTitle pulls the likely workspace name out of an editor
// window title. Titles look like "main.go — toki — Cursor"; the strategy is
// to split on dash separators, drop app names and file-shaped tokens, and
// take the last remaining segment.
func ExtractProjectFromTitle(title string) string {
	if title == "" {
		return ""
	}

	replacer := strings.NewReplacer("—", "–", " - ", "–")
	normalized := replacer.Replace(title)
	segments := strings.Split(normalized, "–")

	var candidates []string
	for _, seg := range segments {
		token := strings.TrimSpace(seg)
		if token == "" {
			continue
		}
		if appNameTokens[strings.ToLower(token)] {
			continue
		}
		if looksLikeFilename(token) {
			continue
		}
		candidates = append(candidates, token)
	}

	if len(candidates) == 0 {
		return ""
	}
	return candidates[len(candidates)-1]
}

// looksLikeFilename reports whether a token has a short trailing extension
// from the known set
func looksLikeFilename(token string) bool {
	dot := strings.LastIndex(token, ".")
	if dot <= 0 || dot == len(token)-1 {
		return false
	}
	ext := strings.ToLower(token[dot+1:])
	if len(ext) > 4 {
		return false
	}
	return knownExtensions[ext]
}

// folderURIToPath converts a file:// URI (or plain path) to a local path
func folderURIToPath(uri string) string {
	if uri == "" {
		return ""
	}
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	path, err := url.PathUnescape(u.Path)
	if err != nil {
		return u.Path
	}
	return path
}
