// Package linker suggests links between unlinked local projects and remote
// PM projects using name, URL and git-remote signals.
package linker

import (
	"context"
	"sort"
	"strings"

	"toki/internal/gitutil"
	"toki/internal/issueid"
	"toki/internal/logging"
	"toki/internal/pm"
	"toki/internal/storage"
)

// Confidence weights per signal source
const (
	confExactName   = 0.95
	confIssueURL    = 0.9
	confProjectURL  = 0.85
	confJaccardBase = 0.8
	confContains    = 0.7
	confGitRemote   = 0.75

	jaccardThreshold = 0.6
)

// Suggestion is one proposed (local project, PM project) link
type Suggestion struct {
	ProjectID    string  `json:"project_id"`
	ProjectName  string  `json:"project_name"`
	PMProjectID  string  `json:"pm_project_id"`
	PMIdentifier string  `json:"pm_identifier"`
	PMName       string  `json:"pm_name"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
}

// Linker ranks link suggestions and applies them
type Linker struct {
	db     *storage.DB
	client pm.ProjectManagementSystem
	logger *logging.Logger
}

// New creates an auto-linker
func New(db *storage.DB, client pm.ProjectManagementSystem, logger *logging.Logger) *Linker {
	return &Linker{db: db, client: client, logger: logger}
}

// Suggest produces ranked link suggestions for all unlinked projects.
// Browser URLs observed recently may be passed in to enable URL matching.
func (l *Linker) Suggest(ctx context.Context, browserURLs []string) ([]Suggestion, error) {
	local, err := l.db.ListUnlinkedProjects()
	if err != nil {
		return nil, err
	}
	if len(local) == 0 {
		return nil, nil
	}

	remote, err := l.client.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	var all []Suggestion
	for _, project := range local {
		all = append(all, l.matchProject(&project, remote, browserURLs)...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Confidence > all[j].Confidence })
	return dedupeByProject(all), nil
}

// Apply links a local project to the suggested PM project
func (l *Linker) Apply(s *Suggestion) error {
	workspace := ""
	if err := l.db.LinkProjectPM(s.ProjectID, l.client.SystemName(), s.PMProjectID, workspace); err != nil {
		return err
	}
	l.logger.Info("project linked", map[string]interface{}{
		"project":    s.ProjectName,
		"pm_project": s.PMName,
		"confidence": s.Confidence,
	})
	return nil
}

func (l *Linker) matchProject(project *storage.Project, remote []pm.Project, browserURLs []string) []Suggestion {
	var out []Suggestion

	add := func(r *pm.Project, confidence float64, reason string) {
		out = append(out, Suggestion{
			ProjectID:    project.ID,
			ProjectName:  project.Name,
			PMProjectID:  r.ID,
			PMIdentifier: r.Identifier,
			PMName:       r.Name,
			Confidence:   confidence,
			Reason:       reason,
		})
	}

	for i := range remote {
		r := &remote[i]
		if conf, reason := matchName(project.Name, r, 1.0); conf > 0 {
			add(r, conf, reason)
		}
	}

	for i := range remote {
		r := &remote[i]
		if conf, reason := matchURLs(browserURLs, r); conf > 0 {
			add(r, conf, reason)
		}
	}

	for _, remoteName := range gitRemoteNames(project.Path) {
		for i := range remote {
			r := &remote[i]
			// Same matching rules, scaled to the git-remote weight
			if conf, _ := matchName(remoteName, r, 1.0); conf > 0 {
				add(r, confGitRemote, "git remote "+remoteName)
			}
		}
	}

	return out
}

// matchName applies the name-matching ladder: exact, Jaccard, containment
func matchName(name string, r *pm.Project, scale float64) (float64, string) {
	lower := strings.ToLower(name)
	remoteName := strings.ToLower(r.Name)
	remoteIdent := strings.ToLower(r.Identifier)

	if lower == remoteName || (remoteIdent != "" && lower == remoteIdent) {
		return confExactName * scale, "exact name match"
	}

	if sim := jaccardChars(lower, remoteName); sim > jaccardThreshold {
		return sim * confJaccardBase * scale, "similar name"
	}

	if remoteIdent != "" &&
		(strings.Contains(lower, remoteIdent) || strings.Contains(remoteIdent, lower)) {
		return confContains * scale, "name contains identifier"
	}

	return 0, ""
}

// matchURLs checks browser URLs for issue IDs whose prefix is the remote
// project's identifier, and for project-path visits
func matchURLs(urls []string, r *pm.Project) (float64, string) {
	ident := strings.ToUpper(r.Identifier)
	if ident == "" {
		return 0, ""
	}

	for _, u := range urls {
		for _, ref := range issueid.Extract(u) {
			if ref.Project == ident {
				return confIssueURL, "issue page visit"
			}
		}
	}

	lowerIdent := strings.ToLower(r.Identifier)
	for _, u := range urls {
		if strings.Contains(strings.ToLower(u), "/"+lowerIdent+"/") ||
			strings.HasSuffix(strings.ToLower(u), "/"+lowerIdent) {
			return confProjectURL, "project page visit"
		}
	}
	return 0, ""
}

// gitRemoteNames reads remote URLs from the project's git config and
// extracts their trailing repo names
func gitRemoteNames(path string) []string {
	root := gitutil.FindRepoRoot(path)
	if root == "" {
		return nil
	}
	var names []string
	for _, u := range gitutil.RemoteURLs(root) {
		if name := gitutil.RepoNameFromURL(u); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// dedupeByProject keeps the highest-confidence suggestion per local project.
// Input must already be sorted by confidence descending.
func dedupeByProject(sorted []Suggestion) []Suggestion {
	seen := map[string]bool{}
	var out []Suggestion
	for _, s := range sorted {
		if seen[s.ProjectID] {
			continue
		}
		seen[s.ProjectID] = true
		out = append(out, s)
	}
	return out
}

// jaccardChars computes Jaccard similarity over the character sets of two
// lowercased strings
func jaccardChars(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	setA := map[rune]bool{}
	for _, r := range a {
		setA[r] = true
	}
	setB := map[rune]bool{}
	for _, r := range b {
		setB[r] = true
	}

	intersection := 0
	for r := range setA {
		if setB[r] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
