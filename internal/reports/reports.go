// Package reports aggregates tracked data into standup and insights views.
package reports

import (
	"sort"
	"time"

	"toki/internal/estimate"
	"toki/internal/session"
	"toki/internal/storage"
)

// ProjectTotal is one project's aggregated time
type ProjectTotal struct {
	Name      string `json:"name" yaml:"name"`
	Seconds   int64  `json:"seconds" yaml:"seconds"`
	Formatted string `json:"formatted" yaml:"formatted"`
}

// CategoryTotal is one category's aggregated time
type CategoryTotal struct {
	Name      string `json:"name" yaml:"name"`
	Seconds   int64  `json:"seconds" yaml:"seconds"`
	Formatted string `json:"formatted" yaml:"formatted"`
}

// StandupDay is one day's slice of a standup report
type StandupDay struct {
	Date      string         `json:"date" yaml:"date"`
	Projects  []ProjectTotal `json:"projects" yaml:"projects"`
	WorkItems []string       `json:"work_items,omitempty" yaml:"work_items,omitempty"`
	Sessions  int            `json:"sessions" yaml:"sessions"`
}

// Standup is the two-day report backing `toki report standup`
type Standup struct {
	Yesterday     StandupDay      `json:"yesterday" yaml:"yesterday"`
	Today         StandupDay      `json:"today" yaml:"today"`
	TopCategories []CategoryTotal `json:"top_categories,omitempty" yaml:"top_categories,omitempty"`
}

// Insights is the date-range report backing `toki report insights`
type Insights struct {
	From               string          `json:"from" yaml:"from"`
	To                 string          `json:"to" yaml:"to"`
	ActiveSeconds      int64           `json:"active_seconds" yaml:"active_seconds"`
	IdleSeconds        int64           `json:"idle_seconds" yaml:"idle_seconds"`
	Interruptions      int64           `json:"interruptions" yaml:"interruptions"`
	Sessions           int             `json:"sessions" yaml:"sessions"`
	Categories         []CategoryTotal `json:"categories,omitempty" yaml:"categories,omitempty"`
	Projects           []ProjectTotal  `json:"projects,omitempty" yaml:"projects,omitempty"`
	BusiestHour        int             `json:"busiest_hour" yaml:"busiest_hour"`
	BusiestHourSeconds int64           `json:"busiest_hour_seconds" yaml:"busiest_hour_seconds"`
	Breaks             map[string]int  `json:"breaks,omitempty" yaml:"breaks,omitempty"`
}

// Reporter builds reports from the store
type Reporter struct {
	db *storage.DB
}

// New creates a reporter
func New(db *storage.DB) *Reporter {
	return &Reporter{db: db}
}

// Standup reports yesterday and today relative to now
func (r *Reporter) Standup(now time.Time) (*Standup, error) {
	today := now.UTC()
	yesterday := today.AddDate(0, 0, -1)

	yDay, err := r.standupDay(yesterday)
	if err != nil {
		return nil, err
	}
	tDay, err := r.standupDay(today)
	if err != nil {
		return nil, err
	}

	categories, err := r.categoryTotals(yesterday, today)
	if err != nil {
		return nil, err
	}
	if len(categories) > 3 {
		categories = categories[:3]
	}

	return &Standup{Yesterday: *yDay, Today: *tDay, TopCategories: categories}, nil
}

func (r *Reporter) standupDay(day time.Time) (*StandupDay, error) {
	out := &StandupDay{Date: day.Format("2006-01-02")}

	entries, err := r.db.GetProjectTimeForDate(day)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		out.Projects = append(out.Projects, ProjectTotal{
			Name:      e.ProjectName,
			Seconds:   e.DurationSeconds,
			Formatted: estimate.FormatSeconds(e.DurationSeconds),
		})
	}
	sort.SliceStable(out.Projects, func(i, j int) bool {
		return out.Projects[i].Seconds > out.Projects[j].Seconds
	})

	spans, err := r.db.GetSpansForDay(day)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for i := range spans {
		span := &spans[i]
		if span.Context == nil {
			continue
		}
		for _, id := range span.Context.WorkItemIDs {
			if !seen[id] {
				seen[id] = true
				out.WorkItems = append(out.WorkItems, id)
			}
		}
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	sessions, err := r.db.GetSessionsInRange(dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	out.Sessions = len(sessions)
	return out, nil
}

// Insights aggregates the inclusive [from, to] day range
func (r *Reporter) Insights(from, to time.Time) (*Insights, error) {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)

	out := &Insights{
		From:        fromDay.Format("2006-01-02"),
		To:          to.UTC().Format("2006-01-02"),
		BusiestHour: -1,
		Breaks:      map[string]int{},
	}

	sessions, err := r.db.GetSessionsInRange(fromDay, toDay)
	if err != nil {
		return nil, err
	}
	out.Sessions = len(sessions)
	for _, s := range sessions {
		out.ActiveSeconds += s.TotalActiveSeconds
		out.IdleSeconds += s.IdleSeconds
		out.Interruptions += s.InterruptionCount
		if s.IdleSeconds > 0 {
			state := session.ClassifyBreak(s.IdleSeconds)
			if state != session.BreakNone {
				out.Breaks[string(state)]++
			}
		}
	}

	categorySeconds := map[string]int64{}
	hourSeconds := map[int]int64{}
	for day := fromDay; day.Before(toDay); day = day.Add(24 * time.Hour) {
		spans, err := r.db.GetSpansForDay(day)
		if err != nil {
			return nil, err
		}
		for i := range spans {
			span := &spans[i]
			categorySeconds[span.Category] += span.DurationSeconds
			hourSeconds[span.StartTime.UTC().Hour()] += span.DurationSeconds
		}
	}
	out.Categories = sortedCategoryTotals(categorySeconds)

	for hour, seconds := range hourSeconds {
		if seconds > out.BusiestHourSeconds ||
			(seconds == out.BusiestHourSeconds && (out.BusiestHour == -1 || hour < out.BusiestHour)) {
			out.BusiestHour = hour
			out.BusiestHourSeconds = seconds
		}
	}

	entries, err := r.db.GetProjectTimeRange(fromDay, toDay)
	if err != nil {
		return nil, err
	}
	projectSeconds := map[string]int64{}
	for _, e := range entries {
		projectSeconds[e.ProjectName] += e.DurationSeconds
	}
	for name, seconds := range projectSeconds {
		out.Projects = append(out.Projects, ProjectTotal{
			Name:      name,
			Seconds:   seconds,
			Formatted: estimate.FormatSeconds(seconds),
		})
	}
	sort.SliceStable(out.Projects, func(i, j int) bool {
		if out.Projects[i].Seconds != out.Projects[j].Seconds {
			return out.Projects[i].Seconds > out.Projects[j].Seconds
		}
		return out.Projects[i].Name < out.Projects[j].Name
	})

	return out, nil
}

func (r *Reporter) categoryTotals(days ...time.Time) ([]CategoryTotal, error) {
	totals := map[string]int64{}
	for _, day := range days {
		spans, err := r.db.GetSpansForDay(day)
		if err != nil {
			return nil, err
		}
		for i := range spans {
			totals[spans[i].Category] += spans[i].DurationSeconds
		}
	}
	return sortedCategoryTotals(totals), nil
}

func sortedCategoryTotals(totals map[string]int64) []CategoryTotal {
	var out []CategoryTotal
	for name, seconds := range totals {
		out = append(out, CategoryTotal{
			Name:      name,
			Seconds:   seconds,
			Formatted: estimate.FormatSeconds(seconds),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds > out[j].Seconds
		}
		return out[i].Name < out[j].Name
	})
	return out
}
