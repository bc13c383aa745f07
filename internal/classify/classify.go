// Package classify labels activity samples with a work category.
// Lookup order: user rules by priority, then built-in regex categories,
// then "Other".
package classify

import (
	"regexp"
	"strings"
	"time"

	"toki/internal/logging"
	"toki/internal/storage"
)

// FallbackCategory labels samples nothing else matched
const FallbackCategory = "Other"

// Classifier is a priority cascade over user rules and built-in patterns
type Classifier struct {
	db       *storage.DB
	logger   *logging.Logger
	builtins []builtinCategory
}

type builtinCategory struct {
	name    string
	pattern *regexp.Regexp
}

// New creates a classifier, compiling the built-in category patterns from
// the store's seeded categories. Rows with invalid patterns are skipped.
func New(db *storage.DB, logger *logging.Logger) (*Classifier, error) {
	cats, err := db.ListCategories()
	if err != nil {
		return nil, err
	}

	c := &Classifier{db: db, logger: logger}
	for _, cat := range cats {
		re, err := regexp.Compile(cat.Pattern)
		if err != nil {
			logger.Warn("skipping category with invalid pattern", map[string]interface{}{
				"category": cat.Name,
				"error":    err.Error(),
			})
			continue
		}
		c.builtins = append(c.builtins, builtinCategory{name: cat.Name, pattern: re})
	}
	return c, nil
}

// Classify returns the category for an (app, title) sample. User rule hits
// are recorded as a side effect.
func (c *Classifier) Classify(appBundleID, windowTitle string, now time.Time) string {
	rules, err := c.db.ListClassificationRules()
	if err != nil {
		c.logger.Warn("failed to load classification rules", map[string]interface{}{
			"error": err.Error(),
		})
	}

	for _, rule := range rules {
		if !ruleMatches(&rule, appBundleID, windowTitle) {
			continue
		}
		if err := c.db.RecordRuleHit(rule.ID, now); err != nil {
			c.logger.Warn("failed to record rule hit", map[string]interface{}{
				"rule":  rule.ID,
				"error": err.Error(),
			})
		}
		return rule.Category
	}

	// Built-in patterns match over the composed sample text
	composed := appBundleID
	if windowTitle != "" {
		composed += " " + windowTitle
	}
	for _, b := range c.builtins {
		if b.pattern.MatchString(composed) {
			return b.name
		}
	}

	return FallbackCategory
}

// ruleMatches applies a user rule's predicate for its pattern type
func ruleMatches(rule *storage.ClassificationRule, appBundleID, windowTitle string) bool {
	pattern := strings.ToLower(rule.Pattern)
	switch rule.PatternType {
	case storage.PatternBundleID:
		return strings.Contains(strings.ToLower(appBundleID), pattern)
	case storage.PatternWindowTitle, storage.PatternDomain, storage.PatternURLPath:
		if windowTitle == "" {
			return false
		}
		return strings.Contains(strings.ToLower(windowTitle), pattern)
	default:
		return false
	}
}
