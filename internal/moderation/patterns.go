package moderation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Pattern categories evaluated by Check, in order. Membership of each table
// is a policy decision; the categories themselves are fixed.
const (
	CategoryExplicit = "explicit"
	CategorySlur     = "slur"
	CategoryThreat   = "threat"
	CategoryLeet     = "leetspeak"
	CategoryURLs     = "urls"
	CategoryCharRun  = "char_run"
	CategoryWarning  = "warning"
)

// Pattern is one compiled moderation rule.
type Pattern struct {
	Category string
	Re       *regexp.Regexp
}

// Built-in tables. Each category can be replaced at startup by a JSON file
// in the patterns directory (see LoadPatternsDir).
var defaultBlocked = map[string][]string{
	CategoryExplicit: {
		`(?i)\bfuck(er|ing|ed)?\b`,
		`(?i)\bmotherfucker\b`,
		`(?i)\bcunt\b`,
		`(?i)\bcock\b`,
		`(?i)\bdick(head)?\b`,
	},
	CategorySlur: {
		`(?i)\bretard(ed|s)?\b`,
		`(?i)\bfag(got)?s?\b`,
		`(?i)\btrann(y|ies)\b`,
	},
	CategoryThreat: {
		`(?i)\bkill\s+(yourself|urself|you)\b`,
		`(?i)\bkys\b`,
		`(?i)\bi('ll| will| am going to)\s+(hurt|kill|find)\s+you\b`,
		`(?i)\bgo\s+die\b`,
	},
	CategoryLeet: {
		`(?i)\bf[*@v]+ck\b`,
		`(?i)\bfuk+\b`,
		`(?i)\bc[*@]+nt\b`,
		`(?i)\bsh[1!]+t\b`,
		`(?i)\bb[1!]+tch\b`,
	},
}

var defaultWarning = []string{
	`(?i)\bidiot\b`,
	`(?i)\bstupid\b`,
	`(?i)\bdumb(ass)?\b`,
	`(?i)\bloser\b`,
	`(?i)\bmoron\b`,
	`(?i)\bshut\s+up\b`,
	`(?i)\bbitch\b`,
	`(?i)\bshit(ty)?\b`,
	`(?i)\basshole\b`,
	`(?i)\bbastard\b`,
}

// blockedOrder fixes evaluation order across categories: first match wins.
var blockedOrder = []string{CategoryExplicit, CategorySlur, CategoryThreat, CategoryLeet}

func compileTable(category string, exprs []string) ([]Pattern, error) {
	patterns := make([]Pattern, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("bad %s pattern %q: %w", category, expr, err)
		}
		patterns = append(patterns, Pattern{Category: category, Re: re})
	}
	return patterns, nil
}

// LoadPatternsDir replaces built-in tables with JSON files from dir. Each
// file is named after its category (e.g. "explicit.json") and contains an
// array of regular expressions. Missing categories keep the built-ins.
func (m *Moderator) LoadPatternsDir(dir string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read patterns directory: %w", err)
	}

	loaded := make(map[string][]string)
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		category := strings.TrimSuffix(file.Name(), ".json")
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read patterns file %s: %w", file.Name(), err)
		}
		var exprs []string
		if err := json.Unmarshal(data, &exprs); err != nil {
			return fmt.Errorf("failed to parse patterns file %s: %w", file.Name(), err)
		}
		loaded[category] = exprs
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, category := range blockedOrder {
		exprs, ok := loaded[category]
		if !ok {
			continue
		}
		patterns, err := compileTable(category, exprs)
		if err != nil {
			return err
		}
		m.replaceBlocked(category, patterns)
	}
	if exprs, ok := loaded[CategoryWarning]; ok {
		patterns, err := compileTable(CategoryWarning, exprs)
		if err != nil {
			return err
		}
		m.warning = patterns
	}
	return nil
}

func (m *Moderator) replaceBlocked(category string, patterns []Pattern) {
	kept := m.blocked[:0]
	for _, p := range m.blocked {
		if p.Category != category {
			kept = append(kept, p)
		}
	}
	m.blocked = append(kept, patterns...)
	m.sortBlocked()
}

// sortBlocked restores the category evaluation order after a replacement.
func (m *Moderator) sortBlocked() {
	ordered := make([]Pattern, 0, len(m.blocked))
	for _, category := range blockedOrder {
		for _, p := range m.blocked {
			if p.Category == category {
				ordered = append(ordered, p)
			}
		}
	}
	m.blocked = ordered
}
