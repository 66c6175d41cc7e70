// Package moderation classifies chat text. All operations are pure: the
// moderator never touches storage or the network, it only reports a verdict
// and leaves policy enforcement to the caller.
package moderation

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"anonchat/backend/internal/config"
)

// Severity of a Check verdict.
const (
	SeverityClean   = "clean"
	SeverityWarning = "warning"
	SeverityBlocked = "blocked"
)

// Result is the outcome of Check.
type Result struct {
	Severity string
	Reason   string
}

// Thresholds for the spam score and for the blocked structural rules.
const (
	spamRunLen     = 5  // run length that scores as spam
	blockedRunLen  = 10 // run length that blocks outright
	blockedURLMin  = 4  // http(s) occurrences that block outright
	spamURLMin     = 3  // http(s) occurrences that start scoring +k
	uppercaseRatio = 0.7
	uppercaseMin   = 10
)

var (
	urlRe     = regexp.MustCompile(`(?i)https?://`)
	exclaimRe = regexp.MustCompile(`[!?]{3,}`)
	keywordRe = regexp.MustCompile(`(?i)\b(free|win|winner|prize|claim|limited|urgent)\b`)

	sanitizeReplacer = strings.NewReplacer(
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
)

// Moderator holds the compiled pattern tables.
type Moderator struct {
	mu      sync.RWMutex
	blocked []Pattern
	warning []Pattern
}

// New builds a moderator with the built-in tables.
func New() *Moderator {
	m := &Moderator{}
	for _, category := range blockedOrder {
		patterns, err := compileTable(category, defaultBlocked[category])
		if err != nil {
			// Built-ins are compile-checked by tests; a failure here is a
			// programming error.
			panic(err)
		}
		m.blocked = append(m.blocked, patterns...)
	}
	patterns, err := compileTable(CategoryWarning, defaultWarning)
	if err != nil {
		panic(err)
	}
	m.warning = patterns
	return m
}

// Sanitize HTML-escapes <, >, " and ', trims surrounding whitespace and
// clamps the result to the maximum message length. Idempotent.
func Sanitize(text string) string {
	text = sanitizeReplacer.Replace(text)
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > config.MessageMaxLen {
		runes = runes[:config.MessageMaxLen]
	}
	return string(runes)
}

// SpamScore computes the additive spam score for text.
func (m *Moderator) SpamScore(text string) int {
	score := 0

	if utf8.RuneCountInString(text) > uppercaseMin {
		letters, upper := 0, 0
		for _, r := range text {
			if unicode.IsLetter(r) {
				letters++
				if unicode.IsUpper(r) {
					upper++
				}
			}
		}
		if letters > 0 && float64(upper)/float64(letters) > uppercaseRatio {
			score += config.SpamWeightUppercase
		}
	}

	if longestRun(text) >= spamRunLen {
		score += config.SpamWeightCharRun
	}

	if exclaimRe.MatchString(text) {
		score += config.SpamWeightExclaim
	}

	if k := len(urlRe.FindAllStringIndex(text, -1)); k >= spamURLMin {
		score += k
	}

	if keywordRe.MatchString(text) {
		score += config.SpamWeightKeyword
	}

	return score
}

// IsSpam reports whether text crosses the spam threshold.
func (m *Moderator) IsSpam(text string) bool {
	return m.SpamScore(text) >= config.SpamScoreThreshold
}

// Check classifies text. Blocked categories are evaluated in table order,
// then the structural rules (URL flooding, long runs), then the warning
// table; first match wins.
func (m *Moderator) Check(text string) Result {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.blocked {
		if p.Re.MatchString(text) {
			return Result{Severity: SeverityBlocked, Reason: p.Category}
		}
	}
	if len(urlRe.FindAllStringIndex(text, -1)) >= blockedURLMin {
		return Result{Severity: SeverityBlocked, Reason: CategoryURLs}
	}
	if longestRun(text) >= blockedRunLen {
		return Result{Severity: SeverityBlocked, Reason: CategoryCharRun}
	}
	for _, p := range m.warning {
		if p.Re.MatchString(text) {
			return Result{Severity: SeverityWarning, Reason: p.Category}
		}
	}
	return Result{Severity: SeverityClean}
}

// Mask replaces every blocked- and warning-pattern match with asterisks of
// the matched span length.
func (m *Moderator) Mask(text string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mask := func(match string) string {
		return strings.Repeat("*", utf8.RuneCountInString(match))
	}
	for _, p := range m.blocked {
		text = p.Re.ReplaceAllStringFunc(text, mask)
	}
	for _, p := range m.warning {
		text = p.Re.ReplaceAllStringFunc(text, mask)
	}
	return text
}

// longestRun returns the length of the longest consecutive run of one rune.
// RE2 has no backreferences, so runs are scanned by hand.
func longestRun(text string) int {
	longest, current := 0, 0
	var prev rune
	for i, r := range text {
		if i > 0 && r == prev {
			current++
		} else {
			current = 1
			prev = r
		}
		if current > longest {
			longest = current
		}
	}
	return longest
}
