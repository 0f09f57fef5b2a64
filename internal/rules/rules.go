// Package rules loads the category-rule configuration and exposes a
// read-only, pre-compiled rule set.
//
// The configuration is a JSON document mapping category name to an object
// with optional fields:
//
//	{
//	  "Crypto": {
//	    "patterns": ["\\bstaking\\b", "wallet"],
//	    "senders":  ["@coinbase.com"],
//	    "priority": 10,
//	    "action":   "label:Crypto"
//	  }
//	}
//
// Content patterns are regular expressions matched case-insensitively
// against subject + snippet. Senders are either domain suffixes
// ("@example.com"), matched against the extracted sender address, or
// regular expressions matched against the raw sender field. A pattern that
// fails to compile is skipped with a warning; it never fails the load.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"inbox-briefing-go/internal/errs"
	"inbox-briefing-go/internal/model"
)

// FallbackCategory is assigned when no rule matches.
const FallbackCategory = "Uncategorized"

// DefaultPriority is used when a category omits the priority field.
// Lower numbers win.
const DefaultPriority = 50

// ContentMatcher is one compiled content pattern. Src keeps the raw
// configuration string for reason reporting.
type ContentMatcher struct {
	Src string
	re  *regexp.Regexp
}

// Match reports whether the pattern matches the given text.
func (m ContentMatcher) Match(text string) bool {
	return m.re.MatchString(text)
}

// SenderMatcher is one compiled sender matcher, either a domain suffix or
// a regular expression.
type SenderMatcher struct {
	Src    string
	domain string
	re     *regexp.Regexp
}

// Match reports whether the matcher matches the raw sender field.
func (m SenderMatcher) Match(sender string) bool {
	if m.domain != "" {
		addr := strings.ToLower(model.SenderAddress(sender))
		return strings.HasSuffix(addr, m.domain)
	}
	return m.re.MatchString(sender)
}

// Rule is one category's compiled matching configuration.
type Rule struct {
	Category string
	Patterns []ContentMatcher
	Senders  []SenderMatcher
	Priority int
	Action   string
}

// Set is the loaded rule set. Rules keep their declaration order from the
// configuration document; the set is read-only after Load.
type Set struct {
	rules []Rule
}

type ruleSpec struct {
	Patterns []string `json:"patterns"`
	Senders  []string `json:"senders"`
	Priority *int     `json:"priority"`
	Action   string   `json:"action"`
}

// Load reads and compiles the rule configuration at path. It fails with
// errs.ErrConfigNotFound when the file does not exist and with
// errs.ErrConfigMalformed when it exists but cannot be read or parsed as
// a JSON object of rule entries. Invalid individual patterns are logged
// and skipped.
func Load(path string, log *logrus.Entry) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: categories config %s", errs.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", errs.ErrConfigMalformed, path, err)
	}

	set, err := parse(data, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrConfigMalformed, path, err)
	}

	log.WithField("categories", len(set.rules)).Info("Loaded category rules")
	return set, nil
}

// parse decodes the document with a token stream so the declaration order
// of categories survives; that order is the final tie-break during
// categorization.
func parse(data []byte, log *logrus.Entry) (*Set, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("top level must be an object, got %v", tok)
	}

	set := &Set{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %v", err)
		}
		category, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("invalid category key %v", keyTok)
		}

		var spec ruleSpec
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("invalid rule for %q: %v", category, err)
		}

		set.rules = append(set.rules, compile(category, spec, log))
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON: %v", err)
	}
	return set, nil
}

func compile(category string, spec ruleSpec, log *logrus.Entry) Rule {
	rule := Rule{
		Category: category,
		Priority: DefaultPriority,
		Action:   spec.Action,
	}
	if spec.Priority != nil {
		rule.Priority = *spec.Priority
	}

	for _, p := range spec.Patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			log.WithField("category", category).Warnf("Skipping invalid pattern %q: %v", p, err)
			continue
		}
		rule.Patterns = append(rule.Patterns, ContentMatcher{Src: p, re: re})
	}

	for _, s := range spec.Senders {
		if strings.HasPrefix(s, "@") {
			rule.Senders = append(rule.Senders, SenderMatcher{Src: s, domain: strings.ToLower(s)})
			continue
		}
		re, err := regexp.Compile("(?i)" + s)
		if err != nil {
			log.WithField("category", category).Warnf("Skipping invalid sender matcher %q: %v", s, err)
			continue
		}
		rule.Senders = append(rule.Senders, SenderMatcher{Src: s, re: re})
	}

	return rule
}

// Rules returns the rules in declaration order.
func (s *Set) Rules() []Rule {
	return s.rules
}

// Len returns the number of configured categories.
func (s *Set) Len() int {
	return len(s.rules)
}

// Action returns the action tag configured for a category, or "" when the
// category has none (including the fallback category).
func (s *Set) Action(category string) string {
	for _, r := range s.rules {
		if r.Category == category {
			return r.Action
		}
	}
	return ""
}

// Actions returns the configured action tags keyed by category. Categories
// without an action are absent from the map.
func (s *Set) Actions() map[string]string {
	out := make(map[string]string, len(s.rules))
	for _, r := range s.rules {
		if r.Action != "" {
			out[r.Category] = r.Action
		}
	}
	return out
}

// Categories returns every configured category name sorted alphabetically,
// with the fallback category appended last.
func (s *Set) Categories() []string {
	names := make([]string, 0, len(s.rules)+1)
	for _, r := range s.rules {
		names = append(names, r.Category)
	}
	sort.Strings(names)
	return append(names, FallbackCategory)
}
