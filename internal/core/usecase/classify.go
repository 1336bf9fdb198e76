package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
	"github.com/kirillkom/catalog-qa/internal/core/ports"
)

// Classifier labels a query with a retrieval strategy. Ordered pattern
// rules run first and win deterministically; the language model is only
// consulted to decide between SEMANTIC and HYBRID, and a failed model call
// degrades to SEMANTIC rather than blocking the pipeline.
type Classifier struct {
	codePatterns []*regexp.Regexp
	comparisons  []compiledComparison
	stopwords    map[string]struct{}
	aliasWords   map[string]struct{}
	model        ports.IntentModel
}

type compiledComparison struct {
	attribute string
	minRules  []*regexp.Regexp
	maxRules  []*regexp.Regexp
}

func NewClassifier(spec domain.RuleSpec, model ports.IntentModel) (*Classifier, error) {
	c := &Classifier{
		stopwords:  make(map[string]struct{}, len(spec.Stopwords)),
		aliasWords: make(map[string]struct{}),
		model:      model,
	}

	for _, pattern := range spec.CodePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile code pattern %q: %w", pattern, err)
		}
		c.codePatterns = append(c.codePatterns, re)
	}

	for _, rule := range spec.Comparisons {
		compiled, err := compileComparison(rule)
		if err != nil {
			return nil, err
		}
		c.comparisons = append(c.comparisons, compiled)
		for _, alias := range rule.Aliases {
			for _, token := range splitAlphaNumLower(alias) {
				c.aliasWords[token] = struct{}{}
			}
		}
	}

	for _, word := range spec.Stopwords {
		c.stopwords[strings.ToLower(word)] = struct{}{}
	}

	return c, nil
}

// Classify applies the ordered rules, then the model fallback. The
// declared language is informational only: code and comparison rules are
// language-independent by construction.
func (c *Classifier) Classify(ctx context.Context, query, declaredLanguage string) domain.Classification {
	query = strings.TrimSpace(query)

	if code, ok := c.matchCode(query); ok {
		return domain.Classification{
			Query:      query,
			Intent:     domain.IntentExact,
			Confidence: 0.95,
			Code:       code,
		}
	}

	filter, leftover := c.extractFilter(query)
	if !filter.Empty() && c.onlyNoise(leftover) {
		return domain.Classification{
			Query:      query,
			Intent:     domain.IntentFilter,
			Confidence: 0.9,
			Filter:     filter,
		}
	}

	return c.modelFallback(ctx, query, declaredLanguage, filter)
}

func (c *Classifier) matchCode(query string) (string, bool) {
	for _, re := range c.codePatterns {
		match := re.FindStringSubmatch(query)
		if match == nil {
			continue
		}
		code := strings.TrimSpace(match[0])
		if len(match) > 1 && match[1] != "" {
			code = strings.TrimSpace(match[1])
		}
		return code, true
	}
	return "", false
}

func (c *Classifier) extractFilter(query string) (domain.AttributeFilter, string) {
	var filter domain.AttributeFilter
	leftover := query

	apply := func(attribute string, value int, isMin bool) {
		switch attribute {
		case "wattage":
			if isMin {
				filter.WattageMin = value
			} else {
				filter.WattageMax = value
			}
		case "lifetime_hours":
			if isMin {
				filter.LifetimeHoursMin = value
			} else {
				filter.LifetimeHoursMax = value
			}
		}
	}

	for _, cmp := range c.comparisons {
		for _, re := range cmp.minRules {
			if value, rest, ok := takeComparison(re, leftover); ok {
				apply(cmp.attribute, value, true)
				leftover = rest
			}
		}
		for _, re := range cmp.maxRules {
			if value, rest, ok := takeComparison(re, leftover); ok {
				apply(cmp.attribute, value, false)
				leftover = rest
			}
		}
	}

	return filter, leftover
}

// onlyNoise reports whether the remaining text carries no retrieval
// meaning: stopwords, attribute aliases and bare numbers only. Aliases
// count as noise because the attribute they name was already captured
// as a predicate.
func (c *Classifier) onlyNoise(leftover string) bool {
	for _, token := range splitAlphaNumLower(leftover) {
		if _, ok := c.stopwords[token]; ok {
			continue
		}
		if _, ok := c.aliasWords[token]; ok {
			continue
		}
		if _, err := strconv.Atoi(token); err == nil {
			continue
		}
		return false
	}
	return true
}

func (c *Classifier) modelFallback(ctx context.Context, query, declaredLanguage string, ruleFilter domain.AttributeFilter) domain.Classification {
	fallback := domain.Classification{
		Query:      query,
		Intent:     domain.IntentSemantic,
		Confidence: 0.5,
		Filter:     ruleFilter,
		Keywords:   c.extractKeywords(query),
		Degraded:   true,
	}

	if c.model == nil {
		return fallback
	}

	cls, err := c.model.ClassifyIntent(ctx, query)
	if err != nil {
		slog.Warn("intent_model_fallback", "language", declaredLanguage, "error", err)
		return fallback
	}
	if cls.Intent != domain.IntentSemantic && cls.Intent != domain.IntentHybrid {
		slog.Warn("intent_model_unexpected_intent", "intent", string(cls.Intent))
		return fallback
	}

	cls.Query = query
	cls.Filter = mergeFilters(ruleFilter, cls.Filter)
	if len(cls.Keywords) == 0 {
		cls.Keywords = c.extractKeywords(query)
	}
	if cls.Intent == domain.IntentHybrid && cls.Filter.Empty() {
		// HYBRID without predicates degenerates to pure similarity search.
		cls.Intent = domain.IntentSemantic
	}
	return cls
}

func (c *Classifier) extractKeywords(query string) []string {
	tokens := splitAlphaNumLower(query)
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) <= 2 {
			continue
		}
		if _, ok := c.stopwords[token]; ok {
			continue
		}
		out = append(out, token)
		if len(out) == 10 {
			break
		}
	}
	return out
}

// mergeFilters keeps rule-extracted predicates over model-extracted ones;
// the rules are deterministic and therefore more trustworthy.
func mergeFilters(rule, model domain.AttributeFilter) domain.AttributeFilter {
	out := model
	if rule.WattageMin > 0 {
		out.WattageMin = rule.WattageMin
	}
	if rule.WattageMax > 0 {
		out.WattageMax = rule.WattageMax
	}
	if rule.LifetimeHoursMin > 0 {
		out.LifetimeHoursMin = rule.LifetimeHoursMin
	}
	if rule.LifetimeHoursMax > 0 {
		out.LifetimeHoursMax = rule.LifetimeHoursMax
	}
	return out
}

func compileComparison(rule domain.ComparisonRule) (compiledComparison, error) {
	compiled := compiledComparison{attribute: rule.Attribute}

	// Aliases are matched without a leading word boundary in the
	// unit position so "150w" and "150 w" both parse; the alias-first
	// form keeps the boundary to avoid matching inside other words.
	aliases := plainAlternation(rule.Aliases)
	build := func(operators []string) ([]*regexp.Regexp, error) {
		if len(operators) == 0 {
			return nil, nil
		}
		ops := alternation(operators)
		opFirst, err := regexp.Compile(`(?i)(?:` + ops + `)\s*([0-9]+)\s*(?:` + aliases + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("compile comparison rule for %s: %w", rule.Attribute, err)
		}
		aliasFirst, err := regexp.Compile(`(?i)\b(?:` + aliases + `)\s+(?:of\s+|von\s+)?(?:` + ops + `)\s*([0-9]+)\b`)
		if err != nil {
			return nil, fmt.Errorf("compile comparison rule for %s: %w", rule.Attribute, err)
		}
		return []*regexp.Regexp{opFirst, aliasFirst}, nil
	}

	var err error
	if compiled.minRules, err = build(rule.MinOperators); err != nil {
		return compiledComparison{}, err
	}
	if compiled.maxRules, err = build(rule.MaxOperators); err != nil {
		return compiledComparison{}, err
	}
	return compiled, nil
}

// alternation builds a regex alternation, word-bounding alphabetic terms
// so symbolic operators like ">=" stay matchable.
func alternation(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		quoted := regexp.QuoteMeta(strings.ToLower(term))
		if isWordTerm(term) {
			quoted = `\b` + quoted + `\b`
		}
		parts = append(parts, quoted)
	}
	return strings.Join(parts, "|")
}

func plainAlternation(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(strings.ToLower(term)))
	}
	return strings.Join(parts, "|")
}

func isWordTerm(term string) bool {
	for _, r := range term {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if r == ' ' || r == 'ä' || r == 'ö' || r == 'ü' || r == 'ß' {
			continue
		}
		return false
	}
	return true
}

func takeComparison(re *regexp.Regexp, text string) (int, string, bool) {
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return 0, text, false
	}
	raw := text[loc[2]:loc[3]]
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, text, false
	}
	return value, text[:loc[0]] + " " + text[loc[1]:], true
}
