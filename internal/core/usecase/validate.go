package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
)

// Validator checks a generated answer against the ranked evidence. The
// check is deterministic and lexical: claims are answer sentences, a
// claim is supported when enough of its tokens appear in at least one
// evidence passage, and numeric claims about regulated attributes must
// match an evidence value exactly.
type Validator struct {
	consistencyThreshold float64
	overlapThreshold     float64
}

func NewValidator(consistencyThreshold, overlapThreshold float64) *Validator {
	return &Validator{
		consistencyThreshold: consistencyThreshold,
		overlapThreshold:     overlapThreshold,
	}
}

// regulatedClaim is a numeric statement about an attribute where a wrong
// value is never acceptable, whatever the rest of the answer scores.
type regulatedClaim struct {
	attribute string
	value     string
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

	// Number immediately bound to a regulated unit, e.g. "150 W",
	// "50000 h", "50,000 hours", "IP65".
	wattageClaim  = regexp.MustCompile(`(?i)\b(\d[\d.,]*)\s*(?:w|watt|watts)\b`)
	lifetimeClaim = regexp.MustCompile(`(?i)\b(\d[\d.,]*)\s*(?:h|hours?|stunden)\b`)
	ipClaim       = regexp.MustCompile(`(?i)\bip\s*(\d{2})\b`)
)

// Validate scores the answer. A nil or empty evidence list makes every
// claim unverifiable, which forces the conservative reject.
func (v *Validator) Validate(answerText string, cls domain.Classification, evidence []domain.RankedCandidate) domain.ValidationReport {
	if strings.TrimSpace(answerText) == "" {
		return domain.ValidationReport{
			Issues:       []string{"empty answer"},
			Unverifiable: true,
		}
	}
	if len(evidence) == 0 {
		return domain.ValidationReport{
			Issues:       []string{"unverifiable: no evidence available"},
			Unverifiable: true,
		}
	}

	passages := make([]map[string]struct{}, len(evidence))
	for i, rc := range evidence {
		// Normalizing before tokenizing keeps "50,000" and "50000" as the
		// same token.
		passages[i] = toTokenSet(normalizeNumber(candidatePassage(rc.Candidate)))
	}

	var issues []string
	regulatedViolation := false

	claims := extractClaims(answerText)
	supported := 0
	for _, claim := range claims {
		claimTokens := toTokenSet(normalizeNumber(claim))
		ok := false
		for _, passage := range passages {
			if tokenOverlap(claimTokens, passage) >= v.overlapThreshold {
				ok = true
				break
			}
		}
		if ok {
			supported++
		} else {
			issues = append(issues, fmt.Sprintf("unsupported claim: %q", truncateClaim(claim)))
		}
	}

	for _, rc := range extractRegulatedClaims(answerText) {
		if !valueInEvidence(rc.value, passages) {
			regulatedViolation = true
			issues = append(issues, fmt.Sprintf("unsupported %s value %q", rc.attribute, rc.value))
		}
	}

	consistency := 1.0
	if len(claims) > 0 {
		consistency = float64(supported) / float64(len(claims))
	}

	report := domain.ValidationReport{
		Completeness:       v.completeness(answerText, cls),
		FactualConsistency: consistency,
	}
	report.Accept = consistency >= v.consistencyThreshold && !regulatedViolation
	if report.Accept {
		report.Issues = nil
	} else {
		if len(issues) == 0 {
			issues = append(issues, "factual consistency below threshold")
		}
		report.Issues = issues
	}
	return report
}

// completeness is the fraction of the query's requested attributes that
// the answer mentions. Queries without extracted predicates are complete
// by definition.
func (v *Validator) completeness(answerText string, cls domain.Classification) float64 {
	requested := cls.Filter.RequestedAttributes()
	if len(requested) == 0 {
		return 1
	}

	lower := strings.ToLower(answerText)
	mentioned := 0
	for _, attribute := range requested {
		if attributeMentioned(lower, attribute) {
			mentioned++
		}
	}
	return float64(mentioned) / float64(len(requested))
}

var attributeSurfaceForms = map[string][]string{
	"wattage":           {"w", "watt", "watts", "wattage", "leistung"},
	"lifetime":          {"h", "hour", "hours", "lifetime", "lebensdauer", "stunden"},
	"color temperature": {"k", "kelvin", "color temperature", "colour temperature", "farbtemperatur"},
	"ip rating":         {"ip"},
	"application area":  {"application", "area", "einsatzbereich", "anwendung"},
	"certifications":    {"certified", "certification", "certifications", "zertifizierung", "ce", "enec"},
}

func attributeMentioned(lowerAnswer, attribute string) bool {
	tokens := toTokenSet(lowerAnswer)
	for _, form := range attributeSurfaceForms[attribute] {
		if strings.Contains(form, " ") {
			if strings.Contains(lowerAnswer, form) {
				return true
			}
			continue
		}
		if _, ok := tokens[form]; ok {
			return true
		}
	}
	return false
}

func extractClaims(answerText string) []string {
	var claims []string
	for _, part := range sentenceSplit.Split(answerText, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if len(splitAlphaNumLower(part)) < 3 {
			// Fragments like "Yes" or a bare product name carry no
			// checkable content.
			continue
		}
		claims = append(claims, part)
	}
	return claims
}

func extractRegulatedClaims(answerText string) []regulatedClaim {
	var out []regulatedClaim
	for _, m := range wattageClaim.FindAllStringSubmatch(answerText, -1) {
		out = append(out, regulatedClaim{attribute: "wattage", value: normalizeNumber(m[1])})
	}
	for _, m := range lifetimeClaim.FindAllStringSubmatch(answerText, -1) {
		out = append(out, regulatedClaim{attribute: "lifetime", value: normalizeNumber(m[1])})
	}
	for _, m := range ipClaim.FindAllStringSubmatch(answerText, -1) {
		out = append(out, regulatedClaim{attribute: "ip rating", value: "ip" + m[1]})
	}
	return out
}

// valueInEvidence does whole-token matching so "150" never matches
// inside "1500". "ip65" also matches the split form "ip 65".
func valueInEvidence(value string, passages []map[string]struct{}) bool {
	parts := splitAlphaNumLower(value)
	for _, passage := range passages {
		if _, ok := passage[value]; ok {
			return true
		}
		if len(parts) > 1 && allTokensPresent(parts, passage) {
			return true
		}
		if rest, found := strings.CutPrefix(value, "ip"); found {
			_, hasIP := passage["ip"]
			_, hasNum := passage[rest]
			if hasIP && hasNum {
				return true
			}
		}
	}
	return false
}

func allTokensPresent(tokens []string, passage map[string]struct{}) bool {
	for _, token := range tokens {
		if _, ok := passage[token]; !ok {
			return false
		}
	}
	return true
}

// normalizeNumber drops thousands separators so "50,000" and "50000"
// compare equal.
func normalizeNumber(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSuffix(s, ".")
}

func truncateClaim(claim string) string {
	const max = 80
	if len(claim) <= max {
		return claim
	}
	return claim[:max] + "…"
}
