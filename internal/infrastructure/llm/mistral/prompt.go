package mistral

import (
	"fmt"
	"strings"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
)

const intentSystemPrompt = `You classify product catalog questions by retrieval strategy.
Return a strict JSON object with keys:
intent ("SEMANTIC" or "HYBRID"), confidence (number from 0 to 1),
filter (object with optional integer keys wattage_min, wattage_max, lifetime_hours_min, lifetime_hours_max and optional string keys color_temperature, ip_rating, application_area),
keywords (array of strings).
Use HYBRID only when the question combines free-text meaning with concrete attribute constraints.
No markdown, no extra keys.`

const answerSystemPrompt = `You answer questions about lighting products using only the provided evidence.
Cite nothing outside the evidence. If the evidence does not contain the answer, say so directly.
Keep numeric values exactly as they appear in the evidence.`

const strictAnswerSystemPrompt = `You answer questions about lighting products using only the provided evidence.
Every sentence must be directly supported by one of the evidence entries.
Copy all numeric values verbatim from the evidence; never estimate, convert or round them.
If the evidence does not contain the answer, reply exactly: the catalog does not contain this information.`

const translateSystemPrompt = `You are a translator for product catalog questions and answers.
Return only the translated text, preserving product names, codes and numeric values unchanged.`

func buildIntentPrompt(query string) string {
	const maxQuery = 2000
	if len(query) > maxQuery {
		query = query[:maxQuery]
	}
	return "Question:\n" + query
}

func buildAnswerPrompt(question string, evidence []domain.RankedCandidate) string {
	var b strings.Builder
	for i, rc := range evidence {
		b.WriteString(fmt.Sprintf("[%d] id=%s name=%s sku=%s", i+1, rc.ID, rc.Name, rc.SKU))
		if rc.Wattage > 0 {
			fmt.Fprintf(&b, " wattage=%dW", rc.Wattage)
		}
		if rc.LifetimeHours > 0 {
			fmt.Fprintf(&b, " lifetime=%dh", rc.LifetimeHours)
		}
		if rc.ColorTemperature != "" {
			fmt.Fprintf(&b, " color_temperature=%s", rc.ColorTemperature)
		}
		if rc.IPRating != "" {
			fmt.Fprintf(&b, " ip_rating=%s", rc.IPRating)
		}
		if rc.ApplicationArea != "" {
			fmt.Fprintf(&b, " application_area=%s", rc.ApplicationArea)
		}
		b.WriteString("\n")
		if rc.Snippet != "" {
			b.WriteString(rc.Snippet)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return fmt.Sprintf("Question:\n%s\n\nEvidence:\n%s", question, b.String())
}

func buildTranslatePrompt(text, sourceLang, targetLang string) string {
	return fmt.Sprintf("Translate from %s to %s:\n%s", languageName(sourceLang), languageName(targetLang), text)
}

func languageName(code string) string {
	switch strings.ToLower(code) {
	case "en":
		return "English"
	case "de":
		return "German"
	default:
		return code
	}
}
