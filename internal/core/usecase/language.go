package usecase

import "strings"

var germanMarkers = map[string]struct{}{
	"der": {}, "die": {}, "das": {}, "und": {}, "mit": {}, "für": {},
	"fuer": {}, "welche": {}, "welcher": {}, "haben": {}, "gibt": {},
	"mindestens": {}, "höchstens": {}, "über": {}, "unter": {},
	"leuchte": {}, "leuchten": {}, "lampe": {}, "lampen": {},
	"lebensdauer": {}, "leistung": {}, "stunden": {}, "nicht": {},
}

// detectLanguage is a cheap heuristic used only when the caller did not
// declare a language. It distinguishes the two catalog languages; anything
// inconclusive is treated as the working language.
func detectLanguage(text, workingLanguage string) string {
	for _, r := range text {
		switch r {
		case 'ä', 'ö', 'ü', 'ß', 'Ä', 'Ö', 'Ü':
			return "de"
		}
	}

	hits := 0
	for _, token := range splitAlphaNumLower(text) {
		if _, ok := germanMarkers[token]; ok {
			hits++
		}
		if hits >= 2 {
			return "de"
		}
	}
	return workingLanguage
}

func normalizeLanguage(declared, text, workingLanguage string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" {
		if i := strings.IndexAny(declared, "-_"); i > 0 {
			declared = declared[:i]
		}
		return declared
	}
	return detectLanguage(text, workingLanguage)
}
