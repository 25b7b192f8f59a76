// Package normtext normalizes free-text betting labels and team names so that
// downstream market matching is locale-agnostic. Labels arrive in a mix of
// French and English ("Victoire Lyon", "Plus de 2,5 buts", "Draw No Bet") and
// with arbitrary casing, accents and whitespace.
package normtext

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases the input, strips diacritics and collapses internal
// whitespace to single spaces. It always returns a string; empty input yields
// the empty string.
func Normalize(s string) string {
	s = strings.ToLower(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, _ = transform.String(t, s)

	return strings.Join(strings.Fields(s), " ")
}

// phraseSynonyms rewrites multi-word locale phrases into canonical tokens.
// Applied on the normalized string, before token mapping, longest phrases
// first. This is versioned data: new locales are added here, not in code.
var phraseSynonyms = []struct{ from, to string }{
	{"les deux equipes marquent", "btts"},
	{"deux equipes marquent", "btts"},
	{"both teams to score", "btts"},
	{"both teams score", "btts"},
	{"remboursee si nul", "draw no bet"},
	{"rembourse si nul", "draw no bet"},
	{"match nul", "draw"},
	{"mi-temps", "half time"},
	{"plus de", "over"},
	{"moins de", "under"},
}

// tokenSynonyms maps single locale tokens to canonical tokens.
var tokenSynonyms = map[string]string{
	"nul":       "draw",
	"egalite":   "draw",
	"exterieur": "away",
	"visiteur":  "away",
	"visiteurs": "away",
	"domicile":  "home",
	"victoire":  "win",
	"gagne":     "win",
	"gagnant":   "win",
	"vainqueur": "win",
	"plus":      "over",
	"moins":     "under",
	"but":       "goal",
	"buts":      "goals",
	"et":        "and",
	"ou":        "or",
	"non":       "no",
	"oui":       "yes",
	"equipe":    "team",
	"marquent":  "score",
}

// Canonicalize normalizes the input and rewrites locale synonyms, phrase
// level first then token level, into a canonical English token stream.
func Canonicalize(s string) string {
	s = Normalize(s)
	if s == "" {
		return ""
	}

	for _, p := range phraseSynonyms {
		s = strings.ReplaceAll(s, p.from, p.to)
	}

	fields := strings.Fields(s)
	for i, f := range fields {
		if canon, ok := tokenSynonyms[f]; ok {
			fields[i] = canon
		}
	}
	return strings.Join(fields, " ")
}
