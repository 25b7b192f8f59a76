package market

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/phenomenon0/betledger/pkg/normtext"
)

// classifyInput carries the canonicalized label and team names through the
// matcher chain.
type classifyInput struct {
	label string
	home  string
	away  string
}

type matcher func(in *classifyInput) (Market, bool)

// matchers is the classification order. It is a deliberate tie-break policy:
// labels can contain several market substrings ("draw no bet" contains
// "draw"), and the first matcher that fires wins.
var matchers = []matcher{
	matchDoubleChance,
	matchDrawNoBet,
	matchDraw,
	matchBTTS,
	matchOverUnder,
	matchMoneyline,
	matchBareTeam,
}

// Classify turns a selection label plus the fixture's team names into a
// market decision. Malformed input never fails: anything unmatched comes back
// as KindUnknown.
func Classify(label, homeTeam, awayTeam string) Market {
	in := &classifyInput{
		label: normtext.Canonicalize(label),
		home:  normtext.Normalize(homeTeam),
		away:  normtext.Normalize(awayTeam),
	}

	if in.label == "" {
		return Market{Kind: KindUnknown}
	}

	for _, m := range matchers {
		if mk, ok := m(in); ok {
			mk.Label = in.label
			return mk
		}
	}
	return Market{Kind: KindUnknown, Label: in.label}
}

// lineRe extracts the first numeric goal line, decimal comma or point.
var lineRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

func parseLine(label string) (float64, bool) {
	raw := lineRe.FindString(label)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func hasToken(label, token string) bool {
	for _, f := range strings.Fields(label) {
		if f == token {
			return true
		}
	}
	return false
}

// teamSide reports which side's team name appears in the label. Full
// normalized name containment first, then any distinctive name token, the way
// team questions are matched loosely upstream.
func (in *classifyInput) teamSide() Side {
	if containsTeam(in.label, in.home) {
		return SideHome
	}
	if containsTeam(in.label, in.away) {
		return SideAway
	}
	return SideNone
}

func containsTeam(label, team string) bool {
	if team == "" {
		return false
	}
	if strings.Contains(label, team) {
		return true
	}
	for _, tok := range strings.Fields(team) {
		if len(tok) >= 4 && hasToken(label, tok) {
			return true
		}
	}
	return false
}

func matchDoubleChance(in *classifyInput) (Market, bool) {
	if !strings.Contains(in.label, "double chance") {
		return Market{}, false
	}
	for _, combo := range []string{"1x", "x2", "12"} {
		if hasToken(in.label, combo) {
			return Market{Kind: KindDoubleChance, Combo: combo}, true
		}
	}
	return Market{}, false
}

func matchDrawNoBet(in *classifyInput) (Market, bool) {
	explicit := strings.Contains(in.label, "draw no bet")
	side := in.teamSide()

	if explicit {
		if side == SideNone {
			switch {
			case hasToken(in.label, "home"):
				side = SideHome
			case hasToken(in.label, "away"):
				side = SideAway
			}
		}
		if side != SideNone {
			return Market{Kind: KindDrawNoBet, Side: side}, true
		}
		return Market{}, false
	}

	// Implicit form: a named team together with a draw mention
	// ("Lyon ou nul remboursé").
	if side != SideNone && hasToken(in.label, "draw") {
		return Market{Kind: KindDrawNoBet, Side: side}, true
	}
	return Market{}, false
}

func matchDraw(in *classifyInput) (Market, bool) {
	if in.label == "draw" {
		return Market{Kind: KindDraw}, true
	}
	return Market{}, false
}

func matchBTTS(in *classifyInput) (Market, bool) {
	if !hasToken(in.label, "btts") {
		return Market{}, false
	}

	m := Market{Kind: KindBTTS, Negate: hasToken(in.label, "no")}

	// Combined BTTS + over line ("btts + over 2.5", "btts and over 2.5").
	if !m.Negate && (strings.Contains(in.label, "+") || hasToken(in.label, "and")) {
		if line, ok := parseLine(in.label); ok {
			m.Line = line
			m.HasLine = true
			m.Scope = ScopeTotal
			m.Direction = Over
		}
	}
	return m, true
}

func matchOverUnder(in *classifyInput) (Market, bool) {
	var dir Direction
	switch {
	case hasToken(in.label, "over"):
		dir = Over
	case hasToken(in.label, "under"):
		dir = Under
	default:
		return Market{}, false
	}

	line, ok := parseLine(in.label)
	if !ok {
		return Market{}, false
	}

	scope := ScopeTotal
	switch in.teamSide() {
	case SideHome:
		scope = ScopeHome
	case SideAway:
		scope = ScopeAway
	}

	return Market{Kind: KindOverUnder, Direction: dir, Line: line, HasLine: true, Scope: scope}, true
}

func matchMoneyline(in *classifyInput) (Market, bool) {
	if !hasToken(in.label, "win") {
		return Market{}, false
	}

	side := in.teamSide()
	if side == SideNone {
		switch {
		case hasToken(in.label, "home"):
			side = SideHome
		case hasToken(in.label, "away"):
			side = SideAway
		}
	}
	// SideNone falls back to the result indicator at settlement time.
	return Market{Kind: KindMoneyline, Side: side}, true
}

func matchBareTeam(in *classifyInput) (Market, bool) {
	if side := in.teamSide(); side != SideNone {
		return Market{Kind: KindMoneyline, Side: side}, true
	}
	return Market{}, false
}
