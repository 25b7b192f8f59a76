package market

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func settle(t *testing.T, label string, h, a int) (Settlement, bool) {
	t.Helper()
	return SettleSelection(label, "Lyon", "Marseille", h, a, SideNone, dec("10"), dec("2"))
}

func TestLinePushSemantics(t *testing.T) {
	tests := []struct {
		name  string
		label string
		h, a  int
		want  Outcome
	}{
		{"half line over loses under total", "Over 2.5", 1, 1, OutcomeLoss},
		{"half line over wins above total", "Over 1.5", 1, 1, OutcomeWin},
		{"integer line over pushes on exact total", "Over 2", 2, 0, OutcomeVoid},
		{"integer line under pushes on exact total", "Under 2", 2, 0, OutcomeVoid},
		{"integer line over wins past line", "Over 2", 2, 1, OutcomeWin},
		{"integer line under wins below line", "Under 2", 1, 0, OutcomeWin},
		{"half line under wins below", "Under 3.5", 2, 1, OutcomeWin},
		{"home scoped over", "Lyon plus de 1.5", 2, 0, OutcomeWin},
		{"home scoped over ignores away goals", "Lyon plus de 1.5", 1, 3, OutcomeLoss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := settle(t, tt.label, tt.h, tt.a)
			if !ok {
				t.Fatalf("settlement not resolvable")
			}
			if got.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v", got.Outcome, tt.want)
			}
		})
	}
}

func TestBTTS(t *testing.T) {
	tests := []struct {
		name  string
		label string
		h, a  int
		want  Outcome
	}{
		{"one side blanked loses despite goals", "BTTS", 3, 0, OutcomeLoss},
		{"both scored wins", "BTTS", 1, 1, OutcomeWin},
		{"negated wins when one side blanked", "BTTS non", 3, 0, OutcomeWin},
		{"negated loses when both score", "BTTS non", 1, 2, OutcomeLoss},
		{"combined needs both legs", "BTTS + Over 2.5", 3, 0, OutcomeLoss},
		{"combined wins", "BTTS + Over 2.5", 2, 1, OutcomeWin},
		{"combined loses on total", "BTTS + Over 2.5", 1, 1, OutcomeLoss},
		{"combined integer line pushes", "BTTS + Over 2", 1, 1, OutcomeVoid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := settle(t, tt.label, tt.h, tt.a)
			if !ok {
				t.Fatalf("settlement not resolvable")
			}
			if got.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v", got.Outcome, tt.want)
			}
		})
	}
}

func TestDoubleChanceAndDrawNoBet(t *testing.T) {
	tests := []struct {
		name  string
		label string
		h, a  int
		want  Outcome
	}{
		{"1x covers draw", "Double Chance 1X", 1, 1, OutcomeWin},
		{"1x loses on away win", "Double Chance 1X", 0, 1, OutcomeLoss},
		{"x2 covers away win", "Double Chance X2", 0, 2, OutcomeWin},
		{"12 loses on draw", "Double Chance 12", 2, 2, OutcomeLoss},
		{"dnb voids on draw", "Draw No Bet Lyon", 1, 1, OutcomeVoid},
		{"dnb wins", "Draw No Bet Lyon", 2, 0, OutcomeWin},
		{"dnb loses", "Draw No Bet Lyon", 0, 1, OutcomeLoss},
		{"draw wins on draw", "Nul", 0, 0, OutcomeWin},
		{"draw loses otherwise", "Nul", 1, 0, OutcomeLoss},
		{"moneyline team", "Victoire Marseille", 0, 1, OutcomeWin},
		{"moneyline draw is a loss", "Victoire Marseille", 1, 1, OutcomeLoss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := settle(t, tt.label, tt.h, tt.a)
			if !ok {
				t.Fatalf("settlement not resolvable")
			}
			if got.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v", got.Outcome, tt.want)
			}
		})
	}
}

func TestMoneylineResultFallback(t *testing.T) {
	m := Classify("Victoire domicile équipe locale", "", "")
	if m.Kind != KindMoneyline {
		t.Fatalf("Kind = %v, want %v", m.Kind, KindMoneyline)
	}

	got, ok := Evaluate(m, 0, 0, SideHome, dec("5"), dec("1.8"))
	if !ok {
		t.Fatal("settlement not resolvable")
	}
	if got.Outcome != OutcomeWin {
		t.Errorf("Outcome = %v, want %v", got.Outcome, OutcomeWin)
	}
}

func TestPayouts(t *testing.T) {
	win, ok := settle(t, "Over 1.5", 2, 1) // stake 10 at 2.0
	if !ok || !win.Payout.Equal(dec("20")) {
		t.Errorf("win payout = %v, want 20", win.Payout)
	}

	void, ok := settle(t, "Over 2", 1, 1)
	if !ok || !void.Payout.Equal(dec("10")) {
		t.Errorf("void payout = %v, want 10", void.Payout)
	}

	loss, ok := settle(t, "Over 3.5", 1, 1)
	if !ok || !loss.Payout.Equal(decimal.Zero) {
		t.Errorf("loss payout = %v, want 0", loss.Payout)
	}

	// Rounding happens at payout computation.
	s, ok := SettleSelection("Over 1.5", "Lyon", "Marseille", 2, 1, SideNone, dec("3.33"), dec("1.85"))
	if !ok || !s.Payout.Equal(dec("6.16")) {
		t.Errorf("rounded payout = %v, want 6.16", s.Payout)
	}

	// Missing odd degrades to even money.
	s, ok = SettleSelection("Over 1.5", "Lyon", "Marseille", 2, 1, SideNone, dec("10"), decimal.Zero)
	if !ok || !s.Payout.Equal(dec("10")) {
		t.Errorf("even-money payout = %v, want 10", s.Payout)
	}
}

func TestEvaluateGuards(t *testing.T) {
	if _, ok := SettleSelection("Over 2.5", "Lyon", "Marseille", 1, 1, SideNone, decimal.Zero, dec("2")); ok {
		t.Error("zero stake must not settle")
	}
	if _, ok := SettleSelection("first goalscorer", "Lyon", "Marseille", 1, 1, SideNone, dec("10"), dec("2")); ok {
		t.Error("unknown market must not settle")
	}
}
