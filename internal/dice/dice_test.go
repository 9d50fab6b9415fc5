package dice

import (
	"strings"
	"testing"
)

// scriptedSource replays a fixed list of draws.
type scriptedSource struct {
	draws []int
	next  int
}

func (s *scriptedSource) Roll(sides int) int {
	if s.next >= len(s.draws) {
		return 1
	}
	v := s.draws[s.next]
	s.next++
	return v
}

func TestResolveMultiDieWithModifier(t *testing.T) {
	r := NewRoller(&scriptedSource{draws: []int{4, 5}})

	got := r.Resolve("You attack for {2d6+3} damage.")
	want := "You attack for {2d6+3 → [4, 5] + 3 = 12} damage."
	if got != want {
		t.Fatalf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveSingleDie(t *testing.T) {
	r := NewRoller(&scriptedSource{draws: []int{17}})

	got := r.Resolve("{1d20}")
	if got != "{1d20 → 17}" {
		t.Fatalf("Resolve = %q", got)
	}
}

func TestResolveSingleDieWithModifier(t *testing.T) {
	r := NewRoller(&scriptedSource{draws: []int{13}})

	if got := r.Resolve("{1d20+5}"); got != "{1d20+5 → 13 + 5 = 18}" {
		t.Fatalf("Resolve = %q", got)
	}
}

func TestResolveNegativeModifier(t *testing.T) {
	r := NewRoller(&scriptedSource{draws: []int{3, 6}})

	if got := r.Resolve("{2d8-2}"); got != "{2d8-2 → [3, 6] - 2 = 7}" {
		t.Fatalf("Resolve = %q", got)
	}
}

func TestResolveMultiDieNoModifier(t *testing.T) {
	r := NewRoller(&scriptedSource{draws: []int{4, 5}})

	if got := r.Resolve("{2d6}"); got != "{2d6 → [4, 5] = 9}" {
		t.Fatalf("Resolve = %q", got)
	}
}

func TestResolveLeavesMalformedTokens(t *testing.T) {
	cases := []string{
		"{notdice}",
		"{1d20++5}",
		"{0d6}",
		"{2d0}",
		"{d20}",
		"{1d20+05}",
		"{1d20+}",
		"plain text without braces",
	}
	r := NewRoller(&scriptedSource{draws: []int{1, 1, 1}})
	for _, in := range cases {
		if got := r.Resolve(in); got != in {
			t.Errorf("Resolve(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestResolveMultipleTokensLeftToRight(t *testing.T) {
	r := NewRoller(&scriptedSource{draws: []int{2, 19}})

	got := r.Resolve("Roll {1d4} then {1d20}.")
	want := "Roll {1d4 → 2} then {1d20 → 19}."
	if got != want {
		t.Fatalf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveIdempotentOnOwnOutput(t *testing.T) {
	r := NewRoller(&scriptedSource{draws: []int{4, 5}})
	first := r.Resolve("Take {2d6+3} damage.")

	again := NewRoller(&scriptedSource{draws: []int{1, 1}}).Resolve(first)
	if again != first {
		t.Fatalf("second Resolve changed output: %q -> %q", first, again)
	}
}

func TestResolveRangeWithRandomSource(t *testing.T) {
	r := NewRoller(nil)
	for i := 0; i < 50; i++ {
		got := r.Resolve("{3d6}")
		if !strings.HasPrefix(got, "{3d6 → [") {
			t.Fatalf("unexpected form: %q", got)
		}
	}
}

func TestStripRemovesAllBraceSpans(t *testing.T) {
	r := NewRoller(&scriptedSource{draws: []int{4, 5}})
	resolved := r.Resolve("The blade bites for {2d6+3} points. {garbage} remains.")

	clean := Strip(resolved)
	if strings.ContainsAny(clean, "{}") {
		t.Fatalf("Strip left brace characters: %q", clean)
	}
	if clean != "The blade bites for  points.  remains." {
		t.Fatalf("Strip = %q", clean)
	}
}

func TestStripSpansLineBreaks(t *testing.T) {
	clean := Strip("A roar echoes {malformed\nacross lines} through the hall.")
	if strings.ContainsAny(clean, "{}") {
		t.Fatalf("Strip left brace characters: %q", clean)
	}
	if clean != "A roar echoes  through the hall." {
		t.Fatalf("Strip = %q", clean)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Expr
		wantErr bool
	}{
		{in: "2d6+3", want: Expr{Count: 2, Sides: 6, Modifier: 3}},
		{in: "1d20", want: Expr{Count: 1, Sides: 20}},
		{in: "4d8-2", want: Expr{Count: 4, Sides: 8, Modifier: -2}},
		{in: " 1d12 ", want: Expr{Count: 1, Sides: 12}},
		{in: "d20", wantErr: true},
		{in: "0d6", wantErr: true},
		{in: "2d6++3", wantErr: true},
		{in: "2d6+0", wantErr: true},
		{in: "roll me", wantErr: true},
	}
	for _, tc := range tests {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Parse(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) err: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestRollTotals(t *testing.T) {
	r := NewRoller(&scriptedSource{draws: []int{6, 1, 4}})

	res := r.Roll(Expr{Count: 3, Sides: 6, Modifier: -2})
	if res.Total != 9 {
		t.Fatalf("Total = %d, want 9", res.Total)
	}
	if len(res.Draws) != 3 {
		t.Fatalf("Draws = %v", res.Draws)
	}
}
