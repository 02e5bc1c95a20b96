package utils

import "testing"

func TestFuzzyMatch(t *testing.T) {
	cases := []struct {
		source, target string
		want           bool
	}{
		{"mtg", "meeting notes", true},
		{"MTG", "Meeting Notes", true},
		{"notes", "meeting notes", true},
		{"gtm", "meeting notes", false},
		{"", "anything", true},
		{"x", "", false},
	}
	for _, c := range cases {
		if got := FuzzyMatch(c.source, c.target); got != c.want {
			t.Errorf("FuzzyMatch(%q, %q) = %v, want %v", c.source, c.target, got, c.want)
		}
	}
}

func TestComputeDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"Same", "same", 0},
	}
	for _, c := range cases {
		if got := ComputeDistance(c.a, c.b); got != c.want {
			t.Errorf("ComputeDistance(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestMatchEntityTitleSubstring(t *testing.T) {
	matched, score := MatchEntityTitle("meet", "Meeting Notes", false)
	if !matched {
		t.Fatal("substring should match")
	}
	if score != len("Meeting Notes")-len("meet") {
		t.Fatalf("score = %d", score)
	}

	if matched, _ := MatchEntityTitle("absent", "Meeting Notes", false); matched {
		t.Fatal("non-substring must not match without fuzzy")
	}
}

func TestMatchEntityTitleFuzzyRanksByDistance(t *testing.T) {
	matchedClose, scoreClose := MatchEntityTitle("meeting", "meetings", true)
	matchedFar, scoreFar := MatchEntityTitle("mtg", "meeting notes today", true)
	if !matchedClose || !matchedFar {
		t.Fatal("both should fuzzy-match")
	}
	if scoreClose >= scoreFar {
		t.Fatalf("closer title should rank lower: %d vs %d", scoreClose, scoreFar)
	}
}
