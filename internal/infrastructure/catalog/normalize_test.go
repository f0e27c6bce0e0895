package catalog

import (
	"math"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "  Copper CABLE 1.5  ", want: "copper cable 1 5"},
		{in: `2" PVC pipe`, want: "2 pvc pipe"},
		{in: "widget, blue", want: "widget blue"},
		{in: "---", want: ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokensStemsWordsButNotCodes(t *testing.T) {
	got := Tokens("Blue Widgets")
	want := []string{"blue", "widget"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens() = %v, want %v", got, want)
	}

	// Unit and size codes pass through unstemmed.
	got = Tokens("50m 8p switches")
	if !reflect.DeepEqual(got, []string{"50m", "8p", "switch"}) {
		t.Fatalf("Tokens() = %v", got)
	}
}

func TestKeyIsOrderInsensitive(t *testing.T) {
	if Key("blue widget") != Key("widget, blue") {
		t.Fatalf("expected identical keys for reordered tokens: %q vs %q", Key("blue widget"), Key("widget, blue"))
	}
}

func TestJaccard(t *testing.T) {
	cases := []struct {
		a, b []string
		want float64
	}{
		{a: []string{"blue", "widget"}, b: []string{"blue", "widget"}, want: 1},
		{a: []string{"5", "blue", "widget", "x"}, b: []string{"blue", "widget"}, want: 0.5},
		{a: []string{"a"}, b: []string{"b"}, want: 0},
		{a: nil, b: []string{"a"}, want: 0},
	}
	for _, tc := range cases {
		if got := jaccard(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("jaccard(%v, %v) = %f, want %f", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestLevenshteinSimilarity(t *testing.T) {
	if got := levenshteinSimilarity("cable", "cable"); got != 1 {
		t.Fatalf("identical strings = %f", got)
	}
	// One edit across 11 runes.
	got := levenshteinSimilarity("cabl copper", "cabl coper")
	if math.Abs(got-(1-1.0/11)) > 1e-9 {
		t.Fatalf("similarity = %f", got)
	}
	if got := levenshteinSimilarity("", "cable"); got != 0 {
		t.Fatalf("empty string = %f", got)
	}
}
