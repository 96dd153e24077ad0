package common

import (
	"reflect"
	"testing"
)

func TestFirstStringFallbackOrder(t *testing.T) {
	raw := map[string]any{
		"bookName": "Fated to the Alpha",
		"name":     "ignored",
	}
	if got := FirstString(raw, "title", "bookName", "name"); got != "Fated to the Alpha" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func TestFirstStringCoercesNumbers(t *testing.T) {
	raw := map[string]any{"bookId": float64(41000123)}
	if got := FirstString(raw, "id", "bookId"); got != "41000123" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func TestFirstStringSkipsEmptyAndNil(t *testing.T) {
	raw := map[string]any{"title": "  ", "name": nil, "bookName": "Real"}
	if got := FirstString(raw, "title", "name", "bookName"); got != "Real" {
		t.Fatalf("unexpected value: %q", got)
	}
	if got := FirstString(map[string]any{}, "title"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestFirstInt(t *testing.T) {
	raw := map[string]any{
		"chapterCount": "80",
		"episodeCount": float64(75),
	}
	if got := FirstInt(raw, "episodeCount", "chapterCount"); got != 75 {
		t.Fatalf("unexpected count: %d", got)
	}
	if got := FirstInt(raw, "missing", "chapterCount"); got != 80 {
		t.Fatalf("expected string coercion, got %d", got)
	}
}

func TestFirstBoolVariants(t *testing.T) {
	cases := []struct {
		value any
		want  bool
	}{
		{true, true},
		{float64(1), true},
		{float64(0), false},
		{"true", true},
		{"0", false},
		{"yes", true},
	}
	for _, tc := range cases {
		got := FirstBool(map[string]any{"finished": tc.value}, "finished")
		if got != tc.want {
			t.Errorf("FirstBool(%v) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestStringList(t *testing.T) {
	raw := map[string]any{"tagNames": []any{"Revenge", float64(7), "CEO", ""}}
	got := StringList(raw, "tags", "tagNames")
	want := []string{"Revenge", "7", "CEO"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected list: %#v", got)
	}

	joined := map[string]any{"tags": "Werewolf, Romance ,"}
	got = StringList(joined, "tags")
	want = []string{"Werewolf", "Romance"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected list from joined string: %#v", got)
	}
}

func TestCleanText(t *testing.T) {
	raw := `<p>She married  him &amp; left.</p>`
	if got := CleanText(raw); got != "She married him & left." {
		t.Fatalf("unexpected text: %q", got)
	}
}
