package frontmatter

import (
	"reflect"
	"strings"
	"testing"
)

func TestParse_typedValues(t *testing.T) {
	text := "---\n" +
		"from: king\n" +
		"seq: 12\n" +
		"neg: -3\n" +
		"empty:\n" +
		"nothing: null\n" +
		"tilde: ~\n" +
		"refs: [a.go, b.go]\n" +
		"quoted: \"  spaced  \"\n" +
		"---\n" +
		"\n" +
		"hello body\n"
	doc, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.String("from") != "king" {
		t.Errorf("from: %v", doc.Fields["from"])
	}
	if doc.Int("seq") != 12 {
		t.Errorf("seq: %v", doc.Fields["seq"])
	}
	if doc.Int("neg") != -3 {
		t.Errorf("neg: %v", doc.Fields["neg"])
	}
	for _, key := range []string{"empty", "nothing", "tilde"} {
		if v, ok := doc.Fields[key]; !ok || v != nil {
			t.Errorf("%s: expected nil, got %v (present=%v)", key, v, ok)
		}
	}
	if got := doc.List("refs"); !reflect.DeepEqual(got, []string{"a.go", "b.go"}) {
		t.Errorf("refs: %v", got)
	}
	if doc.String("quoted") != "  spaced  " {
		t.Errorf("quoted: %q", doc.String("quoted"))
	}
	if doc.Body != "hello body\n" {
		t.Errorf("body: %q", doc.Body)
	}
}

func TestParse_missingOpeningDelimiter(t *testing.T) {
	if _, err := Parse("from: king\n---\n"); err == nil {
		t.Fatal("expected error for text not beginning with delimiter")
	}
}

func TestParse_missingClosingDelimiter(t *testing.T) {
	if _, err := Parse("---\nfrom: king\nbody without end"); err == nil {
		t.Fatal("expected error for absent closing delimiter")
	}
}

func TestSerialize_omitsNullAndEmpty(t *testing.T) {
	doc := &Doc{
		Fields: map[string]any{
			"from":  "claude",
			"blank": nil,
			"none":  "",
			"refs":  []string{},
		},
		Body: "text",
	}
	out := Serialize(doc, "from")
	if strings.Contains(out, "blank") || strings.Contains(out, "none") || strings.Contains(out, "refs") {
		t.Errorf("null/empty fields not omitted:\n%s", out)
	}
	if !strings.Contains(out, "from: claude") {
		t.Errorf("missing field:\n%s", out)
	}
}

func TestRoundTrip(t *testing.T) {
	docs := []*Doc{
		{Fields: map[string]any{"from": "king", "to": "all", "seq": 1}, Body: "line one\nline two"},
		{Fields: map[string]any{"from": "codex", "refs": []string{"x/y.go", "z.md"}}, Body: ""},
		{Fields: map[string]any{"name": "claude", "count": -7}, Body: "b"},
	}
	for _, in := range docs {
		out, err := Parse(Serialize(in, "from", "to"))
		if err != nil {
			t.Fatalf("Parse(Serialize): %v", err)
		}
		for key, want := range in.Fields {
			got, ok := out.Fields[key]
			switch w := want.(type) {
			case []string:
				if !reflect.DeepEqual(got, w) {
					t.Errorf("%s: got %v want %v", key, got, w)
				}
			case nil:
				if ok {
					t.Errorf("%s: nil field should not survive serialization", key)
				}
			default:
				if got != want {
					t.Errorf("%s: got %v want %v", key, got, want)
				}
			}
		}
		if in.Body != "" && strings.TrimSuffix(out.Body, "\n") != strings.TrimSuffix(in.Body, "\n") {
			t.Errorf("body: got %q want %q", out.Body, in.Body)
		}
	}
}
