package crypto

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"agenttrust/internal/domain"
)

func TestCanonicalize_SortsKeysAtEveryDepth(t *testing.T) {
	doc := map[string]any{
		"b": map[string]any{"z": 1.0, "a": 2.0},
		"a": "x",
	}
	got, err := Canonicalize(doc)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"a":"x","b":{"a":2,"z":1}}`
	if string(got) != want {
		t.Fatalf("canonical bytes = %s, want %s", got, want)
	}
}

func TestCanonicalize_PreservesArrayOrder(t *testing.T) {
	got, err := Canonicalize(map[string]any{"items": []any{"c", "a", "b"}})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"items":["c","a","b"]}`
	if string(got) != want {
		t.Fatalf("canonical bytes = %s, want %s", got, want)
	}
}

func TestCanonicalize_Deterministic(t *testing.T) {
	doc := map[string]any{
		"metadata": map[string]any{"name": "agent", "description": "d", "version": "1.0"},
		"capabilities": []any{
			map[string]any{"name": "search", "params": map[string]any{"q": "string"}},
		},
	}
	first, err := Canonicalize(doc)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Canonicalize(doc)
		if err != nil {
			t.Fatalf("canonicalize: %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("run %d produced %s, want %s", i, again, first)
		}
	}
}

func TestCanonicalize_StringEscapes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"quote", `say "hi"`, `"say \"hi\""`},
		{"backslash", `a\b`, `"a\\b"`},
		{"newline_tab", "a\n\tb", `"a\n\tb"`},
		{"control", "a\x01b", `"a\u0001b"`},
		{"unicode_passthrough", "héllo", `"héllo"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Canonicalize(tc.in)
			if err != nil {
				t.Fatalf("canonicalize: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("canonical bytes = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestCanonicalize_NumberFormatting(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"zero", 0.0, "0"},
		{"integer", 42.0, "42"},
		{"negative", -7.0, "-7"},
		{"integral_float", 10.0, "10"},
		{"fraction", 0.5, "0.5"},
		{"small_positional", 0.000001, "0.000001"},
		{"small_scientific", 0.0000001, "1e-7"},
		{"large_positional", 1e20, "100000000000000000000"},
		{"large_scientific", 1e21, "1e+21"},
		{"precise", 3.141592653589793, "3.141592653589793"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Canonicalize(tc.in)
			if err != nil {
				t.Fatalf("canonicalize: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("canonical bytes = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestCanonicalize_JSONNumberKeepsPrecision(t *testing.T) {
	var doc map[string]any
	dec := json.NewDecoder(strings.NewReader(`{"n":1e21,"m":0.25}`))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := Canonicalize(doc)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"m":0.25,"n":1e+21}`
	if string(got) != want {
		t.Fatalf("canonical bytes = %s, want %s", got, want)
	}
}

func TestCanonicalize_CyclicValue(t *testing.T) {
	inner := map[string]any{}
	outer := map[string]any{"inner": inner}
	inner["outer"] = outer

	_, err := Canonicalize(outer)
	if !errors.Is(err, domain.ErrCyclicValue) {
		t.Fatalf("err = %v, want ErrCyclicValue", err)
	}
}

func TestCanonicalize_SharedSubtreeIsNotACycle(t *testing.T) {
	shared := map[string]any{"k": "v"}
	doc := map[string]any{"a": shared, "b": shared}

	got, err := Canonicalize(doc)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"a":{"k":"v"},"b":{"k":"v"}}`
	if string(got) != want {
		t.Fatalf("canonical bytes = %s, want %s", got, want)
	}
}

func TestCanonicalizePayload_SubsetAndSkip(t *testing.T) {
	doc := domain.Document{
		"metadata":     map[string]any{"name": "a"},
		"capabilities": []any{"x"},
		"extra":        "ignored",
	}
	got, err := CanonicalizePayload(doc, []string{"metadata", "capabilities", "absent"})
	if err != nil {
		t.Fatalf("canonicalize payload: %v", err)
	}
	want := `{"capabilities":["x"],"metadata":{"name":"a"}}`
	if string(got) != want {
		t.Fatalf("payload = %s, want %s", got, want)
	}
}

func TestCanonicalize_Scalars(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"int", 3, "3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Canonicalize(tc.in)
			if err != nil {
				t.Fatalf("canonicalize: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("canonical bytes = %s, want %s", got, tc.want)
			}
		})
	}
}
