package ordered_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/clusterforge/catconf/internal/ordered"
)

func TestUnmarshalPreservesKeyOrder(t *testing.T) {
	cases := []struct {
		note  string
		input string
		exp   []string
	}{
		{
			note:  "reverse alphabetical stays put",
			input: `{"zeta": 1, "alpha": 2, "mid": 3}`,
			exp:   []string{"zeta", "alpha", "mid"},
		},
		{
			note:  "nested objects do not disturb outer order",
			input: `{"b": {"y": 1, "x": 2}, "a": [1, 2]}`,
			exp:   []string{"b", "a"},
		},
		{
			note:  "empty object",
			input: `{}`,
			exp:   nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			obj := ordered.NewObject()
			if err := obj.UnmarshalJSON([]byte(tc.input)); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, obj.Keys()); diff != "" {
				t.Fatalf("unexpected key order (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMarshalSingleLine(t *testing.T) {
	obj := ordered.NewObject()
	obj.Set("package", "kubectl")
	obj.Set("type", "tarball")
	obj.Set("uri", "https://example.com/kubectl.tar.gz")
	obj.Set("count", json.Number("3"))
	obj.Set("tags", []any{"a", "b"})

	bs, err := obj.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}

	exp := `{"package": "kubectl", "type": "tarball", "uri": "https://example.com/kubectl.tar.gz", "count": 3, "tags": ["a", "b"]}`
	if string(bs) != exp {
		t.Fatalf("unexpected output:\ngot:  %s\nwant: %s", bs, exp)
	}
}

func TestRoundTrip(t *testing.T) {
	input := `{"b": {"y": 1.5, "x": "s"}, "a": [{"k": true}, null], "c": 9007199254740993}`

	obj := ordered.NewObject()
	if err := obj.UnmarshalJSON([]byte(input)); err != nil {
		t.Fatal(err)
	}
	bs, err := obj.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}

	// Large integers survive because numbers stay json.Number.
	exp := `{"b": {"y": 1.5, "x": "s"}, "a": [{"k": true}, null], "c": 9007199254740993}`
	if string(bs) != exp {
		t.Fatalf("unexpected output:\ngot:  %s\nwant: %s", bs, exp)
	}
}

func TestSetReplaceKeepsPosition(t *testing.T) {
	obj := ordered.NewObject()
	obj.Set("a", 1)
	obj.Set("b", 2)
	obj.Set("a", 3)

	if diff := cmp.Diff([]string{"a", "b"}, obj.Keys()); diff != "" {
		t.Fatalf("unexpected key order (-want +got):\n%s", diff)
	}
	v, _ := obj.Get("a")
	if v != 3 {
		t.Fatalf("expected replaced value 3, got %v", v)
	}
}

func TestDelete(t *testing.T) {
	obj := ordered.NewObject()
	obj.Set("a", 1)
	obj.Set("b", 2)
	obj.Set("c", 3)
	obj.Delete("b")
	obj.Delete("missing")

	if diff := cmp.Diff([]string{"a", "c"}, obj.Keys()); diff != "" {
		t.Fatalf("unexpected key order (-want +got):\n%s", diff)
	}
}

func TestObjectKeys(t *testing.T) {
	cases := []struct {
		note  string
		input string
		exp   []string
	}{
		{
			note:  "skips nested values",
			input: `{"out.json": {"sources": [{"pulls": [1]}]}, "other.json": {}}`,
			exp:   []string{"out.json", "other.json"},
		},
		{
			note:  "empty",
			input: `{}`,
			exp:   nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			keys, err := ordered.ObjectKeys([]byte(tc.input))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, keys); diff != "" {
				t.Fatalf("unexpected keys (-want +got):\n%s", diff)
			}
		})
	}
}
