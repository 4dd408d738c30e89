package types

import "testing"

func TestParseItemRef(t *testing.T) {
	cases := []struct {
		raw  string
		want ItemRef
	}{
		{raw: "b", want: LeafRef("b")},
		{raw: " g/a1 ", want: MemberRef("g", "a1")},
		{raw: "g/*", want: GroupRef("g")},
		{raw: "g/", want: GroupRef("g")},
	}
	for _, tc := range cases {
		got, err := ParseItemRef(tc.raw)
		if err != nil {
			t.Fatalf("ParseItemRef(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseItemRef(%q) = %#v, want %#v", tc.raw, got, tc.want)
		}
		if again, err := ParseItemRef(got.String()); err != nil || again != got {
			t.Fatalf("round trip of %q failed: %#v %v", got.String(), again, err)
		}
	}
	for _, raw := range []string{"", "/a", "g/a/b"} {
		if _, err := ParseItemRef(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestNormalizeItemRefsDedupesAndSorts(t *testing.T) {
	got := NormalizeItemRefs([]ItemRef{LeafRef("b"), {}, MemberRef("g", "a2"), LeafRef("b"), MemberRef("g", "a1")})
	want := []ItemRef{LeafRef("b"), MemberRef("g", "a1"), MemberRef("g", "a2")}
	if len(got) != len(want) {
		t.Fatalf("unexpected refs: %#v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ref %d: got %#v want %#v", i, got[i], want[i])
		}
	}
	if ItemRefs(got).String() != "b,g/a1,g/a2" {
		t.Fatalf("unexpected string: %q", ItemRefs(got).String())
	}
}
