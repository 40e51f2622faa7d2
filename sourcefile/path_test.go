package sourcefile

import "testing"

func TestParsePathRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"plain", "src/index.ts"},
		{"query", "src/index.ts?modules"},
		{"query-kv", "src/index.ts?watch=parent"},
		{"fragment", "foo.ts#bar"},
		{"hash-in-filename", "foo#bar.ts"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := ParsePath(c.raw)
			if got := p.String(); got != c.raw {
				t.Fatalf("round-trip mismatch: ParsePath(%q).String() = %q", c.raw, got)
			}
		})
	}
}

func TestParsePathFragmentVsFilename(t *testing.T) {
	p := ParsePath("foo.ts#bar")
	if p.Pathname != "foo.ts" || p.Fragment != "bar" {
		t.Fatalf("expected pathname=foo.ts fragment=bar, got pathname=%q fragment=%q", p.Pathname, p.Fragment)
	}

	p2 := ParsePath("foo#bar.ts")
	if p2.Pathname != "foo#bar.ts" || p2.Fragment != "" {
		t.Fatalf("expected pathname=foo#bar.ts fragment=\"\", got pathname=%q fragment=%q", p2.Pathname, p2.Fragment)
	}
}

func TestParsePathParams(t *testing.T) {
	p := ParsePath("a.css?modules&watch=parent")
	if _, ok := p.Params["modules"]; !ok {
		t.Fatal("expected modules param")
	}
	if p.Params["watch"] != "parent" {
		t.Fatalf("expected watch=parent, got %q", p.Params["watch"])
	}
}

func TestNormalizeWindowsPath(t *testing.T) {
	got := NormalizeWindowsPath(`\\?\C:\project\src\index.ts`)
	want := "C:/project/src/index.ts"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestIsVirtual(t *testing.T) {
	if !IsVirtual("virtual:inline_css:runtime") {
		t.Fatal("expected virtual scheme to be detected")
	}
	if IsVirtual("src/index.ts") {
		t.Fatal("did not expect a real path to be virtual")
	}
}
