package interfacetext_test

import (
	"testing"

	"github.com/c360studio/toolbridge/interfacetext"
)

func TestSanitizeIdentifier(t *testing.T) {
	cases := map[string]string{
		"1weird-name": "_1weird_name",
		"":            "_",
		"plain":       "plain",
		"a.b.c":       "a_b_c",
		"тест":        "____",
	}
	for in, want := range cases {
		if got := interfacetext.SanitizeIdentifier(in); got != want {
			t.Errorf("SanitizeIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitNameJoinsExtraSegments(t *testing.T) {
	ns, leaf, has := interfacetext.SplitName("a.b.c")
	if !has || ns != "a" || leaf != "b_c" {
		t.Errorf("SplitName(a.b.c) = (%q,%q,%v), want (a,b_c,true)", ns, leaf, has)
	}

	ns, leaf, has = interfacetext.SplitName("leaf")
	if has || ns != "" || leaf != "leaf" {
		t.Errorf("SplitName(leaf) = (%q,%q,%v), want (\"\",leaf,false)", ns, leaf, has)
	}
}

func TestAccessPathSanitisesBothSegments(t *testing.T) {
	ns, leaf, has := interfacetext.AccessPath("1weird-name")
	if has {
		t.Fatalf("expected no namespace for non-dotted name")
	}
	if leaf != "_1weird_name" {
		t.Errorf("AccessPath leaf = %q, want _1weird_name", leaf)
	}

	ns, leaf, has = interfacetext.AccessPath("github.get_pull_request")
	if !has || ns != "github" || leaf != "get_pull_request" {
		t.Errorf("AccessPath(github.get_pull_request) = (%q,%q,%v)", ns, leaf, has)
	}
}
