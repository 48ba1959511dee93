package render

import (
	"strings"
	"testing"

	"github.com/matzehuels/depgraph/pkg/deps"
)

func sampleTree() *deps.Tree {
	return &deps.Tree{Name: "app", Version: "1.0.0", Children: []*deps.Tree{
		{Name: "a", Version: "1.1.0", Children: []*deps.Tree{
			{Name: "shared", Version: "2.0.0", Children: []*deps.Tree{
				{Name: "app", Version: "1.0.0", Ref: true},
			}},
		}},
		{Name: "shared", Version: "2.0.0", Children: []*deps.Tree{
			{Name: "app", Version: "1.0.0", Ref: true},
		}},
		{Name: "Error: gone", Error: "not found"},
		{Name: "deep", Version: "3.0.0", Truncated: true},
	}}
}

func TestToDOTDeduplicates(t *testing.T) {
	dot := ToDOT(sampleTree(), Options{})

	if !strings.HasPrefix(dot, "digraph \"deps\" {\n") {
		t.Errorf("unexpected header: %q", strings.SplitN(dot, "\n", 2)[0])
	}
	if n := strings.Count(dot, "\"shared\" [label="); n != 1 {
		t.Errorf("shared declared %d times, want 1", n)
	}
	if n := strings.Count(dot, "\"app\" -> \"shared\";"); n != 1 {
		t.Errorf("app -> shared emitted %d times, want 1", n)
	}
	if !strings.Contains(dot, "\"a\" -> \"shared\";") {
		t.Error("missing a -> shared edge")
	}
}

func TestToDOTStyles(t *testing.T) {
	dot := ToDOT(sampleTree(), Options{})

	for _, want := range []string{
		`"shared" -> "app" [style=dashed, constraint=false];`,
		`"Error: gone" [label="Error: gone", color="#c0392b"`,
		`"deep" [label="deep", style="rounded,dashed"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s\n%s", want, dot)
		}
	}
}

func TestToDOTVersions(t *testing.T) {
	dot := ToDOT(sampleTree(), Options{Versions: true, Name: "g"})

	if !strings.HasPrefix(dot, "digraph \"g\" {") {
		t.Error("graph name not applied")
	}
	if !strings.Contains(dot, `label="a\n1.1.0"`) {
		t.Errorf("version missing from label:\n%s", dot)
	}
	if strings.Contains(dot, `label="Error: gone\n`) {
		t.Error("error leaves carry no version")
	}
}

func TestToDOTNil(t *testing.T) {
	dot := ToDOT(nil, Options{})
	if !strings.HasSuffix(dot, "}\n") || strings.Contains(dot, "->") {
		t.Errorf("nil tree should give an empty graph, got %q", dot)
	}
}
