// Package render turns resolved dependency trees into text formats.
//
// [ToDOT] writes a Graphviz digraph in which every package appears once,
// however many parents depend on it. Rendering the DOT text to an image is
// left to external tools:
//
//	dot := render.ToDOT(res.Tree, render.Options{Versions: true})
//	os.WriteFile("deps.dot", []byte(dot), 0o644)
//	// dot -Tsvg deps.dot > deps.svg
package render
