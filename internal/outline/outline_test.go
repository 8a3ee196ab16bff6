package outline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fourLevel(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor([]string{"chapter", "section", "subsection", "subsubsection"})
	require.NoError(t, err)
	return e
}

func TestExtractNestedHierarchy(t *testing.T) {
	e := fourLevel(t)

	text := "\\chapter{A}\nsome prose\n\\section{B}\n\\subsection{C}\n"
	root := e.Extract(text)

	require.Len(t, root.Children, 1)
	chA := root.Children[0]
	require.Equal(t, "A", chA.Title)
	require.Equal(t, 1, chA.Line)
	require.Equal(t, 1, chA.Depth)

	require.Len(t, chA.Children, 1)
	secB := chA.Children[0]
	require.Equal(t, "B", secB.Title)
	require.Equal(t, 3, secB.Line)
	require.Equal(t, 2, secB.Depth)

	require.Len(t, secB.Children, 1)
	subC := secB.Children[0]
	require.Equal(t, "C", subC.Title)
	require.Equal(t, 4, subC.Line)
	require.Equal(t, 3, subC.Depth)
	require.Empty(t, subC.Children)
}

func TestExtractIgnoresNonMatchingLines(t *testing.T) {
	e := fourLevel(t)

	text := "% a comment line\n" +
		"plain text\n" +
		"\\emph{not a heading}\n" +
		"\\section{Real}\n"
	root := e.Extract(text)

	require.Equal(t, 1, root.Count())
	require.Equal(t, "Real", root.Children[0].Title)
	require.Equal(t, 4, root.Children[0].Line)
}

func TestExtractIdempotent(t *testing.T) {
	e := fourLevel(t)

	text := "\\chapter{One}\n\\section{Two}\n\\section{Three}\n\\subsection{Four}\n"
	first := e.Extract(text)
	second := e.Extract(text)

	require.Equal(t, first, second)
}

func TestOrphanSubsectionAttachesToRoot(t *testing.T) {
	e := fourLevel(t)

	root := e.Extract("\\subsection{X}\n")

	require.Len(t, root.Children, 1)
	require.Equal(t, "X", root.Children[0].Title)
	require.Equal(t, 3, root.Children[0].Depth)
}

func TestStaleDeeperEntrySuperseded(t *testing.T) {
	e := fourLevel(t)

	// The subsection under chapter Two must attach to section B of chapter
	// Two's lineage, not to the stale section A from chapter One.
	text := "\\chapter{One}\n\\section{A}\n\\chapter{Two}\n\\section{B}\n\\subsection{S}\n"
	root := e.Extract(text)

	require.Len(t, root.Children, 2)
	two := root.Children[1]
	require.Equal(t, "Two", two.Title)
	require.Len(t, two.Children, 1)
	require.Equal(t, "B", two.Children[0].Title)
	require.Len(t, two.Children[0].Children, 1)
	require.Equal(t, "S", two.Children[0].Children[0].Title)
}

func TestStaleEntryNotClearedAcrossLevels(t *testing.T) {
	e := fourLevel(t)

	// No validation of canonical nesting: after a new chapter, a bare
	// subsection still attaches to the stale section from the previous
	// chapter.
	text := "\\chapter{One}\n\\section{A}\n\\chapter{Two}\n\\subsection{S}\n"
	root := e.Extract(text)

	one := root.Children[0]
	require.Equal(t, "One", one.Title)
	require.Len(t, one.Children, 1)
	secA := one.Children[0]
	require.Len(t, secA.Children, 1)
	require.Equal(t, "S", secA.Children[0].Title)
	require.Empty(t, root.Children[1].Children)
}

func TestStarredAndIndentedHeadings(t *testing.T) {
	e := fourLevel(t)

	text := "  \\section*{Unnumbered}\n\t\\subsection{Indented}\n"
	root := e.Extract(text)

	require.Len(t, root.Children, 1)
	require.Equal(t, "Unnumbered", root.Children[0].Title)
	require.Equal(t, "Indented", root.Children[0].Children[0].Title)
}

func TestEmptyTitleAndDuplicates(t *testing.T) {
	e := fourLevel(t)

	text := "\\section{}\n\\section{Same}\n\\section{Same}\n"
	root := e.Extract(text)

	require.Len(t, root.Children, 3)
	require.Equal(t, "", root.Children[0].Title)
	require.Equal(t, 2, root.Children[1].Line)
	require.Equal(t, 3, root.Children[2].Line)
}

func TestTitleStopsAtFirstClosingBrace(t *testing.T) {
	e := fourLevel(t)

	root := e.Extract("\\section{Intro} % trailing {junk}\n")

	require.Equal(t, "Intro", root.Children[0].Title)
}

func TestThreeLevelVariant(t *testing.T) {
	e, err := NewExtractor([]string{"section", "subsection", "subsubsection"})
	require.NoError(t, err)

	text := "\\chapter{Ignored}\n\\section{Top}\n\\subsection{Mid}\n"
	root := e.Extract(text)

	require.Len(t, root.Children, 1)
	top := root.Children[0]
	require.Equal(t, "Top", top.Title)
	require.Equal(t, 1, top.Depth)
	require.Len(t, top.Children, 1)
	require.Equal(t, 2, top.Children[0].Depth)
}

func TestNewExtractorRejectsBadKinds(t *testing.T) {
	_, err := NewExtractor(nil)
	require.Error(t, err)

	_, err = NewExtractor([]string{"sec tion"})
	require.Error(t, err)
}

func TestWalkVisitsDocumentOrder(t *testing.T) {
	e := fourLevel(t)
	root := e.Extract("\\chapter{A}\n\\section{B}\n\\chapter{C}\n")

	var titles []string
	root.Walk(func(n *Node) { titles = append(titles, n.Title) })
	require.Equal(t, []string{"A", "B", "C"}, titles)
}
