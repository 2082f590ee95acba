package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	sc := mustBlock(t, TypeSingleChoice).(*SingleChoice)
	assert.Equal(t, untitled, Preview(sc))
	sc.Question = "legacy text"
	assert.Equal(t, "legacy text", Preview(sc))
	sc.Stem = "stem"
	assert.Equal(t, "stem", Preview(sc))

	mx := mustBlock(t, TypeMatrixSingleChoice)
	assert.Equal(t, "Matrix (1 rows)", Preview(mx))

	f := mustBlock(t, TypeFillInBlank).(*FillInBlank)
	f.TextWithBlanks = "Me llamo ___"
	assert.Equal(t, "Me llamo ___", Preview(f))
}

func TestSummariesTruncate(t *testing.T) {
	d := NewDocument(1)
	sc := mustBlock(t, TypeSingleChoice).(*SingleChoice)
	sc.Stem = strings.Repeat("ñ", 100)
	d.Questions = append(d.Questions, sc, mustBlock(t, TypeTrueFalse))

	got := Summaries(d)
	assert.Len(t, got, 2)
	assert.Equal(t, strings.Repeat("ñ", 80)+"…", got[0].Preview)
	assert.Equal(t, TypeTrueFalse, got[1].Type)
	assert.Equal(t, 1, got[1].Index)
	assert.Equal(t, "Verdadero/Falso", got[1].Label)
}

func TestWrapExplanation(t *testing.T) {
	out, ok := WrapExplanation("añadir texto", 0, 6, "b")
	assert.True(t, ok)
	assert.Equal(t, "<b>añadir</b> texto", out)

	out, ok = WrapExplanation("abc", 2, 99, "mark")
	assert.True(t, ok)
	assert.Equal(t, "ab<mark>c</mark>", out)

	out, ok = WrapExplanation("abc", 0, 1, "script")
	assert.False(t, ok)
	assert.Equal(t, "abc", out)
}

func TestInsertExplanationList(t *testing.T) {
	out, ok := InsertExplanationList("intro\nuno\n\ndos", 6, 14, "ol")
	assert.True(t, ok)
	assert.Equal(t, "intro\n<ol>\n  <li>uno</li>\n  <li>dos</li>\n</ol>", out)

	out, ok = InsertExplanationList("x", 1, 1, "ul")
	assert.True(t, ok)
	assert.Equal(t, "x<ul>\n  <li></li>\n</ul>", out)

	_, ok = InsertExplanationList("x", 0, 1, "dl")
	assert.False(t, ok)
}
