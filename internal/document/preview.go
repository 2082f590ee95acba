package document

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const untitled = "(untitled question)"

// Label is the human readable name of a block type, as shown in the type picker.
func Label(t BlockType) string {
	switch t {
	case TypeSingleChoice:
		return "Selección única"
	case TypeMatrixSingleChoice:
		return "Matriz de selección"
	case TypePersonStatementMatching:
		return "Emparejamiento persona-enunciado"
	case TypeMatching:
		return "Emparejamiento"
	case TypeOrdering:
		return "Ordenar"
	case TypeFillInBlank:
		return "Completar espacios"
	case TypeTrueFalse:
		return "Verdadero/Falso"
	default:
		return "Desconocido"
	}
}

// Preview returns the one-line summary shown in the block list.
func Preview(b Block) string {
	switch v := b.(type) {
	case *SingleChoice:
		return firstNonEmpty(v.Stem, v.Question, untitled)
	case *MatrixSingleChoice:
		return firstNonEmpty(v.Prompt, fmt.Sprintf("Matrix (%d rows)", len(v.Rows)))
	case *PersonStatementMatching:
		return firstNonEmpty(v.Prompt, fmt.Sprintf("Person matching (%d persons)", len(v.Persons)))
	case *Matching:
		return firstNonEmpty(v.Question, untitled)
	case *Ordering:
		return firstNonEmpty(v.Question, untitled)
	case *FillInBlank:
		return firstNonEmpty(v.TextWithBlanks, v.Question, untitled)
	case *TrueFalse:
		return firstNonEmpty(v.Question, untitled)
	default:
		return "unknown block type"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Explanation formatting tags offered by the editor toolbar.
var explanationTags = map[string]bool{"b": true, "i": true, "u": true, "mark": true}

// WrapExplanation wraps the rune range [start, end) of text in <tag>...</tag>.
// Out-of-range bounds are clamped. Unknown tags leave the text unchanged.
func WrapExplanation(text string, start, end int, tag string) (string, bool) {
	if !explanationTags[tag] {
		return text, false
	}
	runes := []rune(text)
	start, end = clampRange(start, end, len(runes))
	var sb strings.Builder
	sb.WriteString(string(runes[:start]))
	sb.WriteString("<" + tag + ">")
	sb.WriteString(string(runes[start:end]))
	sb.WriteString("</" + tag + ">")
	sb.WriteString(string(runes[end:]))
	return sb.String(), true
}

// InsertExplanationList replaces the rune range [start, end) with an HTML list.
// Each non-blank selected line becomes one item; an empty selection yields one empty item.
func InsertExplanationList(text string, start, end int, listType string) (string, bool) {
	if listType != "ul" && listType != "ol" {
		return text, false
	}
	runes := []rune(text)
	start, end = clampRange(start, end, len(runes))

	var items []string
	for _, line := range strings.Split(string(runes[start:end]), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, "  <li>"+line+"</li>")
		}
	}
	if len(items) == 0 {
		items = []string{"  <li></li>"}
	}
	list := "<" + listType + ">\n" + strings.Join(items, "\n") + "\n</" + listType + ">"
	return string(runes[:start]) + list + string(runes[end:]), true
}

func clampRange(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if end < start {
		end = start
	}
	if end > n {
		end = n
	}
	return start, end
}

// truncate shortens s to at most n runes, appending an ellipsis when cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

// Summary is the block list entry for one question.
type Summary struct {
	Index   int       `json:"index"`
	Type    BlockType `json:"type"`
	Label   string    `json:"label"`
	Preview string    `json:"preview"`
}

// Summaries lists every block of the document in order.
func Summaries(d Document) []Summary {
	out := make([]Summary, 0, len(d.Questions))
	for i, q := range d.Questions {
		out = append(out, Summary{
			Index:   i,
			Type:    q.Type(),
			Label:   Label(q.Type()),
			Preview: truncate(Preview(q), 80),
		})
	}
	return out
}
