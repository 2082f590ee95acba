package document

import "fmt"

// NewBlock returns a fresh block built from the variant's empty template.
// The result never shares memory with any other block.
func NewBlock(t BlockType) (Block, error) {
	switch t {
	case TypeSingleChoice:
		return &SingleChoice{
			Options: []Option{
				{Label: "A"},
				{Label: "B"},
				{Label: "C"},
			},
		}, nil
	case TypeMatrixSingleChoice:
		return &MatrixSingleChoice{
			Columns: []MatrixColumn{
				{Key: "a"},
				{Key: "b"},
				{Key: "c"},
			},
			Rows:        []MatrixRow{{}},
			StartNumber: 1,
		}, nil
	case TypePersonStatementMatching:
		return &PersonStatementMatching{
			Statements: []Statement{
				{Key: "a"},
				{Key: "b"},
				{Key: "c"},
			},
			Persons:     []Person{{}},
			StartNumber: 1,
		}, nil
	case TypeMatching:
		return &Matching{
			LeftItems:      []string{"", "", ""},
			RightItems:     []string{"", "", ""},
			CorrectMatches: map[int]int{},
		}, nil
	case TypeOrdering:
		return &Ordering{
			Items:        []string{"", "", "", ""},
			CorrectOrder: []int{0, 1, 2, 3},
		}, nil
	case TypeFillInBlank:
		return &FillInBlank{
			Answers: []string{""},
		}, nil
	case TypeTrueFalse:
		return &TrueFalse{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, t)
	}
}

// Clone deep-copies a block so that no slice, map or pointer is shared with the original.
func Clone(b Block) Block {
	switch v := b.(type) {
	case *SingleChoice:
		out := *v
		out.QuestionID = cloneInt(v.QuestionID)
		out.Pista = cloneInt(v.Pista)
		out.AudioTimestamp = cloneFloat(v.AudioTimestamp)
		out.Options = cloneSlice(v.Options)
		return &out
	case *MatrixSingleChoice:
		out := *v
		out.Pista = cloneInt(v.Pista)
		out.Columns = cloneSlice(v.Columns)
		if v.Rows != nil {
			out.Rows = make([]MatrixRow, len(v.Rows))
			for i, r := range v.Rows {
				out.Rows[i] = MatrixRow{
					Text:           r.Text,
					Correct:        cloneString(r.Correct),
					AudioTimestamp: cloneFloat(r.AudioTimestamp),
				}
			}
		}
		return &out
	case *PersonStatementMatching:
		out := *v
		out.Statements = cloneSlice(v.Statements)
		if v.Persons != nil {
			out.Persons = make([]Person, len(v.Persons))
			for i, p := range v.Persons {
				out.Persons[i] = Person{
					Name:             p.Name,
					Pista:            cloneInt(p.Pista),
					CorrectStatement: cloneString(p.CorrectStatement),
				}
			}
		}
		return &out
	case *Matching:
		out := *v
		out.Pista = cloneInt(v.Pista)
		out.AudioTimestamp = cloneFloat(v.AudioTimestamp)
		out.LeftItems = cloneSlice(v.LeftItems)
		out.RightItems = cloneSlice(v.RightItems)
		if v.CorrectMatches != nil {
			out.CorrectMatches = make(map[int]int, len(v.CorrectMatches))
			for k, val := range v.CorrectMatches {
				out.CorrectMatches[k] = val
			}
		}
		return &out
	case *Ordering:
		out := *v
		out.Pista = cloneInt(v.Pista)
		out.AudioTimestamp = cloneFloat(v.AudioTimestamp)
		out.Items = cloneSlice(v.Items)
		out.CorrectOrder = cloneSlice(v.CorrectOrder)
		return &out
	case *FillInBlank:
		out := *v
		out.Pista = cloneInt(v.Pista)
		out.AudioTimestamp = cloneFloat(v.AudioTimestamp)
		out.Answers = cloneSlice(v.Answers)
		return &out
	case *TrueFalse:
		out := *v
		out.Pista = cloneInt(v.Pista)
		out.AudioTimestamp = cloneFloat(v.AudioTimestamp)
		if v.CorrectAnswer != nil {
			answer := *v.CorrectAnswer
			out.CorrectAnswer = &answer
		}
		return &out
	default:
		return nil
	}
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
