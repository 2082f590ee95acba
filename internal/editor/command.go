package editor

import (
	"fmt"

	"github.com/gokatarajesh/tarea-editor/internal/document"
)

// Op names one typed block edit.
type Op string

const (
	// any block
	OpSetQuestionText       Op = "set_question_text"
	OpSetExplanation        Op = "set_explanation"
	OpWrapExplanation       Op = "wrap_explanation"
	OpInsertExplanationList Op = "insert_explanation_list"
	OpSetPista              Op = "set_pista"
	OpSetAudioTimestamp     Op = "set_audio_timestamp"
	OpSetStartNumber        Op = "set_start_number"

	// single_choice
	OpSetQuestionID    Op = "set_question_id"
	OpSetCorrectOption Op = "set_correct_option"
	OpSetOptionContent Op = "set_option_content"
	OpAddOption        Op = "add_option"
	OpRemoveOption     Op = "remove_option"

	// matrix_single_choice
	OpSetColumnLabel  Op = "set_column_label"
	OpAddColumn       Op = "add_column"
	OpRemoveColumn    Op = "remove_column"
	OpSetRowText      Op = "set_row_text"
	OpSetRowCorrect   Op = "set_row_correct"
	OpSetRowTimestamp Op = "set_row_timestamp"
	OpAddRow          Op = "add_row"
	OpAddRows         Op = "add_rows"
	OpRemoveRow       Op = "remove_row"

	// person_statement_matching
	OpSetStatementText   Op = "set_statement_text"
	OpAddStatement       Op = "add_statement"
	OpRemoveStatement    Op = "remove_statement"
	OpSetPersonName      Op = "set_person_name"
	OpSetPersonPista     Op = "set_person_pista"
	OpSetPersonStatement Op = "set_person_statement"
	OpAddPerson          Op = "add_person"
	OpRemovePerson       Op = "remove_person"

	// matching and ordering
	OpSetItem    Op = "set_item"
	OpAddItem    Op = "add_item"
	OpRemoveItem Op = "remove_item"
	OpSetPair    Op = "set_pair"

	// fill_in_blank
	OpSetTextWithBlanks Op = "set_text_with_blanks"
	OpSetAnswer         Op = "set_answer"
	OpAddAnswer         Op = "add_answer"
	OpRemoveAnswer      Op = "remove_answer"

	// true_false
	OpSetCorrectAnswer Op = "set_correct_answer"
)

// opTargets lists the block types an op applies to. A nil entry means every type.
var opTargets = map[Op][]document.BlockType{
	OpSetQuestionText:       nil,
	OpSetExplanation:        nil,
	OpWrapExplanation:       nil,
	OpInsertExplanationList: nil,
	OpSetPista:              nil,
	OpSetAudioTimestamp:     nil,
	OpSetStartNumber:        {document.TypeMatrixSingleChoice, document.TypePersonStatementMatching},

	OpSetQuestionID:    {document.TypeSingleChoice},
	OpSetCorrectOption: {document.TypeSingleChoice},
	OpSetOptionContent: {document.TypeSingleChoice},
	OpAddOption:        {document.TypeSingleChoice},
	OpRemoveOption:     {document.TypeSingleChoice},

	OpSetColumnLabel:  {document.TypeMatrixSingleChoice},
	OpAddColumn:       {document.TypeMatrixSingleChoice},
	OpRemoveColumn:    {document.TypeMatrixSingleChoice},
	OpSetRowText:      {document.TypeMatrixSingleChoice},
	OpSetRowCorrect:   {document.TypeMatrixSingleChoice},
	OpSetRowTimestamp: {document.TypeMatrixSingleChoice},
	OpAddRow:          {document.TypeMatrixSingleChoice},
	OpAddRows:         {document.TypeMatrixSingleChoice},
	OpRemoveRow:       {document.TypeMatrixSingleChoice},

	OpSetStatementText:   {document.TypePersonStatementMatching},
	OpAddStatement:       {document.TypePersonStatementMatching},
	OpRemoveStatement:    {document.TypePersonStatementMatching},
	OpSetPersonName:      {document.TypePersonStatementMatching},
	OpSetPersonPista:     {document.TypePersonStatementMatching},
	OpSetPersonStatement: {document.TypePersonStatementMatching},
	OpAddPerson:          {document.TypePersonStatementMatching},
	OpRemovePerson:       {document.TypePersonStatementMatching},

	OpSetItem:    {document.TypeMatching, document.TypeOrdering},
	OpAddItem:    {document.TypeMatching, document.TypeOrdering},
	OpRemoveItem: {document.TypeMatching, document.TypeOrdering},
	OpSetPair:    {document.TypeMatching},

	OpSetTextWithBlanks: {document.TypeFillInBlank},
	OpSetAnswer:         {document.TypeFillInBlank},
	OpAddAnswer:         {document.TypeFillInBlank},
	OpRemoveAnswer:      {document.TypeFillInBlank},

	OpSetCorrectAnswer: {document.TypeTrueFalse},
}

// Command is one typed edit of the block at index Block. Which of the argument
// fields are read depends on Op; pointer arguments set to nil clear optional values.
// Ops addressing an element of the block require Index.
type Command struct {
	Op     Op            `json:"op"`
	Block  int           `json:"block"`
	Index  *int          `json:"index,omitempty"`
	End    int           `json:"end"`
	Side   document.Side `json:"side,omitempty"`
	Text   *string       `json:"text,omitempty"`
	Number *int          `json:"number,omitempty"`
	Float  *float64      `json:"float,omitempty"`
	Bool   *bool         `json:"bool,omitempty"`
	Key    *string       `json:"key,omitempty"`
	Lines  []string      `json:"lines,omitempty"`
	Tag    string        `json:"tag,omitempty"`
}

// KnownOp reports whether op is a supported command.
func KnownOp(op Op) bool {
	_, ok := opTargets[op]
	return ok
}

func (c Command) text() (string, error) {
	if c.Text == nil {
		return "", fmt.Errorf("%w: %s requires text", ErrInvalidCommand, c.Op)
	}
	return *c.Text, nil
}

func (c Command) index() (int, error) {
	if c.Index == nil {
		return 0, fmt.Errorf("%w: %s requires index", ErrInvalidCommand, c.Op)
	}
	return *c.Index, nil
}

// selectionStart is the start of the explanation selection; a missing index means 0.
func (c Command) selectionStart() int {
	if c.Index == nil {
		return 0
	}
	return *c.Index
}

func (c Command) side() (document.Side, error) {
	switch c.Side {
	case document.SideLeft, document.SideRight:
		return c.Side, nil
	default:
		return "", fmt.Errorf("%w: %s requires side left or right", ErrInvalidCommand, c.Op)
	}
}

func (c Command) number() (int, error) {
	if c.Number == nil {
		return 0, fmt.Errorf("%w: %s requires number", ErrInvalidCommand, c.Op)
	}
	return *c.Number, nil
}

func checkTarget(b document.Block, op Op) error {
	targets, ok := opTargets[op]
	if !ok {
		return fmt.Errorf("%w: unknown op %q", ErrInvalidCommand, op)
	}
	if targets == nil {
		return nil
	}
	for _, t := range targets {
		if t == b.Type() {
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", ErrWrongBlockType, op, b.Type())
}

// applyCommand runs c against b and reports whether b changed.
func applyCommand(b document.Block, c Command) (bool, error) {
	if err := checkTarget(b, c.Op); err != nil {
		return false, err
	}

	switch c.Op {
	case OpSetQuestionText:
		text, err := c.text()
		if err != nil {
			return false, err
		}
		return document.SetQuestionText(b, text), nil
	case OpSetExplanation:
		text, err := c.text()
		if err != nil {
			return false, err
		}
		return document.SetExplanation(b, text), nil
	case OpWrapExplanation:
		out, ok := document.WrapExplanation(document.Explanation(b), c.selectionStart(), c.End, c.Tag)
		if !ok {
			return false, fmt.Errorf("%w: unsupported tag %q", ErrInvalidCommand, c.Tag)
		}
		return document.SetExplanation(b, out), nil
	case OpInsertExplanationList:
		out, ok := document.InsertExplanationList(document.Explanation(b), c.selectionStart(), c.End, c.Tag)
		if !ok {
			return false, fmt.Errorf("%w: unsupported list %q", ErrInvalidCommand, c.Tag)
		}
		return document.SetExplanation(b, out), nil
	case OpSetPista:
		return document.SetPista(b, c.Number), nil
	case OpSetAudioTimestamp:
		return document.SetAudioTimestamp(b, c.Float), nil
	case OpSetStartNumber:
		n, err := c.number()
		if err != nil {
			return false, err
		}
		return document.SetStartNumber(b, n), nil
	}

	var i int
	if elementOps[c.Op] {
		var err error
		if i, err = c.index(); err != nil {
			return false, err
		}
	}

	switch v := b.(type) {
	case *document.SingleChoice:
		return applySingleChoice(v, c, i)
	case *document.MatrixSingleChoice:
		return applyMatrix(v, c, i)
	case *document.PersonStatementMatching:
		return applyPersonMatching(v, c, i)
	case *document.Matching:
		return applyMatching(v, c, i)
	case *document.Ordering:
		return applyOrdering(v, c, i)
	case *document.FillInBlank:
		return applyFillInBlank(v, c, i)
	case *document.TrueFalse:
		return v.SetCorrectAnswer(c.Bool), nil
	default:
		return false, fmt.Errorf("%w: %T", ErrWrongBlockType, b)
	}
}

// elementOps address one element of a block by Command.Index.
var elementOps = map[Op]bool{
	OpSetCorrectOption: true, OpSetOptionContent: true, OpRemoveOption: true,
	OpSetColumnLabel: true, OpRemoveColumn: true, OpSetRowText: true, OpSetRowCorrect: true,
	OpSetRowTimestamp: true, OpRemoveRow: true,
	OpSetStatementText: true, OpRemoveStatement: true, OpSetPersonName: true,
	OpSetPersonPista: true, OpSetPersonStatement: true, OpRemovePerson: true,
	OpSetItem: true, OpRemoveItem: true, OpSetPair: true,
	OpSetAnswer: true, OpRemoveAnswer: true,
}

func applySingleChoice(b *document.SingleChoice, c Command, i int) (bool, error) {
	switch c.Op {
	case OpSetQuestionID:
		return b.SetQuestionID(c.Number), nil
	case OpSetCorrectOption:
		return b.SetCorrectOption(i), nil
	case OpSetOptionContent:
		text, err := c.text()
		if err != nil {
			return false, err
		}
		return b.SetOptionContent(i, text), nil
	case OpAddOption:
		return b.AddOption(), nil
	default:
		return b.RemoveOption(i), nil
	}
}

func applyMatrix(b *document.MatrixSingleChoice, c Command, i int) (bool, error) {
	switch c.Op {
	case OpSetColumnLabel:
		text, err := c.text()
		if err != nil {
			return false, err
		}
		return b.SetColumnLabel(i, text), nil
	case OpAddColumn:
		return b.AddColumn(), nil
	case OpRemoveColumn:
		return b.RemoveColumn(i), nil
	case OpSetRowText:
		text, err := c.text()
		if err != nil {
			return false, err
		}
		return b.SetRowText(i, text), nil
	case OpSetRowCorrect:
		return b.SetRowCorrect(i, c.Key), nil
	case OpSetRowTimestamp:
		return b.SetRowTimestamp(i, c.Float), nil
	case OpAddRow:
		return b.AddRow(), nil
	case OpAddRows:
		return b.AddRows(c.Lines) > 0, nil
	default:
		return b.RemoveRow(i), nil
	}
}

func applyPersonMatching(b *document.PersonStatementMatching, c Command, i int) (bool, error) {
	switch c.Op {
	case OpSetStatementText:
		text, err := c.text()
		if err != nil {
			return false, err
		}
		return b.SetStatementText(i, text), nil
	case OpAddStatement:
		return b.AddStatement(), nil
	case OpRemoveStatement:
		return b.RemoveStatement(i), nil
	case OpSetPersonName:
		text, err := c.text()
		if err != nil {
			return false, err
		}
		return b.SetPersonName(i, text), nil
	case OpSetPersonPista:
		return b.SetPersonPista(i, c.Number), nil
	case OpSetPersonStatement:
		return b.SetPersonStatement(i, c.Key), nil
	case OpAddPerson:
		return b.AddPerson(), nil
	default:
		return b.RemovePerson(i), nil
	}
}

func applyMatching(b *document.Matching, c Command, i int) (bool, error) {
	if c.Op == OpSetPair {
		return b.SetPair(i, c.Number), nil
	}
	side, err := c.side()
	if err != nil {
		return false, err
	}
	switch c.Op {
	case OpSetItem:
		text, err := c.text()
		if err != nil {
			return false, err
		}
		return b.SetItem(side, i, text), nil
	case OpAddItem:
		return b.AddItem(side), nil
	default:
		return b.RemoveItem(side, i), nil
	}
}

func applyOrdering(b *document.Ordering, c Command, i int) (bool, error) {
	switch c.Op {
	case OpSetItem:
		text, err := c.text()
		if err != nil {
			return false, err
		}
		return b.SetItem(i, text), nil
	case OpAddItem:
		return b.AddItem(), nil
	default:
		return b.RemoveItem(i), nil
	}
}

func applyFillInBlank(b *document.FillInBlank, c Command, i int) (bool, error) {
	switch c.Op {
	case OpSetTextWithBlanks:
		text, err := c.text()
		if err != nil {
			return false, err
		}
		return b.SetTextWithBlanks(text), nil
	case OpSetAnswer:
		text, err := c.text()
		if err != nil {
			return false, err
		}
		return b.SetAnswer(i, text), nil
	case OpAddAnswer:
		return b.AddAnswer(), nil
	default:
		return b.RemoveAnswer(i), nil
	}
}
