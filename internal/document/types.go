package document

import "errors"

// BlockType is the discriminator stored in every question block's "type" field.
type BlockType string

// Block types, in declaration order. Validation and the type picker follow this order.
const (
	TypeSingleChoice            BlockType = "single_choice"
	TypeMatrixSingleChoice      BlockType = "matrix_single_choice"
	TypePersonStatementMatching BlockType = "person_statement_matching"
	TypeMatching                BlockType = "matching"
	TypeOrdering                BlockType = "ordering"
	TypeFillInBlank             BlockType = "fill_in_blank"
	TypeTrueFalse               BlockType = "true_false"
)

// legacyTypeSingleChoice is how documents saved by the old console tag single choice blocks.
const legacyTypeSingleChoice BlockType = "multiple_choice"

// BlockTypes lists every supported variant.
var BlockTypes = []BlockType{
	TypeSingleChoice,
	TypeMatrixSingleChoice,
	TypePersonStatementMatching,
	TypeMatching,
	TypeOrdering,
	TypeFillInBlank,
	TypeTrueFalse,
}

// Valid reports whether t names one of the seven variants.
func (t BlockType) Valid() bool {
	for _, known := range BlockTypes {
		if t == known {
			return true
		}
	}
	return false
}

var ErrUnknownBlockType = errors.New("unknown block type")

// Instructions holds the bilingual exercise instructions.
type Instructions struct {
	ES string `json:"es"`
	ZH string `json:"zh"`
}

// Document is one stored revision of a tarea's question set.
type Document struct {
	Version      int          `json:"version"`
	Instructions Instructions `json:"instructions"`
	Questions    []Block      `json:"questions"`
}

// NewDocument returns an empty document at the given version.
func NewDocument(version int) Document {
	return Document{
		Version:   version,
		Questions: []Block{},
	}
}

// Clone deep-copies the document, including every block.
func (d Document) Clone() Document {
	out := Document{
		Version:      d.Version,
		Instructions: d.Instructions,
	}
	if d.Questions != nil {
		out.Questions = make([]Block, len(d.Questions))
		for i, b := range d.Questions {
			out.Questions[i] = Clone(b)
		}
	}
	return out
}

// Block is one question unit. The set of implementations is closed to this package.
type Block interface {
	Type() BlockType
	block()
}

// Side selects a column of a matching block.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Option is a single choice answer option.
type Option struct {
	Label     string `json:"label"`
	Content   string `json:"content"`
	IsCorrect bool   `json:"is_correct"`
}

// SingleChoice is a stem with lettered options, one of which is correct.
type SingleChoice struct {
	QuestionID     *int     `json:"question_id"`
	Stem           string   `json:"stem"`
	Question       string   `json:"question,omitempty"`
	Pista          *int     `json:"pista"`
	Options        []Option `json:"options"`
	AudioTimestamp *float64 `json:"audio_timestamp"`
	Explanation    string   `json:"explanation"`
}

// MatrixColumn is one shared answer column of a matrix block.
type MatrixColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// MatrixRow is one numbered statement answered by picking a column key.
type MatrixRow struct {
	Text           string   `json:"text"`
	Correct        *string  `json:"correct"`
	AudioTimestamp *float64 `json:"audio_timestamp"`
}

// MatrixSingleChoice is a grid of rows sharing one set of columns.
type MatrixSingleChoice struct {
	Prompt      string         `json:"prompt"`
	Pista       *int           `json:"pista"`
	Columns     []MatrixColumn `json:"columns"`
	Rows        []MatrixRow    `json:"rows"`
	StartNumber int            `json:"start_number"`
	Explanation string         `json:"explanation"`
}

// Statement is one keyed statement persons are matched against.
type Statement struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Person is a speaker whose answer is a statement key.
type Person struct {
	Name             string  `json:"name"`
	Pista            *int    `json:"pista"`
	CorrectStatement *string `json:"correct_statement"`
}

// PersonStatementMatching pairs each person with one statement.
type PersonStatementMatching struct {
	Prompt      string      `json:"prompt"`
	Statements  []Statement `json:"statements"`
	Persons     []Person    `json:"persons"`
	StartNumber int         `json:"start_number"`
	Explanation string      `json:"explanation"`
}

// Matching maps left items to right items by index.
type Matching struct {
	Question       string      `json:"question"`
	Pista          *int        `json:"pista"`
	LeftItems      []string    `json:"left_items"`
	RightItems     []string    `json:"right_items"`
	CorrectMatches map[int]int `json:"correct_matches"`
	AudioTimestamp *float64    `json:"audio_timestamp"`
	Explanation    string      `json:"explanation"`
}

// Ordering asks for items to be put into correct_order.
type Ordering struct {
	Question       string   `json:"question"`
	Pista          *int     `json:"pista"`
	Items          []string `json:"items"`
	CorrectOrder   []int    `json:"correct_order"`
	AudioTimestamp *float64 `json:"audio_timestamp"`
	Explanation    string   `json:"explanation"`
}

// FillInBlank is a text with placeholder markers and the expected answers.
type FillInBlank struct {
	Question       string   `json:"question"`
	Pista          *int     `json:"pista"`
	TextWithBlanks string   `json:"text_with_blanks"`
	Answers        []string `json:"answers"`
	AudioTimestamp *float64 `json:"audio_timestamp"`
	Explanation    string   `json:"explanation"`
}

// TrueFalse is a statement with a tri-state answer (nil means unset).
type TrueFalse struct {
	Question       string   `json:"question"`
	Pista          *int     `json:"pista"`
	CorrectAnswer  *bool    `json:"correct_answer"`
	AudioTimestamp *float64 `json:"audio_timestamp"`
	Explanation    string   `json:"explanation"`
}

func (*SingleChoice) Type() BlockType            { return TypeSingleChoice }
func (*MatrixSingleChoice) Type() BlockType      { return TypeMatrixSingleChoice }
func (*PersonStatementMatching) Type() BlockType { return TypePersonStatementMatching }
func (*Matching) Type() BlockType                { return TypeMatching }
func (*Ordering) Type() BlockType                { return TypeOrdering }
func (*FillInBlank) Type() BlockType             { return TypeFillInBlank }
func (*TrueFalse) Type() BlockType               { return TypeTrueFalse }

func (*SingleChoice) block()            {}
func (*MatrixSingleChoice) block()      {}
func (*PersonStatementMatching) block() {}
func (*Matching) block()                {}
func (*Ordering) block()                {}
func (*FillInBlank) block()             {}
func (*TrueFalse) block()               {}
