package document

import "fmt"

// Validation rules, reported in the order they are checked.
const (
	RuleVersion          = "version"
	RuleBlockType        = "block_type"
	RuleStemRequired     = "stem_required"
	RuleMinOptions       = "min_options"
	RuleMinMatrixColumns = "min_matrix_columns"
	RuleMinMatrixRows    = "min_matrix_rows"
)

// ValidationError reports the first pre-save rule a document violates.
// Index is the zero-based question index, or -1 for document-level rules.
type ValidationError struct {
	Index   int
	Type    BlockType
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate runs the pre-save checks. Only single choice and matrix blocks carry
// field rules; the other variants are checked for type membership only.
func Validate(d Document) error {
	if d.Version < 1 {
		return &ValidationError{
			Index:   -1,
			Rule:    RuleVersion,
			Message: fmt.Sprintf("version must be a positive integer, got %d", d.Version),
		}
	}

	for i, q := range d.Questions {
		n := i + 1
		if q == nil || !q.Type().Valid() {
			return &ValidationError{
				Index:   i,
				Rule:    RuleBlockType,
				Message: fmt.Sprintf("question %d is missing a valid type", n),
			}
		}

		switch b := q.(type) {
		case *SingleChoice:
			if b.Stem == "" && b.Question == "" {
				return &ValidationError{
					Index:   i,
					Type:    b.Type(),
					Rule:    RuleStemRequired,
					Message: fmt.Sprintf("single choice question %d is missing its stem", n),
				}
			}
			if len(b.Options) < MinOptions {
				return &ValidationError{
					Index:   i,
					Type:    b.Type(),
					Rule:    RuleMinOptions,
					Message: fmt.Sprintf("single choice question %d needs at least %d options", n, MinOptions),
				}
			}
		case *MatrixSingleChoice:
			if len(b.Columns) < MinColumns {
				return &ValidationError{
					Index:   i,
					Type:    b.Type(),
					Rule:    RuleMinMatrixColumns,
					Message: fmt.Sprintf("matrix question %d needs at least %d columns", n, MinColumns),
				}
			}
			if len(b.Rows) < MinRows {
				return &ValidationError{
					Index:   i,
					Type:    b.Type(),
					Rule:    RuleMinMatrixRows,
					Message: fmt.Sprintf("matrix question %d needs at least %d row", n, MinRows),
				}
			}
		case *PersonStatementMatching, *Matching, *Ordering, *FillInBlank, *TrueFalse:
		}
	}
	return nil
}
