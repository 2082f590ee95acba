package document

import "strings"

// Collection floors: shrink operations are refused below these sizes.
const (
	MinOptions       = 2
	MinColumns       = 2
	MinStatements    = 2
	MinRows          = 1
	MinPersons       = 1
	MinMatchingItems = 2
	MinOrderingItems = 2
	MinFillInAnswers = 1
)

// Every mutator below returns true when the block changed. Out-of-range indices,
// refused shrinks and references to unknown keys leave the block untouched.

// ---- single_choice ----

func (b *SingleChoice) SetStem(stem string) bool {
	if b.Stem == stem {
		return false
	}
	b.Stem = stem
	return true
}

func (b *SingleChoice) SetQuestionID(id *int) bool {
	if equalIntPtr(b.QuestionID, id) {
		return false
	}
	b.QuestionID = cloneInt(id)
	return true
}

// SetCorrectOption marks option i as the only correct one.
func (b *SingleChoice) SetCorrectOption(i int) bool {
	if !inRange(i, len(b.Options)) {
		return false
	}
	for j := range b.Options {
		b.Options[j].IsCorrect = j == i
	}
	return true
}

func (b *SingleChoice) SetOptionContent(i int, content string) bool {
	if !inRange(i, len(b.Options)) {
		return false
	}
	b.Options[i].Content = content
	return true
}

func (b *SingleChoice) AddOption() bool {
	b.Options = append(b.Options, Option{})
	b.relabelOptions()
	return true
}

func (b *SingleChoice) RemoveOption(i int) bool {
	if !inRange(i, len(b.Options)) || len(b.Options) <= MinOptions {
		return false
	}
	b.Options = append(b.Options[:i], b.Options[i+1:]...)
	b.relabelOptions()
	return true
}

func (b *SingleChoice) relabelOptions() {
	for i := range b.Options {
		b.Options[i].Label = sequenceKey(i, 'A')
	}
}

// ---- matrix_single_choice ----

func (b *MatrixSingleChoice) SetPrompt(prompt string) bool {
	if b.Prompt == prompt {
		return false
	}
	b.Prompt = prompt
	return true
}

func (b *MatrixSingleChoice) SetStartNumber(n int) bool {
	if n < 1 {
		n = 1
	}
	if b.StartNumber == n {
		return false
	}
	b.StartNumber = n
	return true
}

func (b *MatrixSingleChoice) SetColumnLabel(i int, label string) bool {
	if !inRange(i, len(b.Columns)) {
		return false
	}
	b.Columns[i].Label = label
	return true
}

func (b *MatrixSingleChoice) AddColumn() bool {
	keys := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		keys[i] = c.Key
	}
	b.Columns = append(b.Columns, MatrixColumn{Key: nextFreeKey(keys, len(keys), 'a')})
	return true
}

// RemoveColumn drops column i and clears every row answer that pointed at it.
func (b *MatrixSingleChoice) RemoveColumn(i int) bool {
	if !inRange(i, len(b.Columns)) || len(b.Columns) <= MinColumns {
		return false
	}
	removed := b.Columns[i].Key
	b.Columns = append(b.Columns[:i], b.Columns[i+1:]...)
	for j := range b.Rows {
		if b.Rows[j].Correct != nil && *b.Rows[j].Correct == removed && !b.hasColumn(removed) {
			b.Rows[j].Correct = nil
		}
	}
	return true
}

func (b *MatrixSingleChoice) hasColumn(key string) bool {
	for _, c := range b.Columns {
		if c.Key == key {
			return true
		}
	}
	return false
}

func (b *MatrixSingleChoice) SetRowText(i int, text string) bool {
	if !inRange(i, len(b.Rows)) {
		return false
	}
	b.Rows[i].Text = text
	return true
}

// SetRowCorrect sets the answer of row i to an existing column key, or clears it when key is nil.
func (b *MatrixSingleChoice) SetRowCorrect(i int, key *string) bool {
	if !inRange(i, len(b.Rows)) {
		return false
	}
	if key != nil && !b.hasColumn(*key) {
		return false
	}
	b.Rows[i].Correct = cloneString(key)
	return true
}

func (b *MatrixSingleChoice) SetRowTimestamp(i int, ts *float64) bool {
	if !inRange(i, len(b.Rows)) {
		return false
	}
	b.Rows[i].AudioTimestamp = cloneFloat(ts)
	return true
}

func (b *MatrixSingleChoice) AddRow() bool {
	b.Rows = append(b.Rows, MatrixRow{})
	return true
}

// AddRows appends one row per non-blank line, trimmed.
func (b *MatrixSingleChoice) AddRows(lines []string) int {
	added := 0
	for _, line := range lines {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		b.Rows = append(b.Rows, MatrixRow{Text: text})
		added++
	}
	return added
}

func (b *MatrixSingleChoice) RemoveRow(i int) bool {
	if !inRange(i, len(b.Rows)) || len(b.Rows) <= MinRows {
		return false
	}
	b.Rows = append(b.Rows[:i], b.Rows[i+1:]...)
	return true
}

// ---- person_statement_matching ----

func (b *PersonStatementMatching) SetPrompt(prompt string) bool {
	if b.Prompt == prompt {
		return false
	}
	b.Prompt = prompt
	return true
}

func (b *PersonStatementMatching) SetStartNumber(n int) bool {
	if n < 1 {
		n = 1
	}
	if b.StartNumber == n {
		return false
	}
	b.StartNumber = n
	return true
}

func (b *PersonStatementMatching) SetStatementText(i int, text string) bool {
	if !inRange(i, len(b.Statements)) {
		return false
	}
	b.Statements[i].Text = text
	return true
}

func (b *PersonStatementMatching) AddStatement() bool {
	keys := make([]string, len(b.Statements))
	for i, s := range b.Statements {
		keys[i] = s.Key
	}
	b.Statements = append(b.Statements, Statement{Key: nextFreeKey(keys, len(keys), 'a')})
	return true
}

// RemoveStatement drops statement i and renames the survivors a, b, c...
// Persons that answered the removed statement are cleared; persons that answered a
// surviving statement follow it to its new key.
func (b *PersonStatementMatching) RemoveStatement(i int) bool {
	if !inRange(i, len(b.Statements)) || len(b.Statements) <= MinStatements {
		return false
	}
	b.Statements = append(b.Statements[:i], b.Statements[i+1:]...)

	renamed := make(map[string]string, len(b.Statements))
	for j := range b.Statements {
		next := sequenceKey(j, 'a')
		if _, seen := renamed[b.Statements[j].Key]; !seen {
			renamed[b.Statements[j].Key] = next
		}
		b.Statements[j].Key = next
	}
	for j := range b.Persons {
		current := b.Persons[j].CorrectStatement
		if current == nil {
			continue
		}
		if next, ok := renamed[*current]; ok {
			b.Persons[j].CorrectStatement = &next
		} else {
			b.Persons[j].CorrectStatement = nil
		}
	}
	return true
}

func (b *PersonStatementMatching) hasStatement(key string) bool {
	for _, s := range b.Statements {
		if s.Key == key {
			return true
		}
	}
	return false
}

func (b *PersonStatementMatching) SetPersonName(i int, name string) bool {
	if !inRange(i, len(b.Persons)) {
		return false
	}
	b.Persons[i].Name = name
	return true
}

func (b *PersonStatementMatching) SetPersonPista(i int, pista *int) bool {
	if !inRange(i, len(b.Persons)) {
		return false
	}
	b.Persons[i].Pista = cloneInt(pista)
	return true
}

// SetPersonStatement sets person i's answer to an existing statement key, or clears it when key is nil.
func (b *PersonStatementMatching) SetPersonStatement(i int, key *string) bool {
	if !inRange(i, len(b.Persons)) {
		return false
	}
	if key != nil && !b.hasStatement(*key) {
		return false
	}
	b.Persons[i].CorrectStatement = cloneString(key)
	return true
}

func (b *PersonStatementMatching) AddPerson() bool {
	b.Persons = append(b.Persons, Person{})
	return true
}

func (b *PersonStatementMatching) RemovePerson(i int) bool {
	if !inRange(i, len(b.Persons)) || len(b.Persons) <= MinPersons {
		return false
	}
	b.Persons = append(b.Persons[:i], b.Persons[i+1:]...)
	return true
}

// ---- matching ----

func (b *Matching) items(side Side) *[]string {
	switch side {
	case SideLeft:
		return &b.LeftItems
	case SideRight:
		return &b.RightItems
	default:
		return nil
	}
}

func (b *Matching) SetItem(side Side, i int, text string) bool {
	items := b.items(side)
	if items == nil || !inRange(i, len(*items)) {
		return false
	}
	(*items)[i] = text
	return true
}

func (b *Matching) AddItem(side Side) bool {
	items := b.items(side)
	if items == nil {
		return false
	}
	*items = append(*items, "")
	return true
}

// RemoveItem drops item i of one side and re-indexes correct_matches so that
// every pair keeps pointing at the same items.
func (b *Matching) RemoveItem(side Side, i int) bool {
	items := b.items(side)
	if items == nil || !inRange(i, len(*items)) || len(*items) <= MinMatchingItems {
		return false
	}
	*items = append((*items)[:i], (*items)[i+1:]...)

	matches := make(map[int]int, len(b.CorrectMatches))
	for left, right := range b.CorrectMatches {
		switch side {
		case SideLeft:
			if left == i {
				continue
			}
			if left > i {
				left--
			}
		case SideRight:
			if right == i {
				continue
			}
			if right > i {
				right--
			}
		}
		matches[left] = right
	}
	b.CorrectMatches = matches
	return true
}

// SetPair matches left item to right item, or removes the pair when right is nil.
func (b *Matching) SetPair(left int, right *int) bool {
	if !inRange(left, len(b.LeftItems)) {
		return false
	}
	if right == nil {
		if _, ok := b.CorrectMatches[left]; !ok {
			return false
		}
		delete(b.CorrectMatches, left)
		return true
	}
	if !inRange(*right, len(b.RightItems)) {
		return false
	}
	if b.CorrectMatches == nil {
		b.CorrectMatches = map[int]int{}
	}
	b.CorrectMatches[left] = *right
	return true
}

// ---- ordering ----

func (b *Ordering) SetItem(i int, text string) bool {
	if !inRange(i, len(b.Items)) {
		return false
	}
	b.Items[i] = text
	return true
}

// AddItem appends an empty item; the current order becomes the correct order.
func (b *Ordering) AddItem() bool {
	b.Items = append(b.Items, "")
	b.resetOrder()
	return true
}

func (b *Ordering) RemoveItem(i int) bool {
	if !inRange(i, len(b.Items)) || len(b.Items) <= MinOrderingItems {
		return false
	}
	b.Items = append(b.Items[:i], b.Items[i+1:]...)
	b.resetOrder()
	return true
}

func (b *Ordering) resetOrder() {
	b.CorrectOrder = make([]int, len(b.Items))
	for i := range b.CorrectOrder {
		b.CorrectOrder[i] = i
	}
}

// ---- fill_in_blank ----

func (b *FillInBlank) SetTextWithBlanks(text string) bool {
	if b.TextWithBlanks == text {
		return false
	}
	b.TextWithBlanks = text
	return true
}

func (b *FillInBlank) SetAnswer(i int, answer string) bool {
	if !inRange(i, len(b.Answers)) {
		return false
	}
	b.Answers[i] = answer
	return true
}

func (b *FillInBlank) AddAnswer() bool {
	b.Answers = append(b.Answers, "")
	return true
}

func (b *FillInBlank) RemoveAnswer(i int) bool {
	if !inRange(i, len(b.Answers)) || len(b.Answers) <= MinFillInAnswers {
		return false
	}
	b.Answers = append(b.Answers[:i], b.Answers[i+1:]...)
	return true
}

// ---- true_false ----

// SetCorrectAnswer sets the tri-state answer; nil means unset.
func (b *TrueFalse) SetCorrectAnswer(answer *bool) bool {
	if answer == nil && b.CorrectAnswer == nil {
		return false
	}
	if answer != nil && b.CorrectAnswer != nil && *answer == *b.CorrectAnswer {
		return false
	}
	if answer == nil {
		b.CorrectAnswer = nil
		return true
	}
	v := *answer
	b.CorrectAnswer = &v
	return true
}

// ---- fields shared by several variants ----

// SetQuestionText sets the variant's main text: stem, prompt or question.
func SetQuestionText(b Block, text string) bool {
	switch v := b.(type) {
	case *SingleChoice:
		return v.SetStem(text)
	case *MatrixSingleChoice:
		return v.SetPrompt(text)
	case *PersonStatementMatching:
		return v.SetPrompt(text)
	case *Matching:
		return setString(&v.Question, text)
	case *Ordering:
		return setString(&v.Question, text)
	case *FillInBlank:
		return setString(&v.Question, text)
	case *TrueFalse:
		return setString(&v.Question, text)
	default:
		return false
	}
}

// SetExplanation replaces the block's explanation annotation.
func SetExplanation(b Block, text string) bool {
	if p := explanationField(b); p != nil {
		return setString(p, text)
	}
	return false
}

// Explanation returns the block's explanation annotation.
func Explanation(b Block) string {
	if p := explanationField(b); p != nil {
		return *p
	}
	return ""
}

func explanationField(b Block) *string {
	switch v := b.(type) {
	case *SingleChoice:
		return &v.Explanation
	case *MatrixSingleChoice:
		return &v.Explanation
	case *PersonStatementMatching:
		return &v.Explanation
	case *Matching:
		return &v.Explanation
	case *Ordering:
		return &v.Explanation
	case *FillInBlank:
		return &v.Explanation
	case *TrueFalse:
		return &v.Explanation
	default:
		return nil
	}
}

// SetPista sets the block-level audio track. Person matching blocks carry pista per
// person instead, so they are left untouched.
func SetPista(b Block, pista *int) bool {
	var field **int
	switch v := b.(type) {
	case *SingleChoice:
		field = &v.Pista
	case *MatrixSingleChoice:
		field = &v.Pista
	case *Matching:
		field = &v.Pista
	case *Ordering:
		field = &v.Pista
	case *FillInBlank:
		field = &v.Pista
	case *TrueFalse:
		field = &v.Pista
	case *PersonStatementMatching:
		return false
	default:
		return false
	}
	if equalIntPtr(*field, pista) {
		return false
	}
	*field = cloneInt(pista)
	return true
}

// SetAudioTimestamp sets the block-level timestamp in seconds. Matrix blocks keep
// timestamps per row and person matching blocks have none.
func SetAudioTimestamp(b Block, ts *float64) bool {
	var field **float64
	switch v := b.(type) {
	case *SingleChoice:
		field = &v.AudioTimestamp
	case *Matching:
		field = &v.AudioTimestamp
	case *Ordering:
		field = &v.AudioTimestamp
	case *FillInBlank:
		field = &v.AudioTimestamp
	case *TrueFalse:
		field = &v.AudioTimestamp
	case *MatrixSingleChoice, *PersonStatementMatching:
		return false
	default:
		return false
	}
	if equalFloatPtr(*field, ts) {
		return false
	}
	*field = cloneFloat(ts)
	return true
}

// SetStartNumber sets the numbering baseline of matrix and person matching blocks.
func SetStartNumber(b Block, n int) bool {
	switch v := b.(type) {
	case *MatrixSingleChoice:
		return v.SetStartNumber(n)
	case *PersonStatementMatching:
		return v.SetStartNumber(n)
	default:
		return false
	}
}

// ---- helpers ----

func inRange(i, n int) bool {
	return i >= 0 && i < n
}

func setString(field *string, v string) bool {
	if *field == v {
		return false
	}
	*field = v
	return true
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// sequenceKey returns the i-th key of the sequence base, base+1, ... base+25,
// then two-letter keys (AA, AB, ...) once the alphabet is exhausted.
func sequenceKey(i int, base rune) string {
	if i < 26 {
		return string(base + rune(i))
	}
	return sequenceKey(i/26-1, base) + string(base+rune(i%26))
}

// nextFreeKey returns the first key of the sequence, starting at position start,
// that is not already in use.
func nextFreeKey(used []string, start int, base rune) string {
	taken := make(map[string]struct{}, len(used))
	for _, k := range used {
		taken[k] = struct{}{}
	}
	for i := start; ; i++ {
		k := sequenceKey(i, base)
		if _, ok := taken[k]; !ok {
			return k
		}
	}
}
