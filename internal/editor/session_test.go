package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/tarea-editor/internal/document"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListVersions(ctx context.Context, tareaID int) ([]int, error) {
	args := m.Called(ctx, tareaID)
	versions, _ := args.Get(0).([]int)
	return versions, args.Error(1)
}

func (m *mockStore) GetDocument(ctx context.Context, tareaID, version int) (document.Document, error) {
	args := m.Called(ctx, tareaID, version)
	doc, _ := args.Get(0).(document.Document)
	return doc, args.Error(1)
}

func (m *mockStore) PutDocument(ctx context.Context, tareaID int, doc document.Document) error {
	return m.Called(ctx, tareaID, doc).Error(0)
}

func (m *mockStore) DeleteDocument(ctx context.Context, tareaID, version int) error {
	return m.Called(ctx, tareaID, version).Error(0)
}

type recordingNotifier struct {
	notes []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, _ string, n Notification) {
	r.notes = append(r.notes, n)
}

func newTestSession(store Store) (*Session, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewSession("s-1", 42, "admin@example.com", store, n, zerolog.Nop()), n
}

func storedDocument(version int) document.Document {
	doc := document.NewDocument(version)
	doc.Instructions = document.Instructions{ES: "Escucha", ZH: "听"}
	sc, _ := document.NewBlock(document.TypeSingleChoice)
	sc.(*document.SingleChoice).Stem = "¿Qué hora es?"
	sc.(*document.SingleChoice).SetCorrectOption(0)
	tf, _ := document.NewBlock(document.TypeTrueFalse)
	doc.Questions = append(doc.Questions, sc, tf)
	return doc
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func TestOpenEmptyVersionList(t *testing.T) {
	store := &mockStore{}
	store.On("ListVersions", mock.Anything, 42).Return([]int{}, nil)

	s, _ := newTestSession(store)
	require.NoError(t, s.Open(context.Background()))

	v := s.Snapshot()
	assert.Equal(t, 1, v.Document.Version)
	assert.Empty(t, v.Document.Questions)
	assert.Equal(t, document.Instructions{}, v.Document.Instructions)
	assert.False(t, v.Dirty)
	assert.Equal(t, NoSelection, v.Selected)
	store.AssertNotCalled(t, "GetDocument", mock.Anything, mock.Anything, mock.Anything)
}

func TestOpenLoadsHighestVersion(t *testing.T) {
	store := &mockStore{}
	store.On("ListVersions", mock.Anything, 42).Return([]int{3, 1, 7, 2}, nil)
	store.On("GetDocument", mock.Anything, 42, 7).Return(storedDocument(7), nil)

	s, _ := newTestSession(store)
	require.NoError(t, s.Open(context.Background()))

	v := s.Snapshot()
	assert.Equal(t, []int{1, 2, 3, 7}, v.Versions)
	assert.Equal(t, 7, v.Document.Version)
	assert.Len(t, v.Document.Questions, 2)
	assert.Len(t, v.Blocks, 2)
	store.AssertExpectations(t)
}

func TestLoadVersionNotFoundFallsBackToEmpty(t *testing.T) {
	store := &mockStore{}
	store.On("GetDocument", mock.Anything, 42, 5).Return(nil, ErrNotFound)

	s, notes := newTestSession(store)
	require.NoError(t, s.LoadVersion(context.Background(), 5, false))

	v := s.Snapshot()
	assert.Equal(t, 5, v.Document.Version)
	assert.Empty(t, v.Document.Questions)
	assert.Empty(t, notes.notes, "not found is silent")
}

func TestLoadTransportErrorNotifiesAndSubstitutesEmpty(t *testing.T) {
	store := &mockStore{}
	store.On("ListVersions", mock.Anything, 42).Return([]int{2}, nil)
	store.On("GetDocument", mock.Anything, 42, 2).Return(nil, errors.New("connection refused"))

	s, notes := newTestSession(store)
	require.NoError(t, s.Open(context.Background()))

	v := s.Snapshot()
	assert.Equal(t, 1, v.Document.Version)
	assert.Empty(t, v.Document.Questions)
	require.Len(t, notes.notes, 1)
	assert.Equal(t, LevelError, notes.notes[0].Level)
}

func TestOpenAuthExpiredPropagates(t *testing.T) {
	store := &mockStore{}
	store.On("ListVersions", mock.Anything, 42).Return(nil, ErrAuthExpired)

	s, notes := newTestSession(store)
	assert.ErrorIs(t, s.Open(context.Background()), ErrAuthExpired)
	assert.Empty(t, notes.notes)
}

func TestLoadVersionRequiresConfirmWhenDirty(t *testing.T) {
	store := &mockStore{}
	store.On("GetDocument", mock.Anything, 42, 2).Return(storedDocument(2), nil)

	s, _ := newTestSession(store)
	_, err := s.AddBlock(document.TypeOrdering)
	require.NoError(t, err)

	assert.ErrorIs(t, s.LoadVersion(context.Background(), 2, false), ErrUnsavedChanges)
	store.AssertNotCalled(t, "GetDocument", mock.Anything, mock.Anything, mock.Anything)

	require.NoError(t, s.LoadVersion(context.Background(), 2, true))
	assert.False(t, s.Dirty())
	assert.ErrorIs(t, s.LoadVersion(context.Background(), 0, true), ErrInvalidVersion)
}

func TestToggleModeRoundTrip(t *testing.T) {
	store := &mockStore{}
	store.On("GetDocument", mock.Anything, 42, 4).Return(storedDocument(4), nil)

	s, _ := newTestSession(store)
	require.NoError(t, s.LoadVersion(context.Background(), 4, false))
	require.NoError(t, s.SelectBlock(1))
	before := s.Snapshot().Document

	require.NoError(t, s.ToggleMode())
	v := s.Snapshot()
	assert.Equal(t, ModeRaw, v.Mode)
	assert.Contains(t, v.Raw, `"type": "single_choice"`)
	assert.False(t, v.Dirty)

	require.NoError(t, s.ToggleMode())
	v = s.Snapshot()
	assert.Equal(t, ModeStructured, v.Mode)
	assert.Equal(t, before, v.Document)
	assert.Equal(t, NoSelection, v.Selected)
}

func TestToggleModeParseFailureLeavesStateUntouched(t *testing.T) {
	s, _ := newTestSession(&mockStore{})
	_, err := s.AddBlock(document.TypeTrueFalse)
	require.NoError(t, err)
	before := s.Snapshot().Document

	require.NoError(t, s.ToggleMode())
	require.NoError(t, s.SetRawText(`{"version": 1, "questions": [`))

	err = s.ToggleMode()
	var perr *document.ParseError
	require.ErrorAs(t, err, &perr)

	v := s.Snapshot()
	assert.Equal(t, ModeRaw, v.Mode)
	assert.Equal(t, before, v.Document)
	assert.Equal(t, `{"version": 1, "questions": [`, v.Raw)
}

func TestStructuredCommandsRejectedInRawMode(t *testing.T) {
	s, _ := newTestSession(&mockStore{})
	require.NoError(t, s.ToggleMode())

	_, err := s.AddBlock(document.TypeTrueFalse)
	assert.ErrorIs(t, err, ErrWrongMode)
	_, err = s.Apply(Command{Op: OpAddOption})
	assert.ErrorIs(t, err, ErrWrongMode)
	assert.ErrorIs(t, s.SetInstructions("a", "b"), ErrWrongMode)

	require.NoError(t, s.ToggleMode())
	assert.ErrorIs(t, s.SetRawText("x"), ErrWrongMode)
}

func TestBlockListOperations(t *testing.T) {
	s, _ := newTestSession(&mockStore{})

	for _, bt := range []document.BlockType{document.TypeSingleChoice, document.TypeMatching, document.TypeTrueFalse} {
		_, err := s.AddBlock(bt)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, s.Snapshot().Selected)

	require.NoError(t, s.SelectBlock(1))
	require.NoError(t, s.ReorderBlocks([]int{2, 1, 0}))
	v := s.Snapshot()
	assert.Equal(t, 1, v.Selected)
	assert.Equal(t, document.TypeTrueFalse, v.Document.Questions[0].Type())
	assert.Equal(t, document.TypeSingleChoice, v.Document.Questions[2].Type())

	assert.ErrorIs(t, s.ReorderBlocks([]int{0, 0, 1}), ErrInvalidPermutation)
	assert.ErrorIs(t, s.ReorderBlocks([]int{0, 1}), ErrInvalidPermutation)

	require.NoError(t, s.DeleteBlock(0))
	assert.Equal(t, 0, s.Snapshot().Selected, "selection follows its block")
	require.NoError(t, s.DeleteBlock(0))
	assert.Equal(t, NoSelection, s.Snapshot().Selected)

	assert.ErrorIs(t, s.DeleteBlock(3), ErrBlockIndex)
	assert.ErrorIs(t, s.SelectBlock(5), ErrBlockIndex)
	_, err := s.AddBlock("essay")
	assert.ErrorIs(t, err, document.ErrUnknownBlockType)
}

func TestDuplicateBlockIsIsolated(t *testing.T) {
	s, _ := newTestSession(&mockStore{})
	_, err := s.AddBlock(document.TypeMatrixSingleChoice)
	require.NoError(t, err)

	idx, err := s.DuplicateBlock(0)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = s.Apply(Command{Op: OpSetRowText, Block: 1, Index: intPtr(0), Text: strPtr("copy only")})
	require.NoError(t, err)
	_, err = s.Apply(Command{Op: OpAddColumn, Block: 1})
	require.NoError(t, err)

	v := s.Snapshot()
	orig := v.Document.Questions[0].(*document.MatrixSingleChoice)
	cp := v.Document.Questions[1].(*document.MatrixSingleChoice)
	assert.Equal(t, "", orig.Rows[0].Text)
	assert.Len(t, orig.Columns, 3)
	assert.Equal(t, "copy only", cp.Rows[0].Text)
	assert.Len(t, cp.Columns, 4)
}

func TestApplyDispatch(t *testing.T) {
	s, _ := newTestSession(&mockStore{})
	_, err := s.AddBlock(document.TypeMatrixSingleChoice)
	require.NoError(t, err)

	changed, err := s.Apply(Command{Op: OpSetRowCorrect, Block: 0, Index: intPtr(0), Key: strPtr("b")})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.Apply(Command{Op: OpRemoveColumn, Block: 0, Index: intPtr(1)})
	require.NoError(t, err)
	assert.True(t, changed)

	mx := s.Snapshot().Document.Questions[0].(*document.MatrixSingleChoice)
	assert.Equal(t, []string{"a", "c"}, []string{mx.Columns[0].Key, mx.Columns[1].Key})
	assert.Nil(t, mx.Rows[0].Correct)

	_, err = s.Apply(Command{Op: OpAddOption, Block: 0})
	assert.ErrorIs(t, err, ErrWrongBlockType)
	_, err = s.Apply(Command{Op: "explode", Block: 0})
	assert.ErrorIs(t, err, ErrInvalidCommand)
	_, err = s.Apply(Command{Op: OpSetRowText, Block: 0})
	assert.ErrorIs(t, err, ErrInvalidCommand)
	_, err = s.Apply(Command{Op: OpAddRow, Block: 4})
	assert.ErrorIs(t, err, ErrBlockIndex)

	changed, err = s.Apply(Command{Op: OpWrapExplanation, Block: 0, Text: nil, Tag: "b"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "<b></b>", document.Explanation(s.Snapshot().Document.Questions[0]))
}

func TestRefusedShrinkDoesNotSetDirty(t *testing.T) {
	store := &mockStore{}
	doc := document.NewDocument(1)
	o, _ := document.NewBlock(document.TypeOrdering)
	o.(*document.Ordering).Items = []string{"x", "y"}
	o.(*document.Ordering).CorrectOrder = []int{0, 1}
	doc.Questions = append(doc.Questions, o)
	store.On("GetDocument", mock.Anything, 42, 1).Return(doc, nil)

	s, _ := newTestSession(store)
	require.NoError(t, s.LoadVersion(context.Background(), 1, false))

	changed, err := s.Apply(Command{Op: OpRemoveItem, Block: 0, Index: intPtr(0)})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, s.Dirty())
	assert.Len(t, s.Snapshot().Document.Questions[0].(*document.Ordering).Items, 2)
}

func TestOrderingAddItemRegeneratesOrder(t *testing.T) {
	store := &mockStore{}
	doc := document.NewDocument(1)
	doc.Questions = append(doc.Questions, &document.Ordering{
		Items:        []string{"x", "y", "z"},
		CorrectOrder: []int{2, 0, 1},
	})
	store.On("GetDocument", mock.Anything, 42, 1).Return(doc, nil)

	s, _ := newTestSession(store)
	require.NoError(t, s.LoadVersion(context.Background(), 1, false))

	changed, err := s.Apply(Command{Op: OpAddItem, Block: 0})
	require.NoError(t, err)
	assert.True(t, changed)

	o := s.Snapshot().Document.Questions[0].(*document.Ordering)
	assert.Equal(t, []string{"x", "y", "z", ""}, o.Items)
	assert.Equal(t, []int{0, 1, 2, 3}, o.CorrectOrder)
}

func TestSaveValidationGate(t *testing.T) {
	store := &mockStore{}
	s, _ := newTestSession(store)
	_, err := s.AddBlock(document.TypeSingleChoice)
	require.NoError(t, err)

	err = s.Save(context.Background())
	var verr *document.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, document.RuleStemRequired, verr.Rule)
	assert.True(t, s.Dirty())
	store.AssertNotCalled(t, "PutDocument", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveSuccessClearsDirtyAndRefreshesVersions(t *testing.T) {
	store := &mockStore{}
	store.On("PutDocument", mock.Anything, 42, mock.AnythingOfType("document.Document")).Return(nil)
	store.On("ListVersions", mock.Anything, 42).Return([]int{1, 2}, nil)

	s, notes := newTestSession(store)
	_, err := s.AddBlock(document.TypeSingleChoice)
	require.NoError(t, err)
	_, err = s.Apply(Command{Op: OpSetQuestionText, Block: 0, Text: strPtr("stem")})
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background()))

	v := s.Snapshot()
	assert.False(t, v.Dirty)
	assert.Equal(t, []int{1, 2}, v.Versions)
	assert.Equal(t, ModeStructured, v.Mode)
	assert.Len(t, v.Document.Questions, 1)
	require.NotEmpty(t, notes.notes)
	assert.Equal(t, LevelSuccess, notes.notes[len(notes.notes)-1].Level)
	store.AssertExpectations(t)
}

func TestSaveFailureKeepsDirty(t *testing.T) {
	store := &mockStore{}
	store.On("PutDocument", mock.Anything, 42, mock.Anything).Return(errors.New("backend down"))

	s, notes := newTestSession(store)
	_, err := s.AddBlock(document.TypeTrueFalse)
	require.NoError(t, err)

	assert.Error(t, s.Save(context.Background()))
	assert.True(t, s.Dirty())
	assert.Len(t, s.Snapshot().Document.Questions, 1)
	require.Len(t, notes.notes, 1)
	assert.Equal(t, LevelError, notes.notes[0].Level)
	store.AssertNotCalled(t, "ListVersions", mock.Anything, mock.Anything)
}

func TestSaveFromRawModeParsesFirst(t *testing.T) {
	store := &mockStore{}
	store.On("PutDocument", mock.Anything, 42, mock.MatchedBy(func(d document.Document) bool {
		return d.Version == 3 && len(d.Questions) == 1
	})).Return(nil)
	store.On("ListVersions", mock.Anything, 42).Return(nil, errors.New("flaky"))

	s, _ := newTestSession(store)
	require.NoError(t, s.ToggleMode())

	require.NoError(t, s.SetRawText(`{"version": 3, "questions": [`))
	var perr *document.ParseError
	require.ErrorAs(t, s.Save(context.Background()), &perr)

	require.NoError(t, s.SetRawText(`{"version": 3, "instructions": {"es": "", "zh": ""}, "questions": [{"type": "true_false", "question": "¿Sí?"}]}`))
	require.NoError(t, s.Save(context.Background()))

	v := s.Snapshot()
	assert.Equal(t, ModeRaw, v.Mode)
	assert.False(t, v.Dirty)
	assert.Equal(t, 3, v.Document.Version)
	assert.Equal(t, []int{3}, v.Versions)
}

func TestDeleteVersionReopens(t *testing.T) {
	store := &mockStore{}
	store.On("DeleteDocument", mock.Anything, 42, 2).Return(nil)
	store.On("ListVersions", mock.Anything, 42).Return([]int{1}, nil)
	store.On("GetDocument", mock.Anything, 42, 1).Return(storedDocument(1), nil)

	s, _ := newTestSession(store)
	require.NoError(t, s.DeleteVersion(context.Background(), 2, false))

	v := s.Snapshot()
	assert.Equal(t, 1, v.Document.Version)
	assert.Equal(t, []int{1}, v.Versions)
	store.AssertExpectations(t)
}

func TestCloseRequiresConfirmWhenDirty(t *testing.T) {
	s, _ := newTestSession(&mockStore{})
	require.NoError(t, s.SetInstructions("  hola ", ""))
	assert.Equal(t, "hola", s.Snapshot().Document.Instructions.ES)

	assert.ErrorIs(t, s.Close(false), ErrUnsavedChanges)
	require.NoError(t, s.Close(true))
	assert.True(t, s.Snapshot().Closed)

	_, err := s.AddBlock(document.TypeTrueFalse)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDraftRestore(t *testing.T) {
	s, _ := newTestSession(&mockStore{})
	_, err := s.AddBlock(document.TypeMatching)
	require.NoError(t, err)
	_, err = s.Apply(Command{Op: OpSetPair, Block: 0, Index: intPtr(0), Number: intPtr(2)})
	require.NoError(t, err)

	draft := s.Draft()
	restored := RestoreSession(draft, &mockStore{}, nil, zerolog.Nop())

	got := restored.Snapshot()
	want := s.Snapshot()
	assert.Equal(t, want.Document, got.Document)
	assert.Equal(t, want.Selected, got.Selected)
	assert.True(t, got.Dirty)
	assert.Equal(t, "s-1", restored.ID())
}

func TestCommandsRequireIndexAndSide(t *testing.T) {
	s, _ := newTestSession(&mockStore{})
	_, err := s.AddBlock(document.TypeMatching)
	require.NoError(t, err)
	_, err = s.AddBlock(document.TypeFillInBlank)
	require.NoError(t, err)
	_, err = s.Apply(Command{Op: OpAddAnswer, Block: 1})
	require.NoError(t, err)

	for _, cmd := range []Command{
		{Op: OpAddItem, Block: 0},
		{Op: OpAddItem, Block: 0, Side: "middle"},
		{Op: OpSetItem, Block: 0, Index: intPtr(0), Text: strPtr("x")},
		{Op: OpRemoveItem, Block: 0, Side: document.SideLeft},
		{Op: OpRemoveAnswer, Block: 1},
	} {
		changed, err := s.Apply(cmd)
		assert.ErrorIs(t, err, ErrInvalidCommand, "%s side=%q", cmd.Op, cmd.Side)
		assert.False(t, changed)
	}
	m := s.Snapshot().Document.Questions[0].(*document.Matching)
	assert.Len(t, m.LeftItems, 3)
	assert.Len(t, m.RightItems, 3)
	assert.Len(t, s.Snapshot().Document.Questions[1].(*document.FillInBlank).Answers, 2)

	changed, err := s.Apply(Command{Op: OpAddItem, Block: 0, Side: document.SideRight})
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.Apply(Command{Op: OpRemoveAnswer, Block: 1, Index: intPtr(0)})
	require.NoError(t, err)
	assert.True(t, changed)
}
