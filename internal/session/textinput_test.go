package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atvremote/internal/bplist"
	"atvremote/internal/opack"
)

func buildFocusedArchive(t *testing.T, sessionUUID []byte, contextBeforeInput string) []byte {
	t.Helper()
	archive := bplist.NewArchive("RTIKeyedArchiver")

	docSt := bplist.NewDict()
	docSt.Set("contextBeforeInput", archive.AddObject(contextBeforeInput))
	docStUID := archive.AddObject(docSt)

	documentState := bplist.NewDict()
	documentState.Set("docSt", docStUID)
	documentStateUID := archive.AddObject(documentState)

	root := bplist.NewDict()
	root.Set("sessionUUID", archive.AddObject(sessionUUID))
	root.Set("documentState", documentStateUID)
	rootUID := archive.AddObject(root)

	archive.SetRoot("root", rootUID)
	b, err := archive.Marshal()
	require.NoError(t, err)
	return b
}

func TestTextInputCommandNotFocusedWhenTiDAbsent(t *testing.T) {
	fc := newFakeCommander()
	s := New(fc, []byte{0x01}, "client", "model")

	got, err := s.TextInputCommand(context.Background(), "hello", false)
	require.NoError(t, err)
	assert.Equal(t, NotFocused, got)
	assert.Equal(t, []string{"_tiStop", "_tiStart"}, fc.commandIdentifiers())
}

func TestTextInputCommandAppendsToExistingContext(t *testing.T) {
	fc := newFakeCommander()
	sessionUUID := make([]byte, 16)
	for i := range sessionUUID {
		sessionUUID[i] = byte(i)
	}
	archiveBytes := buildFocusedArchive(t, sessionUUID, "existing ")
	fc.responses["_tiStart"] = opack.NewMap().Set("_tiD", archiveBytes)

	s := New(fc, []byte{0x01}, "client", "model")
	got, err := s.TextInputCommand(context.Background(), "text", false)
	require.NoError(t, err)
	assert.Equal(t, "existing text", got)
	require.Len(t, fc.eventCalls, 1)
	assert.Equal(t, "_tiC", fc.eventCalls[0].identifier)
}

func TestTextInputCommandClearExistingDropsPriorContext(t *testing.T) {
	fc := newFakeCommander()
	sessionUUID := make([]byte, 16)
	archiveBytes := buildFocusedArchive(t, sessionUUID, "old text")
	fc.responses["_tiStart"] = opack.NewMap().Set("_tiD", archiveBytes)

	s := New(fc, []byte{0x01}, "client", "model")
	got, err := s.TextInputCommand(context.Background(), "new", true)
	require.NoError(t, err)
	assert.Equal(t, "new", got)
	require.Len(t, fc.eventCalls, 2)
	for _, call := range fc.eventCalls {
		assert.Equal(t, "_tiC", call.identifier)
	}
}

func TestTextInputCommandEmptyTextSendsNoInputEvent(t *testing.T) {
	fc := newFakeCommander()
	sessionUUID := make([]byte, 16)
	archiveBytes := buildFocusedArchive(t, sessionUUID, "context")
	fc.responses["_tiStart"] = opack.NewMap().Set("_tiD", archiveBytes)

	s := New(fc, []byte{0x01}, "client", "model")
	got, err := s.TextInputCommand(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, "context", got)
	assert.Empty(t, fc.eventCalls)
}

func TestTextInputCommandLeniencyWhenContextBeforeInputMissing(t *testing.T) {
	fc := newFakeCommander()
	sessionUUID := make([]byte, 16)
	archive := bplist.NewArchive("RTIKeyedArchiver")
	root := bplist.NewDict()
	root.Set("sessionUUID", archive.AddObject(sessionUUID))
	rootUID := archive.AddObject(root)
	archive.SetRoot("root", rootUID)
	archiveBytes, err := archive.Marshal()
	require.NoError(t, err)

	fc.responses["_tiStart"] = opack.NewMap().Set("_tiD", archiveBytes)
	s := New(fc, []byte{0x01}, "client", "model")

	got, err := s.TextInputCommand(context.Background(), "abc", false)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}
