package session

import (
	"context"

	"atvremote/internal/bplist"
	"atvremote/internal/opack"
)

// NotFocused is returned by TextInputCommand when the device has no
// focused text field to write to.
const NotFocused = "not focused"

// TextInputCommand drives one remote-text-input write: stop and
// restart the text-input session, read the device's current text
// field state, optionally clear it, optionally append text, and
// return the client-predicted resulting text.
func (s *Session) TextInputCommand(ctx context.Context, text string, clearExisting bool) (string, error) {
	if _, err := s.d.SendCommand(ctx, "_tiStop", opack.NewMap()); err != nil {
		return "", err
	}
	resp, err := s.d.SendCommand(ctx, "_tiStart", opack.NewMap())
	if err != nil {
		return "", err
	}

	content, ok := resp.(*opack.Map)
	if !ok {
		return NotFocused, nil
	}
	tiD, ok := content.Get("_tiD")
	if !ok {
		return NotFocused, nil
	}
	archiveBytes, ok := tiD.([]byte)
	if !ok || len(archiveBytes) == 0 {
		return NotFocused, nil
	}

	archive, err := bplist.ParseArchive(archiveBytes)
	if err != nil {
		return NotFocused, nil
	}
	sessionUUID, ok := archive.Resolve("root", "sessionUUID")
	sessionUUIDBytes, uuidOK := sessionUUID.([]byte)
	if !ok || !uuidOK || len(sessionUUIDBytes) != 16 {
		return NotFocused, nil
	}

	// Leniency per the documented firmware variance: an unexpected
	// contextBeforeInput shape (or an absent path) is treated as empty
	// current text rather than an error.
	contextBeforeInput, _ := archive.ResolveString("root", "documentState", "docSt", "contextBeforeInput")

	if clearExisting {
		clearArchive, err := buildClearArchive(sessionUUIDBytes)
		if err != nil {
			return "", err
		}
		tiC := opack.NewMap().Set("_tiV", uint64(1)).Set("_tiD", clearArchive)
		if err := s.d.SendEvent("_tiC", tiC); err != nil {
			return "", err
		}
		contextBeforeInput = ""
	}

	if text != "" {
		inputArchive, err := buildInputArchive(sessionUUIDBytes, text)
		if err != nil {
			return "", err
		}
		tiC := opack.NewMap().Set("_tiV", uint64(1)).Set("_tiD", inputArchive)
		if err := s.d.SendEvent("_tiC", tiC); err != nil {
			return "", err
		}
	}

	return contextBeforeInput + text, nil
}

// buildClearArchive constructs an RTI archive that replaces the
// session's entire existing text with the empty string.
func buildClearArchive(sessionUUID []byte) ([]byte, error) {
	return buildRTICommandArchive(sessionUUID, "")
}

// buildInputArchive constructs an RTI archive that appends text to
// the session's existing text.
func buildInputArchive(sessionUUID []byte, text string) ([]byte, error) {
	return buildRTICommandArchive(sessionUUID, text)
}

// buildRTICommandArchive renders the minimal RTI command shape
// _tiStart's response implies: a root dictionary carrying the session
// UUID and the text this command contributes, nested the same way the
// device's own archives nest documentState.docSt.contextBeforeInput.
func buildRTICommandArchive(sessionUUID []byte, text string) ([]byte, error) {
	archive := bplist.NewArchive("RTIKeyedArchiver")

	docSt := bplist.NewDict()
	docSt.Set("contextBeforeInput", archive.AddObject(text))
	docStUID := archive.AddObject(docSt)

	documentState := bplist.NewDict()
	documentState.Set("docSt", docStUID)
	documentStateUID := archive.AddObject(documentState)

	root := bplist.NewDict()
	root.Set("sessionUUID", archive.AddObject(append([]byte(nil), sessionUUID...)))
	root.Set("documentState", documentStateUID)
	rootUID := archive.AddObject(root)

	archive.SetRoot("root", rootUID)
	return archive.Marshal()
}
