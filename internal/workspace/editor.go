package workspace

import (
	"strings"
	"sync"

	"github.com/marcus/bmo/internal/vault"
)

// Editor is the line buffer behind a note view. Selection is a line range
// between an anchor and the cursor. It is safe for concurrent use so
// commands running off the update loop can read and write it.
type Editor struct {
	mu     sync.Mutex
	file   vault.File
	lines  []string
	cursor int
	anchor int // -1 when nothing is selected
	save   func(vault.File, string) error
}

// NewEditor returns an editor over content. save persists the buffer.
func NewEditor(f vault.File, content string, save func(vault.File, string) error) *Editor {
	return &Editor{
		file:   f,
		lines:  splitLines(content),
		anchor: -1,
		save:   save,
	}
}

func splitLines(content string) []string {
	return strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
}

// File returns the note being edited.
func (e *Editor) File() vault.File {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.file
}

// SetFile updates the note path after a rename.
func (e *Editor) SetFile(f vault.File) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.file = f
}

// Content returns the whole buffer.
func (e *Editor) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return strings.Join(e.lines, "\n")
}

// Reload replaces the buffer after an external change, keeping the cursor
// in range and dropping the selection.
func (e *Editor) Reload(content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lines = splitLines(content)
	e.cursor = min(e.cursor, len(e.lines)-1)
	e.anchor = -1
}

// LineCount returns the number of lines in the buffer.
func (e *Editor) LineCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.lines)
}

// Cursor returns the cursor line.
func (e *Editor) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// SetCursor moves the cursor, clamped to the buffer.
func (e *Editor) SetCursor(line int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursor = max(0, min(line, len(e.lines)-1))
}

// StartSelection anchors a selection at the cursor.
func (e *Editor) StartSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.anchor = e.cursor
}

// ClearSelection drops the selection.
func (e *Editor) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.anchor = -1
}

// SelectLines selects the inclusive line range and puts the cursor at to.
func (e *Editor) SelectLines(from, to int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	last := len(e.lines) - 1
	e.anchor = max(0, min(from, last))
	e.cursor = max(0, min(to, last))
}

// SelectionRange returns the selected inclusive line range.
func (e *Editor) SelectionRange() (from, to int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectionLocked()
}

func (e *Editor) selectionLocked() (from, to int, ok bool) {
	if e.anchor < 0 {
		return 0, 0, false
	}
	from, to = e.anchor, e.cursor
	if from > to {
		from, to = to, from
	}
	return from, to, true
}

// Selection returns the selected text, "" when nothing is selected.
func (e *Editor) Selection() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	from, to, ok := e.selectionLocked()
	if !ok {
		return ""
	}
	return strings.Join(e.lines[from:to+1], "\n")
}

// CurrentLine returns the text of the cursor line.
func (e *Editor) CurrentLine() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lines[e.cursor]
}

// InsertAfterSelection inserts text below the selection (or the cursor line)
// separated by a blank line, then saves. On save failure the buffer is
// restored.
func (e *Editor) InsertAfterSelection(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	end := e.cursor
	if e.anchor > end {
		end = e.anchor
	}

	inserted := append([]string{""}, splitLines(text)...)
	next := make([]string, 0, len(e.lines)+len(inserted))
	next = append(next, e.lines[:end+1]...)
	next = append(next, inserted...)
	next = append(next, e.lines[end+1:]...)

	if e.save != nil {
		if err := e.save(e.file, strings.Join(next, "\n")); err != nil {
			return err
		}
	}
	e.lines = next
	e.anchor = -1
	e.cursor = end + len(inserted)
	return nil
}
