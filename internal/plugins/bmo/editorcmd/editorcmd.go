// Package editorcmd implements the two note commands: generating a title
// for a note and answering the selected text inline.
package editorcmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/marcus/bmo/internal/config"
	"github.com/marcus/bmo/internal/llm"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

var (
	ErrNoActiveNote = errors.New("no active note")
	ErrEmptyNote    = errors.New("note is empty")
	ErrNoSelection  = errors.New("nothing selected")
	ErrEmptyTitle   = errors.New("model returned an empty title")
)

// TitleSystemPrompt is the fixed instruction of the rename command.
const TitleSystemPrompt = "You are a title generator. You will give succinct titles that do not contain backslashes, forward slashes, colons, or other characters invalid in a file name. Only generate a title as your response."

// Sender performs one model round trip for the selected model.
type Sender interface {
	Send(ctx context.Context, s *config.Settings, messages []llm.Message, onDelta func(string)) (string, error)
}

// Notes is the vault surface the commands touch.
type Notes interface {
	Read(f vault.File) (string, error)
	Rename(f vault.File, newPath string) (vault.File, error)
}

// Deps are the collaborators of a command invocation.
type Deps struct {
	Sender    Sender
	Settings  func() *config.Settings
	Notes     Notes
	Clipboard func(string) error
	Logger    *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Target is the note a command acts on. Editor is nil when the note is not
// open in an editor.
type Target struct {
	File   vault.File
	Editor *workspace.Editor
}

// Valid reports whether the target names a note.
func (t Target) Valid() bool { return t.File.Path != "" }

// ActiveTarget builds a target from the workspace's current focus.
func ActiveTarget(ws *workspace.Workspace) Target {
	var t Target
	if ed, ok := ws.ActiveEditor(); ok {
		t.Editor = ed
		t.File = ed.File()
		return t
	}
	if f, ok := ws.ActiveFile(); ok {
		t.File = f
	}
	return t
}

// FileTarget targets f, reusing the active editor when it holds f.
func FileTarget(ws *workspace.Workspace, f vault.File) Target {
	t := Target{File: f}
	if ed, ok := ws.ActiveEditor(); ok && ed.File() == f {
		t.Editor = ed
	}
	return t
}

// RenameTitle asks the model for a title and renames the note to it within
// its folder. The note is untouched on any failure.
func RenameTitle(ctx context.Context, d Deps, t Target) (vault.File, error) {
	if !t.Valid() {
		return vault.File{}, ErrNoActiveNote
	}

	var content string
	if t.Editor != nil {
		content = t.Editor.Content()
	} else {
		var err error
		if content, err = d.Notes.Read(t.File); err != nil {
			return vault.File{}, fmt.Errorf("read note: %w", err)
		}
	}
	if strings.TrimSpace(content) == "" {
		return vault.File{}, ErrEmptyNote
	}

	reply, err := d.Sender.Send(ctx, d.Settings(), []llm.Message{
		llm.System(TitleSystemPrompt),
		llm.User(content),
	}, nil)
	if err != nil {
		return vault.File{}, err
	}

	title := SanitizeTitle(reply)
	if title == "" {
		return vault.File{}, ErrEmptyTitle
	}
	newPath := title + ".md"
	if dir := t.File.Parent(); dir != "" {
		newPath = path.Join(dir, newPath)
	}

	renamed, err := d.Notes.Rename(t.File, newPath)
	if err != nil {
		return vault.File{}, fmt.Errorf("rename note: %w", err)
	}
	if t.Editor != nil {
		t.Editor.SetFile(renamed)
	}
	d.logger().Info("editorcmd: renamed note", "from", t.File.Path, "to", renamed.Path)
	return renamed, nil
}

// PromptSelectGenerate sends the selection, or the cursor line when nothing
// is selected, and inserts the reply below it. The reply is also copied to
// the clipboard; a clipboard failure does not fail the command.
func PromptSelectGenerate(ctx context.Context, d Deps, t Target) (string, error) {
	if !t.Valid() || t.Editor == nil {
		return "", ErrNoActiveNote
	}

	prompt := t.Editor.Selection()
	if strings.TrimSpace(prompt) == "" {
		prompt = t.Editor.CurrentLine()
	}
	if strings.TrimSpace(prompt) == "" {
		return "", ErrNoSelection
	}

	s := d.Settings()
	reply, err := d.Sender.Send(ctx, s, []llm.Message{
		llm.System(s.SystemRolePromptSelectGenerate),
		llm.User(prompt),
	}, nil)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", llm.ErrEmptyResponse
	}

	if err := t.Editor.InsertAfterSelection(reply); err != nil {
		return "", fmt.Errorf("insert reply: %w", err)
	}
	if d.Clipboard != nil {
		if err := d.Clipboard(reply); err != nil {
			d.logger().Debug("editorcmd: clipboard unavailable", "err", err)
		}
	}
	return reply, nil
}
