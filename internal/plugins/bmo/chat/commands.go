package chat

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/config"
	"github.com/marcus/bmo/internal/llm"
	"github.com/marcus/bmo/internal/msg"
	"github.com/marcus/bmo/internal/plugins/bmo/history"
)

const helpText = `Commands:
  /help              show this help
  /clear             start a new conversation
  /model [name|n]    list models or select one
  /ref [on|off]      toggle referencing the current note
  /prompt [name]     list prompts or select one ("/prompt clear" to unset)
  /save              save the conversation as a note
  /copy              copy the last reply to the clipboard
  /stop              cancel the reply in progress
  /history           list recent conversations
  /load <id>         reload a conversation from /history`

func (v *View) runCommand(line string) tea.Cmd {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "/help":
		v.addInfo(helpText)
	case "/clear":
		v.clear()
	case "/model":
		return v.cmdModel(arg)
	case "/ref":
		return v.cmdRef(args)
	case "/prompt":
		return v.cmdPrompt(arg)
	case "/save":
		return v.cmdSave()
	case "/copy":
		return v.cmdCopy()
	case "/stop":
		if !v.pending {
			v.addInfo("Nothing to stop.")
			return nil
		}
		v.stop()
	case "/history":
		v.cmdHistory()
	case "/load":
		v.cmdLoad(arg)
	default:
		v.addInfo(fmt.Sprintf("Unknown command %s. Type /help for the list.", fields[0]))
	}
	return nil
}

func (v *View) clear() {
	if v.pending {
		v.stop()
	}
	v.entries = nil
	v.session = ""
	v.cache = make(map[renderKey]string)
	v.dirty = true
}

func (v *View) cmdModel(arg string) tea.Cmd {
	s := v.current()
	if arg == "" {
		if len(s.AllModels) == 0 {
			v.addInfo(fmt.Sprintf("Current model: %s\nNo model list yet. Run \"Refresh models\" from the command palette.", orNone(s.Model)))
			return nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Current model: %s\n", orNone(s.Model))
		for i, m := range s.AllModels {
			marker := " "
			if m == s.Model {
				marker = "*"
			}
			fmt.Fprintf(&b, "%s %d. %s\n", marker, i+1, m)
		}
		v.addInfo(strings.TrimRight(b.String(), "\n"))
		return nil
	}

	model := arg
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(s.AllModels) {
			v.addInfo(fmt.Sprintf("No model number %d.", n))
			return nil
		}
		model = s.AllModels[n-1]
	}
	cmd := v.updateSettings(func(s *config.Settings) { s.Model = model }, "Model set to "+model+".")
	v.recordModel(model)
	return cmd
}

func (v *View) cmdRef(args []string) tea.Cmd {
	on := !v.current().AllowReferenceCurrentNote
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on", "true", "1":
			on = true
		case "off", "false", "0":
			on = false
		default:
			v.addInfo("Usage: /ref [on|off]")
			return nil
		}
	}
	state := "off"
	if on {
		state = "on"
	}
	return v.updateSettings(func(s *config.Settings) { s.AllowReferenceCurrentNote = on }, "Reference current note: "+state+".")
}

func (v *View) cmdPrompt(arg string) tea.Cmd {
	s := v.current()
	switch strings.ToLower(arg) {
	case "":
		names, err := v.promptNames(s)
		if err != nil {
			v.addError(err)
			return nil
		}
		if len(names) == 0 {
			v.addInfo("No prompts found. Set a prompt folder in the settings.")
			return nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Current prompt: %s\n", orNone(s.Prompt))
		for _, n := range names {
			fmt.Fprintf(&b, "  %s\n", n)
		}
		v.addInfo(strings.TrimRight(b.String(), "\n"))
		return nil
	case "clear", "none", "off":
		return v.updateSettings(func(s *config.Settings) { s.Prompt = "" }, "Prompt cleared.")
	}

	names, err := v.promptNames(s)
	if err != nil {
		v.addError(err)
		return nil
	}
	want := strings.TrimSuffix(arg, ".md")
	for _, n := range names {
		if strings.EqualFold(n, want) {
			return v.updateSettings(func(s *config.Settings) { s.Prompt = n }, "Prompt set to "+n+".")
		}
	}
	v.addInfo(fmt.Sprintf("No prompt named %q.", arg))
	return nil
}

// promptNames lists the notes directly inside the prompt folder.
func (v *View) promptNames(s *config.Settings) ([]string, error) {
	if v.deps.Vault == nil || strings.TrimSpace(s.PromptFolderPath) == "" {
		return nil, nil
	}
	folder := strings.Trim(path.Clean("/"+s.PromptFolderPath), "/")
	files, err := v.deps.Vault.List()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range files {
		if f.Parent() == folder {
			names = append(names, f.Basename())
		}
	}
	return names, nil
}

func (v *View) cmdSave() tea.Cmd {
	f, err := v.SaveTranscript(time.Now())
	if err != nil {
		if errors.Is(err, errEmptyTranscript) {
			v.addInfo("Nothing to save yet.")
			return nil
		}
		v.addError(err)
		return nil
	}
	v.addInfo("Saved to " + f.Path + ".")
	return msg.ShowNotice("Chat saved to "+f.Path, msg.DefaultNoticeDuration)
}

func (v *View) cmdCopy() tea.Cmd {
	for i := len(v.entries) - 1; i >= 0; i-- {
		e := v.entries[i]
		if e.kind != entryMessage || e.msg.Role != llm.RoleAssistant {
			continue
		}
		if v.deps.Clipboard == nil {
			v.addInfo("Clipboard is not available.")
			return nil
		}
		if err := v.deps.Clipboard(e.msg.Content); err != nil {
			v.addError(fmt.Errorf("copy: %w", err))
			return nil
		}
		return msg.ShowNotice("Copied reply to clipboard", msg.DefaultNoticeDuration)
	}
	v.addInfo("No reply to copy.")
	return nil
}

func (v *View) cmdHistory() {
	if v.deps.History == nil {
		v.addInfo("Chat history is not available.")
		return
	}
	ctx, cancel := context.WithTimeout(v.ctx, 2*time.Second)
	defer cancel()
	sessions, err := v.deps.History.RecentSessions(ctx, 10)
	if err != nil {
		v.addError(err)
		return
	}
	if len(sessions) == 0 {
		v.addInfo("No saved conversations.")
		return
	}
	var b strings.Builder
	b.WriteString("Recent conversations:\n")
	for _, sess := range sessions {
		fmt.Fprintf(&b, "  %s  %s  %s\n", shortID(sess.ID), sess.UpdatedAt.Local().Format("2006-01-02 15:04"), orNone(sess.Title))
	}
	b.WriteString("Use /load <id> to reopen one.")
	v.addInfo(b.String())
}

func (v *View) cmdLoad(arg string) {
	if v.deps.History == nil {
		v.addInfo("Chat history is not available.")
		return
	}
	if arg == "" {
		v.addInfo("Usage: /load <id>")
		return
	}
	ctx, cancel := context.WithTimeout(v.ctx, 2*time.Second)
	defer cancel()
	sessions, err := v.deps.History.RecentSessions(ctx, 200)
	if err != nil {
		v.addError(err)
		return
	}
	var match *history.Session
	for i := range sessions {
		if strings.HasPrefix(sessions[i].ID, arg) {
			match = &sessions[i]
			break
		}
	}
	if match == nil {
		v.addInfo(fmt.Sprintf("No conversation %q.", arg))
		return
	}
	stored, err := v.deps.History.Messages(ctx, match.ID)
	if err != nil {
		v.addError(err)
		return
	}

	if v.pending {
		v.stop()
	}
	v.entries = v.entries[:0]
	for _, e := range stored {
		v.entries = append(v.entries, entry{kind: entryMessage, msg: e.Message})
	}
	v.session = match.ID
	v.dirty = true
	v.ScrollToBottom()
}

// updateSettings applies fn through the shared store and persists it.
func (v *View) updateSettings(fn func(*config.Settings), confirm string) tea.Cmd {
	v.deps.Settings.Update(fn)
	v.dirty = true
	if v.deps.SaveSettings != nil {
		if err := v.deps.SaveSettings(); err != nil {
			v.addError(fmt.Errorf("save settings: %w", err))
			return nil
		}
	}
	v.addInfo(confirm)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
