package chat

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/config"
	"github.com/marcus/bmo/internal/llm"
)

type entryKind int

const (
	entryMessage entryKind = iota
	entryInfo
	entryError
)

type entry struct {
	kind entryKind
	msg  llm.Message
}

// streamChunkMsg carries one streamed delta.
type streamChunkMsg struct {
	leaf  string
	req   int
	delta string
	next  <-chan tea.Msg
}

// replyMsg ends a request.
type replyMsg struct {
	leaf  string
	req   int
	reply string
	err   error
}

// Update handles keys while focused and the request lifecycle messages.
func (v *View) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case streamChunkMsg:
		if msg.leaf != string(v.id) || msg.req != v.reqID || !v.pending {
			return nil
		}
		v.partial += msg.delta
		v.dirty = true
		return waitFor(msg.next)

	case replyMsg:
		if msg.leaf != string(v.id) || msg.req != v.reqID || !v.pending {
			return nil
		}
		v.finishRequest(msg.reply, msg.err)
		return nil

	case spinner.TickMsg:
		if !v.pending {
			return nil
		}
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		v.vp, cmd = v.vp.Update(msg)
		return cmd

	case tea.KeyMsg:
		if !v.focused {
			return nil
		}
		return v.handleKey(msg)
	}

	if v.focused && v.visible {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return cmd
	}
	return nil
}

func (v *View) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Stop):
		if v.pending {
			v.stop()
		}
		return nil
	case key.Matches(msg, keys.PageUp):
		v.vp.HalfPageUp()
		return nil
	case key.Matches(msg, keys.PageDown):
		v.vp.HalfPageDown()
		return nil
	case key.Matches(msg, keys.Send):
		if !v.visible {
			return nil
		}
		text := strings.TrimSpace(v.input.Value())
		if text == "" {
			return nil
		}
		v.input.Reset()
		return v.Submit(text)
	}

	if !v.visible {
		return nil
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return cmd
}

// Submit handles one line of user input: a slash command or a message.
func (v *View) Submit(text string) tea.Cmd {
	if strings.HasPrefix(text, "/") {
		return v.runCommand(text)
	}
	if v.pending {
		v.addInfo("A reply is still in progress. Use /stop to cancel it.")
		return nil
	}
	user := llm.User(text)
	v.entries = append(v.entries, entry{kind: entryMessage, msg: user})
	v.dirty = true
	v.record(user)
	return v.startRequest()
}

func (v *View) startRequest() tea.Cmd {
	s := v.current()
	messages, err := v.buildMessages(s)
	if err != nil {
		v.addError(err)
		return nil
	}

	v.reqID++
	v.pending = true
	v.partial = ""
	ctx, cancel := context.WithCancel(v.ctx)
	v.cancelReq = cancel

	leaf, req := string(v.id), v.reqID
	ch := make(chan tea.Msg, 16)
	send := func(m tea.Msg) bool {
		select {
		case ch <- m:
			return true
		case <-ctx.Done():
			return false
		}
	}
	sender := v.deps.Sender
	go func() {
		defer close(ch)
		defer cancel()
		reply, err := sender.Send(ctx, s, messages, func(delta string) {
			send(streamChunkMsg{leaf: leaf, req: req, delta: delta, next: ch})
		})
		send(replyMsg{leaf: leaf, req: req, reply: reply, err: err})
	}()

	v.logger.Debug("chat: request", "model", s.Model, "messages", len(messages))
	return tea.Batch(v.spin.Tick, waitFor(ch))
}

// waitFor delivers the next message of a request.
func waitFor(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		m, ok := <-ch
		if !ok {
			return nil
		}
		return m
	}
}

func (v *View) finishRequest(reply string, err error) {
	v.pending = false
	v.cancelReq = nil
	partial := v.partial
	v.partial = ""
	v.dirty = true

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		if strings.TrimSpace(partial) != "" {
			v.entries = append(v.entries, entry{kind: entryMessage, msg: llm.Assistant(partial)})
		}
		v.addError(err)
		v.logger.Warn("chat: request failed", "err", err)
		return
	}
	if reply == "" {
		reply = partial
	}
	assistant := llm.Assistant(reply)
	v.entries = append(v.entries, entry{kind: entryMessage, msg: assistant})
	v.record(assistant)
}

// stop cancels the in-flight request. Chunks that still arrive are
// dropped because the request id moves on.
func (v *View) stop() {
	if v.cancelReq != nil {
		v.cancelReq()
		v.cancelReq = nil
	}
	partial := v.partial
	v.reqID++
	v.pending = false
	v.partial = ""
	if strings.TrimSpace(partial) != "" {
		v.entries = append(v.entries, entry{kind: entryMessage, msg: llm.Assistant(partial)})
	}
	v.addInfo("Stopped.")
}

// buildMessages assembles the system prompt and the conversation.
func (v *View) buildMessages(s *config.Settings) ([]llm.Message, error) {
	system := s.SystemRole
	if prompt, err := v.promptContent(s); err != nil {
		v.logger.Warn("chat: read prompt", "prompt", s.Prompt, "err", err)
	} else if prompt != "" {
		system = strings.TrimSpace(system + "\n\n" + prompt)
	}
	if s.AllowReferenceCurrentNote && v.refFile.Path != "" && v.deps.Vault != nil {
		content, err := v.deps.Vault.Read(v.refFile)
		if err != nil {
			return nil, fmt.Errorf("read referenced note: %w", err)
		}
		system = strings.TrimSpace(system + "\n\nThe user is currently viewing the note \"" + v.refFile.Basename() + "\":\n\n" + content)
	}

	messages := make([]llm.Message, 0, len(v.entries)+1)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, llm.System(system))
	}
	return append(messages, v.Transcript()...), nil
}

func (v *View) promptContent(s *config.Settings) (string, error) {
	if s.Prompt == "" || v.deps.Vault == nil {
		return "", nil
	}
	name := s.Prompt
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	f, err := v.deps.Vault.File(path.Join(s.PromptFolderPath, name))
	if err != nil {
		return "", err
	}
	return v.deps.Vault.Read(f)
}

// record mirrors a message into the history store.
func (v *View) record(m llm.Message) {
	store := v.deps.History
	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(v.ctx, 2*time.Second)
	defer cancel()
	if v.session == "" {
		sess, err := store.CreateSession(ctx, v.current().Model)
		if err != nil {
			v.logger.Warn("chat: create history session", "err", err)
			return
		}
		v.session = sess.ID
	}
	if err := store.AppendMessage(ctx, v.session, m); err != nil {
		v.logger.Warn("chat: append history", "session", v.session, "err", err)
	}
}

// recordModel notes a model switch on the current history session.
func (v *View) recordModel(model string) {
	store := v.deps.History
	if store == nil || v.session == "" {
		return
	}
	ctx, cancel := context.WithTimeout(v.ctx, 2*time.Second)
	defer cancel()
	if err := store.SetModel(ctx, v.session, model); err != nil {
		v.logger.Warn("chat: record model", "session", v.session, "err", err)
	}
}

func (v *View) addInfo(text string) {
	v.entries = append(v.entries, entry{kind: entryInfo, msg: llm.Message{Content: text}})
	v.dirty = true
}

func (v *View) addError(err error) {
	text := err.Error()
	if llm.IsConfigError(err) {
		text += " (check the plugin settings)"
	}
	v.entries = append(v.entries, entry{kind: entryError, msg: llm.Message{Content: text}})
	v.dirty = true
}
