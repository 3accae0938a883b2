package chat

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/marcus/bmo/internal/config"
	"github.com/marcus/bmo/internal/llm"
	"github.com/marcus/bmo/internal/styles"
	"github.com/marcus/bmo/internal/vault"
)

var errEmptyTranscript = errors.New("transcript is empty")

// renderKey identifies a rendered markdown block.
type renderKey struct {
	hash  uint64
	width int
}

// Render draws the panel into width x height cells.
func (v *View) Render(width, height int) string {
	v.Resize(width, height)
	v.refresh()

	s := v.current()
	bg := styles.ResolveColor(s.ChatbotContainerBackgroundColor, styles.BgSecondary)

	var parts []string
	if s.AllowHeader {
		parts = append(parts, v.renderHeader(s, width))
	}
	parts = append(parts, v.vp.View())
	if v.visible {
		parts = append(parts, lipgloss.NewStyle().PaddingLeft(1).Render(v.input.View()))
	} else {
		parts = append(parts, strings.Repeat("\n", inputHeight-1))
	}
	parts = append(parts, v.renderStatus(width))

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		MaxHeight(height).
		Background(bg).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (v *View) renderHeader(s *config.Settings, width int) string {
	title := styles.ChatHeader.Render(s.ChatbotName)
	info := []string{orNone(s.Model)}
	if s.AllowReferenceCurrentNote {
		if v.refFile.Path != "" {
			info = append(info, "ref: "+v.refFile.Basename())
		} else {
			info = append(info, "ref: no note")
		}
	}
	line := title + styles.Muted.Render(" · "+strings.Join(info, " · "))
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}

func (v *View) renderStatus(width int) string {
	var status string
	switch {
	case v.pending:
		status = v.spin.View() + styles.Muted.Render(" "+v.current().ChatbotName+" is typing… esc to stop")
	case v.focused && v.visible:
		status = styles.KeyHint.Render("enter send · alt+enter newline · /help")
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(status)
}

// refresh re-renders the transcript into the viewport when something
// changed. A viewport that was at the bottom stays there.
func (v *View) refresh() {
	v.vp.Height = max(v.height-v.chromeHeight(), 1)
	if !v.dirty {
		return
	}
	v.dirty = false
	atBottom := v.vp.AtBottom() || v.vp.TotalLineCount() == 0
	v.vp.SetContent(v.renderTranscript(v.vp.Width))
	if atBottom {
		v.vp.GotoBottom()
	}
}

func (v *View) renderTranscript(width int) string {
	s := v.current()
	userBg := styles.ResolveColor(s.UserMessageBackgroundColor, styles.BgPrimary)
	botBg := styles.ResolveColor(s.BotMessageBackgroundColor, styles.BgSecondary)
	inner := max(width-4, 10)

	var blocks []string
	for _, e := range v.entries {
		switch e.kind {
		case entryInfo:
			blocks = append(blocks, styles.Muted.Render(wordwrap.String(e.msg.Content, inner)))
		case entryError:
			blocks = append(blocks, styles.ErrText.Render(wordwrap.String(e.msg.Content, inner)))
		case entryMessage:
			blocks = append(blocks, v.renderMessage(s, e.msg, userBg, botBg, inner))
		}
	}
	if v.pending && v.partial != "" {
		blocks = append(blocks, v.renderMessage(s, llm.Assistant(v.partial), userBg, botBg, inner))
	}
	if len(blocks) == 0 {
		return styles.Subtle.Render(fmt.Sprintf("Ask %s anything. Type /help for commands.", s.ChatbotName))
	}
	return strings.Join(blocks, "\n\n")
}

func (v *View) renderMessage(s *config.Settings, m llm.Message, userBg, botBg lipgloss.Color, width int) string {
	var label, body string
	bg := botBg
	if m.Role == llm.RoleUser {
		bg = userBg
		label = styles.UserLabel.Render(s.UserName)
		body = wordwrap.String(m.Content, width)
	} else {
		label = styles.BotLabel.Render(s.ChatbotName)
		body = v.markdown(m.Content, width)
	}
	return styles.MessageBlock.
		Width(width + 2).
		Background(bg).
		Foreground(styles.ReadableOn(bg)).
		Render(label + "\n" + body)
}

// markdown renders content with glamour, caching by content and width.
func (v *View) markdown(content string, width int) string {
	key := renderKey{hash: xxhash.Sum64String(content), width: width}
	if out, ok := v.cache[key]; ok {
		return out
	}
	if v.renderer == nil || v.rendererWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath(styles.CurrentMarkdownTheme),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			v.logger.Debug("chat: markdown renderer", "err", err)
			return wordwrap.String(content, width)
		}
		v.renderer, v.rendererWidth = r, width
	}
	out, err := v.renderer.Render(content)
	if err != nil {
		return wordwrap.String(content, width)
	}
	out = strings.Trim(out, "\n")
	v.cache[key] = out
	return out
}

// SaveTranscript writes the conversation to a new note under the chat
// history folder, prefixed with the template note when one is set.
func (v *View) SaveTranscript(now time.Time) (vault.File, error) {
	if v.deps.Vault == nil {
		return vault.File{}, errors.New("no vault")
	}
	messages := v.Transcript()
	if len(messages) == 0 {
		return vault.File{}, errEmptyTranscript
	}
	s := v.current()

	var b strings.Builder
	if tpl := strings.TrimSpace(s.TemplateFilePath); tpl != "" {
		f, err := v.deps.Vault.File(tpl)
		if err != nil {
			return vault.File{}, fmt.Errorf("template: %w", err)
		}
		content, err := v.deps.Vault.Read(f)
		if err != nil {
			return vault.File{}, fmt.Errorf("template: %w", err)
		}
		b.WriteString(strings.TrimRight(content, "\n"))
		b.WriteString("\n\n")
	}
	for _, m := range messages {
		name := s.ChatbotName
		if m.Role == llm.RoleUser {
			name = s.UserName
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", name, strings.TrimSpace(m.Content))
	}

	folder := strings.Trim(path.Clean("/"+s.ChatHistoryPath), "/")
	if folder != "" {
		if err := v.deps.Vault.EnsureFolder(folder); err != nil {
			return vault.File{}, fmt.Errorf("chat history folder: %w", err)
		}
	}
	name := fmt.Sprintf("%s %s.md", s.ChatbotName, now.Format("2006-01-02 150405"))
	return v.deps.Vault.Create(path.Join(folder, name), strings.TrimRight(b.String(), "\n")+"\n")
}
