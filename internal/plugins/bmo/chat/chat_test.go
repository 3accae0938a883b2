package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/bmo/internal/config"
	"github.com/marcus/bmo/internal/llm"
	"github.com/marcus/bmo/internal/plugins/bmo/history"
	"github.com/marcus/bmo/internal/vault"
	"github.com/marcus/bmo/internal/workspace"
)

type memData struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func (m *memData) LoadData() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *memData) SaveData(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.saves++
	return nil
}

type fakeSender struct {
	mu     sync.Mutex
	got    [][]llm.Message
	deltas []string
	reply  string
	err    error
	block  bool
	done   chan error
}

func (f *fakeSender) Send(ctx context.Context, s *config.Settings, messages []llm.Message, onDelta func(string)) (string, error) {
	f.mu.Lock()
	f.got = append(f.got, messages)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		if f.done != nil {
			f.done <- ctx.Err()
		}
		return "", ctx.Err()
	}
	if onDelta != nil {
		for _, d := range f.deltas {
			onDelta(d)
		}
	}
	return f.reply, f.err
}

func (f *fakeSender) last() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.got) == 0 {
		return nil
	}
	return f.got[len(f.got)-1]
}

type fixture struct {
	view   *View
	store  *config.Store
	data   *memData
	vault  *vault.Vault
	sender *fakeSender
}

func newFixture(t *testing.T, sender *fakeSender, edit func(*config.Settings)) *fixture {
	t.Helper()
	v, err := vault.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	data := &memData{}
	store := config.NewStore(data, nil)
	store.Update(func(s *config.Settings) {
		s.Model = "llama3"
		s.AllModels = []string{"llama3", "mistral"}
		if edit != nil {
			edit(s)
		}
	})

	leaf := workspace.New(v, nil).GetRightLeaf(false)
	view := New(leaf, Deps{
		Settings:     store,
		SaveSettings: store.Save,
		Sender:       sender,
		Vault:        v,
	})
	t.Cleanup(view.Cleanup)
	view.Resize(60, 20)
	view.FocusInput()
	return &fixture{view: view, store: store, data: data, vault: v, sender: sender}
}

// drain runs cmd and everything it leads to, feeding messages back into
// the view. Spinner ticks are dropped so the loop ends with the request.
func drain(t *testing.T, v *View, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	deadline := time.Now().Add(5 * time.Second)
	for len(queue) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("drain did not finish")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch m := c().(type) {
		case nil, spinner.TickMsg:
		case tea.BatchMsg:
			queue = append(queue, m...)
		default:
			queue = append(queue, v.Update(m))
		}
	}
}

func lastEntry(v *View) entry {
	return v.entries[len(v.entries)-1]
}

func TestSubmitSendsConversation(t *testing.T) {
	sender := &fakeSender{reply: "Hi there"}
	f := newFixture(t, sender, nil)

	drain(t, f.view, f.view.Submit("hello"))

	got := sender.last()
	if len(got) != 2 || got[0].Role != llm.RoleSystem || got[1].Content != "hello" {
		t.Fatalf("messages = %+v", got)
	}
	if got[0].Content != "You are a helpful assistant." {
		t.Errorf("system = %q", got[0].Content)
	}
	transcript := f.view.Transcript()
	if len(transcript) != 2 || transcript[1] != llm.Assistant("Hi there") {
		t.Errorf("transcript = %+v", transcript)
	}
	if f.view.Pending() {
		t.Error("request still pending")
	}

	drain(t, f.view, f.view.Submit("again"))
	if got := sender.last(); len(got) != 4 {
		t.Errorf("second request carried %d messages, want 4", len(got))
	}
}

func TestSubmitStreams(t *testing.T) {
	sender := &fakeSender{deltas: []string{"Hel", "lo"}, reply: "Hello"}
	f := newFixture(t, sender, nil)

	drain(t, f.view, f.view.Submit("hi"))

	if e := lastEntry(f.view); e.msg != llm.Assistant("Hello") {
		t.Errorf("last entry = %+v", e)
	}
	if f.view.partial != "" {
		t.Errorf("partial = %q, want cleared", f.view.partial)
	}
}

func TestSubmitBackendError(t *testing.T) {
	sender := &fakeSender{err: &llm.APIError{Backend: "ollama", Status: 500, Body: "boom"}}
	f := newFixture(t, sender, nil)

	drain(t, f.view, f.view.Submit("hi"))

	if n := len(f.view.Transcript()); n != 1 {
		t.Errorf("transcript has %d messages, want only the user turn", n)
	}
	e := lastEntry(f.view)
	if e.kind != entryError || !strings.Contains(e.msg.Content, "HTTP 500") {
		t.Errorf("last entry = %+v", e)
	}
}

func TestSubmitConfigErrorHint(t *testing.T) {
	sender := &fakeSender{err: llm.ErrNoModel}
	f := newFixture(t, sender, nil)

	drain(t, f.view, f.view.Submit("hi"))

	if e := lastEntry(f.view); !strings.Contains(e.msg.Content, "check the plugin settings") {
		t.Errorf("last entry = %+v", e)
	}
}

func TestStopCancelsRequest(t *testing.T) {
	sender := &fakeSender{block: true, done: make(chan error, 1)}
	f := newFixture(t, sender, nil)

	cmd := f.view.Submit("long question")
	if cmd == nil || !f.view.Pending() {
		t.Fatal("request did not start")
	}
	f.view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	if f.view.Pending() {
		t.Error("still pending after esc")
	}
	select {
	case err := <-sender.done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("sender saw %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sender was not cancelled")
	}
	if e := lastEntry(f.view); e.kind != entryInfo || e.msg.Content != "Stopped." {
		t.Errorf("last entry = %+v", e)
	}
}

func TestReferenceCurrentNote(t *testing.T) {
	sender := &fakeSender{reply: "ok"}
	f := newFixture(t, sender, func(s *config.Settings) { s.AllowReferenceCurrentNote = true })
	note, err := f.vault.Create("Ideas.md", "buy milk")
	if err != nil {
		t.Fatal(err)
	}
	f.view.SetReferencedFile(note, true)

	drain(t, f.view, f.view.Submit("what is in my note?"))

	system := sender.last()[0].Content
	if !strings.Contains(system, `"Ideas"`) || !strings.Contains(system, "buy milk") {
		t.Errorf("system = %q", system)
	}
}

func TestPromptFromFolder(t *testing.T) {
	sender := &fakeSender{reply: "ok"}
	f := newFixture(t, sender, func(s *config.Settings) { s.PromptFolderPath = "Prompts" })
	if _, err := f.vault.Create("Prompts/Pirate.md", "Talk like a pirate."); err != nil {
		t.Fatal(err)
	}

	f.view.Submit("/prompt pirate")
	if got := f.store.Snapshot().Prompt; got != "Pirate" {
		t.Fatalf("prompt = %q", got)
	}
	drain(t, f.view, f.view.Submit("hi"))
	if system := sender.last()[0].Content; !strings.HasSuffix(system, "Talk like a pirate.") {
		t.Errorf("system = %q", system)
	}
}

func TestModelCommand(t *testing.T) {
	f := newFixture(t, &fakeSender{}, nil)

	f.view.Submit("/model 2")
	if got := f.store.Snapshot().Model; got != "mistral" {
		t.Errorf("model = %q", got)
	}
	if f.data.saves != 1 {
		t.Errorf("saves = %d, want 1", f.data.saves)
	}
	if f.view.current().Model != "mistral" {
		t.Error("view did not observe the settings change")
	}

	f.view.Submit("/model 9")
	if e := lastEntry(f.view); !strings.Contains(e.msg.Content, "No model number 9") {
		t.Errorf("last entry = %+v", e)
	}
}

func TestRefCommandToggles(t *testing.T) {
	f := newFixture(t, &fakeSender{}, nil)

	f.view.Submit("/ref")
	if !f.store.Snapshot().AllowReferenceCurrentNote {
		t.Error("/ref did not toggle on")
	}
	f.view.Submit("/ref off")
	if f.store.Snapshot().AllowReferenceCurrentNote {
		t.Error("/ref off did not turn it off")
	}
}

func TestClearAndUnknownCommand(t *testing.T) {
	f := newFixture(t, &fakeSender{reply: "ok"}, nil)
	drain(t, f.view, f.view.Submit("hi"))

	f.view.Submit("/clear")
	if len(f.view.entries) != 0 {
		t.Errorf("entries = %d after /clear", len(f.view.entries))
	}
	f.view.Submit("/nope")
	if e := lastEntry(f.view); !strings.Contains(e.msg.Content, "Unknown command /nope") {
		t.Errorf("last entry = %+v", e)
	}
}

func TestCopyCommand(t *testing.T) {
	f := newFixture(t, &fakeSender{reply: "copy me"}, nil)
	var copied string
	f.view.deps.Clipboard = func(s string) error { copied = s; return nil }

	f.view.Submit("/copy")
	if e := lastEntry(f.view); e.msg.Content != "No reply to copy." {
		t.Errorf("last entry = %+v", e)
	}

	drain(t, f.view, f.view.Submit("hi"))
	if cmd := f.view.Submit("/copy"); cmd == nil {
		t.Error("expected a notice")
	}
	if copied != "copy me" {
		t.Errorf("copied = %q", copied)
	}
}

func TestSaveTranscript(t *testing.T) {
	f := newFixture(t, &fakeSender{reply: "Hello, friend."}, func(s *config.Settings) {
		s.TemplateFilePath = "Templates/Chat.md"
	})
	if _, err := f.vault.Create("Templates/Chat.md", "---\ntags: chat\n---\n"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.view.SaveTranscript(time.Now()); !errors.Is(err, errEmptyTranscript) {
		t.Fatalf("err = %v, want errEmptyTranscript", err)
	}

	drain(t, f.view, f.view.Submit("Hi BMO"))
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	file, err := f.view.SaveTranscript(now)
	if err != nil {
		t.Fatal(err)
	}
	if file.Path != "BMO/BMO 2024-01-02 030405.md" {
		t.Errorf("path = %q", file.Path)
	}
	data, err := os.ReadFile(filepath.Join(f.vault.Root(), filepath.FromSlash(file.Path)))
	if err != nil {
		t.Fatal(err)
	}
	want := "---\ntags: chat\n---\n\n### USER\n\nHi BMO\n\n### BMO\n\nHello, friend.\n"
	if string(data) != want {
		t.Errorf("content = %q\nwant %q", data, want)
	}
}

func TestHistoryLoad(t *testing.T) {
	hist, err := history.Open(history.DefaultPath(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { hist.Close() })

	f := newFixture(t, &fakeSender{reply: "Mathematical!"}, nil)
	f.view.deps.History = hist
	drain(t, f.view, f.view.Submit("Say something"))
	session := f.view.session
	if session == "" {
		t.Fatal("no history session recorded")
	}

	f.view.Submit("/clear")
	f.view.Submit("/load " + session[:8])

	transcript := f.view.Transcript()
	if len(transcript) != 2 || transcript[1].Content != "Mathematical!" {
		t.Errorf("transcript = %+v", transcript)
	}
	if f.view.session != session {
		t.Errorf("session = %q, want %q", f.view.session, session)
	}
}

func TestModelSwitchRecordedInHistory(t *testing.T) {
	hist, err := history.Open(history.DefaultPath(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { hist.Close() })

	f := newFixture(t, &fakeSender{reply: "Hi"}, nil)
	f.view.deps.History = hist
	drain(t, f.view, f.view.Submit("Hello"))

	f.view.Submit("/model mistral")
	sess, err := hist.Session(context.Background(), f.view.session)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Model != "mistral" {
		t.Errorf("session model = %q, want mistral", sess.Model)
	}
}

func TestMountedAndCleanup(t *testing.T) {
	v, err := vault.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := config.NewStore(&memData{}, nil)
	view := New(workspace.New(v, nil).GetRightLeaf(false), Deps{Settings: store, Sender: &fakeSender{}})

	select {
	case <-view.Mounted():
		t.Fatal("mounted before sizing")
	default:
	}
	view.Resize(40, 10)
	select {
	case <-view.Mounted():
	default:
		t.Fatal("not mounted after sizing")
	}

	view.Cleanup()
	view.Cleanup()
	store.Update(func(s *config.Settings) { s.ChatbotName = "Beemo" })
	if view.DisplayText() != "BMO Chatbot" {
		t.Errorf("view still follows settings after cleanup: %q", view.DisplayText())
	}
}

func TestRenderShowsHeader(t *testing.T) {
	f := newFixture(t, &fakeSender{}, nil)
	out := f.view.Render(60, 20)
	if !strings.Contains(out, "BMO") || !strings.Contains(out, "llama3") {
		t.Errorf("render missing header:\n%s", out)
	}
}
