// Package ui is the bubbletea front end: the chat transcript, the input
// area, the confirmation modal for gated tool calls, and the session/model
// pickers. It holds render snapshots only; conversation state lives in the
// agent session, which the loop mutates on its own goroutine and mirrors
// here through the emit bridge.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"quill/agent"
	"quill/config"
	"quill/model"
	"quill/storage"
	"quill/tools"
)

type pickerKind int

const (
	pickerNone pickerKind = iota
	pickerSessions
	pickerModels
	pickerSearch
)

// App is the root bubbletea model.
type App struct {
	cfg       *config.Config
	provider  model.Provider
	registry  *tools.Registry
	rules     *tools.Rules
	ruleStore tools.RuleStore
	store     *storage.SessionStorage
	index     *storage.SearchIndex

	session *agent.Session
	gateway *tools.Gateway
	loop    *agent.Loop

	program *tea.Program

	viewport viewport.Model
	textarea textarea.Model
	spin     spinner.Model

	width  int
	height int
	ready  bool

	// Transcript snapshots keyed by message id; order preserves first
	// appearance. Re-emits with a known id update in place.
	order   []string
	entries map[string]entry

	confirm    *confirmState
	picker     *Picker
	pickerMode pickerKind
	// searchByID maps picker item ids back to their search matches.
	searchByID map[string]storage.SearchMatch

	status  string
	version string
}

// New wires the app over an existing session. The gateway is built here
// because its confirmation and emit callbacks terminate in this model.
func New(cfg *config.Config, provider model.Provider, registry *tools.Registry,
	rules *tools.Rules, ruleStore tools.RuleStore,
	store *storage.SessionStorage, index *storage.SearchIndex,
	session *agent.Session, version string) *App {

	ta := textarea.New()
	ta.Placeholder = "Ask anything... (Enter to send, Ctrl+J for newline)"
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	a := &App{
		cfg:       cfg,
		provider:  provider,
		registry:  registry,
		rules:     rules,
		ruleStore: ruleStore,
		store:     store,
		index:     index,
		session:   session,
		textarea:  ta,
		spin:      sp,
		entries:   make(map[string]entry),
		version:   version,
	}

	a.gateway = tools.NewGateway(registry, rules, ruleStore, a.confirmFunc(), a.emitFunc())
	a.loop = agent.NewLoop(session, provider, registry, a.gateway, a.emitFunc(), session.SystemPrompt)
	a.rebuildFromSession()

	return a
}

// SetProgram hands the app its program handle; the emit and confirm bridges
// need it to inject messages from other goroutines.
func (a *App) SetProgram(p *tea.Program) { a.program = p }

// Gateway exposes the wired gateway, used when main assembles sub-agents
// that share the same confirmation surface.
func (a *App) Gateway() *tools.Gateway { return a.gateway }

// ConfirmFunc returns the confirmation bridge for external wiring.
func (a *App) ConfirmFunc() tools.ConfirmFunc { return a.confirmFunc() }

// EmitFunc returns the emit bridge for external wiring.
func (a *App) EmitFunc() func(model.Message) { return a.emitFunc() }

func (a *App) emitFunc() func(model.Message) {
	return func(m model.Message) {
		if a.program == nil {
			return
		}
		a.program.Send(messageMsg{entry: snapshotMessage(m)})
	}
}

func (a *App) confirmFunc() tools.ConfirmFunc {
	return func(ctx context.Context, req tools.ConfirmRequest) tools.Decision {
		if a.program == nil {
			return tools.DecisionRejectOnce
		}
		conf := tools.NewConfirmation()
		a.program.Send(confirmRequestMsg{req: req, conf: conf})
		return conf.Wait(ctx)
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, a.spin.Tick, a.renderBacklogCmds())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		a.refreshViewport(false)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		if a.anyStreaming() {
			a.refreshViewport(true)
		}
		return a, cmd

	case messageMsg:
		cmd := a.upsertEntry(msg.entry)
		a.refreshViewport(true)
		return a, cmd

	case markdownRenderedMsg:
		if e, ok := a.entries[msg.id]; ok {
			e.rendered = msg.rendered
			a.entries[msg.id] = e
			a.refreshViewport(true)
		}
		return a, nil

	case confirmRequestMsg:
		a.confirm = &confirmState{req: msg.req, conf: msg.conf}
		return a, nil

	case queryDoneMsg:
		a.refreshViewport(true)
		var cmds []tea.Cmd
		if msg.err != nil {
			a.status = msg.err.Error()
		}
		cmds = append(cmds, a.saveSessionCmd())
		if a.session.Name == "" {
			if first := a.firstUserContent(); first != "" {
				cmds = append(cmds, a.generateTitleCmd(first))
			}
		}
		return a, tea.Batch(cmds...)

	case titleGeneratedMsg:
		a.session.Name = msg.title
		return a, a.saveSessionCmd()

	case sessionSavedMsg:
		if msg.err != nil {
			a.status = "save failed: " + msg.err.Error()
		}
		return a, nil

	case modelsLoadedMsg:
		if msg.err != nil {
			a.status = "could not list models: " + msg.err.Error()
			return a, nil
		}
		items := make([]PickerItem, 0, len(msg.models))
		for _, m := range msg.models {
			items = append(items, PickerItem{ID: m.InternalName, Title: m.Name, Detail: modelDetail(m)})
		}
		a.picker = NewPicker("Select Model", "Filter models...", items)
		a.pickerMode = pickerModels
		return a, nil

	case searchResultsMsg:
		if a.pickerMode == pickerSearch && a.picker != nil {
			a.searchByID = make(map[string]storage.SearchMatch, len(msg.matches))
			items := make([]PickerItem, 0, len(msg.matches))
			for i, m := range msg.matches {
				id := fmt.Sprintf("%s/%d", m.SessionID, i)
				a.searchByID[id] = m
				items = append(items, PickerItem{ID: id, Title: m.Preview, Detail: m.SessionName})
			}
			a.picker.SetItems(items)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.confirm != nil {
		return a.handleConfirmKey(msg)
	}
	if a.picker != nil {
		return a.handlePickerKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		a.persistOnQuit()
		return a, tea.Quit

	case "enter":
		text := a.textarea.Value()
		if text == "" {
			return a, nil
		}
		if a.session.Loading() {
			a.status = "still working on the previous request"
			return a, nil
		}
		a.status = ""
		a.textarea.Reset()
		return a, a.startQueryCmd(text)

	case "ctrl+j":
		a.textarea.InsertString("\n")
		return a, nil

	case "esc":
		a.session.Cancel()
		return a, nil

	case "ctrl+z":
		a.undoLastTurn()
		return a, nil

	case "ctrl+y":
		a.copyLastAnswer()
		return a, nil

	case "ctrl+n":
		return a, a.switchToNewSession()

	case "ctrl+s":
		a.openSessionPicker()
		return a, nil

	case "ctrl+l":
		return a, a.loadModelsCmd()

	case "ctrl+f":
		a.searchByID = nil
		a.picker = NewPicker("Search Sessions", "Type to search...", nil)
		a.pickerMode = pickerSearch
		return a, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a *App) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	conf := a.confirm.conf
	switch msg.String() {
	case "y", "Y":
		conf.Decide(tools.DecisionApplyOnce)
	case "n", "N":
		conf.Decide(tools.DecisionRejectOnce)
	case "a":
		conf.Decide(tools.DecisionAlwaysAllow)
	case "A":
		conf.Decide(tools.DecisionAlwaysAllowPattern)
	case "d":
		conf.Decide(tools.DecisionAlwaysDeny)
	case "D":
		conf.Decide(tools.DecisionAlwaysDenyPattern)
	case "esc", "ctrl+c":
		conf.Cancel()
	default:
		return a, nil
	}
	a.confirm = nil
	return a, nil
}

func (a *App) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.closePicker()
		return a, nil

	case "up", "ctrl+p":
		a.picker.MoveUp()
		return a, nil

	case "down", "ctrl+n":
		a.picker.MoveDown()
		return a, nil

	case "enter":
		choice := a.picker.Selected()
		mode := a.pickerMode
		a.closePicker()
		if choice == nil {
			return a, nil
		}
		return a, a.applyPickerChoice(mode, *choice)
	}

	var cmd tea.Cmd
	*a.picker.Input(), cmd = a.picker.Input().Update(msg)
	a.picker.Refilter()

	if a.pickerMode == pickerSearch {
		return a, tea.Batch(cmd, a.searchCmd(a.picker.Query()))
	}
	return a, cmd
}

func (a *App) applyPickerChoice(mode pickerKind, choice PickerItem) tea.Cmd {
	switch mode {
	case pickerSessions:
		return a.switchToSession(choice.ID)

	case pickerModels:
		a.provider.SetModel(choice.ID)
		a.session.Model = choice.ID
		a.status = "model: " + choice.Title
		return a.saveSessionCmd()

	case pickerSearch:
		if match, ok := a.searchByID[choice.ID]; ok {
			return a.switchToSession(match.SessionID)
		}
	}
	return nil
}

func (a *App) closePicker() {
	a.picker = nil
	a.pickerMode = pickerNone
	a.searchByID = nil
}

func (a *App) View() string {
	if !a.ready {
		return "Initializing..."
	}

	if a.confirm != nil {
		return renderConfirmModal(a.confirm, a.width, a.height)
	}
	if a.picker != nil {
		return a.picker.View(a.width, a.height)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.viewport.View(),
		a.statusLine(),
		a.textarea.View(),
	)
}

func (a *App) statusLine() string {
	name := a.session.Name
	if name == "" {
		name = "new session"
	}

	left := TitleStyle.Render(name) + DimStyle.Render(fmt.Sprintf("  %s/%s", a.session.Provider, a.provider.GetModel()))
	if a.session.Loading() {
		left += "  " + a.spin.View() + DimStyle.Render(" working (Esc to cancel)")
	}
	if a.status != "" {
		left += "  " + ErrorStyle.Render(a.status)
	}

	right := DimStyle.Render("quill " + a.version + "  ^S sessions  ^L models  ^F search  ^N new  ^Z undo  ^Y copy  ^C quit")

	pad := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		return left
	}
	return left + lipgloss.NewStyle().Width(pad).Render("") + right
}

func (a *App) layout() {
	inputHeight := 3
	statusHeight := 1
	vpHeight := a.height - inputHeight - statusHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !a.ready {
		a.viewport = viewport.New(a.width, vpHeight)
		a.ready = true
	} else {
		a.viewport.Width = a.width
		a.viewport.Height = vpHeight
	}
	a.textarea.SetWidth(a.width)
}

func (a *App) refreshViewport(gotoBottom bool) {
	if !a.ready {
		return
	}
	a.viewport.SetContent(buildTranscript(a.order, a.entries, a.spin.View()))
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

// upsertEntry records a snapshot, keeping first-appearance order. Closed
// assistant content gets a markdown render pass off the update loop.
func (a *App) upsertEntry(e entry) tea.Cmd {
	if _, seen := a.entries[e.id]; !seen {
		a.order = append(a.order, e.id)
	} else {
		// Keep an earlier render until the new one lands.
		e.rendered = a.entries[e.id].rendered
	}
	a.entries[e.id] = e

	if e.role == model.RoleAssistant && !e.streaming && e.content != "" {
		return renderMarkdownCmd(e.id, e.content, a.width)
	}
	return nil
}

func (a *App) anyStreaming() bool {
	if a.session.Loading() {
		return true
	}
	for _, e := range a.entries {
		if e.streaming {
			return true
		}
	}
	return false
}

func (a *App) firstUserContent() string {
	for _, id := range a.order {
		if e, ok := a.entries[id]; ok && e.role == model.RoleUser {
			return e.content
		}
	}
	return ""
}

// rebuildFromSession replaces the render snapshots with the session's
// current transcript. Used at startup, after undo, and on session switch.
func (a *App) rebuildFromSession() {
	a.order = a.order[:0]
	a.entries = make(map[string]entry)
	for _, m := range a.session.Messages() {
		e := snapshotMessage(m)
		a.order = append(a.order, e.id)
		a.entries[e.id] = e
	}
}

// renderBacklogCmds issues markdown renders for every restored assistant
// message.
func (a *App) renderBacklogCmds() tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range a.order {
		e := a.entries[id]
		if e.role == model.RoleAssistant && !e.streaming && e.content != "" {
			cmds = append(cmds, renderMarkdownCmd(e.id, e.content, a.width))
		}
	}
	return tea.Batch(cmds...)
}

func (a *App) undoLastTurn() {
	var lastUser string
	for i := len(a.order) - 1; i >= 0; i-- {
		if e, ok := a.entries[a.order[i]]; ok && e.role == model.RoleUser {
			lastUser = e.id
			break
		}
	}
	if lastUser == "" {
		return
	}
	if err := a.session.UndoToMessage(lastUser); err != nil {
		a.status = "undo failed: " + err.Error()
		return
	}
	a.rebuildFromSession()
	a.refreshViewport(true)
	a.status = "last turn undone"
}

func (a *App) copyLastAnswer() {
	for i := len(a.order) - 1; i >= 0; i-- {
		e, ok := a.entries[a.order[i]]
		if ok && e.role == model.RoleAssistant && !e.streaming && e.content != "" {
			if err := clipboard.WriteAll(e.content); err != nil {
				a.status = "copy failed: " + err.Error()
			} else {
				a.status = "answer copied"
			}
			return
		}
	}
}

func (a *App) openSessionPicker() {
	list, err := a.store.List()
	if err != nil {
		a.status = "could not list sessions: " + err.Error()
		return
	}
	items := make([]PickerItem, 0, len(list))
	for _, meta := range list {
		name := meta.Name
		if name == "" {
			name = "(untitled)"
		}
		detail := fmt.Sprintf("%d turns  %s", meta.TurnCount, meta.UpdatedAt.Format("Jan 2 15:04"))
		items = append(items, PickerItem{ID: meta.ID, Title: name, Detail: detail})
	}
	a.picker = NewPicker("Sessions", "Filter sessions...", items)
	a.pickerMode = pickerSessions
}

// switchToSession loads a stored session and rewires the loop around it.
func (a *App) switchToSession(id string) tea.Cmd {
	if a.session.Loading() {
		a.status = "finish or cancel the current request first"
		return nil
	}
	if id == a.session.ID {
		return nil
	}

	record, err := a.store.Load(id)
	if err != nil {
		a.status = "could not load session: " + err.Error()
		return nil
	}

	a.adoptSession(agent.FromRecord(record))
	return tea.Batch(a.renderBacklogCmds(), a.saveCurrentIDCmd())
}

func (a *App) switchToNewSession() tea.Cmd {
	if a.session.Loading() {
		a.status = "finish or cancel the current request first"
		return nil
	}

	session := agent.NewSession(a.session.Provider, a.provider.GetModel())
	session.SystemPrompt = a.cfg.DefaultSystemPrompt
	a.adoptSession(session)
	return a.saveCurrentIDCmd()
}

func (a *App) adoptSession(session *agent.Session) {
	a.session = session
	a.loop = agent.NewLoop(session, a.provider, a.registry, a.gateway, a.emitFunc(), session.SystemPrompt)
	if session.Model != "" {
		a.provider.SetModel(session.Model)
	}
	a.rebuildFromSession()
	a.refreshViewport(true)
	a.status = ""
}

func (a *App) persistOnQuit() {
	record := agent.ToRecord(a.session)
	if len(record.Turns) > 0 {
		if err := a.store.Save(record); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[UI] Save on quit failed: %v", err)
		}
		if a.index != nil {
			if err := a.index.ReindexSession(record); err != nil && config.DebugLog != nil {
				config.DebugLog.Printf("[UI] Reindex on quit failed: %v", err)
			}
		}
	}
	if err := a.store.SaveCurrentSessionID(a.session.ID); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[UI] Could not record current session: %v", err)
	}
}

// Commands

func (a *App) startQueryCmd(text string) tea.Cmd {
	loop := a.loop
	return func() tea.Msg {
		return queryDoneMsg{err: loop.Query(context.Background(), text)}
	}
}

func (a *App) saveSessionCmd() tea.Cmd {
	record := agent.ToRecord(a.session)
	if len(record.Turns) == 0 {
		return nil
	}
	store, index := a.store, a.index
	return func() tea.Msg {
		if err := store.Save(record); err != nil {
			return sessionSavedMsg{err: err}
		}
		if index != nil {
			if err := index.ReindexSession(record); err != nil && config.DebugLog != nil {
				config.DebugLog.Printf("[UI] Reindex failed: %v", err)
			}
		}
		return sessionSavedMsg{}
	}
}

func (a *App) saveCurrentIDCmd() tea.Cmd {
	store, id := a.store, a.session.ID
	return func() tea.Msg {
		return sessionSavedMsg{err: store.SaveCurrentSessionID(id)}
	}
}

func (a *App) generateTitleCmd(firstUser string) tea.Cmd {
	provider := a.provider
	return func() tea.Msg {
		return titleGeneratedMsg{title: agent.GenerateTitle(context.Background(), provider, firstUser)}
	}
}

func (a *App) loadModelsCmd() tea.Cmd {
	provider := a.provider
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		models, err := provider.ListModels(ctx)
		return modelsLoadedMsg{models: models, err: err}
	}
}

func (a *App) searchCmd(query string) tea.Cmd {
	index := a.index
	if index == nil {
		return nil
	}
	return func() tea.Msg {
		matches, err := index.Search(query, 50)
		if err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[UI] Search failed: %v", err)
		}
		return searchResultsMsg{matches: matches}
	}
}

// modelDetail renders the picker detail column for one model, flagging
// families that cannot invoke tools.
func modelDetail(m model.ModelInfo) string {
	detail := m.Provider
	if m.Size > 0 {
		detail = fmt.Sprintf("%s  %s", m.Provider, formatSize(m.Size))
	}
	if !m.ToolCalling {
		detail += "  no tools"
	}
	return detail
}

// formatSize converts bytes to a human-readable form; zero means unknown.
func formatSize(bytes int64) string {
	if bytes == 0 {
		return ""
	}
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
