// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/polychat-tui/internal/api"
	chatmgr "github.com/jeranaias/polychat-tui/internal/chat"
	"github.com/jeranaias/polychat-tui/internal/model"
	"github.com/jeranaias/polychat-tui/internal/session"
	"github.com/jeranaias/polychat-tui/internal/ui/components"
	"github.com/jeranaias/polychat-tui/internal/ui/styles"
)

// =============================================================================
// COLLABORATOR CONTRACTS
// =============================================================================

// CatalogService lists the available models. Satisfied by
// *api.CatalogClient; tests inject fakes.
type CatalogService interface {
	ListModels(ctx context.Context) (map[string][]model.CatalogModel, error)
}

// =============================================================================
// CHAT VIEW MODEL
// =============================================================================

// focusArea tracks which pane receives key input.
type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// Model is the Bubble Tea model for the chat view.
type Model struct {
	theme   *styles.Theme
	manager *chatmgr.Manager
	session *session.Manager
	catalog CatalogService

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	sidebar  components.Sidebar
	selector components.ModelSelector
	prefs    components.PrefsForm

	focus  focusArea
	width  int
	height int
	ready  bool
}

// New creates the chat view bound to its managers.
func New(theme *styles.Theme, manager *chatmgr.Manager, sess *session.Manager, catalog CatalogService) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	return Model{
		theme:    theme,
		manager:  manager,
		session:  sess,
		catalog:  catalog,
		viewport: vp,
		input:    ti,
		spinner:  sp,
		sidebar:  components.NewSidebar(theme),
		selector: components.NewModelSelector(theme),
		prefs:    components.NewPrefsForm(theme),
	}
}

// Init fetches the conversation list and the model catalog.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.refreshConversationsCmd(),
		m.loadModelsCmd(),
	)
}

// =============================================================================
// COMMANDS
// =============================================================================

// refreshConversationsCmd reloads the conversation list. The manager
// handles stale-response fencing and failure notifications.
func (m Model) refreshConversationsCmd() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		return ConversationsRefreshedMsg{Err: mgr.LoadConversations(context.Background())}
	}
}

// openConversationCmd loads one conversation and focuses it.
func (m Model) openConversationCmd(id string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		return ConversationOpenedMsg{ID: id, Err: mgr.LoadConversation(context.Background(), id)}
	}
}

// sendMessageCmd runs one chat turn. The optimistic append happens
// inside the manager before the network call.
func (m Model) sendMessageCmd(content string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		return SendCompleteMsg{Err: mgr.SendMessage(context.Background(), content)}
	}
}

// deleteConversationCmd deletes one conversation.
func (m Model) deleteConversationCmd(id string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		return ConversationDeletedMsg{ID: id, Err: mgr.DeleteConversation(context.Background(), id)}
	}
}

// savePreferencesCmd pushes the edited preferences record. The
// session manager owns the notification and the state apply.
func (m Model) savePreferencesCmd(prefs model.Preferences) tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		return PreferencesSavedMsg{Err: sess.UpdatePreferences(context.Background(), prefs)}
	}
}

// loadModelsCmd fetches and flattens the model catalog.
func (m Model) loadModelsCmd() tea.Cmd {
	catalog := m.catalog
	return func() tea.Msg {
		listed, err := catalog.ListModels(context.Background())
		if err != nil {
			return ModelsLoadedMsg{Err: err}
		}
		return ModelsLoadedMsg{Models: api.Flatten(listed)}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles events for the chat view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.layout()
		m.syncFromManager()
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		if m.manager.IsSending() || m.manager.IsLoading() {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd

	case ConversationsRefreshedMsg:
		m.syncFromManager()
		return m, nil

	case ConversationOpenedMsg:
		m.syncFromManager()
		m.viewport.GotoBottom()
		return m, nil

	case SendCompleteMsg:
		m.syncFromManager()
		m.viewport.GotoBottom()
		return m, nil

	case ConversationDeletedMsg:
		m.syncFromManager()
		return m, nil

	case ModelsLoadedMsg:
		// A failed catalog fetch just leaves the selector empty; the
		// default model still works.
		if msg.Err == nil {
			m.selector.SetModels(msg.Models)
			m.prefs.SetModels(msg.Models)
		}
		return m, nil

	case PreferencesSavedMsg:
		if msg.Err == nil {
			m.prefs.Close()
		} else {
			m.prefs.FinishSave()
		}
		return m, nil

	case redrawMsg:
		m.syncFromManager()
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey routes key input to the focused pane.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	// Popups capture all keys while open.
	if m.selector.Visible() {
		return m.handleSelectorKey(msg)
	}
	if m.prefs.Visible() {
		return m.handlePrefsKey(msg)
	}

	switch msg.String() {
	case "ctrl+n":
		m.manager.StartNewConversation()
		m.syncFromManager()
		m.focus = focusInput
		m.input.Focus()
		return m, textinput.Blink

	case "ctrl+p":
		m.selector.Open(m.manager.Current() != nil)
		return m, nil

	case "ctrl+r":
		return m, m.refreshConversationsCmd()

	case "ctrl+u":
		m.prefs.Open(m.session.User())
		return m, nil

	case "ctrl+o":
		return m, func() tea.Msg { return LogoutMsg{} }

	case "tab":
		if m.focus == focusInput {
			m.focus = focusSidebar
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m, textinput.Blink
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

// handleSelectorKey drives the model selector popup.
func (m Model) handleSelectorKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+p":
		m.selector.Close()
		return m, nil
	case "up", "k":
		m.selector.CursorUp()
		return m, nil
	case "down", "j":
		m.selector.CursorDown()
		return m, nil
	case "enter":
		if ref, ok := m.selector.Selected(); ok {
			// No-op while a conversation is active; the manager holds
			// the model-lock invariant regardless of UI state.
			m.manager.SetSelectedModel(ref)
		}
		m.selector.Close()
		return m, nil
	}
	return m, nil
}

// handlePrefsKey drives the preferences popup.
func (m Model) handlePrefsKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+u":
		if !m.prefs.Saving() {
			m.prefs.Close()
		}
		return m, nil
	case "up", "k":
		m.prefs.CursorUp()
		return m, nil
	case "down", "j", "tab":
		m.prefs.CursorDown()
		return m, nil
	case "left", "h":
		m.prefs.Cycle(-1)
		return m, nil
	case "right", "l":
		m.prefs.Cycle(1)
		return m, nil
	case "enter":
		if m.prefs.Saving() {
			return m, nil
		}
		m.prefs.BeginSave()
		return m, m.savePreferencesCmd(m.prefs.Preferences())
	}
	return m, nil
}

// handleSidebarKey drives the conversation list.
func (m Model) handleSidebarKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.sidebar.CursorUp()
		return m, nil
	case "down", "j":
		m.sidebar.CursorDown()
		return m, nil
	case "enter":
		if item, ok := m.sidebar.Selected(); ok {
			return m, m.openConversationCmd(item.ID)
		}
		return m, nil
	case "ctrl+d":
		if item, ok := m.sidebar.Selected(); ok {
			return m, m.deleteConversationCmd(item.ID)
		}
		return m, nil
	}
	return m, nil
}

// handleInputKey drives the message input line.
func (m Model) handleInputKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		content := strings.TrimSpace(m.input.Value())
		if content == "" || m.manager.IsSending() {
			return m, nil
		}
		m.input.SetValue("")
		cmd := m.sendMessageCmd(content)
		// Show the optimistic append on the next frame. The manager
		// appends before the network call, but the command itself runs
		// the whole turn; re-render immediately after dispatch.
		return m, tea.Batch(cmd, m.spinner.Tick, m.resyncCmd())
	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil
	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// redrawMsg asks the view to re-project manager state.
type redrawMsg struct{}

// resyncCmd yields a redraw after a short beat so the optimistic
// append becomes visible while the send is still in flight.
func (m Model) resyncCmd() tea.Cmd {
	return tea.Tick(30*time.Millisecond, func(time.Time) tea.Msg {
		return redrawMsg{}
	})
}

// =============================================================================
// STATE PROJECTION
// =============================================================================

// syncFromManager re-reads the manager snapshot into the view widgets.
func (m *Model) syncFromManager() {
	state := m.manager.Snapshot()

	m.sidebar.SetItems(state.Conversations)
	if state.Current != nil {
		m.sidebar.SetActive(state.Current.ID)
	} else {
		m.sidebar.SetActive("")
	}

	m.viewport.SetContent(m.renderMessages(state.Messages))
}

// layout recomputes widget dimensions for the current window size.
func (m *Model) layout() {
	sidebarWidth := 0
	if m.theme.GetLayoutMode() != styles.LayoutNarrow {
		sidebarWidth = 32
	}

	// Header, input line, and status bar each take vertical space.
	contentHeight := m.height - 5
	if contentHeight < 3 {
		contentHeight = 3
	}

	m.sidebar.SetSize(sidebarWidth, contentHeight)
	m.viewport.Width = m.width - sidebarWidth - 2
	m.viewport.Height = contentHeight
	m.input.Width = m.width - 8
}
