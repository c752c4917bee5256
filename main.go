// polychat TUI - A terminal client for multi-provider AI chat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/polychat-tui/internal/api"
	chatmgr "github.com/jeranaias/polychat-tui/internal/chat"
	"github.com/jeranaias/polychat-tui/internal/config"
	"github.com/jeranaias/polychat-tui/internal/notify"
	"github.com/jeranaias/polychat-tui/internal/session"
	"github.com/jeranaias/polychat-tui/internal/storage"
	chatview "github.com/jeranaias/polychat-tui/internal/ui/chat"
	"github.com/jeranaias/polychat-tui/internal/ui/components"
	"github.com/jeranaias/polychat-tui/internal/ui/login"
	"github.com/jeranaias/polychat-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.NewSessionStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening session store: %v\n", err)
		os.Exit(1)
	}

	// Request logging goes to a file so it never writes over the
	// alternate screen. Silently skipped when the file cannot open.
	if home, err := os.UserHomeDir(); err == nil {
		if f, err := tea.LogToFile(filepath.Join(home, ".polychat", "polychat.log"), "polychat"); err == nil {
			defer f.Close()
		}
	}

	bus := notify.NewBus()

	// The API client reads the bearer credential through the session
	// manager, so every request carries whatever the session holds at
	// that moment. The manager itself is wired in right after.
	var sessionMgr *session.Manager
	client := api.NewClient(cfg.Server.BaseURL, func() string {
		if sessionMgr == nil {
			return ""
		}
		return sessionMgr.Credential()
	}).WithTimeout(cfg.Timeout()).WithMaxRetries(cfg.Server.MaxRetries)

	sessionMgr = session.NewManager(api.NewAuthClient(client), store, bus)
	conversationMgr := chatmgr.NewManager(api.NewChatClient(client), bus)
	catalog := api.NewCatalogClient(client)

	theme := styles.NewTheme(cfg.UI.Theme)

	app := newApp(theme, bus, sessionMgr, conversationMgr, catalog)

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running polychat: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// appState represents the current application state.
type appState int

const (
	stateValidating appState = iota // startup session validation
	stateAuth                       // login / register form
	stateChat                       // chat view
)

// appModel is the root Bubble Tea model. It owns the screen switch
// between auth and chat, and drains the notification bus into toasts.
type appModel struct {
	state appState
	theme *styles.Theme

	bus    *notify.Bus
	toasts *components.ToastManager

	sessionMgr      *session.Manager
	conversationMgr *chatmgr.Manager
	catalog         *api.CatalogClient

	loginView login.Model
	chatView  chatview.Model

	width  int
	height int
}

func newApp(theme *styles.Theme, bus *notify.Bus, sessionMgr *session.Manager, conversationMgr *chatmgr.Manager, catalog *api.CatalogClient) appModel {
	return appModel{
		state:           stateValidating,
		theme:           theme,
		bus:             bus,
		toasts:          components.NewToastManager(),
		sessionMgr:      sessionMgr,
		conversationMgr: conversationMgr,
		catalog:         catalog,
		loginView:       login.New(theme, sessionMgr),
		chatView:        chatview.New(theme, conversationMgr, sessionMgr, catalog),
	}
}

// sessionValidatedMsg signals that the startup credential check is done.
type sessionValidatedMsg struct{}

// Init validates any persisted session and starts the bus drain.
func (m appModel) Init() tea.Cmd {
	sess := m.sessionMgr
	validate := func() tea.Msg {
		sess.ValidateSession(context.Background())
		return sessionValidatedMsg{}
	}
	return tea.Batch(
		validate,
		components.WaitForNotification(m.bus),
		components.ToastTickCmd(),
		m.loginView.Init(),
	)
}

// Update routes events to the active screen.
func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.loginView.SetSize(msg.Width, msg.Height)
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd

	case sessionValidatedMsg:
		if m.sessionMgr.IsAuthenticated() {
			m.state = stateChat
			return m, m.chatView.Init()
		}
		m.state = stateAuth
		return m, nil

	case components.NotificationMsg:
		m.toasts.Add(msg.Notification)
		return m, components.WaitForNotification(m.bus)

	case components.ToastTickMsg:
		m.toasts.Tick()
		return m, components.ToastTickCmd()

	case login.ResultMsg:
		var cmd tea.Cmd
		m.loginView, cmd = m.loginView.Update(msg)
		if msg.Err == nil && m.sessionMgr.IsAuthenticated() {
			m.state = stateChat
			return m, m.chatView.Init()
		}
		return m, cmd

	case chatview.LogoutMsg:
		// Logout clears the session locally; the chat state is reset so
		// the next login starts from a clean pane.
		m.sessionMgr.Logout()
		m.conversationMgr.StartNewConversation()
		m.conversationMgr.ClearMessages()
		m.state = stateAuth
		m.loginView = login.New(m.theme, m.sessionMgr)
		m.loginView.SetSize(m.width, m.height)
		m.chatView = chatview.New(m.theme, m.conversationMgr, m.sessionMgr, m.catalog)
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		return m, tea.Batch(cmd, m.loginView.Init())
	}

	switch m.state {
	case stateAuth:
		var cmd tea.Cmd
		m.loginView, cmd = m.loginView.Update(msg)
		return m, cmd
	case stateChat:
		var cmd tea.Cmd
		m.chatView, cmd = m.chatView.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

// View renders the active screen with the toast stack on top.
func (m appModel) View() string {
	var base string
	switch m.state {
	case stateValidating:
		base = m.theme.InfoStyle.Render("Checking session…")
	case stateAuth:
		base = m.loginView.View()
	default:
		base = m.chatView.View()
	}

	if m.toasts.HasToasts() {
		// Unplaced stack; overlayed onto the base view bottom-right so
		// the layout underneath keeps its dimensions.
		stack := components.RenderToastStack(m.toasts.Toasts(), 0, 0)
		if stack != "" {
			return overlayBottomRight(base, stack, m.width, m.height)
		}
	}
	return base
}

// overlayBottomRight draws overlay on top of base in the bottom-right
// corner, leaving a row for the status bar.
func overlayBottomRight(base, overlay string, width, height int) string {
	baseLines := strings.Split(base, "\n")
	overlayLines := strings.Split(overlay, "\n")

	startRow := height - len(overlayLines) - 2
	if startRow < 0 {
		startRow = 0
	}

	result := make([]string, len(baseLines))
	for i, baseLine := range baseLines {
		idx := i - startRow
		if idx < 0 || idx >= len(overlayLines) || lipgloss.Width(overlayLines[idx]) == 0 {
			result[i] = baseLine
			continue
		}
		line := overlayLines[idx]
		lineWidth := lipgloss.Width(line)
		baseWidth := lipgloss.Width(baseLine)

		pad := width - lineWidth - baseWidth - 1
		if pad < 1 {
			// Not enough room; let the toast win the row.
			result[i] = line
			continue
		}
		result[i] = baseLine + strings.Repeat(" ", pad) + line
	}
	return strings.Join(result, "\n")
}
