// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/polychat-tui/internal/model"
	"github.com/jeranaias/polychat-tui/internal/ui/components"
	"github.com/jeranaias/polychat-tui/internal/util"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the shared glamour renderer for assistant
// replies.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fall back to plain text if renderer initialization fails
		markdownRenderer = nil
	}
}

// renderMarkdown renders assistant markdown, falling back to the raw
// text when glamour is unavailable or errors.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.renderHeader()
	content := m.renderContent()
	input := m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())
	status := m.renderStatusBar()

	base := lipgloss.JoinVertical(lipgloss.Left, header, content, input, status)

	if m.selector.Visible() {
		popup := m.selector.View(m.width - 8)
		return overlayCentered(base, popup, m.width, m.height)
	}
	if m.prefs.Visible() {
		popup := m.prefs.View(m.width - 8)
		return overlayCentered(base, popup, m.width, m.height)
	}
	return base
}

// renderHeader renders the top bar.
func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("polychat")

	subtitle := ""
	if user := m.session.User(); user != nil {
		subtitle = m.theme.HeaderSubtitle.Render(" · " + user.DisplayName())
	}

	conversationTitle := ""
	if current := m.manager.Current(); current != nil {
		conversationTitle = m.theme.HeaderSubtitle.Render(" · " + util.TruncateRunes(current.GetTitle(), 48))
	}

	return m.theme.Header.Width(m.width).Render(title + subtitle + conversationTitle)
}

// renderContent renders the sidebar and the message viewport.
func (m Model) renderContent() string {
	chatPane := m.viewport.View()
	if m.manager.IsSending() {
		chatPane += "\n" + m.theme.Spinner.Render(m.spinner.View()) + m.theme.InputPlaceholder.Render(" thinking…")
	}

	if m.sidebar.Len() == 0 && m.width < 80 {
		return chatPane
	}
	sidebarView := m.sidebar.View()
	if sidebarView == "" {
		return chatPane
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebarView, chatPane)
}

// renderStatusBar renders the bottom status bar.
func (m Model) renderStatusBar() string {
	var username string
	if user := m.session.User(); user != nil {
		username = user.DisplayName()
	}

	return components.RenderStatusBar(m.theme, components.StatusBarData{
		Username: username,
		Model:    m.manager.SelectedModel(),
		Sending:  m.manager.IsSending(),
		Loading:  m.manager.IsLoading(),
		Shortcuts: []components.Shortcut{
			{Key: "ctrl+n", Desc: "new"},
			{Key: "ctrl+p", Desc: "model"},
			{Key: "ctrl+u", Desc: "prefs"},
			{Key: "tab", Desc: "list"},
			{Key: "ctrl+d", Desc: "delete"},
			{Key: "ctrl+o", Desc: "logout"},
		},
	}, m.width)
}

// renderMessages renders the message sequence for the viewport.
func (m Model) renderMessages(messages []model.Message) string {
	if len(messages) == 0 {
		return m.theme.InputPlaceholder.Render("Start chatting, or pick a conversation from the list.")
	}

	bubbleWidth := m.viewport.Width - 8
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	var parts []string
	for _, msg := range messages {
		meta := m.theme.MessageMeta.Render(msg.Role.DisplayName())

		var bubble string
		switch msg.Role {
		case model.RoleAssistant:
			bubble = m.theme.AssistantBubble.MaxWidth(bubbleWidth).Render(renderMarkdown(msg.Content))
		default:
			bubble = m.theme.UserBubble.MaxWidth(bubbleWidth).Render(msg.Content)
		}
		parts = append(parts, meta+"\n"+bubble)
	}
	return strings.Join(parts, "\n\n")
}

// =============================================================================
// OVERLAY HELPERS
// =============================================================================

// overlayCentered draws popup centered on top of base.
func overlayCentered(base, popup string, width, height int) string {
	baseLines := strings.Split(base, "\n")
	popupLines := strings.Split(popup, "\n")

	popupWidth := 0
	for _, line := range popupLines {
		if w := lipgloss.Width(line); w > popupWidth {
			popupWidth = w
		}
	}

	startRow := (height - len(popupLines)) / 2
	if startRow < 0 {
		startRow = 0
	}
	startCol := (width - popupWidth) / 2
	if startCol < 0 {
		startCol = 0
	}

	result := make([]string, len(baseLines))
	for i, baseLine := range baseLines {
		popupIdx := i - startRow
		if popupIdx < 0 || popupIdx >= len(popupLines) {
			result[i] = baseLine
			continue
		}
		pad := startCol
		result[i] = strings.Repeat(" ", pad) + popupLines[popupIdx]
	}
	return strings.Join(result, "\n")
}
