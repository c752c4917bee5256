// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/polychat-tui/internal/model"
	"github.com/jeranaias/polychat-tui/internal/ui/styles"
	"github.com/jeranaias/polychat-tui/internal/util"
)

// =============================================================================
// CONVERSATION SIDEBAR
// =============================================================================

// Sidebar renders the conversation list with a movable cursor. The
// list itself is owned by the conversation manager; the sidebar only
// holds view state (cursor position, scroll offset).
type Sidebar struct {
	theme *styles.Theme

	items    []model.ConversationSummary
	activeID string
	cursor   int
	offset   int

	width  int
	height int
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme) Sidebar {
	return Sidebar{theme: theme}
}

// SetSize sets the sidebar's render dimensions.
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.clampScroll()
}

// SetItems replaces the listed conversations, keeping the cursor on
// the same conversation when it survives the refresh.
func (s *Sidebar) SetItems(items []model.ConversationSummary) {
	var keepID string
	if s.cursor >= 0 && s.cursor < len(s.items) {
		keepID = s.items[s.cursor].ID
	}

	s.items = items
	s.cursor = 0
	for i, item := range items {
		if item.ID == keepID {
			s.cursor = i
			break
		}
	}
	s.clampScroll()
}

// SetActive marks the conversation currently open in the chat pane.
func (s *Sidebar) SetActive(id string) {
	s.activeID = id
}

// CursorUp moves the cursor one row up.
func (s *Sidebar) CursorUp() {
	if s.cursor > 0 {
		s.cursor--
	}
	s.clampScroll()
}

// CursorDown moves the cursor one row down.
func (s *Sidebar) CursorDown() {
	if s.cursor < len(s.items)-1 {
		s.cursor++
	}
	s.clampScroll()
}

// Selected returns the conversation under the cursor, if any.
func (s *Sidebar) Selected() (model.ConversationSummary, bool) {
	if s.cursor < 0 || s.cursor >= len(s.items) {
		return model.ConversationSummary{}, false
	}
	return s.items[s.cursor], true
}

// Len returns the number of listed conversations.
func (s *Sidebar) Len() int {
	return len(s.items)
}

// clampScroll keeps the cursor row inside the visible window.
func (s *Sidebar) clampScroll() {
	visible := s.visibleRows()
	if visible <= 0 {
		return
	}
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+visible {
		s.offset = s.cursor - visible + 1
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

// visibleRows returns how many list rows fit under the title.
func (s *Sidebar) visibleRows() int {
	return s.height - 2
}

// View renders the sidebar.
func (s *Sidebar) View() string {
	if s.width <= 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(s.theme.SidebarTitle.Render("Conversations"))
	b.WriteString("\n")

	if len(s.items) == 0 {
		b.WriteString(s.theme.SidebarMeta.Render("No conversations yet"))
		return s.theme.Sidebar.Width(s.width).Height(s.height).Render(b.String())
	}

	visible := s.visibleRows()
	end := s.offset + visible
	if end > len(s.items) {
		end = len(s.items)
	}

	// Room for the cursor marker and cell padding.
	titleWidth := s.width - 4
	for i := s.offset; i < end; i++ {
		item := s.items[i]
		title := util.TruncateWidth(util.Flatten(item.GetTitle()), titleWidth)

		var line string
		switch {
		case i == s.cursor:
			line = s.theme.SidebarItemSelected.Render("> " + title)
		case item.ID == s.activeID:
			line = s.theme.SidebarItemActive.Render("* " + title)
		default:
			line = s.theme.SidebarItem.Render("  " + title)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return s.theme.Sidebar.Width(s.width).Height(s.height).Render(b.String())
}

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBarData is everything the status bar displays.
type StatusBarData struct {
	Username  string
	Model     model.ModelRef
	Sending   bool
	Loading   bool
	Shortcuts []Shortcut
}

// Shortcut is one key hint shown in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(theme *styles.Theme, data StatusBarData, width int) string {
	var left []string
	if data.Username != "" {
		left = append(left, theme.StatusOnline.Render("● ")+data.Username)
	}
	if !data.Model.IsZero() {
		badge := lipgloss.NewStyle().
			Foreground(styles.ProviderColor(data.Model.Provider)).
			Bold(true).
			Render(data.Model.String())
		left = append(left, badge)
	}
	switch {
	case data.Sending:
		left = append(left, theme.StatusBusy.Render("sending…"))
	case data.Loading:
		left = append(left, theme.StatusBusy.Render("loading…"))
	}

	var hints []string
	for _, sc := range data.Shortcuts {
		hints = append(hints, theme.ShortcutKey.Render(sc.Key)+" "+theme.ShortcutDesc.Render(sc.Desc))
	}

	leftText := strings.Join(left, "  ")
	rightText := strings.Join(hints, "  ")

	gap := width - lipgloss.Width(leftText) - lipgloss.Width(rightText) - 2
	if gap < 1 {
		gap = 1
	}

	return theme.StatusBar.Width(width).Render(leftText + strings.Repeat(" ", gap) + rightText)
}
