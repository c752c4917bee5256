// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/polychat-tui/internal/model"
	"github.com/jeranaias/polychat-tui/internal/ui/styles"
)

// =============================================================================
// MODEL SELECTOR
// =============================================================================

// ModelSelector is the popup for picking the model of the NEXT new
// conversation. While a conversation is active the selector opens in a
// locked, read-only state: the active conversation's model binding is
// fixed.
type ModelSelector struct {
	theme *styles.Theme

	models  []model.CatalogModel
	cursor  int
	visible bool
	locked  bool
}

// NewModelSelector creates a hidden selector with no catalog loaded.
func NewModelSelector(theme *styles.Theme) ModelSelector {
	return ModelSelector{theme: theme}
}

// SetModels replaces the selectable catalog.
func (s *ModelSelector) SetModels(models []model.CatalogModel) {
	s.models = models
	if s.cursor >= len(models) {
		s.cursor = 0
	}
}

// Open shows the selector. locked marks it read-only.
func (s *ModelSelector) Open(locked bool) {
	s.visible = true
	s.locked = locked
}

// Close hides the selector.
func (s *ModelSelector) Close() {
	s.visible = false
}

// Visible reports whether the selector is shown.
func (s *ModelSelector) Visible() bool {
	return s.visible
}

// Locked reports whether the selector is read-only.
func (s *ModelSelector) Locked() bool {
	return s.locked
}

// CursorUp moves the cursor one row up.
func (s *ModelSelector) CursorUp() {
	if !s.locked && s.cursor > 0 {
		s.cursor--
	}
}

// CursorDown moves the cursor one row down.
func (s *ModelSelector) CursorDown() {
	if !s.locked && s.cursor < len(s.models)-1 {
		s.cursor++
	}
}

// Selected returns the model under the cursor, if any.
func (s *ModelSelector) Selected() (model.ModelRef, bool) {
	if s.locked || s.cursor < 0 || s.cursor >= len(s.models) {
		return model.ModelRef{}, false
	}
	entry := s.models[s.cursor]
	name := entry.ID
	if name == "" {
		name = entry.Name
	}
	return model.ModelRef{Provider: entry.Provider, Name: name}, true
}

// View renders the selector popup.
func (s *ModelSelector) View(width int) string {
	if !s.visible {
		return ""
	}

	var b strings.Builder
	if s.locked {
		b.WriteString(s.theme.SelectorLocked.Render("Model is fixed for this conversation"))
		b.WriteString("\n")
		b.WriteString(s.theme.FormHint.Render("Start a new chat to switch models"))
		return s.theme.SelectorBox.MaxWidth(width).Render(b.String())
	}

	b.WriteString(s.theme.FormTitle.Render("Select a model"))
	b.WriteString("\n\n")

	if len(s.models) == 0 {
		b.WriteString(s.theme.FormHint.Render("No models available"))
	}

	for i, entry := range s.models {
		provider := lipgloss.NewStyle().
			Foreground(styles.ProviderColor(entry.Provider)).
			Bold(true).
			Render(entry.Provider)
		label := provider + " " + entry.Name

		if i == s.cursor {
			b.WriteString(s.theme.SelectorItemSelected.Render("> " + label))
		} else {
			b.WriteString(s.theme.SelectorItem.Render("  " + label))
		}
		if i < len(s.models)-1 {
			b.WriteString("\n")
		}
	}

	return s.theme.SelectorBox.MaxWidth(width).Render(b.String())
}
