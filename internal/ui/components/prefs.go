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
// PREFERENCES FORM
// =============================================================================

// prefsField identifies the row under the cursor.
type prefsField int

const (
	prefsFieldModel prefsField = iota
	prefsFieldTheme
	prefsFieldSave
)

// prefsThemes are the selectable interface themes.
var prefsThemes = []string{"light", "dark"}

// PrefsForm is the popup for editing account preferences: the default
// model for new conversations and the interface theme. Username and
// email are shown read-only. Saving hands the whole record to the
// session manager; the server's copy wins.
type PrefsForm struct {
	theme *styles.Theme

	username string
	email    string

	models   []model.CatalogModel
	modelIdx int
	themeIdx int

	field   prefsField
	visible bool
	saving  bool
}

// NewPrefsForm creates a hidden preferences form.
func NewPrefsForm(theme *styles.Theme) PrefsForm {
	return PrefsForm{theme: theme}
}

// SetModels replaces the selectable default-model catalog.
func (f *PrefsForm) SetModels(models []model.CatalogModel) {
	f.models = models
	if f.modelIdx >= len(models) {
		f.modelIdx = 0
	}
}

// Open shows the form seeded from the user's current preferences.
func (f *PrefsForm) Open(user *model.User) {
	f.visible = true
	f.saving = false
	f.field = prefsFieldModel
	f.username = ""
	f.email = ""
	f.modelIdx = 0
	f.themeIdx = 0
	if user == nil {
		return
	}
	f.username = user.Username
	f.email = user.Email

	prefs := user.Preferences
	for i, entry := range f.models {
		if entry.Provider == prefs.DefaultProvider && catalogModelName(entry) == prefs.DefaultModel {
			f.modelIdx = i
			break
		}
	}
	for i, name := range prefsThemes {
		if name == prefs.Theme {
			f.themeIdx = i
			break
		}
	}
}

// Close hides the form.
func (f *PrefsForm) Close() {
	f.visible = false
	f.saving = false
}

// Visible reports whether the form is shown.
func (f *PrefsForm) Visible() bool {
	return f.visible
}

// Saving reports whether a save is in flight. The form freezes while
// saving so a second enter cannot dispatch a second request.
func (f *PrefsForm) Saving() bool {
	return f.saving
}

// BeginSave freezes the form for the duration of the save call.
func (f *PrefsForm) BeginSave() {
	f.saving = true
}

// FinishSave unfreezes the form after a failed save so the user can
// retry. Successful saves close the form instead.
func (f *PrefsForm) FinishSave() {
	f.saving = false
}

// CursorUp moves to the previous row.
func (f *PrefsForm) CursorUp() {
	if !f.saving && f.field > prefsFieldModel {
		f.field--
	}
}

// CursorDown moves to the next row.
func (f *PrefsForm) CursorDown() {
	if !f.saving && f.field < prefsFieldSave {
		f.field++
	}
}

// Cycle steps the value of the current row by delta (wrapping).
func (f *PrefsForm) Cycle(delta int) {
	if f.saving {
		return
	}
	switch f.field {
	case prefsFieldModel:
		if n := len(f.models); n > 0 {
			f.modelIdx = ((f.modelIdx+delta)%n + n) % n
		}
	case prefsFieldTheme:
		n := len(prefsThemes)
		f.themeIdx = ((f.themeIdx+delta)%n + n) % n
	}
}

// OnSave reports whether the cursor sits on the save row.
func (f *PrefsForm) OnSave() bool {
	return f.field == prefsFieldSave
}

// Preferences returns the record the form currently describes.
func (f *PrefsForm) Preferences() model.Preferences {
	prefs := model.Preferences{Theme: prefsThemes[f.themeIdx]}
	if f.modelIdx >= 0 && f.modelIdx < len(f.models) {
		entry := f.models[f.modelIdx]
		prefs.DefaultProvider = entry.Provider
		prefs.DefaultModel = catalogModelName(entry)
	}
	return prefs
}

// View renders the form popup.
func (f *PrefsForm) View(width int) string {
	if !f.visible {
		return ""
	}

	var b strings.Builder
	b.WriteString(f.theme.FormTitle.Render("Preferences"))
	b.WriteString("\n\n")

	// Identity is server-owned and read-only, shown for context.
	b.WriteString(f.theme.FormLabel.Render("Account  "))
	b.WriteString(f.theme.FormHint.Render(f.username + "  " + f.email))
	b.WriteString("\n\n")

	modelValue := "(catalog unavailable)"
	if f.modelIdx >= 0 && f.modelIdx < len(f.models) {
		entry := f.models[f.modelIdx]
		provider := lipgloss.NewStyle().
			Foreground(styles.ProviderColor(entry.Provider)).
			Bold(true).
			Render(entry.Provider)
		modelValue = provider + " " + entry.Name
	}
	b.WriteString(f.renderRow(prefsFieldModel, "Default model", modelValue))
	b.WriteString("\n")
	b.WriteString(f.renderRow(prefsFieldTheme, "Theme", prefsThemes[f.themeIdx]))
	b.WriteString("\n\n")

	saveLabel := "[ Save ]"
	if f.saving {
		saveLabel = "[ Saving… ]"
	}
	if f.field == prefsFieldSave {
		b.WriteString(f.theme.FormButtonHot.Render(saveLabel))
	} else {
		b.WriteString(f.theme.FormButton.Render(saveLabel))
	}
	b.WriteString("\n")
	b.WriteString(f.theme.FormHint.Render("↑/↓ field · ←/→ change · enter save · esc close"))

	return f.theme.FormBox.MaxWidth(width).Render(b.String())
}

// renderRow renders one cycling value row.
func (f *PrefsForm) renderRow(field prefsField, label, value string) string {
	line := f.theme.FormLabel.Render(label+"  ") + value
	if f.field == field {
		return f.theme.SelectorItemSelected.Render("> " + line)
	}
	return f.theme.SelectorItem.Render("  " + line)
}

// catalogModelName returns the wire name for a catalog entry.
func catalogModelName(entry model.CatalogModel) string {
	if entry.ID != "" {
		return entry.ID
	}
	return entry.Name
}
