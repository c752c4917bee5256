// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package login provides the authentication view: a login form with a
// register variant, submitting through the session manager.
package login

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/polychat-tui/internal/api"
	"github.com/jeranaias/polychat-tui/internal/session"
	"github.com/jeranaias/polychat-tui/internal/ui/styles"
)

// =============================================================================
// MODES AND MESSAGES
// =============================================================================

// Mode selects between the login and register forms.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

// field indexes into the input slice.
const (
	fieldUsername = iota
	fieldEmail
	fieldPassword
	fieldCount
)

// ResultMsg reports the outcome of a submit. A nil Err means the
// session manager now holds an authenticated session.
type ResultMsg struct {
	Err error
}

// =============================================================================
// LOGIN MODEL
// =============================================================================

// Model is the Bubble Tea model for the auth screen.
type Model struct {
	theme   *styles.Theme
	session *session.Manager

	mode       Mode
	inputs     []textinput.Model
	focus      int
	submitting bool
	errText    string

	width  int
	height int
}

// New creates the auth screen in login mode.
func New(theme *styles.Theme, sess *session.Manager) Model {
	inputs := make([]textinput.Model, fieldCount)

	username := textinput.New()
	username.Prompt = "> "
	username.Placeholder = "username"
	username.CharLimit = 64
	username.Focus()
	inputs[fieldUsername] = username

	email := textinput.New()
	email.Prompt = "> "
	email.Placeholder = "email"
	email.CharLimit = 128
	inputs[fieldEmail] = email

	password := textinput.New()
	password.Prompt = "> "
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	inputs[fieldPassword] = password

	return Model{
		theme:   theme,
		session: sess,
		mode:    ModeLogin,
		inputs:  inputs,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Mode returns the current form mode.
func (m Model) Mode() Mode {
	return m.mode
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles key events for the auth screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.submitting {
			// Input is frozen while a submit is in flight.
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			m.nextField(1)
			return m, textinput.Blink
		case "shift+tab", "up":
			m.nextField(-1)
			return m, textinput.Blink
		case "ctrl+r":
			m.toggleMode()
			return m, textinput.Blink
		case "enter":
			if m.focus < m.lastField() {
				m.nextField(1)
				return m, textinput.Blink
			}
			return m.submit()
		}

	case ResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			m.inputs[fieldPassword].SetValue("")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// nextField moves focus by delta, skipping email in login mode.
func (m *Model) nextField(delta int) {
	m.inputs[m.focus].Blur()
	for {
		m.focus = (m.focus + delta + fieldCount) % fieldCount
		if m.focus == fieldEmail && m.mode == ModeLogin {
			continue
		}
		break
	}
	m.inputs[m.focus].Focus()
}

// lastField is the field whose enter key submits the form.
func (m Model) lastField() int {
	return fieldPassword
}

// toggleMode switches between login and register, clearing any error.
func (m *Model) toggleMode() {
	if m.mode == ModeLogin {
		m.mode = ModeRegister
	} else {
		m.mode = ModeLogin
		if m.focus == fieldEmail {
			m.inputs[m.focus].Blur()
			m.focus = fieldUsername
			m.inputs[m.focus].Focus()
		}
	}
	m.errText = ""
}

// submit validates locally and dispatches the auth call. The session
// manager surfaces outcome notifications itself; the form only tracks
// the inline error text.
func (m Model) submit() (Model, tea.Cmd) {
	username := strings.TrimSpace(m.inputs[fieldUsername].Value())
	email := strings.TrimSpace(m.inputs[fieldEmail].Value())
	password := m.inputs[fieldPassword].Value()

	if username == "" || password == "" {
		m.errText = "Username and password are required"
		return m, nil
	}
	if m.mode == ModeRegister && email == "" {
		m.errText = "Email is required"
		return m, nil
	}

	m.submitting = true
	m.errText = ""

	sess := m.session
	mode := m.mode
	return m, func() tea.Msg {
		var err error
		if mode == ModeRegister {
			err = sess.Register(context.Background(), api.Registration{
				Username: username,
				Email:    email,
				Password: password,
			})
		} else {
			err = sess.Login(context.Background(), api.Credentials{
				Username: username,
				Password: password,
			})
		}
		return ResultMsg{Err: err}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the auth form centered on screen.
func (m Model) View() string {
	var b strings.Builder

	title := "Sign in to polychat"
	if m.mode == ModeRegister {
		title = "Create your account"
	}
	b.WriteString(m.theme.FormTitle.Render(title))
	b.WriteString("\n\n")

	b.WriteString(m.theme.FormLabel.Render("Username"))
	b.WriteString("\n")
	b.WriteString(m.inputs[fieldUsername].View())
	b.WriteString("\n")

	if m.mode == ModeRegister {
		b.WriteString(m.theme.FormLabel.Render("Email"))
		b.WriteString("\n")
		b.WriteString(m.inputs[fieldEmail].View())
		b.WriteString("\n")
	}

	b.WriteString(m.theme.FormLabel.Render("Password"))
	b.WriteString("\n")
	b.WriteString(m.inputs[fieldPassword].View())
	b.WriteString("\n\n")

	switch {
	case m.submitting:
		b.WriteString(m.theme.FormHint.Render("Signing in…"))
	case m.errText != "":
		b.WriteString(m.theme.FormError.Render(m.errText))
	default:
		hint := "enter submit  ·  ctrl+r register  ·  ctrl+c quit"
		if m.mode == ModeRegister {
			hint = "enter submit  ·  ctrl+r back to login  ·  ctrl+c quit"
		}
		b.WriteString(m.theme.FormHint.Render(hint))
	}

	box := m.theme.FormBox.Render(b.String())
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}
