// Package adminui implements the interactive account admin TUI using
// Bubble Tea. It works directly on the data directory, so it should run
// while the server is stopped or on the same machine only.
package adminui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"lernhilfe/internal/auth"
	"lernhilfe/internal/store"
)

// state represents the current screen in the admin UI.
type state int

const (
	stateUsers state = iota
	stateSetPassword
	stateConfirmDelete
)

// Model holds all UI state for the admin TUI.
type Model struct {
	users     *store.Users
	documents *store.Documents
	dataDir   string

	st  state
	err string
	ok  string

	all     []store.User
	userLst list.Model

	setPw textinput.Model
}

// New constructs a UI model over the given stores.
func New(users *store.Users, documents *store.Documents, dataDir string) Model {
	lst := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	lst.Title = "Accounts"

	setPw := textinput.New()
	setPw.Placeholder = "new password"
	setPw.EchoMode = textinput.EchoPassword
	setPw.Prompt = "New password: "

	return Model{
		users:     users,
		documents: documents,
		dataDir:   dataDir,
		st:        stateUsers,
		userLst:   lst,
		setPw:     setPw,
	}
}

// Init loads the registry on startup.
func (m Model) Init() tea.Cmd {
	return refreshUsersCmd(m.users)
}

type errMsg string
type usersMsg []store.User
type okMsg string

// Update routes messages based on UI state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.userLst.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	case errMsg:
		m.err = string(msg)
		m.ok = ""
		return m, nil
	case okMsg:
		m.err = ""
		m.ok = string(msg)
		m.st = stateUsers
		return m, refreshUsersCmd(m.users)
	case usersMsg:
		m.all = []store.User(msg)
		items := make([]list.Item, 0, len(m.all))
		for _, u := range m.all {
			items = append(items, userItem(u))
		}
		m.userLst.SetItems(items)
		m.err = ""
		return m, nil
	}

	switch m.st {
	case stateUsers:
		var cmd tea.Cmd
		m.userLst, cmd = m.userLst.Update(msg)
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "q", "ctrl+c":
				return m, tea.Quit
			case "r":
				return m, refreshUsersCmd(m.users)
			case "p":
				if _, ok := m.selectedUser(); !ok {
					return m, nil
				}
				m.st = stateSetPassword
				m.err = ""
				m.ok = ""
				m.setPw.SetValue("")
				m.setPw.Focus()
				return m, nil
			case "d":
				if _, ok := m.selectedUser(); !ok {
					return m, nil
				}
				m.st = stateConfirmDelete
				m.err = ""
				m.ok = ""
				return m, nil
			}
		}
		return m, cmd

	case stateSetPassword:
		var cmd tea.Cmd
		m.setPw, cmd = m.setPw.Update(msg)
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "esc":
				m.st = stateUsers
				return m, nil
			case "enter":
				u, ok := m.selectedUser()
				if !ok {
					m.st = stateUsers
					return m, nil
				}
				pw := m.setPw.Value()
				m.setPw.SetValue("")
				return m, tea.Batch(cmd, setPasswordCmd(m.users, u.Username, pw))
			case "ctrl+c":
				return m, tea.Quit
			}
		}
		return m, cmd

	case stateConfirmDelete:
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "y":
				u, ok := m.selectedUser()
				if !ok {
					m.st = stateUsers
					return m, nil
				}
				return m, deleteUserCmd(m.users, m.documents, u.Username)
			case "n", "esc":
				m.st = stateUsers
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
		}
		return m, nil

	default:
		return m, nil
	}
}

// View renders the current screen as a string.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString("Lernhilfe admin")
	if m.dataDir != "" {
		b.WriteString(" (" + m.dataDir + ")")
	}
	b.WriteString("\n\n")

	switch m.st {
	case stateUsers:
		b.WriteString(m.userLst.View())
		b.WriteString("\n")
		b.WriteString("Keys: p=set-pass d=delete r=refresh q=quit\n")
	case stateSetPassword:
		u, ok := m.selectedUser()
		if ok {
			b.WriteString("Set password for: " + u.Username + "\n\n")
		}
		b.WriteString(m.setPw.View())
		b.WriteString("\n\nEnter=save  esc=back\n")
	case stateConfirmDelete:
		u, ok := m.selectedUser()
		if ok {
			b.WriteString("Delete account " + u.Username + " and its data file?\n\n")
		}
		b.WriteString("y=delete  n=back\n")
	}

	if m.err != "" {
		b.WriteString("\nError: " + m.err + "\n")
	}
	if m.ok != "" {
		b.WriteString("\n" + m.ok + "\n")
	}

	return b.String()
}

type userItem store.User

func (u userItem) Title() string { return u.Username }
func (u userItem) Description() string {
	return fmt.Sprintf("%s %s", u.Prename, u.Lastname)
}
func (u userItem) FilterValue() string { return u.Username }

// selectedUser returns the currently highlighted account.
func (m *Model) selectedUser() (store.User, bool) {
	if it, ok := m.userLst.SelectedItem().(userItem); ok {
		return store.User(it), true
	}
	return store.User{}, false
}

func refreshUsersCmd(users *store.Users) tea.Cmd {
	return func() tea.Msg {
		all, err := users.ListAll()
		if err != nil {
			return errMsg(err.Error())
		}
		return usersMsg(all)
	}
}

func setPasswordCmd(users *store.Users, username, password string) tea.Cmd {
	return func() tea.Msg {
		if !auth.IsStrong(password) {
			return errMsg("password too weak: need 8+ chars with upper, lower, digit, and symbol")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return errMsg(err.Error())
		}
		if err := users.SetPasswordHash(username, hash); err != nil {
			return errMsg(err.Error())
		}
		return okMsg("password updated for " + username)
	}
}

func deleteUserCmd(users *store.Users, documents *store.Documents, username string) tea.Cmd {
	return func() tea.Msg {
		if err := users.Delete(username); err != nil {
			return errMsg(err.Error())
		}
		// The data file may already be gone; that is not an error here.
		if err := documents.Remove(username); err != nil && !errors.Is(err, store.ErrNotFound) {
			return errMsg(err.Error())
		}
		return okMsg("deleted " + username)
	}
}
