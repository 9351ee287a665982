package server

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"

	"wtpulse/internal/logging"
	"wtpulse/internal/ui"
)

// sessionModel wraps ui.Model to log the end of a remote session
type sessionModel struct {
	ui.Model
	sessionID string
	startTime time.Time
}

func (s sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.QuitMsg); ok {
		logging.Logger.Info("SSH session ended",
			"session_id", s.sessionID,
			"duration", time.Since(s.startTime).String())
	}

	updated, cmd := s.Model.Update(msg)
	if m, ok := updated.(ui.Model); ok {
		s.Model = m
	}
	return s, cmd
}

// teaHandler creates a read-only dashboard for each SSH session
func (s *Server) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := sess.Pty()
	sessionID := fmt.Sprintf("%s@%s", sess.User(), sess.RemoteAddr().String())

	logging.Logger.Info("New SSH session",
		"session_id", sessionID,
		"user", sess.User(),
		"term", pty.Term,
		"window", fmt.Sprintf("%dx%d", pty.Window.Width, pty.Window.Height))

	// Remote users share the poller, so they must not pause it
	model := ui.NewModel(s.dashboard, s.labels, ui.Options{ReadOnly: true})

	// Unsubscribe on disconnect too, not only on quit
	go func() {
		<-sess.Context().Done()
		model.Close()
	}()

	return sessionModel{
		Model:     model,
		sessionID: sessionID,
		startTime: time.Now(),
	}, []tea.ProgramOption{tea.WithAltScreen()}
}
