package remote

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ubiquits/ubiquits/internal/cli/ui"
	"github.com/ubiquits/ubiquits/internal/logging"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed for the auth frame to arrive
	authWait = 10 * time.Second

	// Maximum frame size accepted from the peer
	maxFrameSize = 64 * 1024
)

// Server upgrades HTTP requests to remote CLI sessions
type Server struct {
	upgrader websocket.Upgrader
	auth     Authenticator
	shell    *Shell
	log      logging.Logger
}

// NewServer creates a session handler
func NewServer(auth Authenticator, shell *Shell, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	log := logger.Source("remote-cli")
	log.Debug("Remote cli initialized")

	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Sessions authenticate in band, browsers are not clients
			CheckOrigin: func(*http.Request) bool { return true },
		},
		auth:  auth,
		shell: shell,
		log:   log,
	}
}

// ServeHTTP runs one session per connection
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sess := &session{id: uuid.NewString(), conn: conn}
	s.log.Info("Accepted a connection from ["+r.RemoteAddr+"]", "session", sess.id)

	user, ok := s.authenticate(sess)
	if !ok {
		return
	}
	s.log.Info("Welcome "+user+", you are authenticated", "session", sess.id)

	if err := sess.send(Frame{Type: FrameBanner, Data: Banner, Message: Delimiter}); err != nil {
		return
	}
	s.loop(r.Context(), sess)
}

func (s *Server) authenticate(sess *session) (string, bool) {
	sess.conn.SetReadLimit(maxFrameSize)
	sess.conn.SetReadDeadline(time.Now().Add(authWait))

	var f Frame
	if err := sess.conn.ReadJSON(&f); err != nil {
		s.log.Debug("no auth frame", "session", sess.id, "error", err)
		return "", false
	}
	sess.conn.SetReadDeadline(time.Time{})

	if f.Type != FrameAuth {
		sess.reject(ErrMissingCredentials)
		return "", false
	}

	user, err := s.auth.Authenticate(f)
	if err != nil {
		s.log.Info("authentication failed", "session", sess.id, "reason", err.Error())
		sess.reject(err)
		return "", false
	}
	return user, true
}

func (s *Server) loop(ctx context.Context, sess *session) {
	for {
		var f Frame
		if err := sess.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Error("session read failed", "session", sess.id, "error", err)
			}
			return
		}

		if f.Type != FrameExec {
			if sess.send(Frame{Type: FrameError, Message: "unexpected frame type " + f.Type}) != nil {
				return
			}
			continue
		}

		line := strings.TrimSpace(f.Line)
		if line == "exit" || line == "quit" {
			sess.send(Frame{Type: FrameDone})
			sess.close(websocket.CloseNormalClosure, "bye")
			return
		}

		s.log.Debug("exec", "session", sess.id, "line", line)
		if err := s.exec(ctx, sess, line); err != nil {
			return
		}
	}
}

// exec runs line and reports the result. Only write failures are returned.
func (s *Server) exec(ctx context.Context, sess *session, line string) error {
	var out bytes.Buffer
	runErr := s.shell.Exec(ctx, line, &out)

	if out.Len() > 0 {
		if err := sess.send(Frame{Type: FrameOutput, Data: out.String()}); err != nil {
			return err
		}
	}

	if runErr != nil {
		reply := Frame{Type: FrameError, Message: runErr.Error()}
		var unknown *UnknownCommandError
		if errors.As(runErr, &unknown) {
			reply.Data = ui.UnknownCommand(unknown.Name, s.shell.Names(), s.shell.NoColor())
		} else {
			s.log.Error("command failed", "session", sess.id, "line", line, "error", runErr)
		}
		return sess.send(reply)
	}
	return sess.send(Frame{Type: FrameDone})
}

type session struct {
	id   string
	conn *websocket.Conn
}

func (s *session) send(f Frame) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(f)
}

func (s *session) reject(err error) {
	s.send(Frame{Type: FrameError, Message: err.Error()})
	s.close(websocket.ClosePolicyViolation, "unauthorized")
}

func (s *session) close(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
