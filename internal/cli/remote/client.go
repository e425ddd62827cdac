package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ubiquits/ubiquits/internal/cli/ui"
)

// RemoteError is an error frame sent by the server
type RemoteError struct {
	Message string
	// Detail is preformatted text to show instead of Message, if any
	Detail string
}

func (e *RemoteError) Error() string { return e.Message }

// Client is an authenticated remote CLI session
type Client struct {
	conn   *websocket.Conn
	banner string
	prompt string
}

// Dial connects to url and authenticates with creds, an auth frame carrying
// a JWT or a password
func Dial(ctx context.Context, url string, creds Frame) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	creds.Type = FrameAuth
	if err := conn.WriteJSON(creds); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	var reply Frame
	if err := conn.ReadJSON(&reply); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	switch reply.Type {
	case FrameBanner:
		prompt := reply.Message
		if prompt == "" {
			prompt = Delimiter
		}
		return &Client{conn: conn, banner: reply.Data, prompt: prompt}, nil
	case FrameError:
		conn.Close()
		return nil, &RemoteError{Message: reply.Message}
	}
	conn.Close()
	return nil, fmt.Errorf("unexpected %q frame during authentication", reply.Type)
}

// Banner returns the greeting sent by the server
func (c *Client) Banner() string { return c.banner }

// Prompt returns the prompt sent by the server
func (c *Client) Prompt() string { return c.prompt }

// Exec runs line remotely and returns its output
func (c *Client) Exec(line string) (string, error) {
	if err := c.conn.WriteJSON(Frame{Type: FrameExec, Line: line}); err != nil {
		return "", err
	}

	var out strings.Builder
	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			return out.String(), err
		}
		switch f.Type {
		case FrameOutput:
			out.WriteString(f.Data)
		case FrameDone:
			return out.String(), nil
		case FrameError:
			return out.String(), &RemoteError{Message: f.Message, Detail: f.Data}
		}
	}
}

// Close ends the session
func (c *Client) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return c.conn.Close()
}

// REPL reads command lines from in until EOF or exit, printing results to
// out. Command errors are printed, connection errors end the loop.
func (c *Client) REPL(in io.Reader, out io.Writer, noColor bool) error {
	fmt.Fprintln(out, c.banner)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s ", c.prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		output, err := c.Exec(line)
		fmt.Fprint(out, output)
		if line == "exit" || line == "quit" {
			return nil
		}

		var remote *RemoteError
		switch {
		case errors.As(err, &remote) && remote.Detail != "":
			fmt.Fprint(out, remote.Detail)
		case errors.As(err, &remote):
			ui.WriteError(out, remote, noColor)
		case err != nil:
			return err
		}
	}
}
