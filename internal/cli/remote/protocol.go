// Package remote is the runtime shell of a running server: a websocket
// endpoint that authenticates a developer and executes registered commands
// such as routes and models.
//
// Every message is a JSON Frame. The client opens with an auth frame; the
// server answers with a banner or an error and closes. Each exec frame is
// answered by output frames followed by done, or by an error frame.
package remote

// Frame types
const (
	FrameAuth   = "auth"
	FrameBanner = "banner"
	FrameExec   = "exec"
	FrameOutput = "output"
	FrameDone   = "done"
	FrameError  = "error"
)

// Banner greets an authenticated session
const Banner = "Welcome to Ubiquits runtime cli. Type 'help' for commands"

// Delimiter is the prompt shown by the client
const Delimiter = "ubiquits-runtime~$"

// Frame is the unit of the remote CLI protocol
type Frame struct {
	Type     string `json:"type"`
	JWT      string `json:"jwt,omitempty"`
	Password string `json:"password,omitempty"`
	Line     string `json:"line,omitempty"`
	Data     string `json:"data,omitempty"`
	Message  string `json:"message,omitempty"`
}
