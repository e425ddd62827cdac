package remote

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/ubiquits/ubiquits/internal/cli/ui"
	"github.com/ubiquits/ubiquits/internal/logging"
)

// Command is a named action runnable from a remote session
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string, out io.Writer) error
}

// UnknownCommandError is returned by Exec for a line no command handles
type UnknownCommandError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command: %s", e.Name)
}

// Shell holds the registered commands
type Shell struct {
	mu       sync.RWMutex
	commands map[string]Command
	log      logging.Logger
	noColor  bool
}

// NewShell creates a shell with the help command registered
func NewShell(logger logging.Logger, noColor bool) *Shell {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Shell{
		commands: make(map[string]Command),
		log:      logger,
		noColor:  noColor,
	}
	s.MustRegister(Command{
		Name:        "help",
		Description: "lists the available commands",
		Run:         s.help,
	})
	return s
}

// Register adds a command. Names are unique.
func (s *Shell) Register(cmd Command) error {
	if cmd.Name == "" || strings.ContainsAny(cmd.Name, " \t\n") {
		return fmt.Errorf("invalid command name %q", cmd.Name)
	}
	if cmd.Run == nil {
		return fmt.Errorf("command %s has no action", cmd.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.commands[cmd.Name]; exists {
		return fmt.Errorf("command %s already registered", cmd.Name)
	}
	s.commands[cmd.Name] = cmd
	s.log.Debug("registered command", "command", cmd.Name)
	return nil
}

// MustRegister is like Register but panics on error
func (s *Shell) MustRegister(cmd Command) {
	if err := s.Register(cmd); err != nil {
		panic(err)
	}
}

// Names returns the registered command names, sorted
func (s *Shell) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NoColor reports whether command output is rendered without colors
func (s *Shell) NoColor() bool {
	return s.noColor
}

// Exec runs one command line. Blank lines are a no-op.
func (s *Shell) Exec(ctx context.Context, line string, out io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	s.mu.RLock()
	cmd, ok := s.commands[fields[0]]
	s.mu.RUnlock()
	if !ok {
		return &UnknownCommandError{Name: fields[0], Suggestions: ui.Suggest(fields[0], s.Names(), nil)}
	}
	return cmd.Run(ctx, fields[1:], out)
}

func (s *Shell) help(_ context.Context, _ []string, out io.Writer) error {
	s.mu.RLock()
	cmds := make([]Command, 0, len(s.commands))
	for _, c := range s.commands {
		cmds = append(cmds, c)
	}
	s.mu.RUnlock()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

	table := ui.NewTable(out, []string{"Command", "Description"}, &ui.TableOptions{NoColor: s.noColor})
	for _, c := range cmds {
		table.AddRow(c.Name, c.Description)
	}
	table.AddRow("exit", "closes the session")
	table.Render()
	return nil
}
