package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrDuplicateCommand = errors.New("command already registered")
	ErrInvalidName      = errors.New("invalid command name")
	ErrUnexpectedArgs   = errors.New("command takes no arguments")
)

// Handler executes a command with its raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (interface{}, error)

// Command is a named operation the front-end can invoke.
type Command struct {
	Name    string
	Handler Handler
	// Nullary commands have their arguments rejected before the handler runs.
	Nullary bool
}

// Nullary wraps a function without parameters as a Command.
func Nullary[T any](name string, fn func() T) Command {
	return Command{
		Name:    name,
		Nullary: true,
		Handler: func(context.Context, json.RawMessage) (interface{}, error) {
			return fn(), nil
		},
	}
}

type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
	}
}

func (r *Registry) Register(cmds ...Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cmd := range cmds {
		if strings.TrimSpace(cmd.Name) == "" || cmd.Handler == nil {
			return fmt.Errorf("%w: %q", ErrInvalidName, cmd.Name)
		}
		if _, exists := r.commands[cmd.Name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateCommand, cmd.Name)
		}
		r.commands[cmd.Name] = cmd
	}
	return nil
}

// Invoke dispatches a command by name. Arguments sent to a nullary command
// are rejected here so handlers never see them.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	r.mu.RLock()
	cmd, ok := r.commands[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if cmd.Nullary && hasArgs(args) {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedArgs, name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return cmd.Handler(ctx, args)
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.commands[name]
	return ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// hasArgs treats an absent body, null, {} and [] as no arguments.
func hasArgs(args json.RawMessage) bool {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 {
		return false
	}

	var value interface{}
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return true
	}

	switch v := value.(type) {
	case nil:
		return false
	case map[string]interface{}:
		return len(v) > 0
	case []interface{}:
		return len(v) > 0
	default:
		return true
	}
}
