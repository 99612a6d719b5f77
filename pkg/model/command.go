package model

import (
	"context"
	"errors"
)

// Command errors.
var (
	ErrCommandNotFound   = errors.New("command not found")
	ErrCommandFailed     = errors.New("command execution failed")
	ErrInvalidParameters = errors.New("invalid command parameters")
)

// CommandHandler is the function signature for command handlers.
// Handlers run with the node's stack lock held and must use the Locked
// variants of node operations.
type CommandHandler func(ctx context.Context, params map[string]any) (map[string]any, error)

// CommandMetadata describes a command's properties.
type CommandMetadata struct {
	// ID is the command identifier within the cluster.
	ID uint32

	// Name is the human-readable command name.
	Name string

	// Parameters describes the expected request fields.
	Parameters []ParameterMetadata
}

// ParameterMetadata describes a command field.
type ParameterMetadata struct {
	// Name is the field name used on the wire.
	Name string

	// Type is the data type.
	Type DataType

	// Required indicates if the field is mandatory.
	Required bool
}

// Command represents a command instance with its handler.
type Command struct {
	metadata *CommandMetadata
	handler  CommandHandler
}

// NewCommand creates a new command with the given metadata and handler.
func NewCommand(meta *CommandMetadata, handler CommandHandler) *Command {
	return &Command{
		metadata: meta,
		handler:  handler,
	}
}

// ID returns the command ID.
func (c *Command) ID() uint32 {
	return c.metadata.ID
}

// Metadata returns the command metadata.
func (c *Command) Metadata() *CommandMetadata {
	return c.metadata
}

// Invoke executes the command with the given parameters.
func (c *Command) Invoke(ctx context.Context, params map[string]any) (map[string]any, error) {
	if err := c.validateParameters(params); err != nil {
		return nil, err
	}
	if c.handler == nil {
		return nil, ErrCommandNotFound
	}
	return c.handler(ctx, params)
}

func (c *Command) validateParameters(params map[string]any) error {
	for _, p := range c.metadata.Parameters {
		if !p.Required {
			continue
		}
		v, exists := params[p.Name]
		if !exists {
			return ErrInvalidParameters
		}
		if p.Type != DataTypeBool && p.Type != DataTypeString {
			if _, ok := ToInt64(v); !ok {
				return ErrInvalidParameters
			}
		}
	}
	return nil
}

// ParamInt returns an integer parameter, accepting any Go integer type.
func ParamInt(params map[string]any, name string) (int64, bool) {
	v, ok := params[name]
	if !ok {
		return 0, false
	}
	return ToInt64(v)
}
