// Package command_buffer records render state changes and draws as fixed-size commands
// and replays them against a Backend.
package command_buffer

import (
	"fmt"
)

// CommandBuffer is an append-only list of commands. Execute replays and clears it; capacity is kept.
type CommandBuffer struct {
	commands []Command
}

// NewCommandBuffer creates a command buffer with room for capacity commands.
//
// Parameters:
//   - capacity: initial capacity
//
// Returns:
//   - *CommandBuffer: the buffer
func NewCommandBuffer(capacity int) *CommandBuffer {
	return &CommandBuffer{commands: make([]Command, 0, capacity)}
}

// Add appends cmd and returns a pointer to the stored record for in-place edits.
// The pointer stays valid for edits only while the record is the last one (see IsLast).
//
// Parameters:
//   - cmd: the command to append
//
// Returns:
//   - *Command: the stored record
func (cb *CommandBuffer) Add(cmd Command) *Command {
	if cmd.Type >= NumCommandTypes {
		panic(fmt.Sprintf("command_buffer: Add with invalid command type %d", cmd.Type))
	}
	cb.commands = append(cb.commands, cmd)
	return &cb.commands[len(cb.commands)-1]
}

// Last returns the most recently added record, or nil when empty.
func (cb *CommandBuffer) Last() *Command {
	if len(cb.commands) == 0 {
		return nil
	}
	return &cb.commands[len(cb.commands)-1]
}

// IsLast reports whether cmd is the most recently added record.
//
// Parameters:
//   - cmd: a pointer previously returned by Add
//
// Returns:
//   - bool: true if no command was added after cmd
func (cb *CommandBuffer) IsLast(cmd *Command) bool {
	return cmd != nil && cmd == cb.Last()
}

// Len returns the number of recorded commands.
func (cb *CommandBuffer) Len() int {
	return len(cb.commands)
}

// Commands returns the recorded commands. The slice aliases the buffer until the next Add or Execute.
func (cb *CommandBuffer) Commands() []Command {
	return cb.commands
}

// Reset drops every recorded command without executing it.
func (cb *CommandBuffer) Reset() {
	clear(cb.commands)
	cb.commands = cb.commands[:0]
}

// Execute replays every command in order against backend exactly once, then resets the buffer.
// On the first backend error the remaining commands are dropped.
//
// Parameters:
//   - backend: the backend to execute against
//
// Returns:
//   - error: the first backend error, annotated with the failing command
func (cb *CommandBuffer) Execute(backend Backend) error {
	defer cb.Reset()
	for i := range cb.commands {
		cmd := &cb.commands[i]
		if err := executeTable[cmd.Type](backend, cmd); err != nil {
			return fmt.Errorf("command_buffer: %s (#%d): %w", cmd.Type, i, err)
		}
	}
	return nil
}
