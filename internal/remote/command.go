package remote

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"relay/internal/services"
)

// Op names a remote operator command.
type Op string

const (
	OpPause    Op = "pause"
	OpResume   Op = "resume"
	OpSkip     Op = "skip"
	OpCooldown Op = "cooldown"
	OpStart    Op = "start"
	OpStop     Op = "stop"
	OpEnqueue  Op = "enqueue"
)

// Command is one stream entry.
type Command struct {
	Op       Op        `json:"op"`
	Seconds  int       `json:"seconds,omitempty"`
	Line     string    `json:"line,omitempty"`
	Origin   string    `json:"origin,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
}

// ParseOp validates an operator-supplied command name.
func ParseOp(raw string) (Op, error) {
	op := Op(strings.ToLower(strings.TrimSpace(raw)))
	switch op {
	case OpPause, OpResume, OpSkip, OpCooldown, OpStart, OpStop, OpEnqueue:
		return op, nil
	}
	return "", services.Wrap(services.ErrValidation, "remote", "parse", fmt.Sprintf("unknown command %q", raw), nil)
}

// Validate checks the fields each op requires.
func (c Command) Validate() error {
	if _, err := ParseOp(string(c.Op)); err != nil {
		return err
	}
	switch c.Op {
	case OpCooldown:
		if c.Seconds < 0 {
			return services.Wrap(services.ErrValidation, "remote", "validate",
				fmt.Sprintf("cooldown must be >= 0 seconds, got %d", c.Seconds), nil)
		}
	case OpEnqueue:
		if strings.TrimSpace(c.Line) == "" {
			return services.Wrap(services.ErrValidation, "remote", "validate", "enqueue requires a line", nil)
		}
	}
	return nil
}

func encode(c Command) ([]byte, error) {
	return json.Marshal(c)
}

func decode(values map[string]any) (Command, error) {
	raw, ok := values[fieldData]
	if !ok {
		return Command{}, fmt.Errorf("entry has no %q field", fieldData)
	}
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return Command{}, fmt.Errorf("unexpected %q field type %T", fieldData, raw)
	}
	var c Command
	if err := json.Unmarshal(data, &c); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	return c, c.Validate()
}
