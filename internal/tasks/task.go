package tasks

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

const (
	TypeRefreshTokenCleanup = "refresh_token_cleanup"

	fieldType    = "type"
	fieldPayload = "payload"
)

// Task is the envelope placed on the maintenance stream.
type Task struct {
	Type        string    `json:"type"`
	RequestedAt time.Time `json:"requestedAt"`
}

// Values renders the task as stream fields. The type is duplicated outside
// the JSON body so it can be read with XRANGE without decoding.
func (t Task) Values() (map[string]any, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	return map[string]any{
		fieldType:    t.Type,
		fieldPayload: string(body),
	}, nil
}

// Decode reads a task back from stream fields.
func Decode(values map[string]any) (Task, error) {
	if raw, ok := values[fieldPayload].(string); ok && raw != "" {
		var t Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return Task{}, fmt.Errorf("decode task: %w", err)
		}
		return t, nil
	}
	if typ, ok := values[fieldType].(string); ok && typ != "" {
		return Task{Type: typ}, nil
	}
	return Task{}, errors.New("decode task: missing type")
}
