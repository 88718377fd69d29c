package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedResult = errors.New("agent: malformed result payload")

// Result is the structured outcome the agent reports on stdout for connect.
type Result struct {
	Success bool
	Message string
}

// ParseResult decodes the agent's stdout into a Result. The payload must be a
// JSON object; anything else is ErrMalformedResult. The success field counts
// as true only when it is present and a JSON boolean true. Absent or
// wrong-typed success decodes to false rather than an error, so a lying or
// sloppy agent can never be read as connected. The message field is taken
// only when it is a string.
func ParseResult(payload []byte) (Result, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return Result{}, fmt.Errorf("%w: empty payload", ErrMalformedResult)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if fields == nil {
		return Result{}, fmt.Errorf("%w: payload is not an object", ErrMalformedResult)
	}

	var res Result
	if raw, ok := fields["success"]; ok {
		var success bool
		if err := json.Unmarshal(raw, &success); err == nil {
			res.Success = success
		}
	}
	if raw, ok := fields["message"]; ok {
		var message string
		if err := json.Unmarshal(raw, &message); err == nil {
			res.Message = message
		}
	}
	return res, nil
}
