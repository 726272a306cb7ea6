package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"

	"github.com/fdwatch/fdwatch/internal/errors"
)

// JSONEnvelope wraps --json output in a consistent structure.
type JSONEnvelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *JSONError `json:"error,omitempty"`
}

// JSONError is the machine-readable form of a failure.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Cause      string `json:"cause,omitempty"`
}

// ErrCodeUnknown is used for errors that carry no code of their own.
const ErrCodeUnknown = "UNKNOWN"

// WriteJSONSuccess writes a successful response with data.
func WriteJSONSuccess(w io.Writer, data any) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError converts err to an error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{Error: ErrorToJSON(err)})
}

func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON maps a structured error to its code; anything else is
// reported as UNKNOWN.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var fdErr *errors.Error
	if stderrors.As(err, &fdErr) {
		out := &JSONError{
			Code:       fdErr.Code,
			Message:    fdErr.Message,
			Suggestion: fdErr.Suggestion,
		}
		if fdErr.Cause != nil {
			out.Cause = fdErr.Cause.Error()
		}
		return out
	}

	return &JSONError{Code: ErrCodeUnknown, Message: err.Error()}
}

// jsonOrError runs fn and writes either its result or its failure as JSON.
// The error is still returned so the exit status reflects it.
func jsonOrError(w io.Writer, fn func() (any, error)) error {
	data, err := fn()
	if err != nil {
		if werr := WriteJSONFromError(w, err); werr != nil {
			return werr
		}
		return err
	}
	return WriteJSONSuccess(w, data)
}
