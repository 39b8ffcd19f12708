package pipeline

import "errors"

// Error kinds. Adapters tag their failures with WithKind or by wrapping
// one of these so the orchestrator can classify them.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrCapture       = errors.New("capture error")
	ErrEmptyCapture  = errors.New("empty capture")
	ErrTransport     = errors.New("transport error")
	ErrDecoding      = errors.New("decoding error")
	ErrInsertion     = errors.New("insertion error")
)

var kinds = []error{ErrConfiguration, ErrCapture, ErrEmptyCapture, ErrTransport, ErrDecoding, ErrInsertion}

// RunError is what a failed run ends with. Its message is the detail shown
// to the user.
type RunError struct {
	Kind   error
	Detail string
	Err    error
}

func (e *RunError) Error() string {
	switch {
	case e.Err == nil:
		return e.Detail
	case e.Detail == "":
		return e.Err.Error()
	}
	return e.Detail + ": " + e.Err.Error()
}

func (e *RunError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WithKind tags err with kind without changing its message.
func WithKind(kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string   { return e.err.Error() }
func (e *kindError) Unwrap() []error { return []error{e.err, e.kind} }

// KindOf returns the first error kind err matches, or fallback.
func KindOf(err, fallback error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return fallback
}

func newError(err error, fallback error, detail string) *RunError {
	return &RunError{Kind: KindOf(err, fallback), Detail: detail, Err: err}
}
