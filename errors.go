package ggreplay

// ApplyError indicates a single draw-call command failed to apply.
// The failing command is skipped; the rest of its mutation event still runs.
type ApplyError struct {
	// ID is the recorded canvas the command targeted.
	ID int
	// Method is the recorded draw-call name.
	Method string
	// Err is the underlying failure.
	Err error
}

func (e *ApplyError) Error() string {
	return "ggreplay: apply " + e.Method + ": " + e.Err.Error()
}

func (e *ApplyError) Unwrap() error { return e.Err }

// EncodeError indicates a surface snapshot could not be encoded.
// The placeholder keeps its previous image.
type EncodeError struct {
	// ID is the recorded canvas whose snapshot failed.
	ID int
	// Err is the underlying failure.
	Err error
}

func (e *EncodeError) Error() string {
	return "ggreplay: encode snapshot: " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error { return e.Err }
