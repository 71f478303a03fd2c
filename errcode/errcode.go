package errcode

// Code is a stable error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	InvalidParams Code = "invalid_params"
	Timeout       Code = "timeout"
	Uninitialized Code = "uninitialized"

	// Peripherals.
	Bus      Code = "bus_error"
	Protocol Code = "protocol"

	// Clip store.
	InvalidSignature Code = "invalid_signature"
	Inconsistent     Code = "inconsistent_data"
	NotFound         Code = "not_found"
	OutOfSpace       Code = "out_of_space"
	TooManyFiles     Code = "too_many_files"
	FileTooBig       Code = "file_too_big"
	NameTooLong      Code = "name_too_long"
	DuplicateName    Code = "duplicate_name"

	// Image upload.
	BadAck      Code = "bad_ack"
	CRCMismatch Code = "crc_mismatch"

	Error Code = "error" // generic fallback
)

// E wraps a Code with context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.X) match a wrapped code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap returns nil for a nil err, otherwise an *E carrying c.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		if inner := u.Unwrap(); inner != nil {
			return Of(inner)
		}
	}
	return Error
}
