package pxdata

import "fmt"

// ParadoxError carries a numeric error code alongside the message so
// callers can branch on failure classes without string matching.
type ParadoxError struct {
	Number      int
	Message     string
	MessageArgs []interface{}
}

func (e *ParadoxError) Error() string {
	message := e.Message
	if len(e.MessageArgs) > 0 {
		message = fmt.Sprintf(e.Message, e.MessageArgs...)
	}
	return fmt.Sprintf("%06d: %s", e.Number, message)
}

const (
	// ErrCodeBadArgument is returned for malformed path or password
	// arguments; the operation is never attempted.
	ErrCodeBadArgument = 270000
	// ErrCodeOpenFailed is returned when the backend cannot open the file.
	ErrCodeOpenFailed = 270001
	// ErrCodeMissingPassword is returned when an encrypted file is opened
	// without a password.
	ErrCodeMissingPassword = 270002
	// ErrCodeWrongPassword is returned when the password checksum does not
	// match the header's encryption word.
	ErrCodeWrongPassword = 270003
	// ErrCodeInvalidHandle is returned by every entry point that requires
	// a live handle when the session is closed or was never opened.
	ErrCodeInvalidHandle = 270004
	// ErrCodeFieldDefs is returned when field definitions cannot be read.
	ErrCodeFieldDefs = 270005
	// ErrCodeRecordRetrieval is returned when a record's raw value array
	// cannot be retrieved; the whole dataset fetch is aborted.
	ErrCodeRecordRetrieval = 270006
)

var (
	// ErrInvalidHandle is returned for operations on a closed or
	// never-opened session.
	ErrInvalidHandle = &ParadoxError{
		Number:  ErrCodeInvalidHandle,
		Message: "the file handle is closed or invalid",
	}
	// ErrOpenFailed marks a backend open failure. It is recoverable:
	// callers branch with errors.Is instead of treating it as misuse.
	ErrOpenFailed = &ParadoxError{
		Number:  ErrCodeOpenFailed,
		Message: "backend failed to open file",
	}
	// ErrMissingPassword is returned when the header reports encryption
	// and no password was supplied.
	ErrMissingPassword = &ParadoxError{
		Number:  ErrCodeMissingPassword,
		Message: "file is encrypted and requires a password",
	}
	// ErrWrongPassword is returned when the password checksum mismatches.
	ErrWrongPassword = &ParadoxError{
		Number:  ErrCodeWrongPassword,
		Message: "password does not match the file's encryption checksum",
	}
)

func badArgument(format string, args ...interface{}) error {
	return &ParadoxError{Number: ErrCodeBadArgument, Message: format, MessageArgs: args}
}
