// Package pxdata marshals open Paradox documents into column-oriented
// datasets: it owns the session/handle lifecycle, password validation,
// field-type mapping, per-value decoding with null-sentinel and epoch
// semantics, and the metadata surface.
package pxdata

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pxbase/pxread/pkg/pxfile"
)

// DefaultDateUpperBound is the blank-date sentinel: day counts above it
// are far-future garbage the format uses for blank cells.
const DefaultDateUpperBound = 3000000

// Options tune how a session opens and decodes its document.
type Options struct {
	// DateUpperBound overrides the blank-date sentinel. Zero means
	// DefaultDateUpperBound.
	DateUpperBound int64

	// OpenDocument replaces the default pxfile backend. Used to plug in
	// alternate decoders and test doubles.
	OpenDocument func(path string) (Document, error)
}

func (o *Options) dateUpperBound() int64 {
	if o == nil || o.DateUpperBound <= 0 {
		return DefaultDateUpperBound
	}
	return o.DateUpperBound
}

// Session owns exactly one open document. The explicit Close and the
// finalizer installed at open time route through the same teardown; after
// either, every entry point reports ErrInvalidHandle.
//
// A Session is not safe for concurrent use.
type Session struct {
	doc            Document
	dateUpperBound int64
}

// Open opens a Paradox file and validates its encryption password.
//
// Malformed arguments and authentication failures return ParadoxError
// codes; an encrypted document that fails authentication is torn down
// before returning so no handle leaks. A backend open failure returns an
// error matching ErrOpenFailed (via errors.Is) so callers can branch on
// it without treating it as misuse.
func Open(path, password string, opts *Options) (*Session, error) {
	if strings.TrimSpace(path) == "" {
		return nil, badArgument("filename must be a non-empty string")
	}

	openDoc := defaultOpen
	if opts != nil && opts.OpenDocument != nil {
		openDoc = opts.OpenDocument
	}

	doc, err := openDoc(path)
	if err != nil {
		logger.Warnf("backend failed to open %s: %v", path, err)
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenFailed, path, err)
	}

	if err := validatePassword(doc, password); err != nil {
		doc.Close()
		return nil, err
	}

	s := &Session{
		doc:            doc,
		dateUpperBound: opts.dateUpperBound(),
	}
	runtime.SetFinalizer(s, (*Session).Close)
	return s, nil
}

// validatePassword compares the candidate password's checksum against the
// header's encryption word. Unencrypted files (word 0) accept anything.
func validatePassword(doc Document, password string) error {
	checksum := doc.EncryptionChecksum()
	if checksum == 0 {
		return nil
	}
	if password == "" {
		return ErrMissingPassword
	}
	if pxfile.PasswordChecksum(password) != checksum {
		return ErrWrongPassword
	}
	return nil
}

func defaultOpen(path string) (Document, error) {
	doc := pxfile.New()
	if err := doc.Open(path); err != nil {
		return nil, err
	}
	return doc, nil
}

// Close releases the session's document and invalidates the handle.
// Closing an already-closed session is a no-op.
func (s *Session) Close() error {
	if s.doc == nil {
		return nil
	}
	doc := s.doc
	s.doc = nil
	runtime.SetFinalizer(s, nil)
	return doc.Close()
}

// SetBlobFile associates the .MB side file holding externally stored
// blobs. Backend rejection is not fatal: it returns false with a warning
// and blob fields simply fail to resolve downstream.
func (s *Session) SetBlobFile(path string) (bool, error) {
	doc, err := s.document()
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(path) == "" {
		return false, badArgument("blob filename must be a non-empty string")
	}
	if err := doc.SetBlobFile(path); err != nil {
		logger.Warnf("backend rejected blob file %s: %v", path, err)
		return false, nil
	}
	return true, nil
}

// document is the live-handle guard every entry point goes through.
func (s *Session) document() (Document, error) {
	if s == nil || s.doc == nil {
		return nil, ErrInvalidHandle
	}
	return s.doc, nil
}
