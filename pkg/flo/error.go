package flo

// A Kind discriminates store errors so callers can branch without matching
// on message strings.
type Kind string

const (
	// KindPasskeyRequired is used when an operation needs to encrypt or
	// decrypt and no passkey is resolvable.
	KindPasskeyRequired Kind = "passkey_required"
	// KindDecryption is used when a cipher operation failed or produced no
	// usable plaintext.
	KindDecryption Kind = "decryption"
	// KindDecode is used when raw content is not valid JSON at the document
	// or category level.
	KindDecode Kind = "decode"
	// KindNoUser is used when an operation is invoked with no active user id.
	KindNoUser Kind = "no_user"
	// KindInternal is used for wrapped collaborator failures.
	KindInternal Kind = "internal"
)

// An Error is a tagged store error.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// NewError returns a new Error with the given kind and message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError returns a new Error wrapping the given cause.
func WrapError(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Error implements error interface.
func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

// Cause returns the underlying error, compatible with errors.Cause.
func (e *Error) Cause() error {
	return e.cause
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the kind of the given error chain, or an empty Kind when no
// Error is found.
func KindOf(err error) Kind {
	for err != nil {
		if ferr, ok := err.(*Error); ok {
			return ferr.Kind
		}

		cause, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = cause.Cause()
	}
	return Kind("")
}

// IsPasskeyRequired returns true if err means no passkey was resolvable.
func IsPasskeyRequired(err error) bool {
	return KindOf(err) == KindPasskeyRequired
}

// IsDecryption returns true if err is a cipher failure.
func IsDecryption(err error) bool {
	return KindOf(err) == KindDecryption
}

// IsDecode returns true if err is a malformed content failure.
func IsDecode(err error) bool {
	return KindOf(err) == KindDecode
}

// IsNoUser returns true if err means no active user id was given.
func IsNoUser(err error) bool {
	return KindOf(err) == KindNoUser
}
