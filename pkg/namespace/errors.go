package namespace

// Error is the domain error for namespace operations.
//
// These are application outcomes (path already present, directory not
// empty) as opposed to infrastructure failures. The server translates the
// Code to a wire status and the client library translates it back, so the
// taxonomy is identical on both sides of a connection.
type Error struct {
	// Code is the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the namespace path the error relates to, when applicable.
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode is the category of a namespace error.
type ErrorCode int

const (
	// ErrAlreadyExists indicates the target path is already present.
	ErrAlreadyExists ErrorCode = iota + 1

	// ErrNotFound indicates the target, or a required parent, is absent.
	ErrNotFound

	// ErrNotEmpty indicates a directory delete with remaining children.
	ErrNotEmpty

	// ErrWrongType indicates a kind mismatch between the request and the
	// stored entry (file operation on a directory or vice versa).
	ErrWrongType

	// ErrShardUnavailable indicates a required peer shard did not answer
	// within the deadline. Conservative: the invariant could not be
	// proven, so the operation fails rather than risk violating it.
	ErrShardUnavailable

	// ErrMalformed indicates a protocol decode failure or an invalid path.
	ErrMalformed

	// ErrForbidden indicates an operation the namespace never permits,
	// such as deleting the root directory.
	ErrForbidden

	// ErrInternal indicates an unexpected store or content failure.
	ErrInternal
)

func NewAlreadyExists(path string) *Error {
	return &Error{Code: ErrAlreadyExists, Message: "path already exists", Path: path}
}

func NewNotFound(path string) *Error {
	return &Error{Code: ErrNotFound, Message: "path not found", Path: path}
}

func NewNotEmpty(path string) *Error {
	return &Error{Code: ErrNotEmpty, Message: "directory not empty", Path: path}
}

func NewWrongType(path string, want Kind) *Error {
	return &Error{Code: ErrWrongType, Message: "entry is not a " + want.String(), Path: path}
}

func NewShardUnavailable(path, detail string) *Error {
	return &Error{Code: ErrShardUnavailable, Message: "shard unavailable: " + detail, Path: path}
}

func NewMalformed(detail, path string) *Error {
	return &Error{Code: ErrMalformed, Message: detail, Path: path}
}

func NewForbidden(detail, path string) *Error {
	return &Error{Code: ErrForbidden, Message: detail, Path: path}
}

func NewInternal(detail, path string) *Error {
	return &Error{Code: ErrInternal, Message: detail, Path: path}
}
