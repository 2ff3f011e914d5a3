package core

import "fmt"

// ErrLoadFailure indicates the embedding resource could not be read.
type ErrLoadFailure struct {
	Path  string
	Cause error
}

func (e *ErrLoadFailure) Error() string {
	return fmt.Sprintf("load failure for %s: %v", e.Path, e.Cause)
}

func (e *ErrLoadFailure) Unwrap() error { return e.Cause }

// NewLoadFailure wraps an I/O error raised while loading path.
func NewLoadFailure(path string, cause error) error {
	return &ErrLoadFailure{Path: path, Cause: cause}
}

// ErrEmptyVocabulary indicates that no valid vector line was parsed.
type ErrEmptyVocabulary struct {
	Path string
}

func (e *ErrEmptyVocabulary) Error() string {
	return fmt.Sprintf("empty vocabulary: no valid vectors in %s", e.Path)
}

// ErrEmptyIndex indicates an attempt to build an index over zero vectors.
type ErrEmptyIndex struct {
	Backend IndexBackend
}

func (e *ErrEmptyIndex) Error() string {
	return fmt.Sprintf("empty index: cannot build %s over zero vectors", e.Backend)
}

// ErrUnknownToken indicates a token absent from the embedding table.
type ErrUnknownToken struct {
	Token string
}

func (e *ErrUnknownToken) Error() string {
	return fmt.Sprintf("unknown token: %q", e.Token)
}

// NewUnknownTokenError creates an unknown token error.
func NewUnknownTokenError(token string) error {
	return &ErrUnknownToken{Token: token}
}

// ErrDimensionMismatch indicates vector dimension incompatibility.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// NewDimensionMismatchError creates a dimension mismatch error.
func NewDimensionMismatchError(expected, actual int) error {
	return &ErrDimensionMismatch{Expected: expected, Actual: actual}
}

// ErrInvalidArgument indicates invalid input.
type ErrInvalidArgument struct {
	Field   string
	Message string
}

func (e *ErrInvalidArgument) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid argument for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid argument: %s", e.Message)
}

func NewInvalidArgumentError(field, message string) error {
	return &ErrInvalidArgument{Field: field, Message: message}
}
