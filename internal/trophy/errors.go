package trophy

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Error kinds. Every error returned by this package matches exactly one of
// them with errors.Is.
var (
	// ErrValidation marks malformed input, such as an empty trophy name.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a trophy or award that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateAward marks an award of a trophy the user already holds.
	ErrDuplicateAward = errors.New("trophy already awarded")
	// ErrStorage marks a failure of the backing store itself.
	ErrStorage = errors.New("storage error")
)

// Error carries the operation and kind of a failure. The underlying store
// error, if any, stays reachable through Unwrap.
type Error struct {
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("trophy.%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("trophy.%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

func (e *Error) Is(target error) bool {
	return e.Kind != nil && errors.Is(e.Kind, target)
}

// Kind returns a short label for the kind of err: "ok" for nil,
// "validation", "not_found", "duplicate", "storage", or "unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateAward):
		return "duplicate"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "unknown"
	}
}

func validationError(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func duplicateError(op, userID string, trophyID uint) error {
	return &Error{
		Op:      op,
		Kind:    ErrDuplicateAward,
		Message: fmt.Sprintf("user %s already holds trophy %d", userID, trophyID),
	}
}

func storageError(op string, err error) error {
	return &Error{Op: op, Kind: ErrStorage, Message: "store unavailable", Err: err}
}

// isDuplicateKey detects unique violations. gorm translates them to
// ErrDuplicatedKey for the bundled drivers; the text match covers drivers
// that do not.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}
