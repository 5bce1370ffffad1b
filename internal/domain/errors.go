// Package domain defines core types and errors for the gateway configuration store.
package domain

import "fmt"

// UsageError indicates a malformed request (bad selector combination,
// non-positive ID). The store is never touched.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// NotFoundError indicates an entity was not found by name or ID.
type NotFoundError struct {
	Kind     Kind
	Selector string
	Message  string
}

func (e *NotFoundError) Error() string { return e.Message }

// BusinessRuleError indicates a rejected mutation (cycle, duplicate grant,
// revoke of an ungranted permission, removal of a non-member).
type BusinessRuleError struct {
	Message string
}

func (e *BusinessRuleError) Error() string { return e.Message }

// SystemError indicates a connectivity or transaction failure.
type SystemError struct {
	Message string
	Err     error
}

func (e *SystemError) Error() string { return e.Message }

func (e *SystemError) Unwrap() error { return e.Err }

// ErrUsage creates a UsageError with a formatted message.
func ErrUsage(format string, args ...interface{}) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound creates a NotFoundError for the given kind and selector.
func ErrNotFound(kind Kind, selector string) *NotFoundError {
	return &NotFoundError{
		Kind:     kind,
		Selector: selector,
		Message:  fmt.Sprintf("%s '%s' doesn't exist", kind, selector),
	}
}

// ErrBusinessRule creates a BusinessRuleError with a formatted message.
func ErrBusinessRule(format string, args ...interface{}) *BusinessRuleError {
	return &BusinessRuleError{Message: fmt.Sprintf(format, args...)}
}

// ErrCycle reports a reparent that would make a connection group its own
// ancestor.
func ErrCycle(nodeID, parentID int64) *BusinessRuleError {
	return ErrBusinessRule("moving connection group %d under %d would create a cycle", nodeID, parentID)
}

// ErrSystem wraps a driver or connectivity error.
func ErrSystem(err error, format string, args ...interface{}) *SystemError {
	return &SystemError{Message: fmt.Sprintf(format, args...) + ": " + err.Error(), Err: err}
}
