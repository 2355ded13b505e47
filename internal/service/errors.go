package service

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by a service either wraps one of these or
// is unexpected (storage failure, bug) and must not be shown to clients.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// kindError is a client-facing error message tagged with its kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func validationError(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

func conflictError(format string, args ...any) error {
	return &kindError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

// Errors returned by the services.
var (
	ErrRepairOrderNotFound   = notFoundError("repair order not found")
	ErrInventoryItemNotFound = notFoundError("inventory item not found")
	ErrInvoiceNotFound       = notFoundError("invoice not found")
	ErrAppointmentNotFound   = notFoundError("appointment not found")

	ErrInvalidStatus        = validationError("invalid status")
	ErrInvalidInvoiceStatus = validationError("invalid invoice status")
	ErrInvalidQuantity      = validationError("quantity must be > 0")
	ErrInvalidPrice         = validationError("invalid price")
	ErrInvalidAmount        = validationError("amount must be > 0")
	ErrInvalidDate          = validationError("invalid date")
	ErrDuplicatePart        = validationError("duplicate inventoryItemId in parts")

	ErrAppointmentExists  = conflictError("appointment already exists for this repair order")
	ErrInventoryItemInUse = conflictError("cannot delete inventory item that is used in repair orders")
	ErrInsufficientStock  = conflictError("insufficient stock")
	ErrPartNumberExists   = conflictError("part number already exists")
)

// Message returns the client-facing message of a kinded error, or "" when err
// is unexpected.
func Message(err error) string {
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err.Error()
	}
	return ""
}

// requiredError reports missing required fields: "a is required",
// "a and b are required", "a, b and c are required".
func requiredError(fields ...string) error {
	if len(fields) == 1 {
		return validationError("%s is required", fields[0])
	}
	msg := strings.Join(fields[:len(fields)-1], ", ") + " and " + fields[len(fields)-1]
	return validationError("%s are required", msg)
}
