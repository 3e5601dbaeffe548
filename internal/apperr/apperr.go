// Package apperr defines the error taxonomy shared by the service and
// storage layers. Every error crossing a package boundary carries an
// explicit Kind plus the sku/size context needed to report stock failures,
// so callers never have to parse error strings.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInsufficientStock Kind = "insufficient_stock"
	KindInternal          Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	SKU     string
	Size    string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NotFoundSKU reports a sku/size pair absent from the catalog.
func NotFoundSKU(sku string, size string) *Error {
	msg := fmt.Sprintf("sku %s not found", sku)
	if size != "" {
		msg = fmt.Sprintf("sku %s size %s not found", sku, size)
	}
	return &Error{Kind: KindNotFound, Message: msg, SKU: sku, Size: size}
}

func InsufficientStock(sku string, size string) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for sku %s size %s", sku, size),
		SKU:     sku,
		Size:    size,
	}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Internal(err error) *Error {
	if err == nil {
		return &Error{Kind: KindInternal, Message: "internal error"}
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf classifies any error; unrecognized errors count as internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// From extracts the structured error if present; anything else is
// wrapped as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
