package types

import (
	"errors"
	"fmt"
)

// ErrorKind identifies a class of terminal request failure
type ErrorKind string

const (
	KindUnknownParticipant     ErrorKind = "UNKNOWN_PARTICIPANT"
	KindAlreadyExists          ErrorKind = "ALREADY_EXISTS"
	KindNoInventory            ErrorKind = "NO_INVENTORY"
	KindDuplicateBid           ErrorKind = "DUPLICATE_BID"
	KindNoBid                  ErrorKind = "NO_BID"
	KindCounterpartyHasOpenBid ErrorKind = "COUNTERPARTY_HAS_OPEN_BID"
	KindUnknownItem            ErrorKind = "UNKNOWN_ITEM"
	KindInsufficientQuantity   ErrorKind = "INSUFFICIENT_QUANTITY"
	KindMalformedInput         ErrorKind = "MALFORMED_INPUT"
	KindOfferTooLow            ErrorKind = "OFFER_TOO_LOW"
	KindInvalidCredentials     ErrorKind = "INVALID_CREDENTIALS"
)

// Error is an invalid request or a state conflict. None of them are retryable.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so callers can compare against the
// sentinels below with errors.Is regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrUnknownParticipant     = &Error{Kind: KindUnknownParticipant, Message: "participant not found"}
	ErrAlreadyExists          = &Error{Kind: KindAlreadyExists, Message: "already exists"}
	ErrNoInventory            = &Error{Kind: KindNoInventory, Message: "participant has no inventory"}
	ErrDuplicateBid           = &Error{Kind: KindDuplicateBid, Message: "participant already has a pending bid"}
	ErrNoBid                  = &Error{Kind: KindNoBid, Message: "participant has no pending bid"}
	ErrCounterpartyHasOpenBid = &Error{Kind: KindCounterpartyHasOpenBid, Message: "counterparty has an open bid"}
	ErrUnknownItem            = &Error{Kind: KindUnknownItem, Message: "item not held"}
	ErrInsufficientQuantity   = &Error{Kind: KindInsufficientQuantity, Message: "not enough items"}
	ErrMalformedInput         = &Error{Kind: KindMalformedInput, Message: "malformed input"}
	ErrOfferTooLow            = &Error{Kind: KindOfferTooLow, Message: "offer value is less than the bid value"}
	ErrInvalidCredentials     = &Error{Kind: KindInvalidCredentials, Message: "invalid name or secret"}
)

// Errorf returns an error of the sentinel's kind with a formatted message.
func Errorf(sentinel *Error, format string, args ...interface{}) *Error {
	return &Error{Kind: sentinel.Kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err if it carries one.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
