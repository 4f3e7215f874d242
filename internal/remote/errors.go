package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Code is a stable classification of a partnership-service failure. The
// service reports failures as loosely formatted messages; Classify is the
// single place that maps them onto codes callers can branch on.
type Code string

const (
	CodeInvalidCode      Code = "INVALID_CODE"
	CodeInviteExpired    Code = "INVITE_EXPIRED"
	CodeSelfInvite       Code = "SELF_INVITE"
	CodeAlreadyPartnered Code = "ALREADY_PARTNERED"
	CodeNoPartnership    Code = "NO_PARTNERSHIP"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeSessionExpired   Code = "SESSION_EXPIRED"
	CodeNetwork          Code = "NETWORK"
	CodeUnknown          Code = "UNKNOWN"
)

// Error is a classified service failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Classify maps a raw failure onto a classified Error. Already classified
// errors pass through unchanged; transport-level failures become
// CodeNetwork; anything unrecognized becomes CodeUnknown with the original
// message preserved.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeNetwork, Message: err.Error()}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "invalid invite code"),
		strings.Contains(lower, "invite not found"):
		return &Error{Code: CodeInvalidCode, Message: msg}
	case strings.Contains(lower, "invite") && strings.Contains(lower, "expired"):
		return &Error{Code: CodeInviteExpired, Message: msg}
	case strings.Contains(lower, "own invite"):
		return &Error{Code: CodeSelfInvite, Message: msg}
	case strings.Contains(lower, "already has a partner"),
		strings.Contains(lower, "already have a partner"):
		return &Error{Code: CodeAlreadyPartnered, Message: msg}
	case strings.Contains(lower, "no active partnership"),
		strings.Contains(lower, "no partnership"):
		return &Error{Code: CodeNoPartnership, Message: msg}
	case strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "too many requests"):
		return &Error{Code: CodeRateLimited, Message: msg}
	case strings.Contains(lower, "jwt expired"),
		strings.Contains(lower, "session expired"),
		strings.Contains(lower, "not authenticated"),
		strings.Contains(lower, "unauthorized"):
		return &Error{Code: CodeSessionExpired, Message: msg}
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "network"):
		return &Error{Code: CodeNetwork, Message: msg}
	default:
		return &Error{Code: CodeUnknown, Message: msg}
	}
}

// Is reports whether err classifies to the given code.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return Classify(err).Code == code
}
