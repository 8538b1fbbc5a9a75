package core

// # Error Codes Reference
//
// User-facing error messages carry a code so operators can match a report
// to the log line holding the technical error.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Header mismatch: source file is not in the expected format
//	         Action: Compare the export's columns with the published header
//	         Matches: schema.ErrHeaderMismatch
//
//	SRC002 - Not configured: a source location is missing
//	         Action: Set every SOURCE_* location before refreshing
//	         Matches: ErrSourceNotConfigured
//
//	SRC003 - Missing file: source file or object does not exist
//	         Action: Check the configured path or bucket object
//	         Matches: fs.ErrNotExist, storage.ErrObjectNotExist
//
//	SRC004 - Bad location: source location is malformed
//	         Patterns: "invalid storage location"
//
//	SRC005 - Unreadable file: source is not valid CSV or XLSX
//	         Patterns: "parse error", "wrong number of fields", "zip: not a valid"
//
// # Ingestion Errors (ING001-ING099)
//
//	ING001 - Unrecognised code: an export contains a value this version does not know
//	         Matches: ingest.ErrUnrecognisedCode
//
//	ING002 - Busy: another ingestion run holds the lock
//	         Matches: ingest.ErrIngestionInProgress
//
// # Database Errors (DB001-DB099)
//
//	DB001 duplicate key, DB002 unique constraint, DB003 foreign key,
//	DB004 connection refused, DB005 connection reset, DB006 timeout,
//	DB007 deadlock, DB008 check constraint.
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Not found: directory.ErrNotFound
//	REQ002 - Bad request: ErrBadRequest
//	REQ003 - Cancelled: context.Canceled
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the logs for the technical error.
//
// # Matching
//
// Sentinels are checked first with errors.Is, in table order. Otherwise
// patterns are matched case-insensitively with strings.Contains against
// the error text and the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JonMunkholm/officesearch/internal/directory"
	"github.com/JonMunkholm/officesearch/internal/ingest"
	"github.com/JonMunkholm/officesearch/internal/schema"
)

// ErrBadRequest marks a request the caller must change before retrying.
var ErrBadRequest = errors.New("bad request")

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

var sentinelMessages = []sentinelMessage{
	{schema.ErrHeaderMismatch, UserMessage{
		Message: "Source file is not in the expected format",
		Action:  "Compare the export's columns with the published header",
		Code:    "SRC001",
	}},
	{ErrSourceNotConfigured, UserMessage{
		Message: "A source location is not configured",
		Action:  "Set every source location before refreshing",
		Code:    "SRC002",
	}},
	{fs.ErrNotExist, UserMessage{
		Message: "Source file does not exist",
		Action:  "Check the configured path or bucket object",
		Code:    "SRC003",
	}},
	{storage.ErrObjectNotExist, UserMessage{
		Message: "Source file does not exist",
		Action:  "Check the configured path or bucket object",
		Code:    "SRC003",
	}},
	{ingest.ErrUnrecognisedCode, UserMessage{
		Message: "An export contains a value this version does not recognise",
		Action:  "Check the log for the source and line, then update the mapping",
		Code:    "ING001",
	}},
	{ingest.ErrIngestionInProgress, UserMessage{
		Message: "Another ingestion run is in progress",
		Action:  "Wait for it to finish and try again",
		Code:    "ING002",
	}},
	{directory.ErrNotFound, UserMessage{
		Message: "Not found",
		Action:  "Check the office id",
		Code:    "REQ001",
	}},
	{ErrBadRequest, UserMessage{
		Message: "Invalid request",
		Action:  "Check the query parameters",
		Code:    "REQ002",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ003",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user
// messages. Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "invalid storage location",
		msg: UserMessage{
			Message: "Source location is malformed",
			Action:  "Use a file path or gs://bucket/object",
			Code:    "SRC004",
		},
	},
	{
		pattern: "parse error",
		msg: UserMessage{
			Message: "Source file could not be read",
			Action:  "Check the file is a valid CSV or XLSX export",
			Code:    "SRC005",
		},
	},
	{
		pattern: "wrong number of fields",
		msg: UserMessage{
			Message: "Source file could not be read",
			Action:  "Check the file is a valid CSV or XLSX export",
			Code:    "SRC005",
		},
	},
	{
		pattern: "zip: not a valid",
		msg: UserMessage{
			Message: "Source file could not be read",
			Action:  "Check the file is a valid CSV or XLSX export",
			Code:    "SRC005",
		},
	},

	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Check the export for repeated ids",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check the export for duplicate entries",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check the export for duplicate entries",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Load postcodes and local authorities before offices",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "check constraint",
		msg: UserMessage{
			Message: "A record failed a database check",
			Action:  "Check the log for the rejected value",
			Code:    "DB008",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error into a user-friendly message.
// Returns an empty UserMessage for nil and defaultMessage when nothing
// matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError returns "message (Code: X). action", or "" for nil.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the default.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError wraps err with its mapped message. Returns nil for nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
