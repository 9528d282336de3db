// # Error Codes Reference
//
// This file defines user-facing error messages with codes for support
// reference. Users quote the code shown next to a failed job; support staff
// look it up here.
//
// # Validation Errors (VAL001-VAL099)
//
// Raised before a job is created:
//
//	VAL001 - No columns: The export has no columns selected
//	         Patterns: "no columns selected"
//	VAL002 - Unsupported format: The requested format is not available
//	         Patterns: "unsupported format"
//	VAL003 - Unknown entity: The requested data type does not exist
//	         Patterns: "unknown entity type"
//	VAL004 - Unknown column: A selected column does not exist
//	         Patterns: "unknown column"
//	VAL005 - Invalid range: A range filter has its bounds reversed
//	         Patterns: "invalid range"
//	VAL006 - Missing name: The export job has no name
//	         Patterns: "job name is required"
//	VAL007 - Invalid option: An option has a value outside its allowed set
//	         Patterns: "must be one of"
//
// # Render Errors (REN001-REN099)
//
//	REN001 - Renderer crashed: The document builder stopped unexpectedly
//	         Patterns: "renderer panic"
//	REN002 - No renderer: No builder is installed for the format
//	         Patterns: "no renderer"
//	REN003 - Render failed: The document could not be generated
//	         Patterns: "render "
//
// # Persistence Errors (PER001-PER099)
//
//	PER001 - Corrupt history: Saved export history could not be read
//	         Patterns: "corrupt history"
//	PER002 - History unavailable: Export history could not be saved or loaded
//	         Patterns: "history "
//
// # Job Errors (JOB001-JOB099)
//
//	JOB001 - Job not found: The export job does not exist
//	         Patterns: "export job not found"
//	JOB002 - Invalid transition: The job cannot move to the requested state
//	         Patterns: "invalid job transition"
//	JOB003 - Interrupted: The job stopped when the service restarted
//	         Patterns: "interrupted"
//
// # Export Errors (EXP001-EXP099)
//
//	EXP001 - System busy: Too many exports in progress
//	         Patterns: "too many concurrent exports"
//	EXP002 - Cancelled: The export was cancelled
//	         Patterns: "context canceled", "export cancelled"
//	EXP003 - Timed out: The export took too long
//	         Patterns: "context deadline exceeded"
//	EXP004 - Source unavailable: Records could not be loaded
//	         Patterns: "load records"
//	EXP005 - Save failed: The file could not be saved
//	         Patterns: "download"
//	EXP006 - Unknown template: The report template does not exist
//	         Patterns: "template not found"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// Patterns are matched case-insensitively with strings.Contains. The first
// matching pattern wins, so specific patterns come before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// Order matters: specific patterns first.
var errorPatterns = []errorPattern{
	// Validation (VAL001-VAL007)
	{
		pattern: "no columns selected",
		msg: UserMessage{
			Message: "No columns selected",
			Action:  "Select at least one column to export",
			Code:    "VAL001",
		},
	},
	{
		pattern: "unsupported format",
		msg: UserMessage{
			Message: "The requested format is not available",
			Action:  "Choose CSV, Excel, PDF or JSON",
			Code:    "VAL002",
		},
	},
	{
		pattern: "unknown entity type",
		msg: UserMessage{
			Message: "The requested data type does not exist",
			Action:  "Choose one of the listed data types",
			Code:    "VAL003",
		},
	},
	{
		pattern: "unknown column",
		msg: UserMessage{
			Message: "A selected column does not exist",
			Action:  "Refresh the column list and select again",
			Code:    "VAL004",
		},
	},
	{
		pattern: "invalid range",
		msg: UserMessage{
			Message: "A range filter has its bounds reversed",
			Action:  "Make sure the minimum is not greater than the maximum",
			Code:    "VAL005",
		},
	},
	{
		pattern: "job name is required",
		msg: UserMessage{
			Message: "The export needs a name",
			Action:  "Enter a name for the export",
			Code:    "VAL006",
		},
	},
	{
		pattern: "must be one of",
		msg: UserMessage{
			Message: "An option has an unsupported value",
			Action:  "Check the sort order, orientation and date preset",
			Code:    "VAL007",
		},
	},

	// Render (REN001-REN003)
	{
		pattern: "renderer panic",
		msg: UserMessage{
			Message: "The document builder stopped unexpectedly",
			Action:  "Try again with fewer rows or columns",
			Code:    "REN001",
		},
	},
	{
		pattern: "no renderer",
		msg: UserMessage{
			Message: "This format is not installed",
			Action:  "Choose a different format",
			Code:    "REN002",
		},
	},
	{
		pattern: "render ",
		msg: UserMessage{
			Message: "The document could not be generated",
			Action:  "Please try again or choose a different format",
			Code:    "REN003",
		},
	},

	// Persistence (PER001-PER002)
	{
		pattern: "corrupt history",
		msg: UserMessage{
			Message: "Saved export history could not be read",
			Action:  "Clear the export history",
			Code:    "PER001",
		},
	},
	{
		pattern: "history ",
		msg: UserMessage{
			Message: "Export history could not be saved",
			Action:  "Your export still ran. Check storage availability",
			Code:    "PER002",
		},
	},

	// Jobs (JOB001-JOB003)
	{
		pattern: "export job not found",
		msg: UserMessage{
			Message: "The export job does not exist",
			Action:  "It may have been deleted. Refresh the job list",
			Code:    "JOB001",
		},
	},
	{
		pattern: "invalid job transition",
		msg: UserMessage{
			Message: "The job has already finished",
			Action:  "Refresh the job list",
			Code:    "JOB002",
		},
	},
	{
		pattern: "interrupted",
		msg: UserMessage{
			Message: "The export stopped when the service restarted",
			Action:  "Start the export again",
			Code:    "JOB003",
		},
	},

	// Export execution (EXP001-EXP006)
	{
		pattern: "too many concurrent exports",
		msg: UserMessage{
			Message: "Too many exports in progress",
			Action:  "Please wait a moment and try again",
			Code:    "EXP001",
		},
	},
	{
		pattern: "export cancelled",
		msg: UserMessage{
			Message: "The export was cancelled",
			Action:  "Start a new export when ready",
			Code:    "EXP002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The export was cancelled",
			Action:  "Start a new export when ready",
			Code:    "EXP002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The export took too long",
			Action:  "Narrow the filters or lower the row limit",
			Code:    "EXP003",
		},
	},
	{
		pattern: "load records",
		msg: UserMessage{
			Message: "Records could not be loaded",
			Action:  "Please try again in a few moments",
			Code:    "EXP004",
		},
	},
	{
		pattern: "download",
		msg: UserMessage{
			Message: "The file could not be saved",
			Action:  "Check the download folder and try again",
			Code:    "EXP005",
		},
	},
	{
		pattern: "template not found",
		msg: UserMessage{
			Message: "The report template does not exist",
			Action:  "Choose one of the listed templates",
			Code:    "EXP006",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
//
// Example:
//
//	msg := MapError(errors.New("unknown column \"x\" for projects"))
//	// msg.Code == "VAL004"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
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

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
