package interchange

// Error codes shown to users, grouped by category:
//
//	IMP001 - Unrecognized file: header matches neither record kind
//	IMP002 - No records: nothing but blank rows after the header
//	IMP003 - Invalid JSON: body is not a JSON array of records
//	IMP004 - Unsupported format: extension other than .csv, .json, .xlsx
//	FILE001 - File too large: exceeds IMPORT_MAX_FILE_SIZE
//	FILE002 - Not archived: imported, but could not be moved to Imported/
//	VAL001 - Validation failed: a saved record is missing required values
//	REC001 - Not found: no record with that ID or Project
//	STO001 - Storage unavailable: the backend rejected a read or write
//	ERR000 - Unknown error
//
// Sentinels are matched with errors.Is first. Anything else falls back to
// case-insensitive substring patterns, first match wins.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tqp/internal/csvcodec"
	"github.com/JonMunkholm/tqp/internal/schema"
)

var (
	ErrUnknownSchema     = errors.New("unrecognized header")
	ErrNoRecords         = errors.New("no records found")
	ErrInvalidJSON       = errors.New("invalid JSON: expected an array of records")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNotFound          = errors.New("record not found")
	ErrStorage           = errors.New("storage unavailable")
	ErrNotArchived       = errors.New("imported file could not be moved")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrUnknownSchema, UserMessage{
		Message: "Unrecognized file: the header matches neither test cases nor connections",
		Action:  "Download a template and compare column names",
		Code:    "IMP001",
	}},
	{ErrNoRecords, UserMessage{
		Message: "No records found in file",
		Action:  "Add at least one data row below the header",
		Code:    "IMP002",
	}},
	{ErrInvalidJSON, UserMessage{
		Message: "The JSON file is not an array of records",
		Action:  "Export a collection to see the expected shape",
		Code:    "IMP003",
	}},
	{ErrUnsupportedFormat, UserMessage{
		Message: "Unsupported file format",
		Action:  "Upload a .csv, .json or .xlsx file",
		Code:    "IMP004",
	}},
	{csvcodec.ErrTooLarge, UserMessage{
		Message: "File exceeds the maximum size",
		Action:  "Split the file into smaller parts",
		Code:    "FILE001",
	}},
	{ErrNotArchived, UserMessage{
		Message: "The file was imported but could not be moved to Imported",
		Action:  "Move or delete the file by hand; it will not be imported again unchanged",
		Code:    "FILE002",
	}},
	{ErrNotFound, UserMessage{
		Message: "Record not found",
		Action:  "Refresh the list; it may have been deleted",
		Code:    "REC001",
	}},
	{ErrStorage, UserMessage{
		Message: "Records could not be read or saved",
		Action:  "Please try again in a few moments",
		Code:    "STO001",
	}},
}

type errorPattern struct {
	pattern string
	code    string
}

// Patterns for errors raised below this package that carry no sentinel.
var errorPatterns = []errorPattern{
	{"connection refused", "STO001"},
	{"context deadline exceeded", "STO001"},
	{"database is locked", "STO001"},
	{"file too large", "FILE001"},
	{"request body too large", "FILE001"},
	{"not a valid zip", "IMP004"},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to the message shown to users.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var verrs schema.ValidationErrors
	if errors.As(err, &verrs) {
		return UserMessage{
			Message: verrs.Error(),
			Action:  "Fill in the listed fields and save again",
			Code:    "VAL001",
		}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return byCode(ep.code)
		}
	}

	return defaultMessage
}

func byCode(code string) UserMessage {
	for _, sm := range sentinelMessages {
		if sm.msg.Code == code {
			return sm.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
