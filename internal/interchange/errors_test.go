package interchange

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/tqp/internal/schema"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"unknown schema", fmt.Errorf("x.csv: %w", ErrUnknownSchema), "IMP001"},
		{"no records", fmt.Errorf("x.csv: %w", ErrNoRecords), "IMP002"},
		{"not archived", fmt.Errorf("x.csv: %w: %w", ErrNotArchived, errors.New("rename")), "FILE002"},
		{"invalid json", ErrInvalidJSON, "IMP003"},
		{"unsupported", ErrUnsupportedFormat, "IMP004"},
		{"not found", fmt.Errorf("connection %q: %w", "WH1", ErrNotFound), "REC001"},
		{"storage", storageErr("save", errors.New("disk")), "STO001"},
		{"validation", schema.ValidationErrors{{Field: "TCName", Message: "is required"}}, "VAL001"},
		{"pattern deadline", context.DeadlineExceeded, "STO001"},
		{"pattern zip", errors.New("open xlsx: zip: not a valid zip file"), "IMP004"},
		{"fallback", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, MapError(tt.err).Code)
		})
	}

	assert.Equal(t, UserMessage{}, MapError(nil))
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrNoRecords)
	assert.Equal(t, "No records found in file (Code: IMP002). Add at least one data row below the header", got)
	assert.Empty(t, FormatUserError(nil))
}

func TestIsUserFacing(t *testing.T) {
	assert.True(t, IsUserFacing(ErrUnknownSchema))
	assert.False(t, IsUserFacing(errors.New("boom")))
	assert.False(t, IsUserFacing(nil))
}

func TestStorageErrUnwrapsBoth(t *testing.T) {
	cause := errors.New("disk")
	err := storageErr("save connections", cause)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "save connections")
}
