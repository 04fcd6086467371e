package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *CommandError
		expected string
	}{
		{
			name:     "plain message",
			err:      Parse("unexpected token %q", "foo"),
			expected: `unexpected token "foo"`,
		},
		{
			name:     "message with details",
			err:      ColumnNotFound("bs", []string{"depth", "timestamp"}),
			expected: `column "bs" not found (available: depth, timestamp)`,
		},
		{
			name:     "wrapped cause",
			err:      Pipeline("outlier_filter", stderrors.New("column is not numeric")),
			expected: `pipeline stage "outlier_filter" failed: column is not numeric`,
		},
		{
			name:     "load with retries",
			err:      Load("/mnt/survey/positions.csv", 3, stderrors.New("i/o timeout")),
			expected: "failed to load /mnt/survey/positions.csv after 3 attempts: i/o timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := InvalidDuration("5x")
	assert.True(t, stderrors.Is(err, ErrInvalidDuration))
	assert.False(t, stderrors.Is(err, ErrInvalidRange))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Render("hex map", cause)
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(err, ErrRender))
}

func TestMissingParameterNamesParameter(t *testing.T) {
	err := MissingParameter("y")
	assert.Equal(t, "y", err.Details)
	assert.Contains(t, err.Error(), `"y"`)
}
