package flagexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/oomadj/model"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		description string
		input       string
		expected    model.BindFlag
		shouldError bool
	}{
		{
			description: "empty expression",
			input:       "",
			expected:    0,
		},
		{
			description: "single flag",
			input:       "IMPORTANT",
			expected:    model.BindImportant,
		},
		{
			description: "bind prefix and lower case",
			input:       "bind_above_client",
			expected:    model.BindAboveClient,
		},
		{
			description: "multiple flags with whitespace",
			input:       " IMPORTANT | ABOVE_CLIENT|WAIVE_PRIORITY ",
			expected:    model.BindImportant | model.BindAboveClient | model.BindWaivePriority,
		},
		{
			description: "hex and decimal literals",
			input:       "0x40 | 8",
			expected:    model.BindImportant | model.BindAboveClient,
		},
		{
			description: "unknown name",
			input:       "IMPORTANT | NOPE",
			shouldError: true,
		},
		{
			description: "dangling pipe",
			input:       "IMPORTANT |",
			shouldError: true,
		},
		{
			description: "missing separator",
			input:       "IMPORTANT ABOVE_CLIENT",
			shouldError: true,
		},
	}

	for _, testCase := range testCases {
		actual, err := Parse(testCase.input)
		if testCase.shouldError {
			assert.Error(t, err, testCase.description)
			continue
		}
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.Equal(t, testCase.expected, actual, testCase.description)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	flags := model.BindImportant | model.BindIncludeCapabilities | model.BindNotVisible
	actual, err := Parse(flags.String())
	assert.NoError(t, err)
	assert.Equal(t, flags, actual)
}
