package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	testCases := []struct {
		description string
		config      Config
		expectErr   bool
		expectDebug bool
		expectWarn  bool
		json        bool
	}{
		{description: "defaults", config: DefaultConfig(), expectWarn: true},
		{description: "debug json", config: Config{Level: "debug", Format: "json"}, expectDebug: true, expectWarn: true, json: true},
		{description: "error only", config: Config{Level: "error"}},
		{description: "bad level", config: Config{Level: "loud"}, expectErr: true},
		{description: "bad format", config: Config{Format: "xml"}, expectErr: true},
	}
	for _, testCase := range testCases {
		var buf bytes.Buffer
		logger, err := NewWithWriter(&testCase.config, &buf)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		logger.Debug("debug message")
		debugLogged := buf.Len() > 0
		buf.Reset()
		logger.Warn("warn message", "seq", 3)
		assert.Equal(t, testCase.expectDebug, debugLogged, testCase.description)
		assert.Equal(t, testCase.expectWarn, buf.Len() > 0, testCase.description)
		if testCase.json && buf.Len() > 0 {
			record := map[string]interface{}{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &record), testCase.description)
			assert.Equal(t, "warn message", record["msg"], testCase.description)
			assert.EqualValues(t, 3, record["seq"], testCase.description)
		}
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}
