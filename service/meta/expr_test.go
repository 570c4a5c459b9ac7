package meta

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

func TestExpand(t *testing.T) {
	testCases := []struct {
		description string
		env         map[string]string
		input       string
		expect      string
	}{
		{description: "no expressions", input: "just a plain string", expect: "just a plain string"},
		{description: "single expression", env: map[string]string{"OOMADJ_FOO": "bar"}, input: "value is ${env.OOMADJ_FOO}", expect: "value is bar"},
		{description: "multiple expressions", env: map[string]string{"OOMADJ_A": "1", "OOMADJ_B": "2"}, input: "${env.OOMADJ_A}-${env.OOMADJ_B}-${env.OOMADJ_A}", expect: "1-2-1"},
		{description: "unset variable", input: "unset=${env.OOMADJ_NOTSET}-end", expect: "unset=-end"},
		{description: "missing closing brace", env: map[string]string{"OOMADJ_X": "x"}, input: "start ${env.OOMADJ_X and ${env.OOMADJ_Y} end", expect: "start ${env.OOMADJ_X and  end"},
		{description: "prefix only", input: "oops ${env.} done", expect: "oops  done"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			for key, value := range testCase.env {
				t.Setenv(key, value)
			}
			assert.Equal(t, testCase.expect, Expand(testCase.input))
		})
	}
}

func TestService_Load(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	t.Setenv("OOMADJ_LEVEL", "debug")
	testCases := []struct {
		description string
		URL         string
		content     string
		expect      map[string]string
		expectErr   bool
	}{
		{description: "yaml", URL: "mem://localhost/meta/a.yaml", content: "level: ${env.OOMADJ_LEVEL}\n", expect: map[string]string{"level": "debug"}},
		{description: "json", URL: "mem://localhost/meta/b.json", content: `{"level":"${env.OOMADJ_LEVEL}"}`, expect: map[string]string{"level": "debug"}},
		{description: "malformed", URL: "mem://localhost/meta/c.json", content: `{"level":`, expectErr: true},
	}
	srv := New(fs)
	for _, testCase := range testCases {
		require.NoError(t, fs.Upload(ctx, testCase.URL, 0644, strings.NewReader(testCase.content)), testCase.description)
		var actual map[string]string
		err := srv.Load(ctx, testCase.URL, &actual)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expect, actual, testCase.description)
	}
	assert.Error(t, srv.Load(ctx, "mem://localhost/meta/missing.yaml", &map[string]string{}))
}
