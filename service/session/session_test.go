package session

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/oomadj/model"
	"golang.org/x/time/rate"
)

type recordingRunner struct {
	batches []*Batch
}

func (r *recordingRunner) RunBatch(batch *Batch) {
	for _, fn := range batch.Work {
		fn()
	}
	r.batches = append(r.batches, batch)
}

func TestSession_NestedFullUpdate(t *testing.T) {
	runner := &recordingRunner{}
	s := New(runner)

	outer := s.Start(model.ReasonBindService)
	inner := s.Start(model.ReasonStartService)
	s.SetFullUpdate()
	inner.Close()
	assert.Empty(t, runner.batches, "inner close must not fire")
	assert.True(t, s.Active())

	outer.Close()
	require.Len(t, runner.batches, 1)
	assert.True(t, runner.batches[0].Full)
	assert.Equal(t, model.ReasonBindService, runner.batches[0].Reason)
	assert.False(t, s.Active())
}

func TestSession_Release(t *testing.T) {
	testCases := []struct {
		description  string
		inSession    func(s *Session, log *[]string)
		expectBatch  bool
		expectFull   bool
		expectUpdate bool
		expectLog    []string
	}{
		{
			description: "nothing requested",
			inSession:   func(s *Session, log *[]string) {},
		},
		{
			description: "update requested",
			inSession: func(s *Session, log *[]string) {
				s.RunUpdate(model.ReasonActivity)
				*log = append(*log, "requested")
			},
			expectBatch:  true,
			expectUpdate: true,
			expectLog:    []string{"requested"},
		},
		{
			description: "enqueued work runs at close",
			inSession: func(s *Session, log *[]string) {
				s.Enqueue(func() { *log = append(*log, "first") })
				s.Enqueue(func() { *log = append(*log, "second") })
				*log = append(*log, "before close")
			},
			expectBatch: true,
			expectLog:   []string{"before close", "first", "second"},
		},
	}
	for _, testCase := range testCases {
		runner := &recordingRunner{}
		s := New(runner)
		var log []string
		guard := s.Start(model.ReasonActivity)
		testCase.inSession(s, &log)
		guard.Close()

		assert.Equal(t, testCase.expectLog, log, testCase.description)
		if !testCase.expectBatch {
			assert.Empty(t, runner.batches, testCase.description)
			continue
		}
		require.Len(t, runner.batches, 1, testCase.description)
		assert.Equal(t, testCase.expectFull, runner.batches[0].Full, testCase.description)
		assert.Equal(t, testCase.expectUpdate, runner.batches[0].Update, testCase.description)
	}
}

func TestSession_OutsideSession(t *testing.T) {
	runner := &recordingRunner{}
	s := New(runner)
	ran := false
	s.SetFullUpdate()
	s.Enqueue(func() { ran = true })
	s.RunUpdate(model.ReasonUidIdle)

	assert.True(t, ran)
	require.Len(t, runner.batches, 2)
	assert.Len(t, runner.batches[0].Work, 1)
	assert.False(t, runner.batches[0].Update)
	assert.True(t, runner.batches[1].Update)
	assert.False(t, runner.batches[1].Full, "full update is ignored outside a session")
	assert.Equal(t, model.ReasonUidIdle, runner.batches[1].Reason)
}

func TestSession_Stage(t *testing.T) {
	s := New(&recordingRunner{})
	var log []string
	s.Stage(func() { log = append(log, "a") })
	s.Stage(func() { log = append(log, "b") })
	staged := s.DrainStaged()
	require.Len(t, staged, 2)
	for _, fn := range staged {
		fn()
	}
	assert.Equal(t, []string{"a", "b"}, log)
	assert.Empty(t, s.DrainStaged())
}

func TestSession_UnstartedClose(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	runner := &recordingRunner{}
	s := New(runner, WithLogger(logger), WithLimiter(rate.NewLimiter(rate.Inf, 1)))

	guard := s.Start(model.ReasonActivity)
	s.RunUpdate(model.ReasonActivity)
	guard.Close()
	guard.Close()

	assert.Len(t, runner.batches, 1)
	assert.Equal(t, 0, s.Nesting())
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "unstarted batch session")
	assert.Contains(t, buf.String(), "wtf=true")
}

func TestSession_UnstartedCloseThrottled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := New(&recordingRunner{}, WithLogger(logger), WithLimiter(rate.NewLimiter(rate.Limit(0), 1)))

	guard := s.Start(model.ReasonActivity)
	guard.Close()
	for i := 0; i < 5; i++ {
		guard.Close()
	}
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("unstarted batch session")))
}
