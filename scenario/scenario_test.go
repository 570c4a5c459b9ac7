package scenario

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/oomadj"
	"github.com/viant/oomadj/internal/clock"
	"github.com/viant/oomadj/internal/logging"
	"github.com/viant/oomadj/model"
)

const musicScenario = `
name: music
top: launcher
processes:
  sync:
    uid: 10003
    services:
      - {name: sync, startRequested: true, idle: 40m}
  player:
    uid: 10002
    providers:
      - {name: media}
  widget:
    uid: 10004
    components: {visibleActivities: true}
  launcher:
    uid: 10001
    components: {activities: true}
uids:
  - {uid: 10003, idle: true}
connections:
  - {client: widget, host: player, service: playback, flags: "INCLUDE_CAPABILITIES"}
  - {client: sync, host: player, provider: media}
`

func pinClock(t *testing.T) {
	previous := clock.NowFunc
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { clock.NowFunc = previous })
}

func TestDecode(t *testing.T) {
	testCases := []struct {
		description string
		document    string
		expectErr   string
		verify      func(t *testing.T, s *Scenario)
	}{
		{
			description: "mapping keeps document order",
			document:    musicScenario,
			verify: func(t *testing.T, s *Scenario) {
				var names []string
				for _, p := range s.Processes {
					names = append(names, p.Name)
				}
				assert.Equal(t, []string{"sync", "player", "widget", "launcher"}, names)
				assert.Equal(t, 3, s.Process("widget").ID)
				assert.Equal(t, 40*time.Minute, s.Process("sync").Services[0].idle)
				assert.Equal(t, model.BindIncludeCapabilities, s.Connections[0].flags)
				assert.True(t, s.Awake)
			},
		},
		{
			description: "sequence form",
			document: `
awake: false
processes:
  - {name: a, id: 7, uid: 10001, broadcast: top-app}
  - {name: b, uid: 10002, executing: fg}
`,
			verify: func(t *testing.T, s *Scenario) {
				require.Len(t, s.Processes, 2)
				assert.Equal(t, 7, s.Processes[0].ID)
				assert.Equal(t, 2, s.Processes[1].ID)
				assert.Equal(t, model.SchedGroupTopApp, s.Processes[0].broadcastGroup)
				assert.False(t, s.Awake)
			},
		},
		{description: "unknown key", document: "owner: me\n", expectErr: "unsupported scenario key"},
		{description: "duplicate name", document: "processes:\n  - {name: a, uid: 1}\n  - {name: a, uid: 2}\n", expectErr: "duplicate process a"},
		{description: "unknown top", document: "top: x\nprocesses:\n  a: {uid: 1}\n", expectErr: "unknown top process"},
		{description: "dangling connection", document: "processes:\n  a: {uid: 1}\nconnections:\n  - {client: a, host: b, service: s}\n", expectErr: "unknown process"},
		{description: "service and provider", document: "processes:\n  a: {uid: 1}\n  b: {uid: 2}\nconnections:\n  - {client: a, host: b, service: s, provider: p}\n", expectErr: "exactly one"},
		{description: "bad flags", document: "processes:\n  a: {uid: 1}\n  b: {uid: 2}\nconnections:\n  - {client: a, host: b, service: s, flags: SOMETIMES}\n", expectErr: "unknown bind flag"},
		{description: "bad group", document: "processes:\n  a: {uid: 1, broadcast: realtime}\n", expectErr: "unknown sched group"},
		{description: "bad idle", document: "processes:\n  a:\n    uid: 1\n    services: [{name: s, idle: later}]\n", expectErr: "invalid idle"},
		{description: "empty", document: "", expectErr: "empty scenario"},
	}
	for _, testCase := range testCases {
		actual, err := Decode([]byte(testCase.document))
		if testCase.expectErr != "" {
			require.Error(t, err, testCase.description)
			assert.Contains(t, err.Error(), testCase.expectErr, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		testCase.verify(t, actual)
	}
}

func TestScenario_Build(t *testing.T) {
	pinClock(t)
	s, err := Decode([]byte(musicScenario))
	require.NoError(t, err)
	srv, err := s.Build(oomadj.WithLogger(logging.Discard()))
	require.NoError(t, err)
	defer srv.Close()

	assert.Equal(t, 1, srv.Seq())
	assert.True(t, srv.LastResult().Pass.Full)

	launcher, err := srv.Process(s.Process("launcher").ID)
	require.NoError(t, err)
	assert.Equal(t, model.ForegroundAppAdj, launcher.AppliedAdj)
	assert.Equal(t, model.ProcStateTop, launcher.AppliedProcState)

	player, err := srv.Process(s.Process("player").ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisibleAppAdj, player.AppliedAdj)
	assert.Equal(t, model.ProcStateBoundTop, player.AppliedProcState)
	assert.Len(t, srv.ClientConnections(player.ID), 2)

	syncProcess, err := srv.Process(s.Process("sync").ID)
	require.NoError(t, err)
	assert.Equal(t, "cch-started-services", syncProcess.AdjType)
	assert.True(t, srv.Uid(10003).AppliedIdle)

	dump := srv.DumpString()
	assert.Contains(t, dump, "top=launcher")
	assert.Contains(t, dump, "widget -> player/playback")
}

func TestScenario_BuildError(t *testing.T) {
	s, err := Decode([]byte("processes:\n  a: {uid: 1}\n  b: {uid: 2}\nconnections:\n  - {client: a, host: b, service: s}\n"))
	require.NoError(t, err)
	s.Processes[1].ID = s.Processes[0].ID
	srv, err := s.Build(oomadj.WithLogger(logging.Discard()))
	assert.Nil(t, srv)
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	t.Setenv("OOMADJ_PLAYER_UID", "10077")
	document := strings.Replace(musicScenario, "name: music\n", "", 1)
	document = strings.Replace(document, "uid: 10002", "uid: ${env.OOMADJ_PLAYER_UID}", 1)
	require.NoError(t, fs.Upload(ctx, "mem://localhost/scenario/night.yaml", 0644, strings.NewReader(document)))

	s, err := Load(ctx, "mem://localhost/scenario/night")
	require.NoError(t, err)
	assert.Equal(t, "night", s.Name)
	assert.Equal(t, 10077, s.Process("player").UID)

	_, err = Load(ctx, "mem://localhost/scenario/missing.yaml")
	assert.Error(t, err)
}
