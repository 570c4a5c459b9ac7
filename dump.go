package oomadj

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/viant/oomadj/internal/clock"
	"github.com/viant/oomadj/model/record"
	"github.com/viant/oomadj/service/snapshot"
)

// Dump writes the state of every record, most recently used process first.
// Times are rendered relative to now.
func (s *Service) Dump(w io.Writer) {
	s.mux.Lock()
	s.procMux.RLock()
	defer s.mux.Unlock()
	defer s.procMux.RUnlock()
	now := clock.Now()

	top := "none"
	if p := s.registry.Process(s.topID); p != nil {
		top = p.Name
	}
	fmt.Fprintf(w, "OOM ADJUSTER (seq=%d lruSeq=%d top=%s awake=%t topProcState=%v)\n",
		s.seq, s.lruSeq, top, s.awake, s.topProcState)
	if !s.followUp.IsZero() {
		fmt.Fprintf(w, "  nextFollowUp=%v\n", s.followUp.Sub(now).Round(time.Millisecond))
	}

	counts := s.adjuster.Counts()
	fmt.Fprintf(w, "  cachedHidden=%d nonCached=%d empty=%d serviceProcs=%d\n",
		counts.CachedHidden, counts.NonCached, counts.Empty, counts.ServiceProcs)

	lru := s.registry.lru()
	fmt.Fprintf(w, "Processes (%d):\n", len(lru))
	for i := len(lru) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "  #%d:\n", len(lru)-1-i)
		lru[i].Dump(w, "    ", now)
	}

	fmt.Fprintf(w, "Uids (%d):\n", s.registry.uids.Len())
	for _, u := range s.registry.uids.Values() {
		fmt.Fprintf(w, "  %s\n", u.Format(now))
	}

	fmt.Fprintf(w, "Connections (%d):\n", s.registry.connections.Len())
	for _, conn := range s.registry.connections.Values() {
		fmt.Fprintf(w, "  %s\n", s.describe(conn.Connection))
	}
}

// DumpString returns Dump as a string.
func (s *Service) DumpString() string {
	buffer := new(bytes.Buffer)
	s.Dump(buffer)
	return buffer.String()
}

// SaveDump writes the current dump under name into store and returns its URL.
func (s *Service) SaveDump(ctx context.Context, store *snapshot.Store, name string) (string, error) {
	URL, err := store.Save(ctx, name, []byte(s.DumpString()))
	if err != nil {
		return "", fmt.Errorf("failed to save dump %v: %w", name, err)
	}
	return URL, nil
}

func (s *Service) describe(conn record.Connection) string {
	name := func(id int) string {
		if p := s.registry.Process(id); p != nil {
			return p.Name
		}
		return fmt.Sprintf("#%d", id)
	}
	switch actual := conn.(type) {
	case *record.ServiceConnection:
		service := ""
		if actual.Service != nil {
			service = actual.Service.Name
		}
		return fmt.Sprintf("c#%d service %s -> %s/%s flags=%v transmission=%v ongoing=%t",
			actual.ID(), name(actual.Client()), name(actual.Host()), service,
			actual.Flags, actual.CpuTimeTransmission(), actual.OngoingCalls())
	case *record.ProviderConnection:
		return fmt.Sprintf("c#%d provider %s -> %s/%s", actual.ID(), name(actual.Client()), name(actual.Host()), actual.ProviderName)
	}
	return fmt.Sprintf("c#%d %s -> %s", conn.ID(), name(conn.Client()), name(conn.Host()))
}
