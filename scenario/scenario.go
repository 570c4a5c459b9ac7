// Package scenario describes a process graph in YAML and replays it against
// a Service.
//
//	name: music
//	top: launcher
//	processes:
//	  launcher:
//	    uid: 10001
//	    components: {visibleActivities: true}
//	  player:
//	    uid: 10002
//	    services:
//	      - {name: playback, startRequested: true}
//	connections:
//	  - {client: launcher, host: player, service: playback, flags: "IMPORTANT | INCLUDE_CAPABILITIES"}
//
// Processes are listed least recently used first; that order seeds the LRU
// list. They may also be given as a sequence of mappings with a name key.
package scenario

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/viant/oomadj/internal/yml"
	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/flagexpr"
	"github.com/viant/oomadj/model/record"
	"github.com/viant/oomadj/service/meta"
	"gopkg.in/yaml.v3"
)

type (
	// Scenario is a decoded scenario document.
	Scenario struct {
		Name        string
		Top         string
		Awake       bool
		Processes   []*Process
		Uids        []*Uid
		Connections []*Connection
	}

	// Process describes one process and the components it hosts.
	Process struct {
		Name            string                   `yaml:"name,omitempty"`
		ID              int                      `yaml:"id,omitempty"`
		UID             int                      `yaml:"uid"`
		Isolated        bool                     `yaml:"isolated,omitempty"`
		MaxAdj          *int                     `yaml:"maxAdj,omitempty"`
		Components      record.StaticComponents  `yaml:"components,omitempty"`
		Broadcast       string                   `yaml:"broadcast,omitempty"`
		Executing       string                   `yaml:"executing,omitempty"`
		HasTopUi        bool                     `yaml:"hasTopUi,omitempty"`
		HasOverlayUi    bool                     `yaml:"hasOverlayUi,omitempty"`
		RemoteAnimation bool                     `yaml:"remoteAnimation,omitempty"`
		BackupTarget    bool                     `yaml:"backupTarget,omitempty"`
		Services        []*Service               `yaml:"services,omitempty"`
		Providers       []*record.ProviderRecord `yaml:"providers,omitempty"`

		broadcastGroup model.SchedGroup
	}

	// Service is a hosted service. Idle is the time since its last activity.
	Service struct {
		record.ServiceRecord `yaml:",inline"`
		Idle                 string `yaml:"idle,omitempty"`

		idle time.Duration
	}

	// Uid sets per-uid flags.
	Uid struct {
		UID         int   `yaml:"uid"`
		Allowlisted bool  `yaml:"allowlisted,omitempty"`
		Idle        *bool `yaml:"idle,omitempty"`
	}

	// Connection binds a client to a service or provider of the host.
	// Activity is "visible" or "invisible" for a binding made on behalf of a
	// client activity.
	Connection struct {
		Client       string `yaml:"client"`
		Host         string `yaml:"host"`
		Service      string `yaml:"service,omitempty"`
		Provider     string `yaml:"provider,omitempty"`
		Flags        string `yaml:"flags,omitempty"`
		OngoingCalls bool   `yaml:"ongoingCalls,omitempty"`
		Activity     string `yaml:"activity,omitempty"`

		flags model.BindFlag
	}
)

// Process returns the named process or nil.
func (s *Scenario) Process(name string) *Process {
	for _, p := range s.Processes {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Decode parses a scenario document.
func Decode(data []byte) (*Scenario, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	return Parse("", (*yml.Node)(&document))
}

// Load reads a scenario from any afs URL; a missing extension means .yaml.
// The scenario is named after the file when it does not name itself.
func Load(ctx context.Context, URL string) (*Scenario, error) {
	if path.Ext(URL) == "" {
		URL += ".yaml"
	}
	var document yaml.Node
	if err := meta.New(nil).Load(ctx, URL, &document); err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	return Parse(URL, (*yml.Node)(&document))
}

// Parse builds a scenario from a decoded document and validates it.
func Parse(URL string, document *yml.Node) (*Scenario, error) {
	ret := &Scenario{Awake: true}
	root := document.Root()
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty scenario %v", URL)
	}
	err := root.Pairs(func(key string, node *yml.Node) error {
		switch strings.ToLower(key) {
		case "name":
			return node.Decode(&ret.Name)
		case "top":
			return node.Decode(&ret.Top)
		case "awake":
			return node.Decode(&ret.Awake)
		case "processes":
			return ret.parseProcesses(node)
		case "uids":
			return node.Decode(&ret.Uids)
		case "connections":
			return node.Decode(&ret.Connections)
		}
		return node.Errorf("unsupported scenario key: %v", key)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario %v: %w", URL, err)
	}
	if ret.Name == "" && URL != "" {
		base := path.Base(URL)
		ret.Name = strings.TrimSuffix(base, path.Ext(base))
	}
	if err = ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Scenario) parseProcesses(node *yml.Node) error {
	if node.IsSeq() {
		return node.Items(func(_ int, item *yml.Node) error {
			p := &Process{}
			if err := item.Decode(p); err != nil {
				return err
			}
			s.Processes = append(s.Processes, p)
			return nil
		})
	}
	return node.Pairs(func(name string, item *yml.Node) error {
		p := &Process{}
		if err := item.Decode(p); err != nil {
			return err
		}
		if p.Name == "" {
			p.Name = name
		}
		s.Processes = append(s.Processes, p)
		return nil
	})
}

// Validate checks names, references and textual values.
func (s *Scenario) Validate() error {
	names := map[string]bool{}
	ids := map[int]bool{}
	for i, p := range s.Processes {
		if p.Name == "" {
			return fmt.Errorf("process #%d has no name", i)
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate process %v", p.Name)
		}
		names[p.Name] = true
		if p.ID == 0 {
			p.ID = i + 1
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate process id %v (%v)", p.ID, p.Name)
		}
		ids[p.ID] = true
		if err := p.validate(); err != nil {
			return fmt.Errorf("process %v: %w", p.Name, err)
		}
	}
	if s.Top != "" && !names[s.Top] {
		return fmt.Errorf("unknown top process %v", s.Top)
	}
	for i, conn := range s.Connections {
		if !names[conn.Client] || !names[conn.Host] {
			return fmt.Errorf("connection #%d: unknown process %v -> %v", i, conn.Client, conn.Host)
		}
		if (conn.Service == "") == (conn.Provider == "") {
			return fmt.Errorf("connection #%d: exactly one of service or provider is required", i)
		}
		flags, err := flagexpr.Parse(conn.Flags)
		if err != nil {
			return fmt.Errorf("connection #%d: %w", i, err)
		}
		conn.flags = flags
		switch conn.Activity {
		case "", "visible", "invisible":
		default:
			return fmt.Errorf("connection #%d: unsupported activity %q", i, conn.Activity)
		}
	}
	return nil
}

func (p *Process) validate() error {
	if p.Broadcast != "" {
		group, err := model.ParseSchedGroup(p.Broadcast)
		if err != nil {
			return err
		}
		p.broadcastGroup = group
	}
	switch p.Executing {
	case "", "fg", "bg":
	default:
		return fmt.Errorf("unsupported executing mode %q", p.Executing)
	}
	for _, service := range p.Services {
		if service.Name == "" {
			return fmt.Errorf("service without name")
		}
		if service.Idle == "" {
			continue
		}
		idle, err := time.ParseDuration(service.Idle)
		if err != nil {
			return fmt.Errorf("service %v: invalid idle: %w", service.Name, err)
		}
		service.idle = idle
	}
	return nil
}
