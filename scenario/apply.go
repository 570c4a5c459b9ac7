package scenario

import (
	"fmt"

	"github.com/viant/oomadj"
	"github.com/viant/oomadj/internal/clock"
	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
)

// Build creates a Service with options and applies the scenario to it.
func (s *Scenario) Build(options ...oomadj.Option) (*oomadj.Service, error) {
	srv := oomadj.New(options...)
	if err := s.Apply(srv); err != nil {
		srv.Close()
		return nil, err
	}
	return srv, nil
}

// Apply replays the scenario inside one batch session, so srv runs a single
// full pass once everything is in place.
func (s *Scenario) Apply(srv *oomadj.Service) error {
	guard := srv.StartBatchSession(model.ReasonNone)
	defer guard.Close()
	srv.SetFullUpdate()

	for _, p := range s.Processes {
		if err := s.addProcess(srv, p); err != nil {
			return fmt.Errorf("scenario %v: process %v: %w", s.Name, p.Name, err)
		}
	}
	for _, u := range s.Uids {
		if err := srv.SetUidAllowlisted(u.UID, u.Allowlisted); err != nil {
			return fmt.Errorf("scenario %v: %w", s.Name, err)
		}
		if u.Idle == nil {
			continue
		}
		if err := srv.SetUidIdle(u.UID, *u.Idle); err != nil {
			return fmt.Errorf("scenario %v: %w", s.Name, err)
		}
	}
	if s.Top != "" {
		if err := srv.SetTopProcess(s.Process(s.Top).ID); err != nil {
			return fmt.Errorf("scenario %v: %w", s.Name, err)
		}
	}
	if !s.Awake {
		srv.SetAwake(false)
	}
	for i, conn := range s.Connections {
		if err := s.connect(srv, conn); err != nil {
			return fmt.Errorf("scenario %v: connection #%d: %w", s.Name, i, err)
		}
	}
	for _, p := range s.Processes {
		if err := s.configureServices(srv, p); err != nil {
			return fmt.Errorf("scenario %v: process %v: %w", s.Name, p.Name, err)
		}
	}
	return nil
}

func (s *Scenario) addProcess(srv *oomadj.Service, p *Process) error {
	rec := record.NewProcess(p.ID, p.Name, p.UID)
	rec.Isolated = p.Isolated
	components := p.Components
	components.ReceivingBroadcast = false
	rec.Components = &components
	if p.MaxAdj != nil {
		rec.MaxAdj = *p.MaxAdj
	}
	rec.SetHasTopUi(p.HasTopUi)
	rec.SetHasOverlayUi(p.HasOverlayUi)
	rec.RunningRemoteAnimation = p.RemoteAnimation
	for _, provider := range p.Providers {
		copied := *provider
		rec.Providers = append(rec.Providers, &copied)
	}
	if err := srv.AddProcess(rec); err != nil {
		return err
	}
	for _, service := range p.Services {
		if !service.StartRequested {
			continue
		}
		started := service.ServiceRecord
		if err := srv.StartService(p.ID, &started); err != nil {
			return err
		}
	}
	if p.Executing != "" {
		if err := srv.StartExecutingService(p.ID, p.Executing == "fg"); err != nil {
			return err
		}
	}
	if p.Broadcast != "" || p.Components.ReceivingBroadcast {
		if err := srv.NoteBroadcastDeliveryStarted(p.ID, p.broadcastGroup); err != nil {
			return err
		}
	}
	if p.BackupTarget {
		return srv.SetBackupTarget(p.ID)
	}
	return nil
}

func (s *Scenario) connect(srv *oomadj.Service, conn *Connection) error {
	client, host := s.Process(conn.Client).ID, s.Process(conn.Host).ID
	if conn.Provider != "" {
		_, err := srv.AddProviderConnection(client, host, conn.Provider)
		return err
	}
	bound, err := srv.BindService(client, host, conn.flags, conn.Service)
	if err != nil {
		return err
	}
	if conn.Activity != "" {
		if err = srv.SetBindingActivity(bound.ID(), true, conn.Activity == "visible"); err != nil {
			return err
		}
	}
	if conn.OngoingCalls {
		return srv.UpdateOngoingCalls(bound.ID(), true)
	}
	return nil
}

// configureServices runs once bindings exist, so services created by a
// binding can be moved to the foreground or aged too.
func (s *Scenario) configureServices(srv *oomadj.Service, p *Process) error {
	for _, service := range p.Services {
		if service.IsForeground {
			if err := srv.SetForegroundService(p.ID, service.Name, true, service.ForegroundServiceType); err != nil {
				return err
			}
		}
		if service.Idle != "" {
			if err := srv.SetServiceLastActivity(p.ID, service.Name, clock.Now().Add(-service.idle)); err != nil {
				return err
			}
		}
	}
	return nil
}
