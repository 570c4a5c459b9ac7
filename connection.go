package oomadj

import (
	"fmt"
	"time"

	"github.com/viant/oomadj/internal/clock"
	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
	"github.com/viant/oomadj/service/adjuster"
	"github.com/viant/oomadj/service/dao"
)

// BindService binds client to the named service of host, creating the
// service record when host does not have it yet. The host is recomputed
// only when the new binding would raise it.
func (s *Service) BindService(client, host int, flags model.BindFlag, service string) (*record.ServiceConnection, error) {
	s.lock()
	hostProcess, err := s.endpoints(client, host)
	if err != nil {
		s.unlock()
		return nil, err
	}
	conn := record.NewServiceConnection(s.registry.nextConnectionID(), client, host, flags, s.ensureService(hostProcess, service))
	if err = s.registry.link(conn); err != nil {
		s.unlock()
		return nil, err
	}
	raise := s.wouldRaise(conn, model.ReasonBindService)
	if flags.Has(model.BindAboveClient) && !hostProcess.HasAboveClient {
		hostProcess.HasAboveClient = true
		raise = true
	}
	if raise {
		s.enqueue(hostProcess)
	}
	s.unlock()
	if raise {
		s.session.RunUpdate(model.ReasonBindService)
	}
	return conn, nil
}

// SetBindingActivity records that the binding was made on behalf of an
// activity of the client and whether that activity is visible.
func (s *Service) SetBindingActivity(connectionID int, hasActivity, visible bool) error {
	s.lock()
	conn, err := s.serviceConnection(connectionID)
	if err != nil {
		s.unlock()
		return err
	}
	conn.HasActivity = hasActivity
	conn.ActivityVisible = visible
	host := s.registry.Process(conn.Host())
	s.enqueue(host)
	s.unlock()
	s.session.RunUpdate(model.ReasonActivity)
	return nil
}

// UnbindService removes a service binding and recomputes its host. A
// service record that was never started is dropped with its last binding.
func (s *Service) UnbindService(connectionID int) error {
	s.lock()
	conn, err := s.serviceConnection(connectionID)
	if err != nil {
		s.unlock()
		return err
	}
	s.registry.unlink(conn)
	host := s.registry.Process(conn.Host())
	s.dropUnusedService(host, conn.Service)
	s.refreshAboveClient(host)
	s.enqueue(host)
	s.unlock()
	s.session.RunUpdate(model.ReasonUnbindService)
	return nil
}

// UpdateOngoingCalls flags in-flight calls on a service binding. The host
// is recomputed when the flag moved.
func (s *Service) UpdateOngoingCalls(connectionID int, ongoing bool) error {
	s.lock()
	conn, err := s.serviceConnection(connectionID)
	if err != nil {
		s.unlock()
		return err
	}
	changed := conn.SetOngoingCalls(ongoing)
	if changed {
		s.enqueue(s.registry.Process(conn.Host()))
	}
	s.unlock()
	if changed {
		s.session.RunUpdate(model.ReasonServiceBinderCall)
	}
	return nil
}

// AddProviderConnection connects client to the named provider published by
// host. The host is recomputed only when the connection would raise it.
func (s *Service) AddProviderConnection(client, host int, provider string) (*record.ProviderConnection, error) {
	s.lock()
	hostProcess, err := s.endpoints(client, host)
	if err != nil {
		s.unlock()
		return nil, err
	}
	conn := record.NewProviderConnection(s.registry.nextConnectionID(), client, host, provider)
	if err = s.registry.link(conn); err != nil {
		s.unlock()
		return nil, err
	}
	raise := s.wouldRaise(conn, model.ReasonGetProvider)
	if raise {
		s.enqueue(hostProcess)
	}
	s.unlock()
	if raise {
		s.session.RunUpdate(model.ReasonGetProvider)
	}
	return conn, nil
}

// RemoveProviderConnection drops a provider connection. The host keeps the
// provider retain window counted from now.
func (s *Service) RemoveProviderConnection(connectionID int) error {
	s.lock()
	conn, err := s.registry.connection(connectionID)
	if err != nil {
		s.unlock()
		return err
	}
	if _, ok := conn.(*record.ProviderConnection); !ok {
		s.unlock()
		return fmt.Errorf("connection %v is not a provider connection: %w", connectionID, dao.ErrNotFound)
	}
	s.registry.unlink(conn)
	host := s.registry.Process(conn.Host())
	host.LastProviderTime = clock.Now()
	s.enqueue(host)
	s.unlock()
	s.session.RunUpdate(model.ReasonRemoveProvider)
	return nil
}

// StartService requests a start of the named service on id.
func (s *Service) StartService(id int, service *record.ServiceRecord) error {
	if service == nil || service.Name == "" {
		return fmt.Errorf("failed to start service on %v: %w", id, dao.ErrInvalidID)
	}
	return s.update(id, model.ReasonStartService, func(p *record.Process) error {
		target := service
		if index := findService(p, service.Name); index != -1 {
			target = p.Services[index]
		} else {
			p.Services = append(p.Services, service)
		}
		target.StartRequested = true
		target.LastActivity = clock.Now()
		target.UpdateKeepWarm(s.policy.KeepWarmingServices, s.currentUser)
		return nil
	})
}

// StopService clears the start request of the named service. The record is
// dropped unless a binding still refers to it.
func (s *Service) StopService(id int, name string) error {
	return s.update(id, model.ReasonStopService, func(p *record.Process) error {
		index := findService(p, name)
		if index == -1 {
			return fmt.Errorf("unknown service %v on %v: %w", name, p.Name, dao.ErrNotFound)
		}
		service := p.Services[index]
		service.StartRequested = false
		service.IsForeground = false
		if !s.bound(p.ID, service) {
			p.Services = append(p.Services[:index], p.Services[index+1:]...)
		}
		return nil
	})
}

// SetForegroundService moves the named service in or out of the foreground.
// serviceType carries the foreground service type bits.
func (s *Service) SetForegroundService(id int, name string, foreground bool, serviceType int) error {
	return s.update(id, model.ReasonStartService, func(p *record.Process) error {
		index := findService(p, name)
		if index == -1 {
			return fmt.Errorf("unknown service %v on %v: %w", name, p.Name, dao.ErrNotFound)
		}
		service := p.Services[index]
		service.IsForeground = foreground
		service.ForegroundServiceType = serviceType
		if !foreground {
			service.ForegroundServiceType = 0
		}
		return nil
	})
}

// SetServiceLastActivity records service activity. It takes effect with
// the next pass.
func (s *Service) SetServiceLastActivity(id int, name string, at time.Time) error {
	return s.mark(id, func(p *record.Process) error {
		index := findService(p, name)
		if index == -1 {
			return fmt.Errorf("unknown service %v on %v: %w", name, p.Name, dao.ErrNotFound)
		}
		p.Services[index].LastActivity = at
		return nil
	})
}

// StartExecutingService notes that id started executing a service call.
func (s *Service) StartExecutingService(id int, foreground bool) error {
	return s.update(id, model.ReasonExecutingService, func(p *record.Process) error {
		p.NumExecutingServices++
		if foreground {
			p.ExecServicesFg = true
		}
		return nil
	})
}

// StopExecutingService notes that one executing service call on id ended.
func (s *Service) StopExecutingService(id int) error {
	return s.update(id, model.ReasonExecutingService, func(p *record.Process) error {
		if p.NumExecutingServices > 0 {
			p.NumExecutingServices--
		}
		if p.NumExecutingServices == 0 {
			p.ExecServicesFg = false
		}
		return nil
	})
}

// AddPublishedProvider publishes provider from id, replacing a provider
// with the same name.
func (s *Service) AddPublishedProvider(id int, provider *record.ProviderRecord) error {
	if provider == nil || provider.Name == "" {
		return fmt.Errorf("failed to publish provider on %v: %w", id, dao.ErrInvalidID)
	}
	return s.update(id, model.ReasonGetProvider, func(p *record.Process) error {
		for i, candidate := range p.Providers {
			if candidate.Name == provider.Name {
				p.Providers[i] = provider
				return nil
			}
		}
		p.Providers = append(p.Providers, provider)
		return nil
	})
}

// RemovePublishedProvider unpublishes the named provider and drops the
// connections to it.
func (s *Service) RemovePublishedProvider(id int, name string) error {
	return s.update(id, model.ReasonRemoveProvider, func(p *record.Process) error {
		index := -1
		for i, candidate := range p.Providers {
			if candidate.Name == name {
				index = i
				break
			}
		}
		if index == -1 {
			return fmt.Errorf("unknown provider %v on %v: %w", name, p.Name, dao.ErrNotFound)
		}
		p.Providers = append(p.Providers[:index], p.Providers[index+1:]...)
		for _, conn := range append([]record.Connection(nil), s.registry.ClientConnections(p.ID)...) {
			if providerConn, ok := conn.(*record.ProviderConnection); ok && providerConn.ProviderName == name {
				s.registry.unlink(conn)
			}
		}
		return nil
	})
}

// SetLastProviderTime records when id last served a provider client. It
// takes effect with the next pass.
func (s *Service) SetLastProviderTime(id int, at time.Time) error {
	return s.mark(id, func(p *record.Process) error {
		p.LastProviderTime = at
		return nil
	})
}

// wouldRaise asks the walker whether conn would raise its host given the
// current client values. A client still waiting for its first pass counts as
// raising. It requires both locks and mutates nothing.
func (s *Service) wouldRaise(conn record.Connection, reason model.Reason) bool {
	pass := &adjuster.Pass{
		ID:           "probe",
		Seq:          s.seq,
		Now:          clock.Now(),
		Reason:       reason,
		Top:          s.registry.Process(s.topID),
		TopProcState: s.topProcState,
		Awake:        s.awake,
	}
	if client := s.registry.Process(conn.Client()); client != nil && s.isPending(client) {
		return true
	}
	return s.adjuster.WouldRaise(pass, conn)
}

// endpoints validates both ends of a new connection and returns the host.
func (s *Service) endpoints(client, host int) (*record.Process, error) {
	if _, err := s.registry.load(client); err != nil {
		return nil, err
	}
	return s.registry.load(host)
}

func (s *Service) isPending(p *record.Process) bool {
	_, ok := s.pending.Get(p.ID)
	return ok
}

func (s *Service) serviceConnection(id int) (*record.ServiceConnection, error) {
	conn, err := s.registry.connection(id)
	if err != nil {
		return nil, err
	}
	ret, ok := conn.(*record.ServiceConnection)
	if !ok {
		return nil, fmt.Errorf("connection %v is not a service binding: %w", id, dao.ErrNotFound)
	}
	return ret, nil
}

// refreshAboveClient recomputes HasAboveClient from the remaining bindings of host.
func (s *Service) refreshAboveClient(host *record.Process) {
	if host == nil {
		return
	}
	host.HasAboveClient = false
	for _, conn := range s.registry.ClientConnections(host.ID) {
		if serviceConn, ok := conn.(*record.ServiceConnection); ok && serviceConn.Flags.Has(model.BindAboveClient) {
			host.HasAboveClient = true
			return
		}
	}
}

func (s *Service) ensureService(p *record.Process, name string) *record.ServiceRecord {
	if index := findService(p, name); index != -1 {
		return p.Services[index]
	}
	service := &record.ServiceRecord{Name: name, UserID: s.currentUser}
	service.UpdateKeepWarm(s.policy.KeepWarmingServices, s.currentUser)
	p.Services = append(p.Services, service)
	return service
}

func (s *Service) dropUnusedService(p *record.Process, service *record.ServiceRecord) {
	if p == nil || service == nil || service.StartRequested || s.bound(p.ID, service) {
		return
	}
	for i, candidate := range p.Services {
		if candidate == service {
			p.Services = append(p.Services[:i], p.Services[i+1:]...)
			return
		}
	}
}

func (s *Service) bound(host int, service *record.ServiceRecord) bool {
	for _, conn := range s.registry.ClientConnections(host) {
		if serviceConn, ok := conn.(*record.ServiceConnection); ok && serviceConn.Service == service {
			return true
		}
	}
	return false
}

func findService(p *record.Process, name string) int {
	for i, service := range p.Services {
		if service.Name == name {
			return i
		}
	}
	return -1
}
