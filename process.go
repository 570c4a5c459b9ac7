package oomadj

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/viant/oomadj/internal/clock"
	"github.com/viant/oomadj/model"
	"github.com/viant/oomadj/model/record"
	"github.com/viant/oomadj/service/dao"
	"github.com/viant/oomadj/service/uid"
)

// ErrComponentsNotManaged is returned by component mutations on a process
// whose Components are supplied by the caller rather than a
// *record.StaticComponents.
var ErrComponentsNotManaged = errors.New("process components are not managed by the service")

// update applies fn to process id under both locks, marks the process as a
// pending target and requests a pass with reason.
func (s *Service) update(id int, reason model.Reason, fn func(p *record.Process) error) error {
	if err := s.mark(id, fn); err != nil {
		return err
	}
	s.session.RunUpdate(reason)
	return nil
}

// mark applies fn to process id and leaves it pending for the next pass.
func (s *Service) mark(id int, fn func(p *record.Process) error) error {
	s.lock()
	defer s.unlock()
	p, err := s.registry.load(id)
	if err != nil {
		return err
	}
	if err = fn(p); err != nil {
		return err
	}
	s.enqueue(p)
	return nil
}

// AddProcess registers p as the most recently used process and runs a pass
// for it. The process id must be unique and non zero.
func (s *Service) AddProcess(p *record.Process) error {
	if p == nil {
		return fmt.Errorf("failed to add process: nil process")
	}
	s.lock()
	if _, err := s.registry.add(p); err != nil {
		s.unlock()
		return err
	}
	p.SetObserver(s.tracker)
	s.lruSeq++
	p.LruSeq = s.lruSeq
	for _, service := range p.Services {
		service.UpdateKeepWarm(s.policy.KeepWarmingServices, s.currentUser)
	}
	s.enqueue(p)
	s.unlock()
	s.session.RunUpdate(model.ReasonProcessBegin)
	return nil
}

// RemoveProcess unregisters a dead process. Its connections are dropped and
// the processes it was a client of are recomputed.
func (s *Service) RemoveProcess(id int) error {
	s.lock()
	p, err := s.registry.load(id)
	if err != nil {
		s.unlock()
		return err
	}
	removed, u, gone := s.registry.remove(p)
	for _, conn := range removed {
		if conn.Client() != id {
			continue
		}
		if host := s.registry.Process(conn.Host()); host != nil {
			s.refreshAboveClient(host)
			s.enqueue(host)
		}
	}
	_ = s.pending.Delete(context.Background(), id)
	delete(s.receivers, id)
	if s.topID == id {
		s.topID = 0
	}
	s.tracker.Forget(p)
	p.SetObserver(nil)
	p.OnCleanup()
	p.Alive = false
	if gone {
		change := uid.New().Remove(u)
		s.logger.Debug("uid gone", slog.String("uid", model.FormatUID(u.UID)), slog.String("change", change.String()))
	}
	s.unlock()
	s.session.RunUpdate(model.ReasonProcessEnd)
	return nil
}

// UpdateLruProcess makes id the most recently used process.
func (s *Service) UpdateLruProcess(id int) error {
	s.lock()
	defer s.unlock()
	p, err := s.registry.load(id)
	if err != nil {
		return err
	}
	s.registry.processes.Touch(id)
	s.lruSeq++
	p.LruSeq = s.lruSeq
	return nil
}

// SetTopProcess makes id the top process; 0 clears it. Both the previous and
// the new top are recomputed.
func (s *Service) SetTopProcess(id int) error {
	s.lock()
	if id != 0 {
		p, err := s.registry.load(id)
		if err != nil {
			s.unlock()
			return err
		}
		s.registry.processes.Touch(id)
		s.lruSeq++
		p.LruSeq = s.lruSeq
		s.enqueue(p)
	}
	if previous := s.registry.Process(s.topID); previous != nil && s.topID != id {
		s.enqueue(previous)
	}
	s.topID = id
	s.unlock()
	s.session.RunUpdate(model.ReasonActivity)
	return nil
}

// TopProcess returns the id of the top process, 0 when there is none.
func (s *Service) TopProcess() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.topID
}

// SetAwake records the device wakefulness and recomputes every process.
func (s *Service) SetAwake(awake bool) {
	s.lock()
	s.awake = awake
	s.topProcState = model.ProcStateTop
	if !awake {
		s.topProcState = model.ProcStateTopSleeping
	}
	s.unlock()
	s.RunFullUpdate(model.ReasonActivity)
}

// HandleUserSwitched re-evaluates keep-warm services for user and
// recomputes every process.
func (s *Service) HandleUserSwitched(user int) {
	s.lock()
	s.currentUser = user
	for _, p := range s.registry.lru() {
		for _, service := range p.Services {
			service.UpdateKeepWarm(s.policy.KeepWarmingServices, user)
		}
	}
	s.unlock()
	s.RunFullUpdate(model.ReasonNone)
}

// SetMaxAdj caps the adj of id. Values at or below foreground make the
// process fixed.
func (s *Service) SetMaxAdj(id, adj int) error {
	return s.update(id, model.ReasonNone, func(p *record.Process) error {
		p.MaxAdj = adj
		return nil
	})
}

func (s *Service) SetHasTopUi(id int, hasTopUi bool) error {
	return s.update(id, model.ReasonUIVisibility, func(p *record.Process) error {
		p.SetHasTopUi(hasTopUi)
		return nil
	})
}

func (s *Service) SetHasOverlayUi(id int, hasOverlayUi bool) error {
	return s.update(id, model.ReasonUIVisibility, func(p *record.Process) error {
		p.SetHasOverlayUi(hasOverlayUi)
		return nil
	})
}

func (s *Service) SetRunningRemoteAnimation(id int, running bool) error {
	return s.update(id, model.ReasonUIVisibility, func(p *record.Process) error {
		p.RunningRemoteAnimation = running
		return nil
	})
}

// SetForcingToImportant keeps id perceptible on behalf of token; an empty
// token releases it.
func (s *Service) SetForcingToImportant(id int, token string) error {
	return s.update(id, model.ReasonUIVisibility, func(p *record.Process) error {
		p.ForcingToImportant = token
		return nil
	})
}

func (s *Service) SetHasShownUi(id int, shown bool) error {
	return s.update(id, model.ReasonUIVisibility, func(p *record.Process) error {
		p.HasShownUi = shown
		return nil
	})
}

// SetBackupTarget marks id as the target of a running backup. Only one
// process is the backup target at a time.
func (s *Service) SetBackupTarget(id int) error {
	s.lock()
	target, err := s.registry.load(id)
	if err != nil {
		s.unlock()
		return err
	}
	for _, p := range s.registry.lru() {
		if p.BackupTarget && p != target {
			p.BackupTarget = false
			s.enqueue(p)
		}
	}
	target.BackupTarget = true
	s.enqueue(target)
	s.unlock()
	s.session.RunUpdate(model.ReasonBackup)
	return nil
}

func (s *Service) StopBackupTarget(id int) error {
	return s.update(id, model.ReasonBackup, func(p *record.Process) error {
		p.BackupTarget = false
		return nil
	})
}

func (s *Service) SetPendingFinishAttach(id int, pending bool) error {
	return s.update(id, model.ReasonProcessBegin, func(p *record.Process) error {
		p.PendingFinishAttach = pending
		return nil
	})
}

// NoteInteraction records a user interaction with id. It does not run a
// pass; the interaction time is published with the next one.
func (s *Service) NoteInteraction(id int) error {
	return s.mark(id, func(p *record.Process) error {
		p.SetInteractionEventTime(clock.Now())
		p.HasReportedInteraction = true
		return nil
	})
}

// SetUidAllowlisted updates the power allow-list membership of uid.
func (s *Service) SetUidAllowlisted(uid int, allowlisted bool) error {
	return s.updateUid(uid, model.ReasonAllowlist, func(u *record.Uid) {
		u.CurAllowListed = allowlisted
	})
}

// SetUidIdle updates the idle flag of uid.
func (s *Service) SetUidIdle(uid int, idle bool) error {
	return s.updateUid(uid, model.ReasonUidIdle, func(u *record.Uid) {
		u.Idle = idle
		if idle {
			u.SetLastIdleTime(clock.Now())
		}
	})
}

func (s *Service) updateUid(uid int, reason model.Reason, fn func(u *record.Uid)) error {
	s.lock()
	u := s.registry.Uid(uid)
	if u == nil {
		s.unlock()
		return fmt.Errorf("unknown uid %v: %w", model.FormatUID(uid), dao.ErrNotFound)
	}
	fn(u)
	for _, p := range u.Processes() {
		s.enqueue(p)
	}
	s.unlock()
	s.session.RunUpdate(reason)
	return nil
}

// UpdateComponents mutates the static components of id and recomputes it.
func (s *Service) UpdateComponents(id int, reason model.Reason, fn func(c *record.StaticComponents)) error {
	return s.update(id, reason, func(p *record.Process) error {
		components, ok := p.Components.(*record.StaticComponents)
		if !ok {
			return fmt.Errorf("process %v: %w", p.Name, ErrComponentsNotManaged)
		}
		fn(components)
		p.ResetCachedInfo()
		return nil
	})
}

// NoteBroadcastDeliveryStarted marks id as receiving a broadcast that
// requires group. Deliveries nest; the last started one sets the group.
func (s *Service) NoteBroadcastDeliveryStarted(id int, group model.SchedGroup) error {
	err := s.UpdateComponents(id, model.ReasonStartReceiver, func(c *record.StaticComponents) {
		c.ReceivingBroadcast = true
		c.BroadcastSchedGroup = group
	})
	if err != nil {
		return err
	}
	s.mux.Lock()
	s.receivers[id]++
	s.mux.Unlock()
	return nil
}

// NoteBroadcastDeliveryEnded ends one delivery to id.
func (s *Service) NoteBroadcastDeliveryEnded(id int) error {
	s.mux.Lock()
	count := s.receivers[id] - 1
	if count <= 0 {
		delete(s.receivers, id)
	} else {
		s.receivers[id] = count
	}
	s.mux.Unlock()
	return s.UpdateComponents(id, model.ReasonFinishReceiver, func(c *record.StaticComponents) {
		if count <= 0 {
			c.ReceivingBroadcast = false
			c.BroadcastSchedGroup = model.SchedGroupBackground
		}
	})
}

// ReportApplied records the adj the OS confirmed for id.
func (s *Service) ReportApplied(id, adj int) error {
	s.lock()
	defer s.unlock()
	p, err := s.registry.load(id)
	if err != nil {
		return err
	}
	p.VerifiedAdj = adj
	return nil
}

// Mismatch is a process whose applied adj was not confirmed.
type Mismatch struct {
	ID          int
	Name        string
	AppliedAdj  int
	VerifiedAdj int
}

// Mismatches lists the processes whose applied adj differs from the last
// confirmed one, for the applier to retry. Each is logged at warn level.
func (s *Service) Mismatches() []Mismatch {
	s.mux.Lock()
	s.procMux.RLock()
	var result []Mismatch
	for _, p := range s.registry.lru() {
		if p.AppliedAdj == model.InvalidAdj || p.AppliedAdj == p.VerifiedAdj {
			continue
		}
		result = append(result, Mismatch{ID: p.ID, Name: p.Name, AppliedAdj: p.AppliedAdj, VerifiedAdj: p.VerifiedAdj})
	}
	s.procMux.RUnlock()
	s.mux.Unlock()
	for _, mismatch := range result {
		s.logger.Warn("applied adj not verified",
			slog.String("process", mismatch.Name),
			slog.Int("id", mismatch.ID),
			slog.Int("set", mismatch.AppliedAdj),
			slog.Int("verified", mismatch.VerifiedAdj))
	}
	return result
}
