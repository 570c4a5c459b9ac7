package record

import (
	"time"

	"github.com/viant/oomadj/model"
)

// HostComputer raises a host's importance on behalf of a client.
// Each method reports whether the host would improve.
type HostComputer interface {
	ComputeServiceHost(conn *ServiceConnection, host, client *Process, now time.Time, dryRun bool) bool
	ComputeProviderHost(conn *ProviderConnection, host, client *Process, now time.Time, dryRun bool) bool
}

// Connection is a directed edge from a client process to a host process.
type Connection interface {
	ID() int
	Client() int
	Host() int
	ComputeHostImportance(computer HostComputer, host, client *Process, now time.Time, dryRun bool) bool
	CanAffectCapabilities() bool
	CpuTimeTransmission() model.TransmissionType
	// TrackProcState remembers the client proc state seen in pass seq.
	TrackProcState(state model.ProcState, seq int)
}

type tracking struct {
	trackedProcState model.ProcState
	trackedSeq       int
}

func (t *tracking) TrackProcState(state model.ProcState, seq int) {
	t.trackedProcState = state
	t.trackedSeq = seq
}

// TrackedProcState returns the last tracked client state and its pass seq.
func (t *tracking) TrackedProcState() (model.ProcState, int) {
	return t.trackedProcState, t.trackedSeq
}

// ServiceConnection is a service binding.
type ServiceConnection struct {
	tracking
	id      int
	client  int
	host    int
	Flags   model.BindFlag
	Service *ServiceRecord
	// HasActivity is set when the binding was made on behalf of an activity.
	HasActivity     bool
	ActivityVisible bool
	ongoingCalls    bool
}

// NewServiceConnection creates a binding from client to host.
func NewServiceConnection(id, client, host int, flags model.BindFlag, service *ServiceRecord) *ServiceConnection {
	return &ServiceConnection{id: id, client: client, host: host, Flags: flags, Service: service}
}

func (c *ServiceConnection) ID() int     { return c.id }
func (c *ServiceConnection) Client() int { return c.client }
func (c *ServiceConnection) Host() int   { return c.host }

func (c *ServiceConnection) ComputeHostImportance(computer HostComputer, host, client *Process, now time.Time, dryRun bool) bool {
	return computer.ComputeServiceHost(c, host, client, now, dryRun)
}

func (c *ServiceConnection) CanAffectCapabilities() bool {
	return c.Flags.Has(model.BindIncludeCapabilities |
		model.BindBypassPowerNetworkRestrictions |
		model.BindBypassUserNetworkRestrictions)
}

// CpuTimeTransmission is NORMAL while a call is in flight, regardless of flags.
func (c *ServiceConnection) CpuTimeTransmission() model.TransmissionType {
	if c.ongoingCalls {
		return model.TransmissionNormal
	}
	if c.Flags.Has(model.BindAllowFreeze) {
		return model.TransmissionNone
	}
	if c.Flags.Has(model.BindSimulateAllowFreeze) {
		return model.TransmissionLegacy
	}
	return model.TransmissionNormal
}

func (c *ServiceConnection) OngoingCalls() bool {
	return c.ongoingCalls
}

// SetOngoingCalls reports whether the flag changed.
func (c *ServiceConnection) SetOngoingCalls(ongoing bool) bool {
	if c.ongoingCalls == ongoing {
		return false
	}
	c.ongoingCalls = ongoing
	return true
}

// ServiceName returns the bound service name, empty when unknown.
func (c *ServiceConnection) ServiceName() string {
	if c.Service == nil {
		return ""
	}
	return c.Service.Name
}

// ProviderConnection is a content provider connection.
type ProviderConnection struct {
	tracking
	id           int
	client       int
	host         int
	ProviderName string
}

// NewProviderConnection creates a provider connection from client to host.
func NewProviderConnection(id, client, host int, providerName string) *ProviderConnection {
	return &ProviderConnection{id: id, client: client, host: host, ProviderName: providerName}
}

func (c *ProviderConnection) ID() int     { return c.id }
func (c *ProviderConnection) Client() int { return c.client }
func (c *ProviderConnection) Host() int   { return c.host }

func (c *ProviderConnection) ComputeHostImportance(computer HostComputer, host, client *Process, now time.Time, dryRun bool) bool {
	return computer.ComputeProviderHost(c, host, client, now, dryRun)
}

func (c *ProviderConnection) CanAffectCapabilities() bool {
	return false
}

func (c *ProviderConnection) CpuTimeTransmission() model.TransmissionType {
	return model.TransmissionNormal
}
