package record

import (
	"time"

	"github.com/viant/oomadj/model"
)

// Foreground service types that map to capabilities.
const (
	ForegroundServiceTypeLocation   = 1 << 3
	ForegroundServiceTypeCamera     = 1 << 6
	ForegroundServiceTypeMicrophone = 1 << 7
)

// ServiceRecord is a service hosted by a process.
type ServiceRecord struct {
	Name                  string    `yaml:"name"`
	StartRequested        bool      `yaml:"startRequested,omitempty"`
	LastActivity          time.Time `yaml:"lastActivity,omitempty"`
	IsForeground          bool      `yaml:"foreground,omitempty"`
	ShortService          bool      `yaml:"shortService,omitempty"`
	ShortFgsTimeout       time.Time `yaml:"shortFgsTimeout,omitempty"`
	ForegroundServiceType int       `yaml:"foregroundServiceType,omitempty"`
	FgsAllowedWhileInUse  bool      `yaml:"fgsAllowedWhileInUse,omitempty"`
	UserID                int       `yaml:"userId,omitempty"`
	KeepWarming           bool      `yaml:"-"`
}

// UpdateKeepWarm marks the service warm when it is listed and belongs to the
// current user.
func (s *ServiceRecord) UpdateKeepWarm(warmNames []string, currentUser int) {
	s.KeepWarming = false
	if s.UserID != currentUser {
		return
	}
	for _, name := range warmNames {
		if name == s.Name {
			s.KeepWarming = true
			return
		}
	}
}

// ForegroundCapabilities returns the capabilities granted by the foreground
// service type. cameraMicByType selects per-type camera and microphone grants.
func (s *ServiceRecord) ForegroundCapabilities(cameraMicByType bool) model.Capability {
	if !s.IsForeground || !s.FgsAllowedWhileInUse {
		return model.CapabilityNone
	}
	var result model.Capability
	if s.ForegroundServiceType&ForegroundServiceTypeLocation != 0 {
		result |= model.CapabilityForegroundLocation
	}
	result |= model.CapabilityForegroundAudioControl
	if !cameraMicByType {
		return result | model.CapabilityForegroundCamera | model.CapabilityForegroundMicrophone
	}
	if s.ForegroundServiceType&ForegroundServiceTypeCamera != 0 {
		result |= model.CapabilityForegroundCamera
	}
	if s.ForegroundServiceType&ForegroundServiceTypeMicrophone != 0 {
		result |= model.CapabilityForegroundMicrophone
	}
	return result
}

// ProviderRecord is a content provider published by a process.
type ProviderRecord struct {
	Name            string `yaml:"name"`
	ExternalHandles int    `yaml:"externalHandles,omitempty"`
}

// HasExternalProcessHandles reports whether a non-framework process holds the provider.
func (r *ProviderRecord) HasExternalProcessHandles() bool {
	return r.ExternalHandles > 0
}
