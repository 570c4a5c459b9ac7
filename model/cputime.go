package model

import "strconv"

// CpuTimeReason records why a process holds the cpu-time capability.
type CpuTimeReason uint32

const (
	CpuTimeReasonNone              CpuTimeReason = 0
	CpuTimeReasonOther             CpuTimeReason = 1 << 0
	CpuTimeReasonTransmitted       CpuTimeReason = 1 << 1
	CpuTimeReasonTransmittedLegacy CpuTimeReason = 1 << 2
)

func (r CpuTimeReason) String() string {
	return "0x" + strconv.FormatUint(uint64(r), 16)
}

// ImplicitCpuTimeReason records why a process holds the implicit cpu-time capability.
type ImplicitCpuTimeReason uint32

const (
	ImplicitCpuTimeReasonNone              ImplicitCpuTimeReason = 0
	ImplicitCpuTimeReasonOther             ImplicitCpuTimeReason = 1 << 0
	ImplicitCpuTimeReasonTransmitted       ImplicitCpuTimeReason = 1 << 1
	ImplicitCpuTimeReasonTransmittedLegacy ImplicitCpuTimeReason = 1 << 2
)

func (r ImplicitCpuTimeReason) String() string {
	return "0x" + strconv.FormatUint(uint64(r), 16)
}

// TransmissionType describes how a connection hands cpu-time grants to its host.
type TransmissionType int

const (
	TransmissionNone TransmissionType = iota
	TransmissionNormal
	TransmissionLegacy
)

func (t TransmissionType) String() string {
	switch t {
	case TransmissionNone:
		return "none"
	case TransmissionNormal:
		return "normal"
	case TransmissionLegacy:
		return "legacy"
	}
	return strconv.Itoa(int(t))
}
