// Package domain holds the value types shared by the registry core and its front-ends.
package domain

import (
	"net/netip"
	"strconv"
	"time"
)

// Status of an instance record. Expired only ever appears on snapshots handed
// to observers after the sweeper removed the record; the store never keeps one.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Slot is one (virtual address, virtual port) pair from the allocator pool.
type Slot struct {
	Address netip.Addr
	Port    uint16
}

// AddrPort returns the slot as a netip.AddrPort.
func (s Slot) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(s.Address, s.Port)
}

func (s Slot) String() string {
	return s.AddrPort().String()
}

// Instance is one registered, addressable copy of a service.
// Values of this type are always copies; the registry owns the originals.
type Instance struct {
	Name            string     `json:"name"`
	InstanceID      string     `json:"instance_id"`
	VirtualAddress  netip.Addr `json:"virtual_address"`
	VirtualPort     uint16     `json:"virtual_port"`
	BackendAddress  string     `json:"backend_address"` // host:port the proxies dial
	RegisteredAt    time.Time  `json:"registered_at"`
	LastHeartbeatAt time.Time  `json:"last_heartbeat_at"`
	LeaseSeconds    int        `json:"lease_seconds"` // advisory only
	Status          Status     `json:"status"`
}

// Slot returns the virtual slot held by the instance.
func (i Instance) Slot() Slot {
	return Slot{Address: i.VirtualAddress, Port: i.VirtualPort}
}

// VirtualAddrPort returns the virtual address and port as one value, the form handed to DNS.
func (i Instance) VirtualAddrPort() netip.AddrPort {
	return netip.AddrPortFrom(i.VirtualAddress, i.VirtualPort)
}

// IsStale reports whether the last heartbeat is older than maxAge at now.
// An age exactly equal to maxAge is still alive.
func (i Instance) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(i.LastHeartbeatAt) > maxAge
}

// Registration is the assignment returned to a client that registered successfully.
type Registration struct {
	InstanceID        string
	VirtualAddress    netip.Addr
	VirtualPort       uint16
	LeaseSeconds      int
	HeartbeatInterval time.Duration
}

// HeartbeatIntervalSeconds is the advertised heartbeat interval rounded down to whole seconds.
func (r Registration) HeartbeatIntervalSeconds() int {
	return int(r.HeartbeatInterval / time.Second)
}

// RegistryStats is a point-in-time summary of the store and its address pool.
type RegistryStats struct {
	Instances int `json:"instances"`
	Services  int `json:"services"`
	PoolSize  int `json:"pool_size"`
	PoolInUse int `json:"pool_in_use"`
}

const maxServiceNameLen = 253

// ValidateServiceName checks that name can travel on the line protocol and
// through DNS: 1-253 characters from [A-Za-z0-9._-].
func ValidateServiceName(name string) error {
	if name == "" {
		return &FieldError{Field: "name", Reason: "must be non-empty"}
	}
	if len(name) > maxServiceNameLen {
		return &FieldError{Field: "name", Reason: "must be at most " + strconv.Itoa(maxServiceNameLen) + " characters"}
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return &FieldError{Field: "name", Reason: "contains invalid character " + strconv.QuoteRune(r)}
		}
	}
	return nil
}

// FieldError reports an invalid value of a named field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}
