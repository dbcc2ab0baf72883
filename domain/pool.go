package domain

import (
	"net/netip"
	"strconv"
)

// PoolConfig defines the virtual address pool: IPCount consecutive IPv4
// addresses starting at IPStart, each paired with every port in [PortStart, PortEnd].
type PoolConfig struct {
	IPStart   netip.Addr
	IPCount   int
	PortStart uint16
	PortEnd   uint16
}

// DefaultPoolConfig is a single virtual IP (10.0.0.100) with ports 9000-9999.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		IPStart:   netip.AddrFrom4([4]byte{10, 0, 0, 100}),
		IPCount:   1,
		PortStart: 9000,
		PortEnd:   9999,
	}
}

// PortCount is the number of ports per virtual IP.
func (c PoolConfig) PortCount() int {
	return int(c.PortEnd) - int(c.PortStart) + 1
}

// Size is the total number of slots in the pool.
func (c PoolConfig) Size() int {
	return c.IPCount * c.PortCount()
}

// ValidatePoolConfig returns a *FieldError for the first invalid setting.
// The IP range must stay inside IPv4 space and must not wrap past 255.255.255.255.
func ValidatePoolConfig(c PoolConfig) error {
	if !c.IPStart.Is4() {
		return &FieldError{Field: "pool.ip_start", Reason: "must be an IPv4 address"}
	}
	if c.IPCount < 1 {
		return &FieldError{Field: "pool.ip_count", Reason: "must be positive"}
	}
	if c.PortStart == 0 {
		return &FieldError{Field: "pool.port_start", Reason: "must be 1-65535"}
	}
	if c.PortEnd < c.PortStart {
		return &FieldError{Field: "pool.port_end", Reason: "must be >= port_start (" + strconv.Itoa(int(c.PortStart)) + ")"}
	}
	b := c.IPStart.As4()
	first := uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3])
	if first+uint64(c.IPCount)-1 > 0xFFFFFFFF {
		return &FieldError{Field: "pool.ip_count", Reason: "range overflows IPv4 space"}
	}
	return nil
}
