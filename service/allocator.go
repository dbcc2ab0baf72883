package service

import (
	"fmt"
	"math/bits"
	"net/netip"

	"github.com/jrtxreal/netsel/domain"
	"github.com/jrtxreal/netsel/interfaces"
)

// addressAllocator implements interfaces.Allocator over a bitmap of pool slots.
// Slot index = ipOffset*portCount + portOffset, so the pool fills every port
// of the first IP before moving to the next one.
//
// Every index below hint is allocated; Allocate scans from there.
type addressAllocator struct {
	cfg       domain.PoolConfig
	base      uint32
	portCount int
	size      int

	bitmap []uint64
	hint   int
	inUse  int
}

// NewAllocator validates cfg and creates an empty allocator for it.
func NewAllocator(cfg domain.PoolConfig) (interfaces.Allocator, error) {
	if err := domain.ValidatePoolConfig(cfg); err != nil {
		return nil, NewBadParameterError("invalid address pool", err)
	}
	b := cfg.IPStart.As4()
	size := cfg.Size()
	return &addressAllocator{
		cfg:       cfg,
		base:      uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]),
		portCount: cfg.PortCount(),
		size:      size,
		bitmap:    make([]uint64, (size+63)/64),
	}, nil
}

func (a *addressAllocator) Allocate() (domain.Slot, error) {
	for w := a.hint / 64; w < len(a.bitmap); w++ {
		word := a.bitmap[w]
		if word == ^uint64(0) {
			continue
		}
		bit := bits.TrailingZeros64(^word)
		idx := w*64 + bit
		if idx >= a.size {
			break
		}
		a.bitmap[w] = word | 1<<uint(bit)
		a.inUse++
		a.hint = idx + 1
		return a.slotAt(idx), nil
	}
	a.hint = a.size
	return domain.Slot{}, NewAllocationExhaustedError(
		fmt.Sprintf("virtual address pool exhausted (%d slots in use)", a.inUse), nil)
}

func (a *addressAllocator) Release(slot domain.Slot) bool {
	idx, ok := a.indexOf(slot)
	if !ok || !a.test(idx) {
		return false
	}
	a.bitmap[idx/64] &^= 1 << uint(idx%64)
	a.inUse--
	if idx < a.hint {
		a.hint = idx
	}
	return true
}

func (a *addressAllocator) IsAllocated(slot domain.Slot) bool {
	idx, ok := a.indexOf(slot)
	return ok && a.test(idx)
}

func (a *addressAllocator) Contains(addr netip.Addr) bool {
	_, ok := a.ipOffset(addr)
	return ok
}

func (a *addressAllocator) Size() int {
	return a.size
}

func (a *addressAllocator) InUse() int {
	return a.inUse
}

func (a *addressAllocator) test(idx int) bool {
	return a.bitmap[idx/64]&(1<<uint(idx%64)) != 0
}

func (a *addressAllocator) slotAt(idx int) domain.Slot {
	ip := a.base + uint32(idx/a.portCount)
	return domain.Slot{
		Address: netip.AddrFrom4([4]byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)}),
		Port:    a.cfg.PortStart + uint16(idx%a.portCount),
	}
}

func (a *addressAllocator) ipOffset(addr netip.Addr) (int, bool) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return 0, false
	}
	b := addr.As4()
	ip := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	if ip < a.base || uint64(ip-a.base) >= uint64(a.cfg.IPCount) {
		return 0, false
	}
	return int(ip - a.base), true
}

func (a *addressAllocator) indexOf(slot domain.Slot) (int, bool) {
	off, ok := a.ipOffset(slot.Address)
	if !ok || slot.Port < a.cfg.PortStart || slot.Port > a.cfg.PortEnd {
		return 0, false
	}
	return off*a.portCount + int(slot.Port-a.cfg.PortStart), true
}
