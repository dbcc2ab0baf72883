package interfaces

import (
	"context"
	"net"
)

// Dialer opens backend connections for the TCP proxy. *net.Dialer satisfies it.
//
//go:generate moq -stub -out mock/dialer.go -pkg mock . Dialer
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}
