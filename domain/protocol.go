package domain

import (
	"net/netip"
	"strconv"
	"strings"
	"time"
)

// Registration line protocol. Each request and response is one line of
// fields separated by FieldSeparator.
const (
	FieldSeparator = "|"

	CmdRegister   = "REGISTER"
	CmdHeartbeat  = "HEARTBEAT"
	CmdDeregister = "DEREGISTER"
	CmdResolve    = "RESOLVE"

	StatusSuccess      = "SUCCESS"
	StatusFailed       = "FAILED"
	StatusHeartbeatOK  = "HEARTBEAT_OK"
	StatusNotFound     = "NOT_FOUND"
	StatusDeregisterOK = "DEREGISTER_OK"
	StatusInstances    = "INSTANCES"

	ReasonMalformedRequest    = "malformed_request"
	ReasonAllocationExhausted = "allocation_exhausted"
	ReasonRateLimited         = "rate_limited"
	ReasonInternalError       = "internal_error"
)

// Request is one parsed protocol request. Only the fields of Command are set.
type Request struct {
	Command      string
	Name         string
	Backend      string
	LeaseSeconds int // 0 when absent
	InstanceID   string
}

// ParseRequest parses one request line. Trailing CR, LF and NUL bytes are ignored.
func ParseRequest(line string) (Request, error) {
	line = strings.TrimRight(line, "\r\n\x00")
	line = strings.TrimSpace(line)
	if line == "" {
		return Request{}, &FieldError{Field: "request", Reason: "empty request"}
	}
	parts := strings.Split(line, FieldSeparator)
	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case CmdRegister:
		if len(args) != 2 && len(args) != 3 {
			return Request{}, &FieldError{Field: "request", Reason: "REGISTER expects name|backend_host:port[|lease_seconds]"}
		}
		req := Request{Command: cmd, Name: strings.TrimSpace(args[0]), Backend: strings.TrimSpace(args[1])}
		if req.Name == "" {
			return Request{}, &FieldError{Field: "name", Reason: "must be non-empty"}
		}
		if req.Backend == "" {
			return Request{}, &FieldError{Field: "backend", Reason: "must be non-empty"}
		}
		if len(args) == 3 {
			lease, err := strconv.Atoi(strings.TrimSpace(args[2]))
			if err != nil || lease < 0 {
				return Request{}, &FieldError{Field: "lease_seconds", Reason: "must be a non-negative integer"}
			}
			req.LeaseSeconds = lease
		}
		return req, nil
	case CmdHeartbeat, CmdDeregister:
		if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
			return Request{}, &FieldError{Field: "request", Reason: cmd + " expects instance_id"}
		}
		return Request{Command: cmd, InstanceID: strings.TrimSpace(args[0])}, nil
	case CmdResolve:
		if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
			return Request{}, &FieldError{Field: "request", Reason: "RESOLVE expects name"}
		}
		return Request{Command: cmd, Name: strings.TrimSpace(args[0])}, nil
	}
	return Request{}, &FieldError{Field: "request", Reason: "unknown command " + strconv.Quote(cmd)}
}

// String encodes the request without the line terminator.
func (r Request) String() string {
	switch r.Command {
	case CmdRegister:
		fields := []string{CmdRegister, r.Name, r.Backend}
		if r.LeaseSeconds > 0 {
			fields = append(fields, strconv.Itoa(r.LeaseSeconds))
		}
		return strings.Join(fields, FieldSeparator)
	case CmdHeartbeat, CmdDeregister:
		return r.Command + FieldSeparator + r.InstanceID
	case CmdResolve:
		return CmdResolve + FieldSeparator + r.Name
	}
	return r.Command
}

// Response is one protocol response: a status word and its fields.
type Response struct {
	Status string
	Fields []string
}

// ParseResponse splits a response line into status and fields.
func ParseResponse(line string) (Response, error) {
	line = strings.TrimSpace(strings.TrimRight(line, "\r\n\x00"))
	if line == "" {
		return Response{}, &FieldError{Field: "response", Reason: "empty response"}
	}
	parts := strings.Split(line, FieldSeparator)
	return Response{Status: parts[0], Fields: parts[1:]}, nil
}

// String encodes the response without the line terminator. Field values
// cannot carry the separator or a line break; such characters become spaces.
func (r Response) String() string {
	var b strings.Builder
	b.WriteString(r.Status)
	for _, f := range r.Fields {
		b.WriteString(FieldSeparator)
		b.WriteString(sanitizeField(f))
	}
	return b.String()
}

func sanitizeField(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '|', '\n', '\r', 0:
			return ' '
		}
		return r
	}, s)
}

// SuccessResponse encodes a registration:
// SUCCESS|virtual_ip|virtual_port|lease_seconds|instance_id|heartbeat_interval_seconds.
func SuccessResponse(reg Registration) Response {
	return Response{Status: StatusSuccess, Fields: []string{
		reg.VirtualAddress.String(),
		strconv.Itoa(int(reg.VirtualPort)),
		strconv.Itoa(reg.LeaseSeconds),
		reg.InstanceID,
		strconv.Itoa(reg.HeartbeatIntervalSeconds()),
	}}
}

// FailedResponse encodes FAILED|reason_code|message.
func FailedResponse(reasonCode, message string) Response {
	return Response{Status: StatusFailed, Fields: []string{reasonCode, message}}
}

// InstancesResponse encodes INSTANCES|ip:port,ip:port,...
func InstancesResponse(addrs []netip.AddrPort) Response {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return Response{Status: StatusInstances, Fields: []string{strings.Join(out, ",")}}
}

// ParseRegistration decodes a SUCCESS response. The first three fields are
// required; instance id and heartbeat interval are read when present.
func (r Response) ParseRegistration() (Registration, error) {
	if r.Status != StatusSuccess || len(r.Fields) < 3 {
		return Registration{}, &FieldError{Field: "response", Reason: "not a registration success"}
	}
	addr, err := netip.ParseAddr(r.Fields[0])
	if err != nil {
		return Registration{}, &FieldError{Field: "virtual_ip", Reason: err.Error()}
	}
	port, err := strconv.ParseUint(r.Fields[1], 10, 16)
	if err != nil {
		return Registration{}, &FieldError{Field: "virtual_port", Reason: err.Error()}
	}
	lease, err := strconv.Atoi(r.Fields[2])
	if err != nil {
		return Registration{}, &FieldError{Field: "lease_seconds", Reason: err.Error()}
	}
	reg := Registration{VirtualAddress: addr, VirtualPort: uint16(port), LeaseSeconds: lease}
	if len(r.Fields) > 3 {
		reg.InstanceID = r.Fields[3]
	}
	if len(r.Fields) > 4 {
		secs, err := strconv.Atoi(r.Fields[4])
		if err != nil {
			return Registration{}, &FieldError{Field: "heartbeat_interval_seconds", Reason: err.Error()}
		}
		reg.HeartbeatInterval = time.Duration(secs) * time.Second
	}
	return reg, nil
}

// ParseInstances decodes an INSTANCES response.
func (r Response) ParseInstances() ([]netip.AddrPort, error) {
	if r.Status != StatusInstances {
		return nil, &FieldError{Field: "response", Reason: "not an instances response"}
	}
	if len(r.Fields) == 0 || r.Fields[0] == "" {
		return nil, nil
	}
	parts := strings.Split(r.Fields[0], ",")
	out := make([]netip.AddrPort, 0, len(parts))
	for _, p := range parts {
		ap, err := netip.ParseAddrPort(p)
		if err != nil {
			return nil, &FieldError{Field: "instances", Reason: err.Error()}
		}
		out = append(out, ap)
	}
	return out, nil
}
