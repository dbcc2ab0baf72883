package handlers

import (
	"github.com/jrtxreal/netsel/service"
)

// registerArgs are the validated arguments of a registration.
type registerArgs struct {
	name         string
	backend      string
	leaseSeconds int
}

// fromRegisterRequest converts RegisterRequest to registration arguments.
// Returns service.BadParameterError on validation failure; the registry
// repeats the name and address checks.
func fromRegisterRequest(req RegisterRequest) (registerArgs, error) {
	if req.Name == "" {
		return registerArgs{}, service.NewBadParameterError("name is required", nil)
	}
	if req.BackendAddress == "" {
		return registerArgs{}, service.NewBadParameterError("backend_address is required", nil)
	}
	lease := 0
	if req.LeaseSeconds != nil {
		if *req.LeaseSeconds < 0 {
			return registerArgs{}, service.NewBadParameterError("lease_seconds must not be negative", nil)
		}
		lease = *req.LeaseSeconds
	}
	return registerArgs{name: req.Name, backend: req.BackendAddress, leaseSeconds: lease}, nil
}
