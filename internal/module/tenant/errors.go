package tenant

import "errors"

// Module errors.
var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrTenantInactive  = errors.New("tenant is inactive")
	ErrNoActiveTenants = errors.New("no active tenants configured")
)
