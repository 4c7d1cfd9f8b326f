package authz

import "errors"

var (
	// ErrInvalidSource is returned when a role source yields structurally
	// broken data, such as an unnamed or duplicated role.
	ErrInvalidSource = errors.New("authz: invalid role source")

	// ErrCircularInheritance is returned when roles inherit from each
	// other in a cycle.
	ErrCircularInheritance = errors.New("authz: circular role inheritance")

	// ErrInheritanceTooDeep is returned when a role's inheritance chain
	// exceeds the supported depth.
	ErrInheritanceTooDeep = errors.New("authz: role inheritance too deep")
)
