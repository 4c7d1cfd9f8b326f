package authz

// maxInheritanceDepth bounds role inheritance chains. Deeper chains are
// rejected at construction rather than silently truncated.
const maxInheritanceDepth = 10

// Role grants a named set of permissions. A role may inherit other
// roles, in which case their permissions (including transitively
// inherited ones) are granted too.
type Role struct {
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
	Inherits    []string `yaml:"inherits,omitempty"`
}
