package authz

import (
	"context"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Source provides role definitions to an Authorizer.
type Source interface {
	Load(ctx context.Context) ([]Role, error)
}

// MemorySource serves a fixed set of roles. The roles are copied in, so
// mutating the originals after construction cannot reach an Authorizer
// built from this source.
type MemorySource struct {
	roles []Role
}

// NewMemorySource creates a source from the given roles.
func NewMemorySource(roles ...Role) *MemorySource {
	copied := make([]Role, len(roles))
	for i, r := range roles {
		copied[i] = Role{
			Name:        r.Name,
			Permissions: slices.Clone(r.Permissions),
			Inherits:    slices.Clone(r.Inherits),
		}
	}
	return &MemorySource{roles: copied}
}

// Load implements Source.
func (s *MemorySource) Load(context.Context) ([]Role, error) {
	return s.roles, nil
}

// FileSource loads role definitions from a YAML file of the form:
//
//	roles:
//	  - name: viewer
//	    permissions: ["projects:read", "reports:read"]
//	  - name: editor
//	    permissions: ["projects:*"]
//	    inherits: [viewer]
type FileSource struct {
	path string
}

// NewFileSource creates a source reading from path. The file is read on
// every Load, so rebuilding an Authorizer picks up edits.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load implements Source.
func (s *FileSource) Load(context.Context) ([]Role, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("authz: read roles file: %w", err)
	}
	var doc struct {
		Roles []Role `yaml:"roles"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("authz: parse roles file %s: %w", s.path, err)
	}
	return doc.Roles, nil
}
