package repository

import "time"

// Base carries the bookkeeping fields every stored entity needs: identity,
// tenant ownership, create/update stamps and the soft-delete marker. Embed
// it in entity structs:
//
//	type Project struct {
//	    repository.Base `bson:",inline"`
//	    Name            string `bson:"name" json:"name"`
//	}
type Base struct {
	ID            string     `bson:"_id,omitempty" json:"id"`
	TenantID      string     `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	CreatedDate   time.Time  `bson:"created_date,omitempty" json:"created_date"`
	CreatedBy     string     `bson:"created_by,omitempty" json:"created_by,omitempty"`
	LastUpdated   time.Time  `bson:"last_updated,omitempty" json:"last_updated"`
	LastUpdatedBy string     `bson:"last_updated_by,omitempty" json:"last_updated_by,omitempty"`
	Deleted       bool       `bson:"deleted" json:"deleted"`
	DeletedAt     *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	DeletedBy     string     `bson:"deleted_by,omitempty" json:"deleted_by,omitempty"`
}

// Document is what the repository needs from a stored entity. *Base
// implements it, so embedding Base is all an entity type has to do.
type Document interface {
	GetID() string
	SetID(id string)
	GetTenantID() string
	SetTenantID(id string)
	StampCreate(now time.Time, userID string)
	StampUpdate(now time.Time, userID string)
	IsDeleted() bool
}

// Doc constrains an entity pointer type to one embedding Base. It lets the
// repository mutate bookkeeping fields without reflection.
type Doc[T any] interface {
	*T
	Document
}

// GetID returns the document identifier.
func (b *Base) GetID() string { return b.ID }

// SetID assigns the document identifier.
func (b *Base) SetID(id string) { b.ID = id }

// GetTenantID returns the owning tenant.
func (b *Base) GetTenantID() string { return b.TenantID }

// SetTenantID assigns the owning tenant.
func (b *Base) SetTenantID(id string) { b.TenantID = id }

// StampCreate sets creation and update bookkeeping in one go.
func (b *Base) StampCreate(now time.Time, userID string) {
	b.CreatedDate = now
	b.CreatedBy = userID
	b.StampUpdate(now, userID)
}

// StampUpdate sets the update bookkeeping.
func (b *Base) StampUpdate(now time.Time, userID string) {
	b.LastUpdated = now
	b.LastUpdatedBy = userID
}

// IsDeleted reports the soft-delete marker.
func (b *Base) IsDeleted() bool { return b.Deleted }
