package domain

import "time"

// Record holds the identity, timestamps, and soft-delete marker shared by
// every persisted entity. A nil DeletedAt marks an active record.
type Record struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Base returns the record itself so that entities embedding Record satisfy
// Entity without extra code.
func (r *Record) Base() *Record {
	return r
}

// IsNew reports whether the record has never been persisted.
func (r *Record) IsNew() bool {
	return r.CreatedAt.IsZero()
}

// IsDeleted reports whether the record carries a soft-delete marker.
func (r *Record) IsDeleted() bool {
	return r.DeletedAt != nil
}

// MarkDeleted sets the soft-delete marker.
func (r *Record) MarkDeleted(at time.Time) {
	r.DeletedAt = &at
	r.UpdatedAt = at
}

// ClearDeleted removes the soft-delete marker.
func (r *Record) ClearDeleted(at time.Time) {
	r.DeletedAt = nil
	r.UpdatedAt = at
}

// Entity is implemented by every type managed by an action service.
// Validate returns a *ValidationError (wrapping ErrValidation) or nil.
type Entity interface {
	Validate() error
	Base() *Record
}
