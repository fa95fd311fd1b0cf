package domain

// Model carries the integer primary key shared by every persisted entity.
type Model struct {
	ID int64 `json:"id"`
}

// GetID returns the primary key.
func (m *Model) GetID() int64 { return m.ID }

// SetID sets the primary key.
func (m *Model) SetID(id int64) { m.ID = id }

// Entity is implemented by every persisted model.
type Entity interface {
	GetID() int64
	SetID(id int64)
	Validate() error
}

// Owned is implemented by entities that only their owner may modify.
type Owned interface {
	Owner() int64
	AssignOwner(userID int64)
}

// SoftDeletable is implemented by entities that are flagged rather than removed.
type SoftDeletable interface {
	IsSoftDeleted() bool
}
