package domain

import "time"

// BranchKind distinguishes the two structural kinds of organizational units.
// It is metadata only: no authorization decision may consult it.
type BranchKind string

const (
	BranchKindPrimary BranchKind = "PRIMARY"
	BranchKindSub     BranchKind = "SUB"
)

// Branch is an organizational location tickets are scoped to.
// ParentID is informational; approval authority never follows it.
type Branch struct {
	ID        string
	Code      string
	Name      string
	Kind      BranchKind
	ParentID  *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
