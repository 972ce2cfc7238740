package domain

import "time"

// Group is a node in the group forest. ParentID nil means root.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ParentID    *string   `json:"parent_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupNode is a group with its children, as returned by tree listings.
type GroupNode struct {
	Group
	Children []*GroupNode `json:"children,omitempty"`
}

// CreateGroupInput holds input for creating a new group.
type CreateGroupInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id"`
}

// UpdateGroupInput holds a partial group update. ParentID uses a second flag
// because nil is a meaningful value (move to root).
type UpdateGroupInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ParentID    *string `json:"parent_id"`
	SetParent   bool    `json:"set_parent"`
}
