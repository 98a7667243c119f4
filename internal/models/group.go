package models

// Member is a participant of a group.
type Member struct {
	// ID is the opaque member identifier, unique within the group.
	ID string

	// DisplayName is shown next to balances; it carries no ledger semantics.
	DisplayName string
}

// Group is a set of members who share expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Roommates", "Goa Trip").
	Name string

	// Members is the membership set, ordered by join order.
	Members []Member

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// HasMember reports whether memberID belongs to the group.
func (g *Group) HasMember(memberID string) bool {
	for _, m := range g.Members {
		if m.ID == memberID {
			return true
		}
	}
	return false
}

// MemberIDs returns the member IDs in join order.
func (g *Group) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}
