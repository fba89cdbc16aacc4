package team

import (
	"time"

	"github.com/google/uuid"
)

// Team represents a row in the teams table. Every team has exactly one owner;
// the owner is not stored in the members or managers relations.
type Team struct {
	ID        uuid.UUID
	Name      string
	AvatarURL *string
	OwnerID   uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is a team list item annotated with its member count.
type Summary struct {
	ID          uuid.UUID
	Name        string
	AvatarURL   *string
	OwnerID     uuid.UUID
	MemberCount int
}

// Tier is an account's permission level with respect to a team.
// Higher values subsume lower ones.
type Tier int

const (
	TierNone Tier = iota
	TierMember
	TierManager
	TierOwner
)

func (t Tier) String() string {
	switch t {
	case TierOwner:
		return "owner"
	case TierManager:
		return "manager"
	case TierMember:
		return "member"
	default:
		return "none"
	}
}
