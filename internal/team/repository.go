package team

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrTeamNotFound is returned when a team record is not found.
var ErrTeamNotFound = errors.New("team not found")

// ErrForbidden is returned when the caller's tier is below the operation's minimum.
var ErrForbidden = errors.New("insufficient team permissions")

// ErrOwnerCannotLeave is returned when the owner attempts to leave their own team.
var ErrOwnerCannotLeave = errors.New("team owner cannot leave; transfer ownership first")

// ErrTargetAccountNotFound is returned when an ownership transfer target does not exist.
var ErrTargetAccountNotFound = errors.New("new owner account not found")

// Relation selects one of the two membership relations.
type Relation string

const (
	RelationMembers  Relation = "members"
	RelationManagers Relation = "managers"
)

// Repository provides operations on the teams table and its membership relations.
type Repository interface {
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, id uuid.UUID) (*Team, error)
	// List returns team summaries with member counts, optionally filtered by owner.
	List(ctx context.Context, ownerID *uuid.UUID, offset, limit int) ([]Summary, error)
	// ListByAccount returns the de-duplicated union of teams the account owns,
	// belongs to, or manages, with member counts.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Summary, error)
	// Update applies the non-nil fields and bumps updated_at.
	Update(ctx context.Context, id uuid.UUID, name, avatarURL *string) (*Team, error)
	UpdateOwner(ctx context.Context, id, ownerID uuid.UUID) (*Team, error)
	// Delete removes the team; the membership relations cascade.
	Delete(ctx context.Context, id uuid.UUID) error

	// Add inserts the pair into the relation if absent. Reports whether a row
	// was actually inserted.
	Add(ctx context.Context, rel Relation, teamID, accountID uuid.UUID) (bool, error)
	// Remove deletes the pairs from the relation, returning how many existed.
	Remove(ctx context.Context, rel Relation, teamID uuid.UUID, accountIDs []uuid.UUID) (int, error)
	Contains(ctx context.Context, rel Relation, teamID, accountID uuid.UUID) (bool, error)
	// ListAccounts returns the account ids in the relation.
	ListAccounts(ctx context.Context, rel Relation, teamID uuid.UUID) ([]uuid.UUID, error)
}
