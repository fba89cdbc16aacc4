package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kosix/kosix/internal/account"
)

// Detail is a team with its owner, members, and managers resolved to accounts.
type Detail struct {
	Team
	Owner    *account.Account
	Members  []account.Account
	Managers []account.Account
}

// Service enforces the team permission model on top of the repositories.
// Each operation declares a minimum tier; the tri-level check lives in one
// place (Tier) instead of per-operation conditionals.
type Service struct {
	teams    Repository
	accounts account.Repository
}

// NewService creates a new team Service.
func NewService(teams Repository, accounts account.Repository) *Service {
	return &Service{teams: teams, accounts: accounts}
}

// Tier evaluates the account's permission level for the team.
func (s *Service) Tier(ctx context.Context, t *Team, accountID uuid.UUID) (Tier, error) {
	if t.OwnerID == accountID {
		return TierOwner, nil
	}

	isManager, err := s.teams.Contains(ctx, RelationManagers, t.ID, accountID)
	if err != nil {
		return TierNone, err
	}
	if isManager {
		return TierManager, nil
	}

	isMember, err := s.teams.Contains(ctx, RelationMembers, t.ID, accountID)
	if err != nil {
		return TierNone, err
	}
	if isMember {
		return TierMember, nil
	}

	return TierNone, nil
}

// requireTier loads the team and rejects callers below the minimum tier.
func (s *Service) requireTier(ctx context.Context, teamID, accountID uuid.UUID, min Tier) (*Team, error) {
	t, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	tier, err := s.Tier(ctx, t, accountID)
	if err != nil {
		return nil, err
	}
	if tier < min {
		slog.Warn("team operation forbidden",
			"teamId", teamID, "accountId", accountID, "tier", tier.String(), "required", min.String())
		return nil, ErrForbidden
	}

	return t, nil
}

// CreateTeam creates a team owned by the caller.
func (s *Service) CreateTeam(ctx context.Context, ownerID uuid.UUID, name string, avatarURL *string) (*Team, error) {
	t := &Team{
		Name:      name,
		AvatarURL: avatarURL,
		OwnerID:   ownerID,
	}

	if err := s.teams.Create(ctx, t); err != nil {
		return nil, err
	}

	slog.Info("team created", "teamId", t.ID, "ownerId", ownerID)

	return t, nil
}

// GetTeam returns the team with owner, members, and managers resolved.
func (s *Service) GetTeam(ctx context.Context, teamID uuid.UUID) (*Detail, error) {
	t, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Team: *t}

	owner, err := s.accounts.GetByID(ctx, t.OwnerID)
	if err != nil && !errors.Is(err, account.ErrAccountNotFound) {
		return nil, fmt.Errorf("fetching team owner: %w", err)
	}
	detail.Owner = owner

	detail.Members, err = s.resolveAccounts(ctx, RelationMembers, teamID)
	if err != nil {
		return nil, err
	}

	detail.Managers, err = s.resolveAccounts(ctx, RelationManagers, teamID)
	if err != nil {
		return nil, err
	}

	return detail, nil
}

func (s *Service) resolveAccounts(ctx context.Context, rel Relation, teamID uuid.UUID) ([]account.Account, error) {
	ids, err := s.teams.ListAccounts(ctx, rel, teamID)
	if err != nil {
		return nil, err
	}

	accounts := make([]account.Account, 0, len(ids))
	for _, id := range ids {
		a, err := s.accounts.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolving %s account: %w", rel, err)
		}
		accounts = append(accounts, *a)
	}

	return accounts, nil
}

// ListTeams returns team summaries, optionally filtered by owner. No tier required.
func (s *Service) ListTeams(ctx context.Context, ownerID *uuid.UUID, offset, limit int) ([]Summary, error) {
	return s.teams.List(ctx, ownerID, offset, limit)
}

// MyTeams returns the teams the account owns, belongs to, or manages.
func (s *Service) MyTeams(ctx context.Context, accountID uuid.UUID) ([]Summary, error) {
	return s.teams.ListByAccount(ctx, accountID)
}

// UpdateTeam changes the team's name and/or avatar. Requires manager tier.
func (s *Service) UpdateTeam(ctx context.Context, teamID, actorID uuid.UUID, name, avatarURL *string) (*Team, error) {
	if _, err := s.requireTier(ctx, teamID, actorID, TierManager); err != nil {
		return nil, err
	}

	t, err := s.teams.Update(ctx, teamID, name, avatarURL)
	if err != nil {
		return nil, err
	}

	slog.Info("team updated", "teamId", teamID, "actorId", actorID)

	return t, nil
}

// DeleteTeam removes the team and its membership relations. Owner only.
func (s *Service) DeleteTeam(ctx context.Context, teamID, actorID uuid.UUID) error {
	if _, err := s.requireTier(ctx, teamID, actorID, TierOwner); err != nil {
		return err
	}

	if err := s.teams.Delete(ctx, teamID); err != nil {
		return err
	}

	slog.Info("team deleted", "teamId", teamID, "actorId", actorID)

	return nil
}

// AddMembers adds accounts to the members relation. Requires manager tier.
// Unknown account ids and already-present pairs are skipped silently; the
// return value counts rows actually inserted.
func (s *Service) AddMembers(ctx context.Context, teamID, actorID uuid.UUID, accountIDs []uuid.UUID) (int, error) {
	if _, err := s.requireTier(ctx, teamID, actorID, TierManager); err != nil {
		return 0, err
	}
	return s.addToRelation(ctx, RelationMembers, teamID, accountIDs)
}

// RemoveMembers removes accounts from the members relation. Requires manager
// tier. Returns the number of rows actually deleted; absent pairs are not an error.
func (s *Service) RemoveMembers(ctx context.Context, teamID, actorID uuid.UUID, accountIDs []uuid.UUID) (int, error) {
	if _, err := s.requireTier(ctx, teamID, actorID, TierManager); err != nil {
		return 0, err
	}
	return s.teams.Remove(ctx, RelationMembers, teamID, accountIDs)
}

// AddManagers adds accounts to the managers relation. Owner only.
func (s *Service) AddManagers(ctx context.Context, teamID, actorID uuid.UUID, accountIDs []uuid.UUID) (int, error) {
	if _, err := s.requireTier(ctx, teamID, actorID, TierOwner); err != nil {
		return 0, err
	}
	return s.addToRelation(ctx, RelationManagers, teamID, accountIDs)
}

// RemoveManagers removes accounts from the managers relation. Owner only.
func (s *Service) RemoveManagers(ctx context.Context, teamID, actorID uuid.UUID, accountIDs []uuid.UUID) (int, error) {
	if _, err := s.requireTier(ctx, teamID, actorID, TierOwner); err != nil {
		return 0, err
	}
	return s.teams.Remove(ctx, RelationManagers, teamID, accountIDs)
}

func (s *Service) addToRelation(ctx context.Context, rel Relation, teamID uuid.UUID, accountIDs []uuid.UUID) (int, error) {
	added := 0
	for _, id := range accountIDs {
		if _, err := s.accounts.GetByID(ctx, id); err != nil {
			if errors.Is(err, account.ErrAccountNotFound) {
				continue
			}
			return added, fmt.Errorf("checking account: %w", err)
		}

		inserted, err := s.teams.Add(ctx, rel, teamID, id)
		if err != nil {
			return added, err
		}
		if inserted {
			added++
		}
	}

	slog.Info("accounts added to team relation", "teamId", teamID, "relation", rel, "added", added)

	return added, nil
}

// TransferOwnership reassigns the team to an existing account. Owner only.
// The old owner keeps no residual role.
func (s *Service) TransferOwnership(ctx context.Context, teamID, actorID, newOwnerID uuid.UUID) (*Team, error) {
	if _, err := s.requireTier(ctx, teamID, actorID, TierOwner); err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetByID(ctx, newOwnerID); err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, ErrTargetAccountNotFound
		}
		return nil, fmt.Errorf("checking new owner: %w", err)
	}

	t, err := s.teams.UpdateOwner(ctx, teamID, newOwnerID)
	if err != nil {
		return nil, err
	}

	slog.Info("team ownership transferred", "teamId", teamID, "from", actorID, "to", newOwnerID)

	return t, nil
}

// LeaveTeam removes the caller from both membership relations. The owner
// cannot leave; ownership must be transferred first.
func (s *Service) LeaveTeam(ctx context.Context, teamID, accountID uuid.UUID) error {
	t, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return err
	}

	if t.OwnerID == accountID {
		return ErrOwnerCannotLeave
	}

	if _, err := s.teams.Remove(ctx, RelationMembers, teamID, []uuid.UUID{accountID}); err != nil {
		return err
	}
	if _, err := s.teams.Remove(ctx, RelationManagers, teamID, []uuid.UUID{accountID}); err != nil {
		return err
	}

	slog.Info("account left team", "teamId", teamID, "accountId", accountID)

	return nil
}
