package validation

import (
	"strings"

	"github.com/google/uuid"
)

// CreateTeamRequest mirrors the fields needed for create team validation.
type CreateTeamRequest struct {
	Name string
}

// ValidateCreateTeamRequest validates the fields of a create team request.
func ValidateCreateTeamRequest(req CreateTeamRequest) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if len(name) > 255 {
		errs = append(errs, FieldError{Field: "name", Message: "name must be at most 255 characters"})
	}

	return errs
}

// UpdateTeamRequest mirrors the fields needed for update team validation.
type UpdateTeamRequest struct {
	Name *string
}

// ValidateUpdateTeamRequest validates the fields of an update team request.
func ValidateUpdateTeamRequest(req UpdateTeamRequest) []FieldError {
	var errs []FieldError

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			errs = append(errs, FieldError{Field: "name", Message: "name must not be empty"})
		} else if len(name) > 255 {
			errs = append(errs, FieldError{Field: "name", Message: "name must be at most 255 characters"})
		}
	}

	return errs
}

// MemberActionRequest mirrors the fields needed for membership mutation validation.
type MemberActionRequest struct {
	AccountIDs []string
}

// ValidateMemberActionRequest validates an add/remove members or managers request.
func ValidateMemberActionRequest(req MemberActionRequest) []FieldError {
	var errs []FieldError

	if len(req.AccountIDs) == 0 {
		errs = append(errs, FieldError{Field: "accountIds", Message: "accountIds must not be empty"})
		return errs
	}

	for _, id := range req.AccountIDs {
		if _, err := uuid.Parse(id); err != nil {
			errs = append(errs, FieldError{Field: "accountIds", Message: "accountIds must all be valid UUIDs"})
			break
		}
	}

	return errs
}

// TransferOwnershipRequest mirrors the fields needed for ownership transfer validation.
type TransferOwnershipRequest struct {
	NewOwnerID string
}

// ValidateTransferOwnershipRequest validates an ownership transfer request.
func ValidateTransferOwnershipRequest(req TransferOwnershipRequest) []FieldError {
	var errs []FieldError

	if req.NewOwnerID == "" {
		errs = append(errs, FieldError{Field: "newOwnerId", Message: "newOwnerId is required"})
	} else if _, err := uuid.Parse(req.NewOwnerID); err != nil {
		errs = append(errs, FieldError{Field: "newOwnerId", Message: "newOwnerId must be a valid UUID"})
	}

	return errs
}
