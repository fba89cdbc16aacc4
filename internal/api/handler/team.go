package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kosix/kosix/internal/account"
	"github.com/kosix/kosix/internal/api/middleware"
	"github.com/kosix/kosix/internal/api/response"
	"github.com/kosix/kosix/internal/api/validation"
	"github.com/kosix/kosix/internal/team"
)

type createTeamRequest struct {
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

type updateTeamRequest struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

type memberActionRequest struct {
	AccountIDs []string `json:"accountIds"`
}

type transferOwnershipRequest struct {
	NewOwnerID string `json:"newOwnerId"`
}

type teamResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	OwnerID   string  `json:"ownerId"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

type teamSummaryResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	OwnerID     string  `json:"ownerId"`
	MemberCount int     `json:"memberCount"`
}

type teamDetailResponse struct {
	teamResponse
	Owner    *accountResponse  `json:"owner"`
	Members  []accountResponse `json:"members"`
	Managers []accountResponse `json:"managers"`
}

func toTeamResponse(t *team.Team) teamResponse {
	return teamResponse{
		ID:        t.ID.String(),
		Name:      t.Name,
		AvatarURL: t.AvatarURL,
		OwnerID:   t.OwnerID.String(),
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toTeamSummaryResponse(s *team.Summary) teamSummaryResponse {
	return teamSummaryResponse{
		ID:          s.ID.String(),
		Name:        s.Name,
		AvatarURL:   s.AvatarURL,
		OwnerID:     s.OwnerID.String(),
		MemberCount: s.MemberCount,
	}
}

func toTeamDetailResponse(d *team.Detail) teamDetailResponse {
	resp := teamDetailResponse{
		teamResponse: toTeamResponse(&d.Team),
		Members:      make([]accountResponse, 0, len(d.Members)),
		Managers:     make([]accountResponse, 0, len(d.Managers)),
	}

	if d.Owner != nil {
		owner := toAccountResponse(d.Owner)
		resp.Owner = &owner
	}
	for i := range d.Members {
		resp.Members = append(resp.Members, toAccountResponse(&d.Members[i]))
	}
	for i := range d.Managers {
		resp.Managers = append(resp.Managers, toAccountResponse(&d.Managers[i]))
	}

	return resp
}

// TeamHandler handles the /teams endpoints.
type TeamHandler struct {
	teamService *team.Service
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(teamService *team.Service) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// Create handles POST /teams.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct := middleware.GetIdentity(r.Context())
	if acct == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCreateTeamRequest(validation.CreateTeamRequest{Name: req.Name})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	t, err := h.teamService.CreateTeam(r.Context(), acct.ID, req.Name, req.AvatarURL)
	if err != nil {
		slog.Error("failed to create team", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create team", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toTeamResponse(t), requestID)
}

// List handles GET /teams.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	offset := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 20)

	var ownerID *uuid.UUID
	if raw := r.URL.Query().Get("ownerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_ID", "ownerId must be a valid UUID", requestID)
			return
		}
		ownerID = &id
	}

	teams, err := h.teamService.ListTeams(r.Context(), ownerID, offset, limit)
	if err != nil {
		slog.Error("failed to list teams", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list teams", requestID)
		return
	}

	items := make([]teamSummaryResponse, 0, len(teams))
	for i := range teams {
		items = append(items, toTeamSummaryResponse(&teams[i]))
	}

	response.Success(w, http.StatusOK, items, requestID)
}

// My handles GET /teams/my.
func (h *TeamHandler) My(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct := middleware.GetIdentity(r.Context())
	if acct == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	teams, err := h.teamService.MyTeams(r.Context(), acct.ID)
	if err != nil {
		slog.Error("failed to list account teams", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list teams", requestID)
		return
	}

	items := make([]teamSummaryResponse, 0, len(teams))
	for i := range teams {
		items = append(items, toTeamSummaryResponse(&teams[i]))
	}

	response.Success(w, http.StatusOK, items, requestID)
}

// Get handles GET /teams/{id}.
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	teamID, ok := teamIDParam(w, r, requestID)
	if !ok {
		return
	}

	detail, err := h.teamService.GetTeam(r.Context(), teamID)
	if err != nil {
		h.writeTeamError(w, err, "fetch", requestID)
		return
	}

	response.Success(w, http.StatusOK, toTeamDetailResponse(detail), requestID)
}

// Update handles PATCH /teams/{id}.
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct := middleware.GetIdentity(r.Context())
	if acct == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	teamID, ok := teamIDParam(w, r, requestID)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req updateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateUpdateTeamRequest(validation.UpdateTeamRequest{Name: req.Name})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	t, err := h.teamService.UpdateTeam(r.Context(), teamID, acct.ID, req.Name, req.AvatarURL)
	if err != nil {
		h.writeTeamError(w, err, "update", requestID)
		return
	}

	response.Success(w, http.StatusOK, toTeamResponse(t), requestID)
}

// Delete handles DELETE /teams/{id}.
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct := middleware.GetIdentity(r.Context())
	if acct == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	teamID, ok := teamIDParam(w, r, requestID)
	if !ok {
		return
	}

	if err := h.teamService.DeleteTeam(r.Context(), teamID, acct.ID); err != nil {
		h.writeTeamError(w, err, "delete", requestID)
		return
	}

	response.NoContent(w)
}

// AddMembers handles POST /teams/{id}/members.
func (h *TeamHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, "add", team.RelationMembers)
}

// RemoveMembers handles DELETE /teams/{id}/members.
func (h *TeamHandler) RemoveMembers(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, "remove", team.RelationMembers)
}

// AddManagers handles POST /teams/{id}/managers.
func (h *TeamHandler) AddManagers(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, "add", team.RelationManagers)
}

// RemoveManagers handles DELETE /teams/{id}/managers.
func (h *TeamHandler) RemoveManagers(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, "remove", team.RelationManagers)
}

func (h *TeamHandler) memberAction(w http.ResponseWriter, r *http.Request, action string, rel team.Relation) {
	requestID := middleware.GetRequestID(r.Context())

	acct := middleware.GetIdentity(r.Context())
	if acct == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	teamID, ok := teamIDParam(w, r, requestID)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req memberActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateMemberActionRequest(validation.MemberActionRequest{AccountIDs: req.AccountIDs})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	accountIDs := make([]uuid.UUID, 0, len(req.AccountIDs))
	for _, raw := range req.AccountIDs {
		id, _ := uuid.Parse(raw) // already validated
		accountIDs = append(accountIDs, id)
	}

	var count int
	var err error
	switch {
	case action == "add" && rel == team.RelationMembers:
		count, err = h.teamService.AddMembers(r.Context(), teamID, acct.ID, accountIDs)
	case action == "remove" && rel == team.RelationMembers:
		count, err = h.teamService.RemoveMembers(r.Context(), teamID, acct.ID, accountIDs)
	case action == "add" && rel == team.RelationManagers:
		count, err = h.teamService.AddManagers(r.Context(), teamID, acct.ID, accountIDs)
	default:
		count, err = h.teamService.RemoveManagers(r.Context(), teamID, acct.ID, accountIDs)
	}
	if err != nil {
		h.writeTeamError(w, err, action, requestID)
		return
	}

	verb := "Added"
	if action == "remove" {
		verb = "Removed"
	}

	response.Success(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("%s %d %s", verb, count, rel),
		"count":   count,
	}, requestID)
}

// TransferOwnership handles POST /teams/{id}/transfer-ownership.
func (h *TeamHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct := middleware.GetIdentity(r.Context())
	if acct == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	teamID, ok := teamIDParam(w, r, requestID)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req transferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateTransferOwnershipRequest(validation.TransferOwnershipRequest{NewOwnerID: req.NewOwnerID})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	newOwnerID, _ := uuid.Parse(req.NewOwnerID) // already validated

	t, err := h.teamService.TransferOwnership(r.Context(), teamID, acct.ID, newOwnerID)
	if err != nil {
		if errors.Is(err, team.ErrTargetAccountNotFound) {
			response.Err(w, http.StatusNotFound, "TARGET_NOT_FOUND", "New owner account not found", requestID)
			return
		}
		h.writeTeamError(w, err, "transfer", requestID)
		return
	}

	response.Success(w, http.StatusOK, toTeamResponse(t), requestID)
}

// Leave handles POST /teams/{id}/leave.
func (h *TeamHandler) Leave(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct := middleware.GetIdentity(r.Context())
	if acct == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	teamID, ok := teamIDParam(w, r, requestID)
	if !ok {
		return
	}

	if err := h.teamService.LeaveTeam(r.Context(), teamID, acct.ID); err != nil {
		if errors.Is(err, team.ErrOwnerCannotLeave) {
			response.Err(w, http.StatusBadRequest, "OWNER_CANNOT_LEAVE", "Team owner cannot leave. Transfer ownership first.", requestID)
			return
		}
		h.writeTeamError(w, err, "leave", requestID)
		return
	}

	response.Success(w, http.StatusOK, map[string]string{"message": "Successfully left the team"}, requestID)
}

func (h *TeamHandler) writeTeamError(w http.ResponseWriter, err error, op string, requestID string) {
	switch {
	case errors.Is(err, team.ErrTeamNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Team not found", requestID)
	case errors.Is(err, team.ErrForbidden):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "You don't have permission to perform this action", requestID)
	case errors.Is(err, account.ErrAccountNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Account not found", requestID)
	default:
		slog.Error("team operation failed", "op", op, "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Team operation failed", requestID)
	}
}

func teamIDParam(w http.ResponseWriter, r *http.Request, requestID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
