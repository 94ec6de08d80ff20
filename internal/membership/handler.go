package membership

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/alhamdi/divvy/internal/group"
	"github.com/alhamdi/divvy/pkg/middleware"
	"github.com/alhamdi/divvy/pkg/response"
)

// Handler handles HTTP requests for membership operations
type Handler struct {
	service    *Service
	succession *Succession
}

// NewHandler creates a new membership handler
func NewHandler(service *Service, succession *Succession) *Handler {
	return &Handler{service: service, succession: succession}
}

// RegisterGroupRoutes adds the membership endpoints to a group's /{id}
// subrouter
func (h *Handler) RegisterGroupRoutes(r chi.Router) {
	r.Get("/members", h.ListMembers)
	r.Delete("/members/{userId}", h.RemoveMember)
	r.Put("/members/{userId}/role", h.UpdateRole)

	r.Post("/invitations", h.Invite)

	r.Get("/requests", h.ListRequests)
	r.Post("/requests/{userId}/accept", h.AcceptRequest)
	r.Post("/requests/{userId}/reject", h.RejectRequest)

	r.Post("/exit", h.Exit)
	r.Post("/transfer", h.Transfer)
}

// InvitationRoutes returns the top-level invitation endpoints
func (h *Handler) InvitationRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/redeem", h.Redeem)

	return r
}

// ListMembers handles GET /groups/{id}/members
// @Summary      List group members
// @Description  Get the active members of a group
// @Tags         memberships
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]MemberResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/members [get]
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id", "Invalid group ID")
	if !ok {
		return
	}

	members, err := h.service.ListMembers(r.Context(), groupID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]*MemberResponse, len(members))
	for i, m := range members {
		resp[i] = m.ToResponse()
	}

	response.JSON(w, http.StatusOK, resp)
}

// Invite handles POST /groups/{id}/invitations
// @Summary      Invite a user to a group
// @Description  Invite a registered user into the group by email
// @Tags         memberships
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        request body InviteMemberRequest true "Invitation request"
// @Success      201 {object} response.APIResponse{data=MemberResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Failure      429 {object} response.APIResponse
// @Router       /groups/{id}/invitations [post]
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id", "Invalid group ID")
	if !ok {
		return
	}

	inviterID, ok := middleware.GetUserID(r.Context())
	if !ok {
		inviterID = 1
	}

	var req InviteMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	m, err := h.service.SendInvitation(r.Context(), groupID, inviterID, req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, m.ToResponse())
}

// Redeem handles POST /invitations/redeem
// @Summary      Redeem an invitation token
// @Description  Redeem an invitation link, moving the invitation to pending approval
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Param        request body RedeemTokenRequest true "Token redemption request"
// @Success      200 {object} response.APIResponse{data=RedeemResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /invitations/redeem [post]
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Links arrive as GET-style query params from email clients too
		req.Token = r.URL.Query().Get("token")
	}
	if req.Token == "" {
		response.BadRequest(w, "Token is required")
		return
	}

	result, err := h.service.RedeemInvitationToken(r.Context(), req.Token)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result.ToResponse())
}

// ListRequests handles GET /groups/{id}/requests
// @Summary      List pending join requests
// @Description  Get the join requests awaiting review, visible to owner and admins
// @Tags         memberships
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]MemberResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /groups/{id}/requests [get]
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id", "Invalid group ID")
	if !ok {
		return
	}

	reviewerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		reviewerID = 1
	}

	pending, err := h.service.ListPendingRequests(r.Context(), groupID, reviewerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]*MemberResponse, len(pending))
	for i, m := range pending {
		resp[i] = m.ToResponse()
	}

	response.JSON(w, http.StatusOK, resp)
}

// AcceptRequest handles POST /groups/{id}/requests/{userId}/accept
// @Summary      Accept a join request
// @Description  Approve a pending join request, activating the membership
// @Tags         memberships
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        userId path int true "User ID"
// @Success      200 {object} response.APIResponse{data=MemberResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/requests/{userId}/accept [post]
func (h *Handler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id", "Invalid group ID")
	if !ok {
		return
	}
	targetID, ok := h.pathID(w, r, "userId", "Invalid user ID")
	if !ok {
		return
	}

	reviewerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		reviewerID = 1
	}

	m, err := h.service.AcceptRequest(r.Context(), groupID, reviewerID, targetID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

// RejectRequest handles POST /groups/{id}/requests/{userId}/reject
// @Summary      Reject a join request
// @Description  Decline a pending join request
// @Tags         memberships
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        userId path int true "User ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/requests/{userId}/reject [post]
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id", "Invalid group ID")
	if !ok {
		return
	}
	targetID, ok := h.pathID(w, r, "userId", "Invalid user ID")
	if !ok {
		return
	}

	reviewerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		reviewerID = 1
	}

	if err := h.service.RejectRequest(r.Context(), groupID, reviewerID, targetID); err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Request rejected"})
}

// RemoveMember handles DELETE /groups/{id}/members/{userId}
// @Summary      Remove a member
// @Description  Remove an active member from the group
// @Tags         memberships
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        userId path int true "User ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id}/members/{userId} [delete]
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id", "Invalid group ID")
	if !ok {
		return
	}
	targetID, ok := h.pathID(w, r, "userId", "Invalid user ID")
	if !ok {
		return
	}

	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		actorID = 1
	}

	if err := h.service.RemoveMember(r.Context(), groupID, actorID, targetID); err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Member removed"})
}

// UpdateRole handles PUT /groups/{id}/members/{userId}/role
// @Summary      Update a member's role
// @Description  Promote a member to admin or demote an admin to member
// @Tags         memberships
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        userId path int true "User ID"
// @Param        request body UpdateMemberRoleRequest true "Role update request"
// @Success      200 {object} response.APIResponse{data=MemberResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/members/{userId}/role [put]
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id", "Invalid group ID")
	if !ok {
		return
	}
	targetID, ok := h.pathID(w, r, "userId", "Invalid user ID")
	if !ok {
		return
	}

	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		actorID = 1
	}

	var req UpdateMemberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	m, err := h.service.UpdateMemberRole(r.Context(), groupID, actorID, targetID, req.Role)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

// Exit handles POST /groups/{id}/exit
// @Summary      Exit a group
// @Description  Leave a group voluntarily, not available to the owner
// @Tags         memberships
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/exit [post]
func (h *Handler) Exit(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id", "Invalid group ID")
	if !ok {
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		userID = 1
	}

	if err := h.service.ExitGroup(r.Context(), groupID, userID); err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Left group"})
}

// Transfer handles POST /groups/{id}/transfer
// @Summary      Transfer group ownership
// @Description  Hand the group to another active member, demoting the current owner to member
// @Tags         memberships
// @Accept       json
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        request body TransferOwnershipRequest true "Ownership transfer request"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/transfer [post]
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.pathID(w, r, "id", "Invalid group ID")
	if !ok {
		return
	}

	ownerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		ownerID = 1
	}

	var req TransferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.succession.TransferOwnership(r.Context(), groupID, ownerID, req.NewOwnerID); err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Ownership transferred"})
}

// pathID parses an int64 URL parameter, writing a 400 on failure
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name, msg string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		response.BadRequest(w, msg)
		return 0, false
	}
	return id, true
}

// writeError maps membership errors to HTTP responses
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case IsPermissionDenied(err), errors.Is(err, ErrNotActiveMember):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrMembershipNotFound),
		errors.Is(err, ErrNoPendingRequest),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, group.ErrGroupNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrSelfRemoval):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrAlreadyMember),
		errors.Is(err, ErrAlreadyInvited),
		errors.Is(err, ErrAlreadyPending),
		errors.Is(err, ErrRoleUnchanged),
		errors.Is(err, ErrGroupLimitReached),
		errors.Is(err, ErrGroupFull),
		errors.Is(err, ErrUserInactive),
		errors.Is(err, ErrOwnerCannotExit),
		errors.Is(err, group.ErrGroupInactive):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrInviteRateLimited):
		response.TooManyRequests(w, err.Error())
	default:
		response.InternalError(w, "Internal server error")
	}
}
