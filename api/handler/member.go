package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskhive/backend/api/transport"
	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/pkg/httpcontext"
	membershipUC "github.com/taskhive/backend/usecase/membership"
)

type MemberHandler struct {
	baseHandler
	uc *membershipUC.UseCase
}

func NewMemberHandler(uc *membershipUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *MemberHandler {
	return &MemberHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// Invite sends one or many email invites to a workflow.
func (h *MemberHandler) Invite(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.InviteRequest
	if !h.decodeBody(ctx, &req) {
		return
	}
	workflowID := pathParam(ctx, "id")

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if len(req.Emails) > 0 {
		sent, err := h.uc.InviteByEmails(stdCtx, workflowID, userID, req.Emails)
		if err != nil {
			h.respondError(ctx, err)
			return
		}
		h.respondSuccess(ctx, http.StatusOK, transport.InviteBatchResponse{
			Requested: len(req.Emails),
			Sent:      sent,
		})
		return
	}

	if req.Email == "" {
		h.respondError(ctx, domain.NewValidationError("email", "email is required"))
		return
	}
	invite, err := h.uc.InviteUser(stdCtx, workflowID, userID, req.Email)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, invite)
}

func (h *MemberHandler) Remove(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	err := h.uc.RemoveMember(stdCtx, pathParam(ctx, "id"), userID, pathParam(ctx, "userId"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

func (h *MemberHandler) UpdatePermissions(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.PermissionsRequest
	if !h.decodeBody(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	err := h.uc.UpdatePermissions(stdCtx, pathParam(ctx, "id"), userID, pathParam(ctx, "userId"), domain.Permissions{
		CanCreateTasks:    req.CanCreateTasks,
		CanAssignTasks:    req.CanAssignTasks,
		AssignableMembers: req.AssignableMembers,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// PendingInvites lists invites addressed to the current user.
func (h *MemberHandler) PendingInvites(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	invites, err := h.uc.PendingInvites(stdCtx, userID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, invites)
}

// Respond accepts or declines an invite addressed to the current user.
func (h *MemberHandler) Respond(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.InviteRespondRequest
	if !h.decodeBody(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Respond(stdCtx, pathParam(ctx, "id"), userID, req.Accept); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}
