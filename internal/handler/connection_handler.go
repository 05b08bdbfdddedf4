package handler

import (
	"errors"
	"net/http"

	"sentinal-social/internal/services"
	"sentinal-social/internal/transport/httpdto"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConnectionHandler struct {
	service *services.MessagingService
}

func NewConnectionHandler(service *services.MessagingService) *ConnectionHandler {
	return &ConnectionHandler{service: service}
}

func (h *ConnectionHandler) Submit(c *gin.Context) {
	var req httpdto.SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	toID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid to_user_id", "INVALID_REQUEST"))
		return
	}
	created, err := h.service.SubmitConnectionRequest(c.Request.Context(), userID, toID, req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromRequest(created)))
}

func (h *ConnectionHandler) Incoming(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.service.ListIncomingRequests(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListRequestsResponse{Requests: httpdto.FromRequestSlice(items)}))
}

func (h *ConnectionHandler) Outgoing(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.service.ListOutgoingRequests(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListRequestsResponse{Requests: httpdto.FromRequestSlice(items)}))
}

// Accept answers 202 when the connection exists but its direct thread is
// still waiting on provisioning retry.
func (h *ConnectionHandler) Accept(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	conn, err := h.service.AcceptConnectionRequest(c.Request.Context(), requestID, userID)
	if errors.Is(err, sentinal_errors.ErrProvisioningDegraded) {
		_ = c.Error(err)
		resp := httpdto.NewSuccessResponse(httpdto.FromConnection(conn))
		resp.Code = string(sentinal_errors.ReasonProvisioningPending)
		c.JSON(http.StatusAccepted, resp)
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConnection(conn)))
}

func (h *ConnectionHandler) Decline(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeclineConnectionRequest(c.Request.Context(), requestID, userID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "declined"}))
}

func (h *ConnectionHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.service.GetConnections(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListConnectionsResponse{
		Connections: httpdto.FromConnectionSummarySlice(items),
	}))
}

func (h *ConnectionHandler) Relationship(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	otherID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	status, err := h.service.GetRelationship(c.Request.Context(), userID, otherID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.RelationshipResponse{
		UserID:  userID.String(),
		OtherID: otherID.String(),
		Status:  string(status),
	}))
}

func (h *ConnectionHandler) Block(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	otherID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	rel, err := h.service.Block(c.Request.Context(), userID, otherID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromRelationship(rel)))
}

func (h *ConnectionHandler) Unblock(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	otherID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	if err := h.service.Unblock(c.Request.Context(), userID, otherID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "unblocked"}))
}
