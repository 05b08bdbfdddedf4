package handler

import (
	"net/http"

	"sentinal-social/internal/services"
	"sentinal-social/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type ThreadHandler struct {
	service *services.MessagingService
}

func NewThreadHandler(service *services.MessagingService) *ThreadHandler {
	return &ThreadHandler{service: service}
}

func (h *ThreadHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.service.GetThreadsForUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromThreadSummarySlice(items)))
}

func (h *ThreadHandler) CreateGroup(c *gin.Context) {
	var req httpdto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	participants, err := httpdto.ParseIDs(req.Participants)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid participant id", "INVALID_REQUEST"))
		return
	}
	t, err := h.service.CreateGroup(c.Request.Context(), userID, req.Name, participants)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromThread(t)))
}

func (h *ThreadHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := pathID(c, "id")
	if !ok {
		return
	}
	t, err := h.service.GetThread(c.Request.Context(), threadID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromThread(t)))
}

func (h *ThreadHandler) Messages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := pathID(c, "id")
	if !ok {
		return
	}
	msgs, err := h.service.GetMessages(c.Request.Context(), threadID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListMessagesResponse{
		Messages: httpdto.FromMessageSlice(msgs),
	}))
}

func (h *ThreadHandler) Send(c *gin.Context) {
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := pathID(c, "id")
	if !ok {
		return
	}
	m, err := h.service.SendMessage(c.Request.Context(), threadID, userID, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromMessage(m)))
}

// Open returns the thread's messages and marks them read for the caller.
func (h *ThreadHandler) Open(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := pathID(c, "id")
	if !ok {
		return
	}
	msgs, err := h.service.OpenThread(c.Request.Context(), threadID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListMessagesResponse{
		Messages: httpdto.FromMessageSlice(msgs),
	}))
}

func (h *ThreadHandler) MarkRead(c *gin.Context) {
	var req httpdto.MarkReadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
			return
		}
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.service.MarkRead(c.Request.Context(), threadID, userID, req.UpTo)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MarkReadResponse{Marked: n}))
}

func (h *ThreadHandler) Unread(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	summary, err := h.service.UnreadSummary(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromUnreadSummary(summary)))
}
