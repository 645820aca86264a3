package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notewise/notewise-backend/internal/middleware"
	apperr "github.com/notewise/notewise-backend/internal/pkg/errors"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
	"github.com/notewise/notewise-backend/internal/realtime"
)

type SSEHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewSSEHandler(log *logger.Logger, hub *realtime.Hub) *SSEHandler {
	return &SSEHandler{
		log: log.With("handler", "SSEHandler"),
		hub: hub,
	}
}

// Stream subscribes the caller to their own job events and blocks for the
// lifetime of the connection.
func (h *SSEHandler) Stream(c *gin.Context) {
	account, ok := middleware.Account(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "unauthorized", apperr.ErrUnauthorized)
		return
	}
	client := h.hub.Subscribe(account.AccountID)
	defer h.hub.Unsubscribe(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
