package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"prism/internal/event"
	"prism/pkg/logger"
	"prism/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupEvents(g *echo.Group) {
	g.GET("/boards/:boardId/events", h.StreamBoardEvents)
}

// StreamBoardEvents streams the board's live events as server-sent events until the client disconnects.
func (h *HttpAPIHandler) StreamBoardEvents(c echo.Context) error {
	boardID, err := paramID(c, "boardId")
	if err != nil {
		return err
	}
	userID := middleware.UserID(c)
	ctx := c.Request().Context()

	if _, err := h.service.BoardService.FindOne(ctx, userID, boardID); err != nil {
		return err
	}

	sub := h.bus.Subscribe(ctx, userID, boardID)
	defer sub.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, open := <-sub.Events:
			if !open {
				return nil
			}
			if err := writeEvent(res, evt); err != nil {
				h.log.DebugContext(ctx, "SSE client went away", logger.ErrorField(err), logger.BoardIDField(boardID))
				return nil
			}
		}
	}
}

func writeEvent(res *echo.Response, evt event.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "data: %s\n\n", payload); err != nil {
		return err
	}
	res.Flush()
	return nil
}
