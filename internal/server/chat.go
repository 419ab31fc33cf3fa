package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mohamedsaligh/mcp-server-client/internal/agent"
	"github.com/mohamedsaligh/mcp-server-client/internal/store"
)

// DefaultUserID is recorded for stream requests that carry no user.
const DefaultUserID = "user123"

type ChatHandler struct {
	Runner Runner
	Store  *store.Store
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/stream", h.stream)
	g.GET("/all", h.sessions)
	g.GET("/:session_id", h.history)
}

type promptRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// stream runs the pipeline and relays its events as server-sent events.
// A client disconnect cancels the request context and with it the run.
func (h *ChatHandler) stream(c echo.Context) error {
	var body promptRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	body.Prompt = strings.TrimSpace(body.Prompt)
	body.SessionID = strings.TrimSpace(body.SessionID)
	if body.Prompt == "" || body.SessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt and session_id are required")
	}
	if body.UserID == "" {
		body.UserID = DefaultUserID
	}

	resp := c.Response()
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	events := h.Runner.Run(ctx, agent.Request{
		SessionID: body.SessionID,
		UserID:    body.UserID,
		Prompt:    body.Prompt,
	})
	for evt := range events {
		if err := writeEvent(resp, evt); err != nil {
			cancel()
			for range events {
			}
			return nil
		}
		flusher.Flush()
	}
	return nil
}

func writeEvent(w http.ResponseWriter, evt agent.Event) error {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		data, _ = json.Marshal(agent.Message{Message: err.Error()})
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, data)
	return err
}

func (h *ChatHandler) sessions(c echo.Context) error {
	sessions, err := h.Store.ListSessions(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sessions)
}

func (h *ChatHandler) history(c echo.Context) error {
	exchanges, err := h.Store.LoadSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, exchanges)
}
