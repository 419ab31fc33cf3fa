package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mohamedsaligh/mcp-server-client/internal/store"
)

// ConfigHandler maintains the capability and credential registries.
type ConfigHandler struct {
	Store *store.Store
}

func (h *ConfigHandler) Register(g *echo.Group) {
	g.GET("/mcp_servers", h.listServers)
	g.POST("/mcp_servers", h.saveServer)
	g.DELETE("/mcp_servers/:id", h.deleteServer)
	g.GET("/llms", h.listLLMs)
	g.POST("/llms", h.saveLLM)
	g.DELETE("/llms/:id", h.deleteLLM)
}

type serverRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Keywords    string `json:"keywords"`
	EndpointURL string `json:"endpoint_url"`
	IsActive    *bool  `json:"is_active"`
}

func (h *ConfigHandler) listServers(c echo.Context) error {
	servers, err := h.Store.ListServers(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if servers == nil {
		servers = []store.Server{}
	}
	return c.JSON(http.StatusOK, servers)
}

func (h *ConfigHandler) saveServer(c echo.Context) error {
	var req serverRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.EndpointURL = strings.TrimSpace(req.EndpointURL)
	if req.Name == "" || req.EndpointURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and endpoint_url are required")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	saved, err := h.Store.SaveServer(c.Request().Context(), store.Server{
		ID:          req.ID,
		Name:        req.Name,
		Keywords:    req.Keywords,
		EndpointURL: req.EndpointURL,
		IsActive:    active,
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return echo.NewHTTPError(http.StatusConflict, "an MCP server named "+req.Name+" already exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"id": saved.ID, "message": "MCP Server saved."})
}

func (h *ConfigHandler) deleteServer(c echo.Context) error {
	removed, err := h.Store.DeleteServer(c.Request().Context(), c.Param("id"))
	return deleted(c, removed, err)
}

type credentialView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Provider  string    `json:"provider"`
	BaseURL   string    `json:"base_url"`
	APIKey    string    `json:"api_key"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *ConfigHandler) listLLMs(c echo.Context) error {
	creds, err := h.Store.ListCredentials(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]credentialView, 0, len(creds))
	for _, cr := range creds {
		out = append(out, credentialView{
			ID:        cr.ID,
			Name:      cr.Name,
			Provider:  cr.Provider,
			BaseURL:   cr.BaseURL,
			APIKey:    cr.MaskedKey(),
			Model:     cr.Model,
			CreatedAt: cr.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ConfigHandler) saveLLM(c echo.Context) error {
	var req store.Credential
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.APIKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and api_key are required")
	}
	req.CreatedAt = time.Time{}

	saved, err := h.Store.SaveCredential(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"id": saved.ID, "message": "LLM API saved."})
}

func (h *ConfigHandler) deleteLLM(c echo.Context) error {
	removed, err := h.Store.DeleteCredential(c.Request().Context(), c.Param("id"))
	return deleted(c, removed, err)
}

func deleted(c echo.Context, removed bool, err error) error {
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !removed {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Not found."})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Deleted."})
}
