package ainote

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/scribe/scribe/internal/platform/auth"
	"github.com/scribe/scribe/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("clinician", "supervisor"))

	g.POST("/sessions/:sessionId/ai-note", h.Generate)
	g.GET("/sessions/:sessionId/ai-note", h.GetBySession)
	g.POST("/sessions/:sessionId/risk-assessment", h.AssessRisk)

	g.GET("/ai-notes/:id", h.GetByID)
	g.POST("/ai-notes/:id/review", h.Review)
	g.POST("/ai-notes/:id/regenerate", h.Regenerate)
	g.POST("/ai-notes/:id/reject", h.Reject)
	g.POST("/ai-notes/:id/export", h.Export)
	g.GET("/ai-notes/:id/audit", h.AuditTrail)
}

// httpError maps domain error kinds onto HTTP statuses. Anything without a
// kind is a 500.
func httpError(err error) error {
	var domErr *Error
	if !errors.As(err, &domErr) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var status int
	switch domErr.Kind {
	case KindUnauthenticated:
		status = http.StatusUnauthorized
	case KindForbidden:
		status = http.StatusForbidden
	case KindNotFound:
		status = http.StatusNotFound
	case KindConflict:
		status = http.StatusConflict
	case KindInvalidInput, KindTranscriptTooShort:
		status = http.StatusUnprocessableEntity
	case KindProviderFailure:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	return echo.NewHTTPError(status, map[string]string{
		"error":   string(domErr.Kind),
		"message": domErr.Message,
	})
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) Generate(c echo.Context) error {
	sessionID, err := pathUUID(c, "sessionId")
	if err != nil {
		return err
	}
	var in GenerateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	note, err := h.svc.Generate(c.Request().Context(), sessionID, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, note)
}

func (h *Handler) GetBySession(c echo.Context) error {
	sessionID, err := pathUUID(c, "sessionId")
	if err != nil {
		return err
	}
	note, err := h.svc.GetBySession(c.Request().Context(), sessionID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, note)
}

func (h *Handler) GetByID(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	note, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, note)
}

func (h *Handler) Review(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var in ReviewInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	note, err := h.svc.Review(c.Request().Context(), id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, note)
}

func (h *Handler) Regenerate(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var in RegenerateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	note, err := h.svc.Regenerate(c.Request().Context(), id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, note)
}

func (h *Handler) Reject(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var in struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	note, err := h.svc.Reject(c.Request().Context(), id, in.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, note)
}

func (h *Handler) Export(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var in struct {
		IncludeEdits bool `json:"include_edits"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cn, err := h.svc.Export(c.Request().Context(), id, in.IncludeEdits)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, cn)
}

func (h *Handler) AuditTrail(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	entries, total, err := h.svc.AuditTrail(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, p.Limit, p.Offset))
}

func (h *Handler) AssessRisk(c echo.Context) error {
	sessionID, err := pathUUID(c, "sessionId")
	if err != nil {
		return err
	}
	var in struct {
		Transcript string `json:"transcript"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ra, err := h.svc.AssessRisk(c.Request().Context(), sessionID, in.Transcript)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ra)
}
