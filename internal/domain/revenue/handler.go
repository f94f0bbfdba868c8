package revenue

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hms/billing/internal/platform/auth"
	"github.com/hms/billing/pkg/pagination"
)

type Handler struct {
	svc *Service
	loc *time.Location
}

func NewHandler(svc *Service, loc *time.Location) *Handler {
	return &Handler{svc: svc, loc: loc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/revenue", auth.RequireRole("admin", "billing", "reports"))
	g.GET("/stats", h.Stats)
	g.GET("/by-source", h.BySource)
	g.GET("/by-method", h.ByMethod)
	g.GET("/transactions", h.Transactions)
}

// parseRange reads from/to query parameters. Full RFC 3339 timestamps are
// taken as-is; bare dates are midnights in the reporting timezone, with "to"
// exclusive of the following midnight.
func (h *Handler) parseRange(c echo.Context) (Range, error) {
	var r Range
	if v := c.QueryParam("from"); v != "" {
		t, err := h.parseTime(v, false)
		if err != nil {
			return r, echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
		r.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := h.parseTime(v, true)
		if err != nil {
			return r, echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
		}
		r.To = &t
	}
	return r, nil
}

func (h *Handler) parseTime(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, h.loc)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func (h *Handler) Stats(c echo.Context) error {
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	stats, err := h.svc.Stats(c.Request().Context(), hospitalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) BySource(c echo.Context) error {
	r, err := h.parseRange(c)
	if err != nil {
		return err
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	sums, err := h.svc.BySource(c.Request().Context(), hospitalID, r)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sums)
}

func (h *Handler) ByMethod(c echo.Context) error {
	r, err := h.parseRange(c)
	if err != nil {
		return err
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	sums, err := h.svc.ByMethod(c.Request().Context(), hospitalID, r)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sums)
}

func (h *Handler) Transactions(c echo.Context) error {
	r, err := h.parseRange(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())

	f := TransactionFilter{
		Range:  r,
		Method: c.QueryParam("method"),
		Source: c.QueryParam("source"),
	}
	items, total, err := h.svc.Transactions(c.Request().Context(), hospitalID, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
