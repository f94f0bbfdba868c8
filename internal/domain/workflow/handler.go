package workflow

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/billing/internal/platform/auth"
	"github.com/hms/billing/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/orders", auth.RequireRole("admin", "billing"))
	g.POST("/pay-and-confirm", h.PayAndConfirm)
	g.GET("", h.ListOrders)
	g.GET("/:orderType/:orderId", h.GetOrder)
	g.POST("/:orderType/:orderId/retry-confirm", h.RetryConfirm)
}

func (h *Handler) PayAndConfirm(c echo.Context) error {
	var in PayAndConfirmInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	result, err := h.svc.PayAndConfirm(c.Request().Context(), hospitalID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) RetryConfirm(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	order, err := h.svc.RetryConfirm(c.Request().Context(), hospitalID, c.Param("orderType"), orderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) GetOrder(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	order, err := h.svc.GetOrder(c.Request().Context(), hospitalID, c.Param("orderType"), orderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

func (h *Handler) ListOrders(c echo.Context) error {
	pg := pagination.FromContext(c)
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	pendingOnly := c.QueryParam("pending") == "true"
	items, total, err := h.svc.ListOrders(c.Request().Context(), hospitalID, pendingOnly, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
