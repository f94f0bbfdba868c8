package insurance

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

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
	g := api.Group("/insurance", auth.RequireRole("admin", "billing", "insurance"))
	g.POST("/providers", h.CreateProvider)
	g.GET("/providers", h.ListProviders)
	g.PUT("/providers/:id", h.UpdateProvider)
	g.POST("/policies", h.CreatePolicy)
	g.GET("/patients/:patientId/policies", h.ListPolicies)
	g.POST("/preauths", h.CreatePreauth)
	g.GET("/preauths", h.ListPreauths)
	g.GET("/preauths/:id", h.GetPreauth)
	g.POST("/preauths/:id/decision", h.DecidePreauth)
	g.POST("/claims", h.CreateClaim)
	g.GET("/claims", h.ListClaims)
	g.GET("/claims/voided-invoices", h.ListClaimsWithVoidedInvoices)
	g.GET("/claims/:id", h.GetClaim)
	g.POST("/claims/:id/submit", h.SubmitClaim)
	g.POST("/claims/:id/approve", h.ApproveClaim)
	g.POST("/claims/:id/reject", h.RejectClaim)
	g.POST("/claims/:id/mark-paid", h.MarkClaimPaid)
}

func (h *Handler) CreateProvider(c echo.Context) error {
	var in ProviderInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	p, err := h.svc.CreateProvider(c.Request().Context(), hospitalID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdateProvider(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in ProviderInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	p, err := h.svc.UpdateProvider(c.Request().Context(), hospitalID, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListProviders(c echo.Context) error {
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	activeOnly := c.QueryParam("active") == "true"
	items, err := h.svc.ListProviders(c.Request().Context(), hospitalID, activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreatePolicy(c echo.Context) error {
	var in PolicyInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	p, err := h.svc.CreatePolicy(c.Request().Context(), hospitalID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListPolicies(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	items, err := h.svc.ListPolicies(c.Request().Context(), hospitalID, patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreatePreauth(c echo.Context) error {
	var in PreauthInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	p, err := h.svc.CreatePreauth(c.Request().Context(), hospitalID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPreauth(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	p, err := h.svc.GetPreauth(c.Request().Context(), hospitalID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPreauths(c echo.Context) error {
	pg := pagination.FromContext(c)
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	items, total, err := h.svc.ListPreauths(c.Request().Context(), hospitalID,
		c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DecidePreauth(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in PreauthDecision
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	p, err := h.svc.DecidePreauth(c.Request().Context(), hospitalID, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreateClaim(c echo.Context) error {
	var in ClaimInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	cl, err := h.svc.CreateClaim(c.Request().Context(), hospitalID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) GetClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	cl, err := h.svc.GetClaim(c.Request().Context(), hospitalID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ListClaims(c echo.Context) error {
	pg := pagination.FromContext(c)
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())

	var f ClaimFilter
	if pid := c.QueryParam("patient_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	f.Status = c.QueryParam("status")

	items, total, err := h.svc.ListClaims(c.Request().Context(), hospitalID, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) SubmitClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in amountRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	cl, err := h.svc.SubmitClaim(c.Request().Context(), hospitalID, id, in.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ApproveClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in amountRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	cl, err := h.svc.ApproveClaim(c.Request().Context(), hospitalID, id, in.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) RejectClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	cl, err := h.svc.RejectClaim(c.Request().Context(), hospitalID, id, in.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) MarkClaimPaid(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	cl, err := h.svc.MarkClaimPaid(c.Request().Context(), hospitalID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ListClaimsWithVoidedInvoices(c echo.Context) error {
	hospitalID := auth.HospitalIDFromContext(c.Request().Context())
	items, err := h.svc.ListClaimsWithVoidedInvoices(c.Request().Context(), hospitalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}
