package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/ticketing/internal/api/dto"
	"github.com/helpdesk-labs/ticketing/internal/auth"
	"github.com/helpdesk-labs/ticketing/internal/estimation"
	"github.com/helpdesk-labs/ticketing/internal/observability"
	apperrors "github.com/helpdesk-labs/ticketing/pkg/util"
)

// EstimationsHandler serves the estimation service. The caller's role comes
// from the verified capability token only.
type EstimationsHandler struct {
	engine    *estimation.Engine
	validator *Validator
	metrics   *observability.Metrics
}

// NewEstimationsHandler constructs handler.
func NewEstimationsHandler(engine *estimation.Engine, validator *Validator, metrics *observability.Metrics) *EstimationsHandler {
	return &EstimationsHandler{engine: engine, validator: validator, metrics: metrics}
}

// Estimate POST /estimations.
func (h *EstimationsHandler) Estimate(c *fiber.Ctx) error {
	claims, ok := auth.CapabilityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.EstimationsUnauthorized)
	}
	var req dto.EstimationRequest
	if err := h.validator.bind(c, &req); err != nil {
		return err
	}

	estimates, err := h.engine.Estimate(req.EstimationInput(), claims.Role)
	if err != nil {
		return err
	}
	h.metrics.EstimationsServed(string(claims.Role), len(estimates))
	return c.JSON(dto.NewEstimationResponses(estimates))
}
