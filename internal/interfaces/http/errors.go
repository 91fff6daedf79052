package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cocina-stock-api/internal/application/dto"
	"github.com/jhoicas/cocina-stock-api/internal/domain"
)

// localError guarda el error interno para que el middleware de acceso lo registre.
const localError = "handler_error"

// writeError traduce errores de dominio a dto.ErrorResponse con el status correspondiente.
func writeError(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	var serr *domain.InsufficientStockError
	switch {
	case errors.Is(err, errInvalidBody):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeInvalidBody, Message: "cuerpo inválido"})
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeValidation, Message: "datos inválidos", Details: verr.Fields})
	case errors.As(err, &serr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    dto.CodeInsufficientStock,
			Message: "stock insuficiente",
			Details: insufficientDetails(serr.Items),
		})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeInsufficientStock, Message: "stock insuficiente"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeValidation, Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: dto.CodeNotFound, Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: dto.CodeForbidden, Message: "acceso denegado al recurso"})
	case errors.Is(err, domain.ErrUnauthorized):
		return unauthorized(c)
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: dto.CodeDuplicate, Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: dto.CodeConflict, Message: err.Error()})
	default:
		c.Locals(localError, err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: dto.CodeInternal, Message: "error interno"})
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: dto.CodeUnauthorized, Message: "token inválido"})
}

// insufficientDetails un mensaje por material: "requerido 400 g, disponible 100".
func insufficientDetails(items []domain.InsufficientItem) map[string]string {
	out := make(map[string]string, len(items))
	for _, it := range items {
		out[it.Material] = fmt.Sprintf("requerido %s %s, disponible %s", it.Required.String(), it.Unit, it.Available.String())
	}
	return out
}

func toInsufficientItems(items []domain.InsufficientItem) []dto.InsufficientItem {
	out := make([]dto.InsufficientItem, 0, len(items))
	for _, it := range items {
		out = append(out, dto.InsufficientItem{
			Material:  it.Material,
			Required:  it.Required,
			Available: it.Available,
			Unit:      it.Unit,
		})
	}
	return out
}
