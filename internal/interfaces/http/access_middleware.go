package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cocina-stock-api/pkg/logger"
)

// httpObserver lo implementa *metrics.Prometheus; la interfaz evita depender de infraestructura.
type httpObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// AccessMiddleware registra cada petición con zerolog y la cuenta en métricas (observer puede ser nil).
// La etiqueta de ruta es el patrón registrado, no la URL, para acotar la cardinalidad.
func AccessMiddleware(log *logger.Logger, observer httpObserver) fiber.Handler {
	log = log.Component("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()
		if chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		elapsed := time.Since(start)
		status := c.Response().StatusCode()
		route := c.Route().Path

		if observer != nil {
			observer.ObserveHTTP(c.Method(), route, status, elapsed)
		}

		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
			if err, ok := c.Locals(localError).(error); ok {
				ev = ev.Err(err)
			} else if chainErr != nil {
				ev = ev.Err(chainErr)
			}
		}
		ev.Str("method", c.Method()).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Str("company_id", GetCompanyID(c)).
			Msg("petición HTTP")
		return nil
	}
}
