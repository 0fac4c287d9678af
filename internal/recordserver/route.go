package recordserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

type Deps struct {
	RecordHandler *RecordHTTP
	JWTSecret     []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := d.RecordHandler.Svc.Repo.Ping(c.Request().Context()); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	guard := adminWrites(auth.New(d.JWTSecret))

	e.GET("/:collection", d.RecordHandler.List)
	e.GET("/:collection/:id", d.RecordHandler.Get)
	e.POST("/:collection", d.RecordHandler.Create, guard)
	e.PATCH("/:collection/:id", d.RecordHandler.Patch, guard)
	e.DELETE("/:collection/:id", d.RecordHandler.Delete, guard)
}

// adminWrites requires an admin token for product writes and for any
// delete. Storefront clients register and sync user records unauthenticated.
func adminWrites(mw *auth.Middleware) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		admin := mw.RequireAdmin(next)
		return func(c echo.Context) error {
			if c.Param("collection") == recordstore.Products || c.Request().Method == http.MethodDelete {
				return admin(c)
			}
			return next(c)
		}
	}
}
