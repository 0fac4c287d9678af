package recordserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
)

type RecordHTTP struct {
	Svc *RecordService
}

func (h *RecordHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "records.list")
	coll := c.Param("collection")

	filters := map[string]string{}
	for k, v := range c.QueryParams() {
		if len(v) > 0 {
			filters[k] = v[0]
		}
	}

	docs, err := h.Svc.List(ctx, coll, filters)
	if err != nil {
		return h.fail(c, l.With("collection", coll), "list_failed", err)
	}
	return c.JSON(http.StatusOK, docs)
}

func (h *RecordHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "records.get")
	coll, id := c.Param("collection"), c.Param("id")

	doc, err := h.Svc.Get(ctx, coll, id)
	if err != nil {
		return h.fail(c, l.With("collection", coll, "id", id), "get_failed", err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *RecordHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "records.create")
	coll := c.Param("collection")

	body, err := readBody(c)
	if err != nil {
		l.Warn("create_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	doc, err := h.Svc.Create(ctx, coll, body)
	if err != nil {
		return h.fail(c, l.With("collection", coll), "create_failed", err)
	}

	l.Info("create_success", "collection", coll, "id", doc.ID())
	return c.JSON(http.StatusCreated, doc)
}

func (h *RecordHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "records.patch")
	coll, id := c.Param("collection"), c.Param("id")

	body, err := readBody(c)
	if err != nil {
		l.Warn("patch_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	doc, err := h.Svc.Patch(ctx, coll, id, body)
	if err != nil {
		return h.fail(c, l.With("collection", coll, "id", id), "patch_failed", err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *RecordHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "records.delete")
	coll, id := c.Param("collection"), c.Param("id")

	if err := h.Svc.Delete(ctx, coll, id); err != nil {
		return h.fail(c, l.With("collection", coll, "id", id), "delete_failed", err)
	}

	l.Info("delete_success", "collection", coll, "id", id)
	return c.JSON(http.StatusOK, map[string]any{})
}

func (h *RecordHTTP) fail(_ echo.Context, l *slog.Logger, event string, err error) error {
	switch {
	case errors.Is(err, ErrUnknownCollection), errors.Is(err, ErrNotFound):
		l.Warn(event, "status", 404, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, ErrValidation):
		l.Warn(event, "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "record must be a JSON object")
	default:
		l.Error(event, "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "storage failure")
	}
}

func readBody(c echo.Context) (json.RawMessage, error) {
	b, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, err
	}
	if !json.Valid(b) {
		return nil, errors.New("body is not valid JSON")
	}
	return b, nil
}
