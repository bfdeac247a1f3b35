package api

import (
	"context"
	"math/big"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"entitysql/internal/metadata"
	"entitysql/internal/store"
)

// Allocation records one batch handed out by Allocate.
type Allocation struct {
	ID       *big.Int `json:"id"`
	Format   string   `json:"format"`
	Count    int      `json:"count"`
	First    string   `json:"first"`
	Last     string   `json:"last"`
	IssuedAt int64    `json:"issued_at"` // unix milliseconds
}

// RegisterSchema installs the default configuration record for Allocation.
// An overrides file entry for api.Allocation replaces it.
func RegisterSchema(reg *metadata.Registry) error {
	return reg.Default(Allocation{}, metadata.TypeConfig{
		SQLName: "id_allocations",
		Fields:  map[string]metadata.FieldConfig{"ID": {Identity: true}},
	})
}

// WithAllocations records every allocated batch through dao and enables
// GET /api/allocations.
func (h *Handler) WithAllocations(dao *store.Dao[Allocation]) *Handler {
	h.allocations = dao
	return h
}

func (h *Handler) record(ctx context.Context, format string, ids []string) error {
	if h.allocations == nil || len(ids) == 0 {
		return nil
	}
	a := &Allocation{
		Format:   format,
		Count:    len(ids),
		First:    ids[0],
		Last:     ids[len(ids)-1],
		IssuedAt: time.Now().UnixMilli(),
	}
	if _, err := h.allocations.Insert(ctx, a); err != nil {
		return err
	}
	return nil
}

// ListAllocations handles GET /api/allocations?limit=n&offset=m&format=f,
// newest first.
func (h *Handler) ListAllocations(c *fiber.Ctx) error {
	if h.allocations == nil {
		return NewAppError("NOT_CONFIGURED", fiber.StatusNotFound, "Allocation history requires a database")
	}
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		return err
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		return err
	}

	e := h.allocations.Entity()
	cond, args := "", []any{}
	if f := c.Query("format"); f != "" {
		cond, args = "AND "+e.Property("format").SQLName+" = ?", append(args, f)
	}
	cond += " ORDER BY " + e.Property("issuedAt").SQLName + " DESC"

	page, err := h.allocations.Page(c.UserContext(), limit, offset, cond, args...)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": page.Items,
		"meta": fiber.Map{
			"total":    page.Total,
			"limit":    page.Limit,
			"offset":   page.Offset,
			"has_more": page.HasMore(),
		},
	})
}

func intQuery(c *fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, InvalidParamError(name, raw)
	}
	return n, nil
}
