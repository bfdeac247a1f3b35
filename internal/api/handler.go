package api

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"entitysql/internal/idgen"
	"entitysql/internal/store"
)

const (
	FormatBig      = "big"
	FormatBase36   = "base36"
	FormatHex      = "hex"
	FormatSortable = "sortable"
)

type Handler struct {
	ids         *idgen.Allocator
	maxBatch    int
	allocations *store.Dao[Allocation]
}

func NewHandler(ids *idgen.Allocator, maxBatch int) *Handler {
	if maxBatch <= 0 {
		maxBatch = 1000
	}
	return &Handler{ids: ids, maxBatch: maxBatch}
}

// Allocate handles GET /api/ids?count=n&format=big|base36|hex|sortable
func (h *Handler) Allocate(c *fiber.Ctx) error {
	count := 1
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return InvalidParamError("count", raw)
		}
		if n > h.maxBatch {
			return NewAppError("BATCH_TOO_LARGE", 400, "count exceeds "+strconv.Itoa(h.maxBatch))
		}
		count = n
	}

	format := c.Query("format", FormatBase36)
	next, ok := h.generator(format)
	if !ok {
		return InvalidParamError("format", format)
	}

	ids := make([]string, count)
	for i := range ids {
		id, err := next()
		if err != nil {
			return NewAppError("ALLOCATION_FAILED", fiber.StatusServiceUnavailable, err.Error())
		}
		ids[i] = id
	}
	if err := h.record(c.UserContext(), format, ids); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": ids,
		"meta": fiber.Map{"format": format, "count": count},
	})
}

// Parts handles GET /api/ids/:id/parts, decoding a packed identifier given
// in base 36 (default) or decimal (?format=big).
func (h *Handler) Parts(c *fiber.Ctx) error {
	raw := c.Params("id")
	base := 36
	if c.Query("format", FormatBase36) == FormatBig {
		base = 10
	}
	v, ok := new(big.Int).SetString(strings.ToLower(raw), base)
	if !ok || v.Sign() < 0 || v.BitLen() > idgen.TotalBits {
		return InvalidParamError("id", raw)
	}

	p := idgen.Decompose(v)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"timestamp":  p.Timestamp,
			"time":       p.Time().UTC().Format(time.RFC3339Nano),
			"machine_id": p.Machine,
			"process_id": p.Process,
			"counter":    p.Counter,
		},
	})
}

func (h *Handler) generator(format string) (func() (string, error), bool) {
	infallible := func(f func() string) func() (string, error) {
		return func() (string, error) { return f(), nil }
	}
	switch format {
	case FormatBig:
		return infallible(func() string { return h.ids.NextBig().String() }), true
	case FormatBase36:
		return infallible(h.ids.NextBase36), true
	case FormatHex:
		return infallible(h.ids.NextHex), true
	case FormatSortable:
		return h.ids.NextSortable, true
	}
	return nil, false
}

func RegisterRoutes(app *fiber.App, h *Handler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Get("/ids", h.Allocate)
	api.Get("/ids/:id/parts", h.Parts)
	api.Get("/allocations", h.ListAllocations)
}
