package material

import (
	"sort"
	"strings"
	"time"

	"lab-scheduler/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places stock is kept at; it matches the
// NUMERIC(16,4) columns.
const Scale = 4

type Material struct {
	ID        uuid.UUID
	Code      string
	Name      string
	Unit      string
	Quantity  decimal.Decimal
	UnitPrice *float64
	UpdatedAt time.Time
}

type ConsumptionStatus string

const (
	StatusRegistered ConsumptionStatus = "registered"
	StatusVoided     ConsumptionStatus = "voided"
)

type Consumption struct {
	ID               uuid.UUID
	MaterialID       uuid.UUID
	TaskID           uuid.UUID
	QuantityConsumed decimal.Decimal
	UnitPrice        *float64
	TotalCost        *float64
	Status           ConsumptionStatus
	VoidReason       *string
	ConsumedAt       time.Time
	VoidedAt         *time.Time
}

type Item struct {
	MaterialID       uuid.UUID
	QuantityConsumed decimal.Decimal
	UnitPrice        *float64
}

func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return domain.Invalid("items", "at least one item is required")
	}
	for _, it := range items {
		if it.MaterialID == uuid.Nil {
			return domain.Invalid("material_id", "required")
		}
		if !it.QuantityConsumed.IsPositive() {
			return domain.Invalid("quantity_consumed", "must be greater than zero")
		}
		if !it.QuantityConsumed.Equal(it.QuantityConsumed.Truncate(Scale)) {
			return domain.Invalid("quantity_consumed", "at most 4 decimal places")
		}
		if it.UnitPrice != nil && *it.UnitPrice < 0 {
			return domain.Invalid("unit_price", "must not be negative")
		}
	}
	return nil
}

func NormalizeReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", domain.Invalid("void_reason", "required")
	}
	return reason, nil
}

// Demand sums requested quantity per material. The returned ids are sorted so
// stock rows are always locked in the same order.
func Demand(items []Item) (map[uuid.UUID]decimal.Decimal, []uuid.UUID) {
	sum := make(map[uuid.UUID]decimal.Decimal, len(items))
	for _, it := range items {
		sum[it.MaterialID] = sum[it.MaterialID].Add(it.QuantityConsumed)
	}
	ids := make([]uuid.UUID, 0, len(sum))
	for id := range sum {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return sum, ids
}

// Shortages compares demand against current stock. Missing stock entries are
// reported by the caller as not found, not here.
func Shortages(demand map[uuid.UUID]decimal.Decimal, ids []uuid.UUID, stock map[uuid.UUID]decimal.Decimal) []domain.Shortage {
	out := make([]domain.Shortage, 0)
	for _, id := range ids {
		avail, ok := stock[id]
		if !ok {
			continue
		}
		if demand[id].GreaterThan(avail) {
			out = append(out, domain.Shortage{MaterialID: id, Requested: demand[id], Available: avail})
		}
	}
	return out
}

// NewConsumption builds a registered row, falling back to the material's list price.
func NewConsumption(taskID uuid.UUID, it Item, listPrice *float64, now time.Time) Consumption {
	price := it.UnitPrice
	if price == nil && listPrice != nil {
		p := *listPrice
		price = &p
	}
	var total *float64
	if price != nil {
		t := it.QuantityConsumed.Mul(decimal.NewFromFloat(*price)).Round(Scale).InexactFloat64()
		total = &t
	}
	return Consumption{
		ID:               uuid.New(),
		MaterialID:       it.MaterialID,
		TaskID:           taskID,
		QuantityConsumed: it.QuantityConsumed,
		UnitPrice:        price,
		TotalCost:        total,
		Status:           StatusRegistered,
		ConsumedAt:       now.UTC(),
	}
}
