package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lab-scheduler/internal/config"
	"lab-scheduler/internal/database/seeder"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := config.Config{App: config.AppConfig{AppName: "lab-scheduler-test", Store: config.StoreMemory}}
	c, err := NewContainer(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return New(c).Fiber
}

func call(t *testing.T, app *fiber.App, method, path string, body any) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, resp.StatusCode, env.Status)
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func fx(kind, code string) string { return seeder.ID(kind, code).String() }

func hplcSubmission(start, end time.Time) map[string]any {
	return map[string]any{
		"work_order_id":         fx("work_order", "WO-1001"),
		"title":                 "Assay",
		"required_equipment_id": fx("equipment", "HPLC-01"),
		"required_skills": []map[string]any{
			{"skill_id": fx("skill", "HPLC"), "min_proficiency": "advanced", "certification_required": true},
		},
		"booking": map[string]any{"start_time": start, "end_time": end},
	}
}

type submitted struct {
	Task struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	} `json:"task"`
	Reservation *struct {
		ID uuid.UUID `json:"id"`
	} `json:"reservation"`
	ReservationError *struct {
		Retryable bool `json:"retryable"`
		Detail    struct {
			Conflicts []json.RawMessage `json:"conflicts"`
		} `json:"detail"`
	} `json:"reservation_error"`
}

func TestHealth_MemoryStore(t *testing.T) {
	app := newTestApp(t)

	status, env := call(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"database":"none","cache":"disabled"}`, string(env.Data))
}

func TestSubmitTask_ReportsBookingConflictAsStep(t *testing.T) {
	app := newTestApp(t)
	start := time.Now().UTC().Add(time.Hour).Truncate(time.Second)

	status, env := call(t, app, http.MethodPost, "/api/v1/tasks", hplcSubmission(start, start.Add(4*time.Hour)))
	require.Equal(t, http.StatusCreated, status)
	first := decode[submitted](t, env.Data)
	assert.Equal(t, "pending", first.Task.Status)
	require.NotNil(t, first.Reservation)
	assert.Nil(t, first.ReservationError)

	status, env = call(t, app, http.MethodPost, "/api/v1/tasks", hplcSubmission(start.Add(3*time.Hour), start.Add(5*time.Hour)))
	require.Equal(t, http.StatusCreated, status)
	second := decode[submitted](t, env.Data)
	assert.Nil(t, second.Reservation)
	require.NotNil(t, second.ReservationError)
	assert.True(t, second.ReservationError.Retryable)
	assert.Len(t, second.ReservationError.Detail.Conflicts, 1)

	status, env = call(t, app, http.MethodPost, "/api/v1/reservations", map[string]any{
		"equipment_id": fx("equipment", "HPLC-01"),
		"task_id":      second.Task.ID,
		"start_time":   start.Add(2 * time.Hour),
		"end_time":     start.Add(6 * time.Hour),
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.True(t, decode[struct {
		Retryable bool `json:"retryable"`
	}](t, env.Data).Retryable)

	status, _ = call(t, app, http.MethodPost, "/api/v1/reservations", map[string]any{
		"equipment_id": fx("equipment", "HPLC-01"),
		"task_id":      second.Task.ID,
		"start_time":   start.Add(4 * time.Hour),
		"end_time":     start.Add(6 * time.Hour),
	})
	assert.Equal(t, http.StatusCreated, status)
}

func TestSubmitTask_Validation(t *testing.T) {
	app := newTestApp(t)

	status, env := call(t, app, http.MethodPost, "/api/v1/tasks", map[string]any{
		"work_order_id": fx("work_order", "WO-1001"),
		"required_skills": []map[string]any{
			{"skill_id": fx("skill", "PCR"), "min_proficiency": "wizard"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "min_proficiency", decode[struct {
		Field string `json:"field"`
	}](t, env.Data).Field)

	status, _ = call(t, app, http.MethodGet, "/api/v1/tasks/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/tasks/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestConsumptions_StockAndVoid(t *testing.T) {
	app := newTestApp(t)

	status, env := call(t, app, http.MethodPost, "/api/v1/tasks", map[string]any{"work_order_id": fx("work_order", "WO-1002")})
	require.Equal(t, http.StatusCreated, status)
	taskID := decode[submitted](t, env.Data).Task.ID
	path := fmt.Sprintf("/api/v1/tasks/%s/consumptions", taskID)

	status, env = call(t, app, http.MethodPost, path, map[string]any{
		"items": []map[string]any{{"material_id": fx("material", "KIT-LIB"), "quantity_consumed": 12}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	short := decode[struct {
		Retryable bool `json:"retryable"`
		Shortages []struct {
			Requested float64 `json:"requested"`
			Available float64 `json:"available"`
		} `json:"shortages"`
	}](t, env.Data)
	assert.True(t, short.Retryable)
	require.Len(t, short.Shortages, 1)
	assert.Equal(t, 12.0, short.Shortages[0].Requested)
	assert.Equal(t, 10.0, short.Shortages[0].Available)

	status, env = call(t, app, http.MethodPost, path, map[string]any{
		"items": []map[string]any{{"material_id": fx("material", "KIT-LIB"), "quantity_consumed": 2}},
	})
	require.Equal(t, http.StatusCreated, status)
	created := decode[[]struct {
		ID        uuid.UUID `json:"id"`
		TotalCost float64   `json:"total_cost"`
	}](t, env.Data)
	require.Len(t, created, 1)
	assert.Equal(t, 840.0, created[0].TotalCost)

	voidPath := fmt.Sprintf("/api/v1/consumptions/%s/void", created[0].ID)
	status, _ = call(t, app, http.MethodPost, voidPath, map[string]any{"reason": "wrong lot"})
	assert.Equal(t, http.StatusOK, status)

	status, env = call(t, app, http.MethodPost, voidPath, map[string]any{"reason": "wrong lot"})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, decode[struct {
		Retryable bool `json:"retryable"`
	}](t, env.Data).Retryable)
}

func TestEligibleTechniciansAndAssign(t *testing.T) {
	app := newTestApp(t)
	start := time.Now().UTC().Add(time.Hour)

	status, env := call(t, app, http.MethodPost, "/api/v1/tasks", hplcSubmission(start, start.Add(time.Hour)))
	require.Equal(t, http.StatusCreated, status)
	taskID := decode[submitted](t, env.Data).Task.ID

	status, env = call(t, app, http.MethodGet, fmt.Sprintf("/api/v1/tasks/%s/eligible-technicians", taskID), nil)
	require.Equal(t, http.StatusOK, status)
	got := decode[struct {
		Applicable bool `json:"applicable"`
		Candidates []struct {
			Name string `json:"name"`
		} `json:"candidates"`
	}](t, env.Data)
	assert.True(t, got.Applicable)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "Budi Santoso", got.Candidates[0].Name)

	assignPath := fmt.Sprintf("/api/v1/tasks/%s/assign", taskID)
	status, _ = call(t, app, http.MethodPost, assignPath, map[string]any{"technician_id": fx("technician", "Citra Dewi")})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPost, assignPath, map[string]any{"technician_id": fx("technician", "Budi Santoso")})
	assert.Equal(t, http.StatusOK, status)

	status, env = call(t, app, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/status", taskID), map[string]any{"status": "in_progress"})
	require.Equal(t, http.StatusOK, status)
	moved := decode[struct {
		Reservations []struct {
			Status string `json:"status"`
		} `json:"reservations"`
		SideEffectErrors []string `json:"side_effect_errors"`
	}](t, env.Data)
	require.Len(t, moved.Reservations, 1)
	assert.Equal(t, "in_progress", moved.Reservations[0].Status)
	assert.Empty(t, moved.SideEffectErrors)
}

func TestWorkOrderQueue(t *testing.T) {
	app := newTestApp(t)

	status, env := call(t, app, http.MethodGet, "/api/v1/work-orders/queue", nil)
	require.Equal(t, http.StatusOK, status)
	queue := decode[[]struct {
		Code     string `json:"code"`
		Priority struct {
			Overdue bool `json:"overdue"`
			Level   int  `json:"level"`
		} `json:"priority"`
	}](t, env.Data)
	require.Len(t, queue, 4)
	assert.Equal(t, "WO-1003", queue[0].Code)
	assert.True(t, queue[0].Priority.Overdue)
	assert.Equal(t, 1, queue[0].Priority.Level)

	status, _ = call(t, app, http.MethodPost, "/api/v1/work-orders", map[string]any{"code": "WO-9", "source_category_weight": 12})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestEquipmentCapacity(t *testing.T) {
	app := newTestApp(t)
	from := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	to := from.Add(2 * time.Hour)
	query := fmt.Sprintf("?from=%s&to=%s", from.Format(time.RFC3339), to.Format(time.RFC3339))

	status, env := call(t, app, http.MethodGet, "/api/v1/equipment/"+fx("equipment", "Thermocycler Bank")+"/capacity"+query, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"available":8`)

	status, _ = call(t, app, http.MethodGet, "/api/v1/equipment/"+fx("equipment", "HPLC-01")+"/capacity"+query, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/equipment/"+fx("equipment", "Thermocycler Bank")+"/capacity", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListenAddr(t *testing.T) {
	addr, err := ListenAddr("8080")
	require.NoError(t, err)
	assert.Equal(t, ":8080", addr)

	addr, err = ListenAddr(":9090")
	require.NoError(t, err)
	assert.Equal(t, ":9090", addr)

	_, err = ListenAddr(" ")
	assert.Error(t, err)
}
