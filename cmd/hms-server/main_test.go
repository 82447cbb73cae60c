package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/platform/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                  "test",
		StoreBackend:         config.BackendMemory,
		SessionSecret:        strings.Repeat("k", 32),
		SessionTTL:           time.Hour,
		SlotStartHour:        9,
		SlotEndHour:          18,
		SlotDurationMinutes:  30,
		BookingHorizonMonths: 3,
		Timezone:             "UTC",
		RequestTimeout:       5 * time.Second,
		RateLimitRPS:         100,
		RateLimitBurst:       100,
	}
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	a, err := newApp(testConfig(), &backend{store: store.NewMemory()}, zerolog.Nop())
	require.NoError(t, err)
	_, err = a.identity.EnsureDefaults(context.Background())
	require.NoError(t, err)
	return a
}

func call(a *app, method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, a *app, email, password string) string {
	t.Helper()
	rec := call(a, http.MethodPost, "/api/v1/auth/login", "",
		fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func TestApp_PublicEndpoints(t *testing.T) {
	a := newTestApp(t)

	rec := call(a, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backend":"memory"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = call(a, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestApp_RequiresSession(t *testing.T) {
	a := newTestApp(t)
	rec := call(a, http.MethodGet, "/api/v1/doctors", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(a, http.MethodGet, "/api/v1/doctors", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApp_UnknownPathIsNotFound(t *testing.T) {
	a := newTestApp(t)
	assert.Equal(t, http.StatusNotFound, call(a, http.MethodGet, "/api/v1/nope", "", "").Code)

	patient := login(t, a, "john@example.com", "patient123")
	assert.Equal(t, http.StatusNotFound, call(a, http.MethodGet, "/api/v1/admin/nope", patient, "").Code)
	assert.Equal(t, http.StatusForbidden, call(a, http.MethodGet, "/api/v1/admin/dashboard", patient, "").Code)
}

func TestApp_Feedback(t *testing.T) {
	a := newTestApp(t)
	patient := login(t, a, "john@example.com", "patient123")

	rec := call(a, http.MethodPost, "/api/v1/feedback", patient, `{"rating":4,"message":"Quick check-in"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"userId":"john@example.com"`)

	assert.Equal(t, http.StatusForbidden, call(a, http.MethodGet, "/api/v1/admin/feedback/stats", patient, "").Code)

	admin := login(t, a, "admin@hms.com", "admin123")
	rec = call(a, http.MethodGet, "/api/v1/admin/feedback/stats", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1,"averageRating":4`)
}

func TestApp_BookingFlow(t *testing.T) {
	a := newTestApp(t)
	token := login(t, a, "john@example.com", "patient123")
	date := time.Now().UTC().AddDate(0, 0, 1).Format(time.DateOnly)

	body := fmt.Sprintf(`{"patientName":"John Doe","patientPhone":"+1234567891","patientEmail":"john@example.com","doctorId":7,"date":%q,"time":"10:00"}`, date)
	rec := call(a, http.MethodPost, "/api/v1/appointments", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(a, http.MethodPost, "/api/v1/appointments", token, body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(a, http.MethodGet, "/api/v1/doctors/7/availability?date="+date, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `{"slot":"10:00","state":"booked"}`)

	admin := login(t, a, "admin@hms.com", "admin123")
	rec = call(a, http.MethodGet, "/api/v1/admin/dashboard", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalAppointments":1`)

	assert.Contains(t, call(a, http.MethodGet, "/metrics", "", "").Body.String(), "hms_scheduling_bookings_total")
}

func TestOpenBackend_Memory(t *testing.T) {
	b, err := openBackend(context.Background(), testConfig())
	require.NoError(t, err)
	defer b.store.Close()
	assert.Nil(t, b.pool)
	assert.NoError(t, b.store.Ping(context.Background()))
}

func TestOpenBackend_BadRedisURL(t *testing.T) {
	cfg := testConfig()
	cfg.StoreBackend = config.BackendRedis
	cfg.RedisURL = "not a url"
	_, err := openBackend(context.Background(), cfg)
	assert.Error(t, err)
}

func TestSlotsCmd_PrintsGrid(t *testing.T) {
	t.Setenv("SLOT_START_HOUR", "9")
	t.Setenv("SLOT_END_HOUR", "10")
	t.Setenv("SLOT_DURATION_MINUTES", "30")

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"slots"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "09:00\n09:30\n", out.String())
}

func TestSlotsCmd_DoctorAvailability(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("TIMEZONE=UTC\nSLOT_END_HOUR=10\n"), 0o600))
	// godotenv never overrides variables that are already set
	for _, k := range []string{"TIMEZONE", "SLOT_END_HOUR"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env-file", envFile, "slots", "--doctor", "7", "--date", "2020-01-01"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "TIME   STATE\n09:00  past\n09:30  past\n", out.String())
}

func TestSlotsCmd_DateRequired(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"slots", "--doctor", "7"})
	assert.Error(t, cmd.Execute())
}

func TestSeedCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"seed"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "default users created\n", out.String())
}

func TestSlotsCmd_RejectsEmptyGrid(t *testing.T) {
	t.Setenv("SLOT_START_HOUR", "12")
	t.Setenv("SLOT_END_HOUR", "12")

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"slots"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yields no slots")
	assert.Empty(t, out.String())
}

func TestNewEngine_MatchesConfiguredGrid(t *testing.T) {
	cfg := testConfig()
	cfg.SlotEndHour = 10
	assert.Equal(t, []string{"09:00", "09:30"}, newEngine(cfg).Grid.Slots())
}
