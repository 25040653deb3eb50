package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/lock"
	"github.com/vinieshwan/parking-system/internal/logger"
	"github.com/vinieshwan/parking-system/internal/metrics"
	"github.com/vinieshwan/parking-system/internal/repository/memory"
	"github.com/vinieshwan/parking-system/internal/seed"
	"github.com/vinieshwan/parking-system/internal/service"
)

type apiFixture struct {
	router      *gin.Engine
	complex     *domain.ParkingComplex
	entryPoints []domain.EntryPoint
	adminToken  string
	opToken     string
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	log := logger.NewNop()

	store := memory.New()
	pc, err := seed.Run(ctx, store, log)
	require.NoError(t, err)
	eps, err := store.EntryPoints.ListByComplexID(ctx, pc.ID)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New("")
	require.NoError(t, m.Register(reg))

	authSvc := service.NewAuthService(store.Users, "test-secret", time.Hour)
	_, err = authSvc.EnsureAdmin(ctx, "admin", "admin-password")
	require.NoError(t, err)
	_, err = authSvc.Register(ctx, domain.RegisterUserDTO{Username: "gate", Password: "gate-password"}, "")
	require.NoError(t, err)

	router := SetupRouter(Deps{
		AuthService:    authSvc,
		ParkingService: service.NewParkingService(store, lock.NewLocal(), nil, m, log),
		LPRService:     service.NewLPRService(nil, log),
		Metrics:        m,
		Gatherer:       reg,
		Log:            log,
	})

	f := &apiFixture{router: router, complex: pc, entryPoints: eps}
	f.adminToken = f.login(t, "admin", "admin-password")
	f.opToken = f.login(t, "gate", "gate-password")
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (f *apiFixture) login(t *testing.T, username, password string) string {
	t.Helper()
	w, env := f.do(t, http.MethodPost, "/auth/login", "", domain.LoginUserDTO{Username: username, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp domain.AuthResponseDTO
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp.Token
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)

	w, _ := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "parking_http_requests_total")
}

func TestV1RequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	w, env := f.do(t, http.MethodGet, "/v1/parking-complex/list", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unauthorized", env.Error.Kind)

	w, _ = f.do(t, http.MethodGet, "/v1/parking-complex/list", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestComplexAndEntryPointRoutes(t *testing.T) {
	f := newAPIFixture(t)

	w, env := f.do(t, http.MethodGet, "/v1/parking-complex/get/"+url.PathEscape(seed.ComplexName), f.opToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pc domain.ParkingComplex
	require.NoError(t, json.Unmarshal(env.Data, &pc))
	assert.Equal(t, f.complex.ID, pc.ID)

	w, env = f.do(t, http.MethodGet, "/v1/parking-complex/get/nowhere", f.opToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Error.Kind)

	w, env = f.do(t, http.MethodGet, "/v1/entry-points/list/"+f.complex.ID, f.opToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var eps []domain.EntryPoint
	require.NoError(t, json.Unmarshal(env.Data, &eps))
	assert.Len(t, eps, 3)

	w, _ = f.do(t, http.MethodGet, "/v1/entry-points/list/not-an-id", f.opToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	add := domain.AddEntryPointDTO{ParkingComplexID: f.complex.ID, EntryPointName: "North Gate"}
	w, env = f.do(t, http.MethodPost, "/v1/entry-points/add", f.opToken, add)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", env.Error.Kind)

	w, env = f.do(t, http.MethodPost, "/v1/entry-points/add", f.adminToken, add)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ep domain.EntryPoint
	require.NoError(t, json.Unmarshal(env.Data, &ep))
	assert.Equal(t, "North Gate", ep.Name)
}

func TestFindSlotRoute(t *testing.T) {
	f := newAPIFixture(t)
	base := "/v1/parking-slot/get/" + f.complex.ID + "/" + f.entryPoints[0].ID + "/"

	w, env := f.do(t, http.MethodGet, base+"small", f.opToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var slot domain.ParkingSlot
	require.NoError(t, json.Unmarshal(env.Data, &slot))
	assert.Equal(t, "Parking Slot 0", slot.Name)
	assert.Equal(t, domain.SizeSmall, slot.Type)

	w, _ = f.do(t, http.MethodGet, base+"2", f.opToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = f.do(t, http.MethodGet, base+"huge", f.opToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_argument", env.Error.Kind)

	w, _ = f.do(t, http.MethodGet, "/v1/parking-slot/get/bad/"+f.entryPoints[0].ID+"/small", f.opToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParkUnparkRoutes(t *testing.T) {
	f := newAPIFixture(t)
	parkTime := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	unparkTime := parkTime.Add(time.Hour)

	w, env := f.do(t, http.MethodGet, "/v1/parking-slot/get/"+f.complex.ID+"/"+f.entryPoints[0].ID+"/small", f.opToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var slot domain.ParkingSlot
	require.NoError(t, json.Unmarshal(env.Data, &slot))

	park := domain.ParkRequestDTO{
		PlateNumber:   "ABC1234",
		ParkingSlotID: slot.ID,
		EntryPointID:  f.entryPoints[0].ID,
		Type:          "small",
		ParkTime:      &parkTime,
	}
	w, env = f.do(t, http.MethodPost, "/v1/parking-history/park", f.opToken, park)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var session domain.ParkingSession
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, "abc1234", session.PlateNumber)
	assert.True(t, session.IsOpen())

	w, env = f.do(t, http.MethodPost, "/v1/parking-history/park", f.opToken, park)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", env.Error.Kind)

	w, env = f.do(t, http.MethodPost, "/v1/parking-history/unpark", f.opToken,
		domain.UnparkRequestDTO{PlateNumber: "abc1234", UnparkTime: &unparkTime})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp domain.UnparkResponseDTO
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 40.0, resp.Payable)

	w, _ = f.do(t, http.MethodPost, "/v1/parking-history/unpark", f.opToken,
		domain.UnparkRequestDTO{PlateNumber: "abc1234", UnparkTime: &unparkTime})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = f.do(t, http.MethodGet, "/v1/parking-history/ABC1234", f.opToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []domain.ParkingSession
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.False(t, history[0].IsOpen())

	w, _ = f.do(t, http.MethodGet, "/v1/parking-history/ABC1234?limit=0", f.opToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParkRouteValidation(t *testing.T) {
	f := newAPIFixture(t)

	w, env := f.do(t, http.MethodPost, "/v1/parking-history/park", f.opToken, map[string]any{
		"plateNumber":   "ab",
		"parkingSlotId": f.complex.ID,
		"entryPointId":  f.entryPoints[0].ID,
		"type":          "small",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_argument", env.Error.Kind)
	assert.Contains(t, env.Error.Message, "plateNumber")

	w, env = f.do(t, http.MethodPost, "/v1/parking-history/park", f.opToken, map[string]any{
		"plateNumber":   "abc1234",
		"parkingSlotId": "slot-1",
		"entryPointId":  f.entryPoints[0].ID,
		"type":          "small",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Message, "resourceid")

	w, _ = f.do(t, http.MethodPost, "/v1/parking-history/unpark", f.opToken, map[string]any{"plateNumber": "zzz9999"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthRoutes(t *testing.T) {
	f := newAPIFixture(t)

	w, env := f.do(t, http.MethodPost, "/auth/register", "",
		domain.RegisterUserDTO{Username: "eve", Password: "secret123", Role: domain.RoleAdmin})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", env.Error.Kind)

	w, _ = f.do(t, http.MethodPost, "/auth/register", f.adminToken,
		domain.RegisterUserDTO{Username: "eve", Password: "secret123", Role: domain.RoleAdmin})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, _ = f.do(t, http.MethodPost, "/auth/register", "",
		domain.RegisterUserDTO{Username: "eve", Password: "secret123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = f.do(t, http.MethodPost, "/auth/login", "", domain.LoginUserDTO{Username: "eve", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLPRRouteWithoutDetector(t *testing.T) {
	f := newAPIFixture(t)

	w, env := f.do(t, http.MethodPost, "/v1/lpr/recognize", f.opToken, domain.LPRRequestDTO{ImageBase64: "aGVsbG8="})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal", env.Error.Kind)
}
