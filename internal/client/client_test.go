package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	authmodels "estate-portal/internal/auth/models"
	"estate-portal/internal/catalog/models"
	"estate-portal/internal/catalog/selector"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeAPI struct {
	mux        *http.ServeMux
	lastQuery  atomic.Value
	lastAuth   atomic.Value
	lastBody   atomic.Value
	promoFails bool
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client, *observer.ObservedLogs) {
	t.Helper()

	api := &fakeAPI{mux: http.NewServeMux()}
	record := func(r *http.Request) {
		api.lastQuery.Store(r.URL.RawQuery)
		api.lastAuth.Store(r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		api.lastBody.Store(string(body))
	}

	units := []models.Unit{
		{ID: 1, Kind: models.KindApartment, Number: "101", Floor: 1, Rooms: 1, Type: "studio", Area: decimal.NewFromInt(25), Price: decimal.NewFromInt(3000000), Status: models.StatusAvailable},
		{ID: 2, Kind: models.KindApartment, Number: "201", Floor: 2, Rooms: 2, Type: "2k", Area: decimal.NewFromInt(50), Price: decimal.NewFromInt(6000000), Status: models.StatusSold},
		{ID: 3, Kind: models.KindCommercial, Number: "К-1", Floor: 1, Type: "retail", Area: decimal.NewFromInt(90), Price: decimal.NewFromInt(9000000), Status: models.StatusAvailable},
	}

	api.mux.HandleFunc("GET /complexes/{id}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if r.PathValue("id") != "1" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "complex not found"})
			return
		}
		writeJSON(w, http.StatusOK, models.Complex{ID: 1, Name: "ЖК Северный"})
	})
	api.mux.HandleFunc("GET /buildings/{id}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, models.Block{ID: 10, Name: "Корпус 1", Floors: 2, Units: units})
	})
	api.mux.HandleFunc("GET /buildings/{id}/units", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, selector.Apply(units, selector.Tab(r.URL.Query().Get("tab")), selector.Criteria{}))
	})
	api.mux.HandleFunc("GET /buildings/{id}/scheme.svg", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write([]byte("<svg/>"))
	})
	api.mux.HandleFunc("GET /panoramas/complex/{id}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, []models.Panorama{{ID: 1, Title: "Двор", Kind: models.PanoramaImage}})
	})
	api.mux.HandleFunc("POST /panoramas/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": []map[string]string{{"field": "title", "message": "this field is required"}},
		})
	})
	api.mux.HandleFunc("GET /promotions", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if api.promoFails {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		writeJSON(w, http.StatusOK, []models.Promotion{{ID: 1, Title: "Скидка"}})
	})
	api.mux.HandleFunc("GET /payment-info", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, []models.PaymentInfo{{ID: 1, Kind: models.PaymentFull}})
	})
	api.mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, LoginResult{Token: "tok-1", User: authmodels.User{ID: "u1", Login: "admin", Role: authmodels.RoleAdmin}})
	})
	api.mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, authmodels.User{ID: "u1", Login: "admin"})
	})
	api.mux.HandleFunc("PATCH /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, authmodels.User{ID: r.PathValue("id")})
	})
	api.mux.HandleFunc("DELETE /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(api.mux)
	t.Cleanup(srv.Close)

	core, logs := observer.New(zap.InfoLevel)
	c, err := New(srv.URL+"/", WithLogger(zap.New(core)))
	require.NoError(t, err)
	return api, c, logs
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("localhost:3000")
	assert.Error(t, err)
}

func TestAPIError(t *testing.T) {
	_, c, _ := newFakeAPI(t)

	_, err := c.GetComplex(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "complex not found", apiErr.Message)

	_, err = c.CreatePanorama(context.Background(), PanoramaInput{Kind: models.PanoramaImage})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, "title", apiErr.Fields[0].Field)
}

func TestSelectUnitsEncodesCriteria(t *testing.T) {
	api, c, _ := newFakeAPI(t)

	view, err := c.SelectUnits(context.Background(), 10, selector.TabCommercial, selector.Criteria{
		Search:        "К",
		Floor:         1,
		MaxPrice:      decimal.NewFromInt(9500000),
		OnlyAvailable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, selector.TabCommercial, view.Tab)
	assert.Equal(t, 2, view.Counts[selector.TabApartments])

	assert.Equal(t, "available=true&floor=1&max_price=9500000&search=%D0%9A&tab=commercial", api.lastQuery.Load())
}

func TestSelectUnitsSendsBasementFloor(t *testing.T) {
	api, c, _ := newFakeAPI(t)

	_, err := c.SelectUnits(context.Background(), 10, selector.TabApartments, selector.Criteria{Floor: -1})
	require.NoError(t, err)
	assert.Equal(t, "floor=-1&tab=apartments", api.lastQuery.Load())

	svg, err := c.Scheme(context.Background(), 10, selector.Criteria{Floor: -1, Rooms: 2})
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(svg))
	assert.Equal(t, "floor=-1&rooms=2", api.lastQuery.Load())
}

func TestLoginKeepsToken(t *testing.T) {
	api, c, _ := newFakeAPI(t)
	ctx := context.Background()

	_, err := c.Me(ctx)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	res, err := c.Login(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	assert.JSONEq(t, `{"login":"admin","password":"admin"}`, api.lastBody.Load().(string))

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Login)
	assert.Equal(t, "Bearer tok-1", api.lastAuth.Load())

	phone := "+79990000000"
	_, err = c.UpdateUser(ctx, "u2", UserUpdate{Phone: &phone})
	require.NoError(t, err)
	assert.JSONEq(t, `{"phone":"+79990000000"}`, api.lastBody.Load().(string))

	require.NoError(t, c.DeleteUser(ctx, "u2"))
}

func TestPageLoad(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)
	var page Page[[]int]

	err := page.Load(context.Background(), log, "список", func(context.Context) ([]int, error) {
		assert.True(t, page.Loading())
		return []int{1, 2}, nil
	})
	require.NoError(t, err)
	assert.False(t, page.Loading())
	assert.Empty(t, page.Err())
	assert.Equal(t, []int{1, 2}, page.Data())

	err = page.Load(context.Background(), log, "список", func(context.Context) ([]int, error) {
		return nil, &APIError{Status: http.StatusInternalServerError, Message: "internal error"}
	})
	require.Error(t, err)
	assert.False(t, page.Loading())
	assert.Equal(t, "Не удалось загрузить список, попробуйте позже", page.Err())
	assert.Equal(t, []int{1, 2}, page.Data(), "keeps previous data")
	assert.Equal(t, 1, logs.FilterMessage("load failed").Len())

	err = page.Load(context.Background(), log, "список", func(context.Context) ([]int, error) {
		return []int{3}, nil
	})
	require.NoError(t, err)
	assert.Empty(t, page.Err())
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&APIError{Status: http.StatusNotFound}, "Не найдено: корпус"},
		{&APIError{Status: http.StatusUnauthorized}, "Требуется вход в систему"},
		{&APIError{Status: http.StatusForbidden}, "Недостаточно прав"},
		{&APIError{Status: http.StatusBadRequest, Message: "invalid floor"}, "Ошибка: invalid floor"},
		{context.DeadlineExceeded, "Не удалось загрузить корпус: превышено время ожидания"},
		{errors.New("connection refused"), "Не удалось загрузить корпус, попробуйте позже"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UserMessage("корпус", tt.err))
	}
}

func TestLoadComplexPageIsolatesFailures(t *testing.T) {
	api, c, logs := newFakeAPI(t)
	api.promoFails = true

	page := LoadComplexPage(context.Background(), c, 1)

	require.NotNil(t, page.Complex.Data())
	assert.Equal(t, "ЖК Северный", page.Complex.Data().Name)
	assert.Len(t, page.Panoramas.Data(), 1)
	assert.Len(t, page.Payments.Data(), 1)
	assert.Empty(t, page.Complex.Err())

	assert.Nil(t, page.Promotions.Data())
	assert.NotEmpty(t, page.Promotions.Err())
	for _, loading := range []bool{page.Complex.Loading(), page.Panoramas.Loading(), page.Promotions.Loading(), page.Payments.Loading()} {
		assert.False(t, loading)
	}
	assert.Equal(t, 1, logs.FilterMessage("load failed").Len())
}

func TestSelectorPageFiltersLocally(t *testing.T) {
	_, c, _ := newFakeAPI(t)

	page := NewSelectorPage(c, 10)
	require.NoError(t, page.Reload(context.Background()))

	view := page.State.View()
	assert.Equal(t, selector.TabApartments, view.Tab)
	assert.Len(t, view.Units, 2)
	assert.Equal(t, 1, view.Counts[selector.TabCommercial])

	require.NoError(t, page.State.SetFloor(2))
	view = page.State.View()
	require.Len(t, view.Units, 1)
	assert.Equal(t, "201", view.Units[0].Number)

	require.NoError(t, page.Reload(context.Background()))
	assert.Len(t, page.State.View().Units, 1, "filters survive reload")
}
