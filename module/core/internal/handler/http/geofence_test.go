package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrisense/fieldwatch/module/core/domain"
)

type mockIngestService struct {
	submitGeofenceFn  func(ctx context.Context, vertices []domain.LatLon) (*domain.Geofence, error)
	submitPositionFn  func(ctx context.Context, deviceID string, lat, lon float64) (*domain.Position, error)
	currentGeofenceFn func(ctx context.Context) (*domain.Geofence, error)
	recentPositionsFn func(ctx context.Context, limit int) ([]domain.Position, error)
}

func (m *mockIngestService) SubmitGeofence(ctx context.Context, vertices []domain.LatLon) (*domain.Geofence, error) {
	return m.submitGeofenceFn(ctx, vertices)
}

func (m *mockIngestService) SubmitPosition(ctx context.Context, deviceID string, lat, lon float64) (*domain.Position, error) {
	return m.submitPositionFn(ctx, deviceID, lat, lon)
}

func (m *mockIngestService) CurrentGeofence(ctx context.Context) (*domain.Geofence, error) {
	return m.currentGeofenceFn(ctx)
}

func (m *mockIngestService) RecentPositions(ctx context.Context, limit int) ([]domain.Position, error) {
	return m.recentPositionsFn(ctx, limit)
}

func setupRouter(svc ingestService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewGeofenceHandler(svc)
	h.Register(r.Group(""))
	return r
}

func TestSaveGeofence_Success(t *testing.T) {
	svc := &mockIngestService{
		submitGeofenceFn: func(_ context.Context, vertices []domain.LatLon) (*domain.Geofence, error) {
			if len(vertices) != 4 {
				t.Fatalf("expected 4 vertices, got %d", len(vertices))
			}
			return &domain.Geofence{ID: 1, Vertices: vertices, CreatedAt: time.Unix(1715003456, 0)}, nil
		},
	}

	r := setupRouter(svc)
	w := httptest.NewRecorder()
	body := []byte(`{"coordinates": [[0,0],[0,10],[10,10],[10,0]]}`)
	req, _ := http.NewRequest("POST", "/api/geofence/save", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		OK       bool         `json:"ok"`
		Received [][2]float64 `json:"received"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.OK {
		t.Error("expected ok=true")
	}
	if len(resp.Received) != 4 || resp.Received[1] != [2]float64{0, 10} {
		t.Errorf("unexpected received coordinates: %v", resp.Received)
	}
}

func TestSaveGeofence_MalformedPair(t *testing.T) {
	svc := &mockIngestService{}
	r := setupRouter(svc)
	w := httptest.NewRecorder()
	body := []byte(`{"coordinates": [[0,"x"]]}`)
	req, _ := http.NewRequest("POST", "/api/geofence/save", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSaveGeofence_EmptyList(t *testing.T) {
	svc := &mockIngestService{
		submitGeofenceFn: func(_ context.Context, vertices []domain.LatLon) (*domain.Geofence, error) {
			return nil, domain.ValidateVertices(vertices)
		},
	}
	r := setupRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/geofence/save", bytes.NewReader([]byte(`{"coordinates": []}`)))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSaveGeofence_StorageError(t *testing.T) {
	svc := &mockIngestService{
		submitGeofenceFn: func(_ context.Context, _ []domain.LatLon) (*domain.Geofence, error) {
			return nil, errors.New("db down")
		},
	}
	r := setupRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/geofence/save", bytes.NewReader([]byte(`{"coordinates": [[1,2]]}`)))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestGetGeofence_Success(t *testing.T) {
	svc := &mockIngestService{
		currentGeofenceFn: func(_ context.Context) (*domain.Geofence, error) {
			return &domain.Geofence{
				ID:       3,
				Vertices: []domain.LatLon{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}},
			}, nil
		},
	}
	r := setupRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/geofence", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Coordinates [][2]float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Coordinates) != 2 || resp.Coordinates[0] != [2]float64{1, 2} {
		t.Errorf("unexpected coordinates: %v", resp.Coordinates)
	}
}

func TestGetGeofence_NotFound(t *testing.T) {
	svc := &mockIngestService{
		currentGeofenceFn: func(_ context.Context) (*domain.Geofence, error) {
			return nil, domain.ErrNoGeofence
		},
	}
	r := setupRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/geofence", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSubmitPosition_Success(t *testing.T) {
	ts := time.Unix(1715003456, 0).UTC()
	svc := &mockIngestService{
		submitPositionFn: func(_ context.Context, deviceID string, lat, lon float64) (*domain.Position, error) {
			if deviceID != "" {
				t.Fatalf("expected implicit device, got %q", deviceID)
			}
			return &domain.Position{ID: 1, Lat: lat, Lon: lon, ReceivedAt: ts}, nil
		},
	}
	r := setupRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/gps", bytes.NewReader([]byte(`{"lat": 5, "lon": 5}`)))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		OK       bool             `json:"ok"`
		Received positionResponse `json:"received"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Received.Lat != 5 || resp.Received.Lon != 5 {
		t.Errorf("unexpected received: %+v", resp.Received)
	}
	if resp.Received.Ts == "" {
		t.Error("expected server-assigned ts in response")
	}
}

func TestSubmitPosition_MissingField(t *testing.T) {
	svc := &mockIngestService{}
	r := setupRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/gps", bytes.NewReader([]byte(`{"lat": 5}`)))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSubmitPosition_NonNumeric(t *testing.T) {
	svc := &mockIngestService{}
	r := setupRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/gps", bytes.NewReader([]byte(`{"lat": "abc", "lon": 5}`)))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSubmitPosition_OutOfRange(t *testing.T) {
	svc := &mockIngestService{
		submitPositionFn: func(_ context.Context, deviceID string, lat, lon float64) (*domain.Position, error) {
			if err := domain.ValidateCoordinates(lat, lon); err != nil {
				return nil, err
			}
			t.Fatal("expected validation failure")
			return nil, nil
		},
	}
	r := setupRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/gps", bytes.NewReader([]byte(`{"lat": 95, "lon": 5}`)))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRecentPositions_Success(t *testing.T) {
	svc := &mockIngestService{
		recentPositionsFn: func(_ context.Context, limit int) ([]domain.Position, error) {
			if limit != 2 {
				t.Fatalf("expected limit 2, got %d", limit)
			}
			return []domain.Position{
				{ID: 2, Lat: 2, Lon: 2, ReceivedAt: time.Unix(1715005000, 0)},
				{ID: 1, Lat: 1, Lon: 1, ReceivedAt: time.Unix(1715000000, 0)},
			}, nil
		},
	}
	r := setupRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/gps/recent?limit=2", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp []positionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp))
	}
}

func TestRecentPositions_InvalidLimit(t *testing.T) {
	svc := &mockIngestService{}
	r := setupRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/gps/recent?limit=abc", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
