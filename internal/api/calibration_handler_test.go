package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ajharbinger/lead-funnel/internal/auth"
	"github.com/ajharbinger/lead-funnel/internal/logger"
	"github.com/ajharbinger/lead-funnel/internal/scoring"
	"github.com/ajharbinger/lead-funnel/internal/services"
	"github.com/ajharbinger/lead-funnel/pkg/config"
)

func get(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCalibrationHandler_GetCalibrations(t *testing.T) {
	router := setupTestRouter(t)

	w := get(router, "/api/v1/calibrations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Calibrations []scoring.Calibration `json:"calibrations"`
		DefaultID    string                `json:"default_id"`
		Count        int                   `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Count != len(scoring.DefaultCalibrations()) {
		t.Errorf("Expected %d calibrations, got %d", len(scoring.DefaultCalibrations()), response.Count)
	}
	if response.DefaultID != scoring.BaselineID {
		t.Errorf("Expected default %s, got %s", scoring.BaselineID, response.DefaultID)
	}
	for i := 1; i < len(response.Calibrations); i++ {
		if response.Calibrations[i-1].ID >= response.Calibrations[i].ID {
			t.Errorf("Calibrations not sorted by ID: %s before %s", response.Calibrations[i-1].ID, response.Calibrations[i].ID)
		}
	}
}

func TestCalibrationHandler_GetCalibration(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name           string
		id             string
		expectedStatus int
	}{
		{"baseline", scoring.BaselineID, http.StatusOK},
		{"decay", scoring.DecayID, http.StatusOK},
		{"unknown", "does-not-exist", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router, "/api/v1/calibrations/"+tt.id, "")
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var response struct {
				Calibration scoring.Calibration `json:"calibration"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}
			if response.Calibration.ID != tt.id {
				t.Errorf("Expected calibration %s, got %s", tt.id, response.Calibration.ID)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	router := setupTestRouter(t)

	w := get(router, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", response["status"])
	}
	if response["default_calibration"] != scoring.BaselineID {
		t.Errorf("Expected default calibration %s, got %v", scoring.BaselineID, response["default_calibration"])
	}
}

func TestHealth_DegradedAfterRejectedReloads(t *testing.T) {
	gin.SetMode(gin.TestMode)

	registry, err := scoring.NewRegistry(scoring.BaselineID, scoring.DefaultCalibrations()...)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	for i := 0; i < 3; i++ {
		registry.Reloads().RecordFailure("team.yaml", errors.New("parse yaml: bad indentation"))
	}

	cfg := &config.Config{Workers: 1}
	router := gin.New()
	SetupRoutes(router, services.NewServices(registry, cfg, logger.NewNopLogger()), cfg, logger.NewNopLogger())

	w := get(router, "/api/v1/health", "")
	var response struct {
		Status  string               `json:"status"`
		Reloads scoring.ReloadStatus `json:"calibration_reloads"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Status != "degraded" {
		t.Errorf("Expected degraded status, got %s", response.Status)
	}
	if response.Reloads.Failed != 3 {
		t.Errorf("Expected 3 failed reloads, got %d", response.Reloads.Failed)
	}
}

func TestSetupRoutes_AuthEnabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	registry, err := scoring.NewRegistry(scoring.BaselineID, scoring.DefaultCalibrations()...)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	cfg := &config.Config{Workers: 1, JWTSecret: "test-secret"}
	router := gin.New()
	SetupRoutes(router, services.NewServices(registry, cfg, logger.NewNopLogger()), cfg, logger.NewNopLogger())

	token, _, err := auth.NewJWTService(cfg.JWTSecret).GenerateToken(auth.Claims{Name: "crm-sync"}, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if w := get(router, "/api/v1/health", ""); w.Code != http.StatusOK {
		t.Errorf("Health should be public, got %d", w.Code)
	}
	if w := get(router, "/api/v1/calibrations", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", w.Code)
	}
	if w := get(router, "/api/v1/calibrations", token); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with token, got %d", w.Code)
	}
}
