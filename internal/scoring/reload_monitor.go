package scoring

import (
	"strings"
	"sync"
	"time"
)

// ReloadMonitor tracks calibration file reloads so operators can see when
// the file on disk and the active calibration have diverged
type ReloadMonitor struct {
	mu                   sync.RWMutex
	attempts             int64
	succeeded            int64
	failed               int64
	consecutiveFailures  int64
	lastFailureTime      time.Time
	lastSuccessTime      time.Time
	activeCalibrationID  string
	recentFailures       []ReloadFailure
	maxRecentFailures    int
	consecutiveThreshold int64
	now                  func() time.Time
}

// ReloadFailure represents one rejected reload
type ReloadFailure struct {
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Kind      string    `json:"kind"`
	Error     string    `json:"error"`
}

// ReloadStatus is a snapshot of the reload history
type ReloadStatus struct {
	IsHealthy           bool            `json:"is_healthy"`
	Attempts            int64           `json:"attempts"`
	Succeeded           int64           `json:"succeeded"`
	Failed              int64           `json:"failed"`
	ConsecutiveFailures int64           `json:"consecutive_failures"`
	ActiveCalibrationID string          `json:"active_calibration_id,omitempty"`
	LastFailureTime     *time.Time      `json:"last_failure_time,omitempty"`
	LastSuccessTime     *time.Time      `json:"last_success_time,omitempty"`
	RecentFailures      []ReloadFailure `json:"recent_failures"`
	Issues              []string        `json:"issues"`
}

// NewReloadMonitor creates a monitor keeping the last 20 failures
func NewReloadMonitor() *ReloadMonitor {
	return &ReloadMonitor{
		maxRecentFailures:    20,
		consecutiveThreshold: 3,
		recentFailures:       make([]ReloadFailure, 0, 20),
		now:                  time.Now,
	}
}

// RecordSuccess records a reload that replaced the active calibration
func (m *ReloadMonitor) RecordSuccess(calibrationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts++
	m.succeeded++
	m.consecutiveFailures = 0
	m.lastSuccessTime = m.now()
	m.activeCalibrationID = calibrationID
}

// RecordFailure records a reload that left the previous calibration active
func (m *ReloadMonitor) RecordFailure(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts++
	m.failed++
	m.consecutiveFailures++
	m.lastFailureTime = m.now()

	m.recentFailures = append(m.recentFailures, ReloadFailure{
		Timestamp: m.lastFailureTime,
		Path:      path,
		Kind:      categorizeReloadError(err),
		Error:     err.Error(),
	})
	if len(m.recentFailures) > m.maxRecentFailures {
		m.recentFailures = m.recentFailures[1:]
	}
}

// Status returns the current reload status
func (m *ReloadMonitor) Status() ReloadStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := ReloadStatus{
		IsHealthy:           true,
		Attempts:            m.attempts,
		Succeeded:           m.succeeded,
		Failed:              m.failed,
		ConsecutiveFailures: m.consecutiveFailures,
		ActiveCalibrationID: m.activeCalibrationID,
		RecentFailures:      make([]ReloadFailure, len(m.recentFailures)),
		Issues:              []string{},
	}
	copy(status.RecentFailures, m.recentFailures)

	if !m.lastFailureTime.IsZero() {
		t := m.lastFailureTime
		status.LastFailureTime = &t
	}
	if !m.lastSuccessTime.IsZero() {
		t := m.lastSuccessTime
		status.LastSuccessTime = &t
	}

	if m.consecutiveFailures > 0 {
		status.Issues = append(status.Issues,
			"Latest calibration file was rejected; previous calibration is still active")
	}
	if m.consecutiveFailures >= m.consecutiveThreshold {
		status.IsHealthy = false
		status.Issues = append(status.Issues, "Multiple consecutive reload failures")
	}

	return status
}

// IsHealthy reports whether reloads are currently being accepted
func (m *ReloadMonitor) IsHealthy() bool {
	return m.Status().IsHealthy
}

// categorizeReloadError classifies a reload error from LoadCalibrationFile
// or Registry.Put
func categorizeReloadError(err error) string {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "calibration: read"):
		return "io"
	case strings.Contains(msg, "parse json") || strings.Contains(msg, "parse yaml"):
		return "parse"
	case strings.Contains(msg, "unsupported calibration format"):
		return "format"
	default:
		return "validation"
	}
}
