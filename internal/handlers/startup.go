package handlers

import (
	"net/http"
	"sync"
)

// Startup step names reported by the health endpoint
const (
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepServices   = "Initializing services"
	StepServer     = "Server ready"
)

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu       sync.RWMutex
	Ready    bool
	Current  string
	Progress int
	Steps    []StartupStep
}

// startupReport is the JSON form of StartupStatus
type startupReport struct {
	Ready    bool          `json:"ready"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// NewStartupStatus returns a tracker with every step pending
func NewStartupStatus() *StartupStatus {
	return &StartupStatus{
		Current: "Initializing...",
		Steps: []StartupStep{
			{Name: StepDatabase},
			{Name: StepMigrations},
			{Name: StepServices},
			{Name: StepServer},
		},
	}
}

// SetCurrentStep updates the current initialization step
func (s *StartupStatus) SetCurrentStep(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Current = step
}

// CompleteStep marks a step as completed and updates progress
func (s *StartupStatus) CompleteStep(stepName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Steps {
		if s.Steps[i].Name == stepName {
			s.Steps[i].Completed = true
			break
		}
	}

	completed := 0
	for _, step := range s.Steps {
		if step.Completed {
			completed++
		}
	}
	s.Progress = (completed * 100) / len(s.Steps)
}

// MarkReady marks the server as fully initialized
func (s *StartupStatus) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Steps {
		s.Steps[i].Completed = true
	}
	s.Ready = true
	s.Current = StepServer
	s.Progress = 100
}

// IsReady returns whether the server is fully initialized
func (s *StartupStatus) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Ready
}

// snapshot copies the status for encoding outside the lock
func (s *StartupStatus) snapshot() startupReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return startupReport{
		Ready:    s.Ready,
		Current:  s.Current,
		Progress: s.Progress,
		Steps:    append([]StartupStep(nil), s.Steps...),
	}
}

// Health reports startup progress. It answers 503 until the server is ready.
func (s *StartupStatus) Health(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	status := http.StatusOK
	if !snap.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, snap)
}
