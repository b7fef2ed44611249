package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// stateKey is the one recognized top-level key in the state file.
const stateKey = "initial_alert_channels_by_product"

// OnboardingState records which products have already received their
// one-time "now being tracked" notification and on which channel. It is
// loaded once per run, mutated in memory, and saved at most once.
type OnboardingState struct {
	channels map[string]string
	dirty    bool
}

type stateFile struct {
	Channels map[string]string `json:"initial_alert_channels_by_product"`
}

// LoadOnboardingState reads the state file. A missing or corrupt file
// loads as empty state; only the read itself failing on an existing file
// is worth a warning, never an error.
func LoadOnboardingState(path string, logger *zap.Logger) *OnboardingState {
	if logger == nil {
		logger = zap.NewNop()
	}
	state := &OnboardingState{channels: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("onboarding state unreadable, starting empty",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return state
	}

	var parsed stateFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		logger.Warn("onboarding state corrupt, starting empty",
			zap.String("path", path),
			zap.Error(err),
		)
		return state
	}
	if parsed.Channels != nil {
		state.channels = parsed.Channels
	}
	return state
}

// Channel returns the channel a product was last onboarded on, if any.
func (s *OnboardingState) Channel(productID string) (string, bool) {
	channel, ok := s.channels[productID]
	return channel, ok
}

// NeedsOnboarding reports whether a product should receive the onboarding
// notification: it is new, or its alert channel moved.
func (s *OnboardingState) NeedsOnboarding(productID, channelID string) bool {
	current, ok := s.channels[productID]
	return !ok || current != channelID
}

// MarkOnboarded records a successful onboarding notification.
func (s *OnboardingState) MarkOnboarded(productID, channelID string) {
	if s.channels[productID] == channelID {
		return
	}
	s.channels[productID] = channelID
	s.dirty = true
}

// Prune drops entries for products no longer tracked.
func (s *OnboardingState) Prune(activeProductIDs map[string]struct{}) {
	for id := range s.channels {
		if _, ok := activeProductIDs[id]; !ok {
			delete(s.channels, id)
			s.dirty = true
		}
	}
}

// Len returns the number of onboarded products.
func (s *OnboardingState) Len() int { return len(s.channels) }

// Save writes the state back atomically via a temp file and rename, and
// only when something actually changed.
func (s *OnboardingState) Save(path string) error {
	if !s.dirty {
		return nil
	}
	data, err := json.MarshalIndent(stateFile{Channels: s.channels}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode onboarding state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	s.dirty = false
	return nil
}
