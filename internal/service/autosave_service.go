package service

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ─────────────────────────────────────────────────────────────
// AutosaveService: periodic recovery snapshots of the open draft
// ─────────────────────────────────────────────────────────────

// AutosaveService runs EditorService.Autosnapshot on a cron schedule.
type AutosaveService struct {
	editor *EditorService
	spec   string
	log    *zap.Logger

	mu    sync.Mutex
	sched *cron.Cron
}

// NewAutosaveService creates an AutosaveService for a cron spec such as
// "@every 30s".
func NewAutosaveService(editor *EditorService, spec string, log *zap.Logger) *AutosaveService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AutosaveService{editor: editor, spec: spec, log: log.Named("autosave")}
}

// Start schedules the autosave job. An empty spec disables autosave.
func (s *AutosaveService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched != nil || s.spec == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.spec, s.Tick); err != nil {
		return fmt.Errorf("autosave: invalid schedule %q: %w", s.spec, err)
	}
	c.Start()
	s.sched = c
	s.log.Info("scheduled", zap.String("spec", s.spec))
	return nil
}

// Stop cancels the schedule and waits for a running tick.
func (s *AutosaveService) Stop() {
	s.mu.Lock()
	c := s.sched
	s.sched = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Tick takes one recovery snapshot if the draft is dirty.
func (s *AutosaveService) Tick() {
	saved, err := s.editor.Autosnapshot()
	if err != nil {
		s.log.Warn("snapshot failed", zap.Error(err))
		return
	}
	if saved {
		s.log.Debug("snapshot written")
	}
}
