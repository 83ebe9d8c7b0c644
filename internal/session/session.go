package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/KaramelBytes/docassist/internal/analysis"
	"github.com/KaramelBytes/docassist/internal/parser"
	"go.uber.org/zap"
)

// ErrAnalysisInFlight is returned when a file is already being analyzed.
var ErrAnalysisInFlight = errors.New("analysis already in progress for this file")

// ConversationContext is what the assistant remembers between messages.
type ConversationContext struct {
	DocumentType string
	Topic        string
	// DataSource is the name of the most recently analyzed file.
	DataSource   string
	LastAnalysis *analysis.Report
	Preferences  map[string]string
}

// Session ties uploads, cached analyses and conversation state together.
type Session struct {
	Files *Files
	Cache *Cache

	opt    analysis.Options
	logger *zap.Logger

	mu       sync.Mutex
	inFlight map[string]bool
	conv     ConversationContext
}

// New creates a session. A nil logger is replaced with a no-op logger.
func New(files *Files, cache *Cache, opt analysis.Options, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		Files:    files,
		Cache:    cache,
		opt:      opt,
		logger:   logger,
		inFlight: make(map[string]bool),
		conv:     ConversationContext{Preferences: map[string]string{}},
	}
}

// Analyze loads and analyzes the file with the given id. A cached report is
// returned as is. Only one analysis per file may run at a time.
func (s *Session) Analyze(ctx context.Context, id string) (*analysis.Report, error) {
	uf, ok := s.Files.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rep, ok := s.Cache.Get(id); ok {
		s.remember(uf.Name, rep)
		return rep, nil
	}

	s.mu.Lock()
	if s.inFlight[id] {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAnalysisInFlight, uf.Name)
	}
	s.inFlight[id] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, id)
		s.mu.Unlock()
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("file", uf.Name), zap.String("file_id", uf.ID))
	log.Debug("analysis started", zap.Int64("bytes", uf.Size))

	tbl, err := parser.Load(uf.Name, uf.Content, parser.Options{})
	if err != nil {
		log.Warn("analysis failed", zap.Error(err))
		return nil, fmt.Errorf("analyze %s: %w", uf.Name, err)
	}
	rep := analysis.Analyze(tbl, uf.Name, s.opt)
	if tbl.Skipped > 0 {
		log.Info("malformed rows skipped", zap.Int("skipped", tbl.Skipped))
	}

	// The file may have been removed while we were parsing; s.mu orders
	// this check and Put against Remove.
	s.mu.Lock()
	if _, still := s.Files.Get(id); still {
		s.Cache.Put(id, rep)
	}
	s.mu.Unlock()
	s.remember(uf.Name, rep)
	log.Debug("analysis finished", zap.Int("rows", rep.RowCount), zap.Int("columns", rep.ColumnCount))
	return rep, nil
}

// Remove drops an upload together with its cached analysis.
func (s *Session) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Files.Remove(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Cache.Remove(id)
	return nil
}

// HasAnalyses reports whether any analysis is cached.
func (s *Session) HasAnalyses() bool { return s.Cache.Len() > 0 }

// Context returns a copy of the conversation context.
func (s *Session) Context() ConversationContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conv
	c.Preferences = make(map[string]string, len(s.conv.Preferences))
	for k, v := range s.conv.Preferences {
		c.Preferences[k] = v
	}
	return c
}

// SetDocument records the document type and, when non-empty, the topic.
func (s *Session) SetDocument(docType, topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv.DocumentType = docType
	if topic != "" {
		s.conv.Topic = topic
	}
}

// SetPreference stores a free-form user preference.
func (s *Session) SetPreference(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv.Preferences[key] = value
}

func (s *Session) remember(name string, rep *analysis.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv.DataSource = name
	s.conv.LastAnalysis = rep
}
