package generate

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the tick between progress updates.
const DefaultInterval = 300 * time.Millisecond

// Steps are the status titles shown while a document is generated, in order.
var Steps = []string{
	"Analyzing requirements...",
	"Generating content with AI...",
	"Processing data analysis...",
	"Creating visualizations...",
	"Formatting document...",
	"Finalizing output...",
}

// Progress is one update emitted by Run.
type Progress struct {
	Percent float64
	Step    string
}

// Simulator fakes document generation with a randomly advancing progress bar.
type Simulator struct {
	Interval time.Duration
	// Rand returns a value in [0, 1). Defaults to math/rand.
	Rand   func() float64
	logger *zap.Logger
}

// NewSimulator returns a simulator ticking every interval (DefaultInterval when <= 0).
func NewSimulator(interval time.Duration, logger *zap.Logger) *Simulator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{Interval: interval, Rand: rand.Float64, logger: logger}
}

// Run advances progress by 5 to 25 points per tick until it reaches 100,
// calling onProgress after each tick, and returns the completion message.
// Each of the first len(Steps) ticks switches to the next step title.
func (s *Simulator) Run(ctx context.Context, docType string, onProgress func(Progress)) (string, error) {
	rnd := s.Rand
	if rnd == nil {
		rnd = rand.Float64
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	var (
		percent float64
		step    int
		title   = "Generating Document..."
	)
	s.logger.Debug("document generation started", zap.String("doc_type", docType))
	for percent < 100 {
		select {
		case <-ctx.Done():
			s.logger.Debug("document generation cancelled", zap.Float64("percent", percent))
			return "", ctx.Err()
		case <-ticker.C:
		}
		percent += rnd()*20 + 5
		if percent > 100 {
			percent = 100
		}
		if step < len(Steps) {
			title = Steps[step]
			step++
		}
		if onProgress != nil {
			onProgress(Progress{Percent: percent, Step: title})
		}
	}
	s.logger.Debug("document generation finished", zap.String("doc_type", docType))
	return CompletionMessage(docType), nil
}

// CompletionMessage is the Markdown announcement shown when generation ends.
func CompletionMessage(docType string) string {
	return fmt.Sprintf("✅ **Document Complete!**\n\n"+
		"Your %s has been generated successfully and saved to your documents folder. The file includes:\n\n"+
		"- Professional formatting\n"+
		"- Data analysis (if applicable)\n"+
		"- Charts and visualizations\n"+
		"- Executive summary\n\n"+
		"Would you like to create another document?", docType)
}
