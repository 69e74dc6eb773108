package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"triage-assist/internal/llm"
	"triage-assist/pkg"
)

// Mode selects the evaluator used for a report.
type Mode string

const (
	// ModeLocal runs the keyword engine in-process.
	ModeLocal Mode = "local"
	// ModeRemote asks the configured generator and validates its output.
	ModeRemote Mode = "remote"
)

// ParseMode accepts "local" and "remote" plus the aliases "dummy" and
// "azure-openai"/"llm".  An empty string means local.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local", "dummy":
		return ModeLocal, nil
	case "remote", "llm", "azure-openai", "openai":
		return ModeRemote, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Outcome is a successful evaluation.
type Outcome struct {
	Response *pkg.TriageResponse
	Mode     Mode
	Provider string
	Elapsed  time.Duration
}

// TriageService dispatches reports to the local engine or the remote
// generator.  A remote result is only returned after it passed extraction,
// validation and typed decoding; there is no fallback to the local engine.
type TriageService struct {
	Engine    *Engine
	Generator llm.Generator
	Timeout   time.Duration
	Logger    *zap.Logger
}

// NewTriageService constructs a TriageService.  gen may be nil, in which case
// remote evaluations fail with ErrRemoteUnavailable.
func NewTriageService(engine *Engine, gen llm.Generator, timeout time.Duration, logger *zap.Logger) *TriageService {
	if engine == nil {
		engine = defaultEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriageService{Engine: engine, Generator: gen, Timeout: timeout, Logger: logger}
}

// RemoteAvailable reports whether a generator is configured.
func (s *TriageService) RemoteAvailable() bool { return s.Generator != nil }

// ProviderName returns the configured generator's name, or "".
func (s *TriageService) ProviderName() string {
	if s.Generator == nil {
		return ""
	}
	return s.Generator.Name()
}

// Evaluate runs one evaluation of reportText.
func (s *TriageService) Evaluate(ctx context.Context, reportText string, mode Mode) (*Outcome, error) {
	if strings.TrimSpace(reportText) == "" {
		return nil, ErrEmptyReport
	}
	start := time.Now()
	log := s.Logger.With(zap.String("mode", string(mode)), zap.Int("report_len", len([]rune(reportText))))

	var (
		resp     *pkg.TriageResponse
		provider string
		err      error
	)
	switch mode {
	case ModeLocal:
		resp = s.Engine.Evaluate(reportText)
	case ModeRemote:
		provider = s.ProviderName()
		resp, err = s.evaluateRemote(ctx, reportText)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("triage evaluation failed",
			zap.String("kind", ErrorKind(err)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}
	log.Info("triage evaluated",
		zap.String("urgency", string(resp.Result.Urgency)),
		zap.Int("steps", len(resp.Result.Steps)),
		zap.String("provider", provider),
		zap.Duration("elapsed", elapsed))
	return &Outcome{Response: resp, Mode: mode, Provider: provider, Elapsed: elapsed}, nil
}

func (s *TriageService) evaluateRemote(ctx context.Context, reportText string) (*pkg.TriageResponse, error) {
	if s.Generator == nil {
		return nil, ErrRemoteUnavailable
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	raw, err := s.Generator.Generate(ctx, SystemPrompt, reportText)
	if err != nil {
		return nil, fmt.Errorf("%s generation: %w", s.Generator.Name(), err)
	}
	s.Logger.Debug("generator output received", zap.Int("bytes", len(raw)))
	return ParseModelOutput(raw)
}
