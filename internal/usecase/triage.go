// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/pranavk-10/GAP-Github/internal/adapter/observability"
	"github.com/pranavk-10/GAP-Github/internal/domain"
	"github.com/pranavk-10/GAP-Github/internal/triage"
	"github.com/pranavk-10/GAP-Github/pkg/textx"
)

// DefaultModelTimeout bounds a model call when no timeout is configured.
const DefaultModelTimeout = 30 * time.Second

// ObjectExtractor recovers a JSON object from raw model text.
type ObjectExtractor interface {
	ExtractObject(response string) (map[string]any, error)
}

// TriageService runs one dialogue turn: classify, prompt, call the model once
// and turn its reply into a typed payload, substituting a canned payload when
// the reply is unusable.
type TriageService struct {
	Generator  domain.Generator
	Classifier *triage.Classifier
	Extractor  ObjectExtractor
	Fallbacks  *triage.Fallbacks
	Timeout    time.Duration
}

// NewTriageService constructs a TriageService. gen may be nil, in which case
// every turn fails with domain.ErrServiceUnavailable.
func NewTriageService(gen domain.Generator, classifier *triage.Classifier, extractor ObjectExtractor, fallbacks *triage.Fallbacks, timeout time.Duration) *TriageService {
	if fallbacks == nil {
		fallbacks = triage.DefaultFallbacks()
	}
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	return &TriageService{
		Generator:  gen,
		Classifier: classifier,
		Extractor:  extractor,
		Fallbacks:  fallbacks,
		Timeout:    timeout,
	}
}

// Available reports whether a generator is configured.
func (s *TriageService) Available() bool {
	return s != nil && s.Generator != nil
}

// Respond produces the payload for one turn. Errors are ErrEmptyQuery,
// ErrServiceUnavailable or an *domain.UpstreamError; unusable model output is
// never an error.
func (s *TriageService) Respond(ctx context.Context, req domain.QueryRequest) (triage.Outcome, error) {
	tracer := otel.Tracer("triage.service")
	ctx, span := tracer.Start(ctx, "triage.Respond")
	defer span.End()

	lg := observability.LoggerFromContext(ctx)
	start := time.Now()

	query := textx.SanitizeText(req.Query)
	if query == "" {
		span.SetStatus(codes.Error, "empty query")
		return triage.Outcome{}, domain.ErrEmptyQuery
	}
	if !s.Available() {
		span.SetStatus(codes.Error, "model not configured")
		return triage.Outcome{}, fmt.Errorf("%w: model is not configured; set an API key for the selected provider", domain.ErrServiceUnavailable)
	}

	lang := s.Classifier.Classify(query)
	historyText := triage.FormatHistory(req.History)
	sel := triage.SelectStage(req.QuestionCount)
	prompt := triage.BuildPrompt(sel, query, historyText, lang)

	span.SetAttributes(
		attribute.String("triage.language", string(lang)),
		attribute.String("triage.stage", string(sel.Kind)),
		attribute.Int("triage.question_count", req.QuestionCount),
		attribute.Int("triage.history_len", len(req.History)),
	)

	callCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	modelStart := time.Now()
	raw, err := s.Generator.Generate(callCtx, prompt)
	cancel()
	modelDur := time.Since(modelStart)
	if err != nil {
		var ue *domain.UpstreamError
		if !errors.As(err, &ue) {
			ue = &domain.UpstreamError{Err: err}
		}
		span.RecordError(ue)
		span.SetStatus(codes.Error, "model call failed")
		lg.Error("model call failed",
			slog.String("stage", string(sel.Kind)),
			slog.String("language", string(lang)),
			slog.Duration("model_duration", modelDur),
			slog.Any("error", err))
		return triage.Outcome{}, ue
	}

	out := s.decode(raw, sel, lang)
	if out.Source == triage.SourceFallback {
		observability.RecordFallback(string(sel.Kind), out.Reason)
		lg.Warn("model output unusable; serving canned payload",
			slog.String("stage", string(sel.Kind)),
			slog.String("language", string(lang)),
			slog.String("reason", out.Reason),
			slog.String("raw_preview", textx.Preview(raw, 200)))
	}
	observability.RecordTurn(string(sel.Kind), string(out.Source), string(lang))
	span.SetAttributes(attribute.String("triage.source", string(out.Source)))

	lg.Info("triage turn served",
		slog.String("stage", string(sel.Kind)),
		slog.Int("question_number", sel.QuestionNumber),
		slog.String("language", string(lang)),
		slog.String("source", string(out.Source)),
		slog.Duration("model_duration", modelDur),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

func (s *TriageService) decode(raw string, sel triage.Selection, lang domain.Language) triage.Outcome {
	if s.Extractor == nil {
		return triage.Outcome{Stage: s.Fallbacks.For(sel, lang), Source: triage.SourceFallback, Reason: "no extractor"}
	}
	obj, err := s.Extractor.ExtractObject(raw)
	if err != nil {
		return triage.Outcome{Stage: s.Fallbacks.For(sel, lang), Source: triage.SourceFallback, Reason: "unparseable"}
	}
	stage, err := triage.DecodeStage(obj, sel)
	if err != nil {
		return triage.Outcome{Stage: s.Fallbacks.For(sel, lang), Source: triage.SourceFallback, Reason: "invalid_shape"}
	}
	return triage.Outcome{Stage: stage, Source: triage.SourceModel}
}
