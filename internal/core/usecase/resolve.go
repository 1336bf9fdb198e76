package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
	"github.com/kirillkom/catalog-qa/internal/core/ports"
)

const noMatchAnswer = "No matching products were found in the catalog for this request."

// ResolveQueryUseCase runs the full pipeline for one query: translate in,
// classify, retrieve, fuse, rerank, generate, validate, translate out.
// All per-request state lives on the stack; the use case itself is safe
// for concurrent use.
type ResolveQueryUseCase struct {
	classifier *Classifier
	retriever  *Retriever
	reranker   *Reranker
	validator  *Validator
	generator  ports.AnswerGenerator
	translator ports.Translator

	fusionCfg       FusionConfig
	workingLanguage string
	finalTopK       int
}

func NewResolveQueryUseCase(
	classifier *Classifier,
	retriever *Retriever,
	reranker *Reranker,
	validator *Validator,
	generator ports.AnswerGenerator,
	translator ports.Translator,
	fusionCfg FusionConfig,
	workingLanguage string,
	finalTopK int,
) *ResolveQueryUseCase {
	return &ResolveQueryUseCase{
		classifier:      classifier,
		retriever:       retriever,
		reranker:        reranker,
		validator:       validator,
		generator:       generator,
		translator:      translator,
		fusionCfg:       fusionCfg,
		workingLanguage: workingLanguage,
		finalTopK:       finalTopK,
	}
}

func (uc *ResolveQueryUseCase) Resolve(ctx context.Context, question, declaredLanguage string, topK int) (*domain.Resolution, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve query", errors.New("empty question"))
	}
	if topK <= 0 || topK > uc.finalTopK {
		topK = uc.finalTopK
	}

	res := &domain.Resolution{
		Query: question,
		State: domain.StateReceived,
	}
	res.Language = normalizeLanguage(declaredLanguage, question, uc.workingLanguage)
	res.WorkingQuery = uc.toWorkingLanguage(ctx, res, question)

	cls := uc.classifier.Classify(ctx, res.WorkingQuery, res.Language)
	res.Intent = cls.Intent
	res.Flags.ClassifierFallback = cls.Degraded
	uc.transition(res, domain.StateClassified, "intent", string(cls.Intent), "confidence", cls.Confidence)

	outcome, err := uc.retriever.Retrieve(ctx, cls)
	if err != nil {
		return nil, fmt.Errorf("resolve query: %w", err)
	}
	res.Flags.PartialRetrieval = outcome.partial()
	uc.transition(res, domain.StateRetrieved, "exact", len(outcome.Exact), "semantic", len(outcome.Semantic))

	fused := fuseCandidates(outcome, cls, uc.fusionCfg)
	uc.transition(res, domain.StateFused, "candidates", len(fused.Candidates))

	if fused.Empty() {
		return uc.resolveEmpty(ctx, res), nil
	}

	ranked := uc.reranker.Rank(ctx, res.WorkingQuery, fused)
	if topK < len(ranked.Candidates) {
		ranked.Candidates = ranked.Candidates[:topK]
	}
	res.Flags.RerankerDegraded = ranked.Degraded
	res.Evidence = ranked.Candidates
	uc.transition(res, domain.StateRanked, "evidence", len(ranked.Candidates), "degraded", ranked.Degraded)

	if err := uc.answerAndValidate(ctx, res, cls); err != nil {
		return nil, fmt.Errorf("resolve query: %w", err)
	}

	res.Answer.Language = res.Language
	res.Answer.Text = uc.fromWorkingLanguage(ctx, res, res.Answer.Text)
	return res, nil
}

// answerAndValidate generates the answer and runs validation, retrying
// generation once with a stricter instruction after a rejection. A second
// rejection keeps the best-effort answer annotated with its issues.
func (uc *ResolveQueryUseCase) answerAndValidate(ctx context.Context, res *domain.Resolution, cls domain.Classification) error {
	text, err := uc.generator.GenerateAnswer(ctx, res.WorkingQuery, res.Evidence, false)
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "generate answer", err)
	}
	uc.transition(res, domain.StateAnswered)

	report := uc.validator.Validate(text, cls, res.Evidence)
	uc.transition(res, domain.StateValidated, "accept", report.Accept, "consistency", report.FactualConsistency)

	if !report.Accept {
		uc.transition(res, domain.StateRejectedRetry, "issues", len(report.Issues))
		retryText, retryErr := uc.generator.GenerateAnswer(ctx, res.WorkingQuery, res.Evidence, true)
		if retryErr != nil {
			slog.Warn("strict_regeneration_failed", "error", retryErr)
		} else {
			retryReport := uc.validator.Validate(retryText, cls, res.Evidence)
			if retryReport.Accept || retryReport.Confidence() >= report.Confidence() {
				text, report = retryText, retryReport
			}
		}
	}

	res.Report = report
	res.Answer = domain.Answer{
		Text:       text,
		Citations:  citationIDs(res.Evidence),
		Confidence: report.Confidence(),
	}
	if report.Accept {
		uc.transition(res, domain.StateAccepted)
	} else {
		uc.transition(res, domain.StateRejectedFinal, "issues", len(report.Issues))
	}
	return nil
}

// resolveEmpty handles the valid empty-result case: no evidence exists,
// so the pipeline answers with a fixed statement instead of generating.
func (uc *ResolveQueryUseCase) resolveEmpty(ctx context.Context, res *domain.Resolution) *domain.Resolution {
	res.Report = domain.ValidationReport{Accept: true}
	res.Answer = domain.Answer{
		Text:      noMatchAnswer,
		Citations: []string{},
		Language:  res.Language,
	}
	res.Answer.Text = uc.fromWorkingLanguage(ctx, res, res.Answer.Text)
	res.Evidence = []domain.RankedCandidate{}
	uc.transition(res, domain.StateAccepted, "empty_result", true)
	return res
}

// toWorkingLanguage translates the question into the pipeline's working
// language, failing closed to the original text.
func (uc *ResolveQueryUseCase) toWorkingLanguage(ctx context.Context, res *domain.Resolution, question string) string {
	if res.Language == uc.workingLanguage || uc.translator == nil {
		return question
	}
	translated, err := uc.translator.TranslateToWorking(ctx, question, res.Language)
	if err != nil || strings.TrimSpace(translated) == "" {
		slog.Warn("translation_to_working_failed", "language", res.Language, "error", err)
		res.Flags.TranslationSkipped = true
		return question
	}
	return translated
}

func (uc *ResolveQueryUseCase) fromWorkingLanguage(ctx context.Context, res *domain.Resolution, text string) string {
	if res.Language == uc.workingLanguage || uc.translator == nil || res.Flags.TranslationSkipped {
		return text
	}
	translated, err := uc.translator.TranslateFromWorking(ctx, text, res.Language)
	if err != nil || strings.TrimSpace(translated) == "" {
		slog.Warn("translation_from_working_failed", "language", res.Language, "error", err)
		res.Flags.TranslationSkipped = true
		return text
	}
	return translated
}

func (uc *ResolveQueryUseCase) transition(res *domain.Resolution, state domain.PipelineState, args ...any) {
	res.State = state
	fields := append([]any{"state", string(state), "query_language", res.Language}, args...)
	slog.Debug("pipeline_transition", fields...)
}

func citationIDs(evidence []domain.RankedCandidate) []string {
	out := make([]string, 0, len(evidence))
	for _, rc := range evidence {
		out = append(out, rc.ID)
	}
	return out
}
