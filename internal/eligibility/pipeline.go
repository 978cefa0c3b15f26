// Package eligibility orchestrates rule evaluation for household
// profiles: rule selection, context building, missing-field detection,
// confidence scoring, result caching and batch evaluation across
// programs.
//
// The public surface is total: data and evaluation failures fold into
// the returned EvaluationResult (RuleID "error", NeedsReview) instead
// of propagating, so batch callers and the surrounding application
// always receive a determination per program.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eligoproject/eligo/internal/core/config"
	"github.com/eligoproject/eligo/internal/rules"
	"github.com/eligoproject/eligo/internal/store"
	"github.com/eligoproject/eligo/internal/types"
)

// Reason strings attached to evaluation results. Eligible results
// prefer the rule's authored explanation over the default.
const (
	ReasonEligible   = "Meets all eligibility criteria"
	ReasonIneligible = "Does not meet eligibility criteria"
	ReasonIncomplete = "Missing required information to determine eligibility"
	ReasonEvalFailed = "Eligibility could not be determined because the rule failed to evaluate"
)

// Options tunes one evaluation request.
type Options struct {
	// ForceReEvaluation skips the cache read. The fresh result still
	// supersedes older cache entries.
	ForceReEvaluation bool

	// Concurrency bounds parallel program evaluation in batch calls.
	// Zero or one keeps the sequential loop.
	Concurrency int
}

// Engine evaluates eligibility rules against household profiles.
type Engine struct {
	store    store.Store
	cfg      config.EngineConfig
	log      *zap.Logger
	registry *rules.Registry
}

// NewEngine creates an engine over the given store. A nil logger
// defaults to zap.NewNop.
func NewEngine(st store.Store, cfg config.EngineConfig, log *zap.Logger) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:    st,
		cfg:      cfg,
		log:      log,
		registry: rules.DomainRegistry(),
	}, nil
}

// EvaluateEligibility determines whether a profile qualifies for a
// program. Store and evaluator failures are folded into the returned
// result rather than surfaced as errors; the error return is reserved
// for future misuse classes and is nil today.
func (e *Engine) EvaluateEligibility(ctx context.Context, profileID types.ProfileID, programID types.ProgramID, opts Options) (*types.EvaluationResult, error) {
	start := time.Now()

	if e.cfg.CacheEnabled && !opts.ForceReEvaluation {
		cached, err := e.store.FindCachedResult(ctx, profileID, programID)
		if err == nil {
			result := cached.EvaluationResult
			result.ExecutionTimeMs = time.Since(start).Milliseconds()
			e.log.Debug("returning cached result",
				zap.String("profile_id", string(profileID)),
				zap.String("program_id", string(programID)),
				zap.Time("expires_at", cached.ExpiresAt))
			return &result, nil
		}
		if !errors.Is(err, types.ErrCacheMiss) {
			e.log.Warn("cache lookup failed",
				zap.String("profile_id", string(profileID)),
				zap.String("program_id", string(programID)),
				zap.Error(err))
		}
	}

	profile, err := e.store.FindProfile(ctx, profileID)
	if err != nil {
		return e.errorResult(profileID, programID, start, err), nil
	}
	program, err := e.store.FindProgram(ctx, programID)
	if err != nil {
		return e.errorResult(profileID, programID, start, err), nil
	}
	defs, err := e.store.FindActiveRulesByProgram(ctx, programID)
	if err != nil {
		return e.errorResult(profileID, programID, start, err), nil
	}

	now := start.UTC()
	def := selectRule(defs, now)
	if def == nil {
		return e.errorResult(profileID, programID, start,
			fmt.Errorf("program %s: %w", programID, types.ErrNoActiveRules)), nil
	}

	evalCtx := BuildContext(profile, now)
	missing := MissingFields(evalCtx, def.RequiredFields)

	evalOpts := rules.EvalOptions{
		Registry: e.registry,
		MaxDepth: e.cfg.MaxEvalDepth,
	}
	value, evalErr := rules.Evaluate(def.RuleLogic, evalCtx, evalOpts)

	result := &types.EvaluationResult{
		ProfileID:     profileID,
		ProgramID:     programID,
		RuleID:        def.ID,
		MissingFields: missing,
		Incomplete:    len(missing) > 0,
		EvaluatedAt:   now,
	}

	switch {
	case evalErr != nil:
		result.Confidence = types.ConfidenceFailed
		result.Reason = ReasonEvalFailed
		result.NeedsReview = true
		e.log.Warn("rule evaluation failed",
			zap.String("program_id", string(programID)),
			zap.String("rule_id", string(def.ID)),
			zap.Error(evalErr))
	case result.Incomplete:
		result.Eligible = rules.Truthy(value)
		result.Confidence = types.ConfidenceIncomplete
		result.Reason = ReasonIncomplete
		result.NeedsReview = true
	default:
		result.Eligible = rules.Truthy(value)
		result.Confidence = types.ConfidenceComplete
		if result.Eligible {
			result.Reason = def.Explanation
			if result.Reason == "" {
				result.Reason = ReasonEligible
			}
		} else {
			result.Reason = ReasonIneligible
		}
	}

	if evalErr == nil {
		result.CriteriaResults = deriveCriteria(def.RuleLogic, evalCtx, evalOpts)
	}
	result.ExecutionTimeMs = time.Since(start).Milliseconds()

	if e.cfg.CacheEnabled && evalErr == nil {
		entry := &types.CachedResult{
			EvaluationResult: *result,
			ExpiresAt:        now.Add(e.cfg.CacheTTL),
		}
		if err := e.store.InsertCachedResult(ctx, entry); err != nil {
			// A failed cache write never fails the evaluation
			e.log.Warn("caching result failed",
				zap.String("profile_id", string(profileID)),
				zap.String("program_id", string(programID)),
				zap.Error(err))
		}
	}

	e.log.Info("eligibility evaluated",
		zap.String("profile_id", string(profileID)),
		zap.String("program_id", string(programID)),
		zap.String("program", program.Name),
		zap.String("rule_id", string(def.ID)),
		zap.Bool("eligible", result.Eligible),
		zap.Int("confidence", result.Confidence),
		zap.Bool("incomplete", result.Incomplete),
		zap.Int64("execution_ms", result.ExecutionTimeMs))
	return result, nil
}

// EvaluateMultiplePrograms evaluates one profile against each program
// in order. A failure for one program becomes that program's error
// result and the batch continues. Options.Concurrency above one runs
// the same contract on a bounded pool; result order is preserved
// either way.
func (e *Engine) EvaluateMultiplePrograms(ctx context.Context, profileID types.ProfileID, programIDs []types.ProgramID, opts Options) (*types.BatchResult, error) {
	results := make([]types.EvaluationResult, len(programIDs))

	if opts.Concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)
		for i, programID := range programIDs {
			g.Go(func() error {
				results[i] = *e.evaluateOne(gctx, profileID, programID, opts)
				return nil
			})
		}
		// Workers never return errors; per-program failures are
		// already folded into their slots.
		_ = g.Wait()
	} else {
		for i, programID := range programIDs {
			results[i] = *e.evaluateOne(ctx, profileID, programID, opts)
		}
	}

	return &types.BatchResult{
		ProfileID:   profileID,
		Results:     results,
		Summary:     summarize(results),
		EvaluatedAt: time.Now().UTC(),
	}, nil
}

// EvaluateAllPrograms evaluates the profile against every active
// program.
func (e *Engine) EvaluateAllPrograms(ctx context.Context, profileID types.ProfileID, opts Options) (*types.BatchResult, error) {
	programs, err := e.store.FindActivePrograms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active programs: %w", err)
	}
	ids := make([]types.ProgramID, len(programs))
	for i, p := range programs {
		ids[i] = p.ID
	}
	return e.EvaluateMultiplePrograms(ctx, profileID, ids, opts)
}

// ClearCachedResults removes every cached result for a profile and
// reports how many were removed.
func (e *Engine) ClearCachedResults(ctx context.Context, profileID types.ProfileID) (int64, error) {
	return e.store.DeleteCachedResults(ctx, profileID)
}

// GetCachedResults returns a profile's cache entries, newest first,
// expired entries included.
func (e *Engine) GetCachedResults(ctx context.Context, profileID types.ProfileID) ([]types.CachedResult, error) {
	return e.store.ListCachedResults(ctx, profileID)
}

// evaluateOne is the batch step: any error surface left on
// EvaluateEligibility folds into an error result here so one program
// can never abort a batch.
func (e *Engine) evaluateOne(ctx context.Context, profileID types.ProfileID, programID types.ProgramID, opts Options) *types.EvaluationResult {
	result, err := e.EvaluateEligibility(ctx, profileID, programID, opts)
	if err != nil {
		return e.errorResult(profileID, programID, time.Now(), err)
	}
	return result
}

// errorResult folds a pipeline failure into the result shape so
// callers never special-case. RuleID "error" marks these results.
func (e *Engine) errorResult(profileID types.ProfileID, programID types.ProgramID, start time.Time, err error) *types.EvaluationResult {
	e.log.Warn("evaluation could not run",
		zap.String("profile_id", string(profileID)),
		zap.String("program_id", string(programID)),
		zap.Error(err))
	return &types.EvaluationResult{
		ProfileID:       profileID,
		ProgramID:       programID,
		RuleID:          types.ErrorRuleID,
		Confidence:      types.ConfidenceFailed,
		Reason:          fmt.Sprintf("evaluation failed: %v", err),
		NeedsReview:     true,
		EvaluatedAt:     start.UTC(),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
}

// selectRule picks the definition to evaluate: effective at now,
// highest priority, ties broken by store return order.
func selectRule(defs []types.RuleDefinition, now time.Time) *types.RuleDefinition {
	active := make([]types.RuleDefinition, 0, len(defs))
	for _, def := range defs {
		if def.RuleLogic == nil {
			continue
		}
		if def.ActiveAt(now) {
			active = append(active, def)
		}
	}
	if len(active) == 0 {
		return nil
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})
	return &active[0]
}

// summarize tallies batch outcomes. Each result counts toward exactly
// one of eligible, ineligible, incomplete or errors; needsReview
// overlaps the others.
func summarize(results []types.EvaluationResult) types.BatchSummary {
	summary := types.BatchSummary{Total: len(results)}
	for i := range results {
		r := &results[i]
		if r.NeedsReview {
			summary.NeedsReview++
		}
		switch {
		case r.RuleID == types.ErrorRuleID || r.Confidence == types.ConfidenceFailed:
			summary.Errors++
		case r.Incomplete:
			summary.Incomplete++
		case r.Eligible:
			summary.Eligible++
		default:
			summary.Ineligible++
		}
	}
	return summary
}
