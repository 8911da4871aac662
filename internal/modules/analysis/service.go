// Package analysis wires the price provider, estimator, sampler, optimizer and
// reporter into one run of the portfolio pipeline.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/aristath/markowitz/internal/modules/optimization"
	"github.com/aristath/markowitz/internal/modules/reporting"
	"github.com/aristath/markowitz/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Stage names a step of the pipeline
type Stage string

const (
	StageFetch        Stage = "fetch"
	StageEstimation   Stage = "estimation"
	StageSampling     Stage = "sampling"
	StageOptimization Stage = "optimization"
	StageReporting    Stage = "reporting"
)

// StageError tags a failure with the stage it happened in
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage of a StageError anywhere in err's chain
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// Reporter consumes the outcome of a run
type Reporter interface {
	Report(ctx context.Context, in reporting.Input) error
}

// Config holds the parameters of a run
type Config struct {
	Symbols              []string
	Start                time.Time
	End                  time.Time
	TradingDays          int
	NumSamples           int
	CorrelationThreshold float64
}

// Result is the outcome of a successful run
type Result struct {
	RunID        string
	Model        *optimization.RiskModel
	Samples      []optimization.SampledPortfolio
	Optimization *optimization.OptimizationResult
	OptimalStats optimization.PortfolioStats
	Correlations []optimization.CorrelationPair
}

// Service runs the pipeline prices → return model → (samples, optimizer) → report
type Service struct {
	cfg       Config
	provider  domain.PriceHistoryProvider
	builder   *optimization.RiskModelBuilder
	sampler   *optimization.Sampler
	optimizer *optimization.MVOptimizer
	reporter  Reporter
	log       zerolog.Logger
}

// NewService creates a new analysis service
func NewService(
	cfg Config,
	provider domain.PriceHistoryProvider,
	sampler *optimization.Sampler,
	optimizer *optimization.MVOptimizer,
	reporter Reporter,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:       cfg,
		provider:  provider,
		builder:   optimization.NewRiskModelBuilder(cfg.TradingDays, log),
		sampler:   sampler,
		optimizer: optimizer,
		reporter:  reporter,
		log:       log.With().Str("component", "analysis").Logger(),
	}
}

// Run executes one pass of the pipeline. Failures are returned as *StageError
// and keep the domain error kinds reachable through errors.Is.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()
	log := s.log.With().Str("run_id", runID).Logger()
	total := utils.NewTimer("analysis_run", log)

	log.Info().
		Strs("symbols", s.cfg.Symbols).
		Time("start", s.cfg.Start).
		Time("end", s.cfg.End).
		Int("samples", s.cfg.NumSamples).
		Msg("Starting portfolio analysis")

	timer := utils.NewTimer(string(StageFetch), log)
	prices, err := s.provider.Fetch(ctx, s.cfg.Symbols, s.cfg.Start, s.cfg.End)
	if err == nil && prices.Empty() {
		err = fmt.Errorf("%w: provider returned an empty table", domain.ErrNoData)
	}
	if err != nil {
		return nil, s.fail(log, StageFetch, err)
	}
	timer.Stop()

	timer = utils.NewTimer(string(StageEstimation), log)
	model, err := s.builder.Build(prices)
	if err != nil {
		return nil, s.fail(log, StageEstimation, err)
	}
	timer.Stop()

	n := model.NumAssets()

	timer = utils.NewTimer(string(StageSampling), log)
	samples, err := s.sampler.Sample(model.ExpectedReturns, model.Covariance, n, s.cfg.NumSamples)
	if err != nil {
		return nil, s.fail(log, StageSampling, err)
	}
	timer.Stop()

	timer = utils.NewTimer(string(StageOptimization), log)
	initial, err := optimization.StartingWeights(optimization.WeightsOf(samples), n)
	if err != nil {
		return nil, s.fail(log, StageOptimization, err)
	}
	opt, err := s.optimizer.Optimize(model.ExpectedReturns, model.Covariance, initial, n)
	if err != nil {
		return nil, s.fail(log, StageOptimization, err)
	}
	stats, err := optimization.PortfolioStatistics(opt.Weights, model.ExpectedReturns, model.Covariance)
	if err != nil {
		return nil, s.fail(log, StageOptimization, err)
	}
	timer.Stop()

	result := &Result{
		RunID:        runID,
		Model:        model,
		Samples:      samples,
		Optimization: opt,
		OptimalStats: stats,
		Correlations: optimization.HighCorrelations(model.Covariance, model.Symbols, s.cfg.CorrelationThreshold),
	}

	timer = utils.NewTimer(string(StageReporting), log)
	err = s.reporter.Report(ctx, reporting.Input{
		RunID:        runID,
		Symbols:      model.Symbols,
		Prices:       prices,
		Optimal:      opt.Weights,
		OptimalStats: stats,
		Samples:      samples,
		Correlations: result.Correlations,
	})
	if err != nil {
		return nil, s.fail(log, StageReporting, err)
	}
	timer.Stop()

	log.Info().
		Str("method", opt.Method).
		Int("iterations", opt.Iterations).
		Float64("expected_return", stats.ExpectedReturn).
		Float64("volatility", stats.Volatility).
		Float64("sharpe_ratio", stats.SharpeRatio).
		Dur("elapsed", total.Stop()).
		Msg("Portfolio analysis completed")

	if snap, err := utils.TakeSystemSnapshot(); err == nil {
		snap.Log(log)
	}

	return result, nil
}

func (s *Service) fail(log zerolog.Logger, stage Stage, err error) error {
	log.Error().Err(err).Str("stage", string(stage)).Msg("Portfolio analysis failed")
	return &StageError{Stage: stage, Err: err}
}

// Job adapts the service to the scheduler's job interface
type Job struct {
	service *Service
	ctx     context.Context
}

// NewJob creates a scheduled analysis job bound to ctx
func NewJob(ctx context.Context, service *Service) *Job {
	return &Job{service: service, ctx: ctx}
}

// Run executes one analysis
func (j *Job) Run() error {
	_, err := j.service.Run(j.ctx)
	return err
}

// Name returns the job name for scheduling and logging.
func (j *Job) Name() string {
	return "portfolio_analysis"
}
