// Package orchestrator implements the Session Orchestrator: it drives one
// verification request end-to-end, composing the Location Verifier,
// Environment Analyzer, VPN Aggregator, Fingerprint Builder, vector store,
// and Risk Evaluator into a single Verdict.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/geosentry/geosentry/pkg/environment"
	"github.com/geosentry/geosentry/pkg/errs"
	"github.com/geosentry/geosentry/pkg/fingerprint"
	"github.com/geosentry/geosentry/pkg/location"
	"github.com/geosentry/geosentry/pkg/models"
	"github.com/geosentry/geosentry/pkg/risk"
	"github.com/geosentry/geosentry/pkg/threshold"
	"github.com/geosentry/geosentry/pkg/vectorstore"
	"github.com/geosentry/geosentry/pkg/vpn"
)

// nearestNeighbourCount is K in spec.md §4.H step (5).
const nearestNeighbourCount = 5

// Orchestrator drives one verification request. It holds no per-request
// state between calls to Verify — every field here is a shared, long-lived
// collaborator safe for concurrent use.
type Orchestrator struct {
	registry *threshold.Registry

	locationVerifier    *location.Verifier
	environmentAnalyzer *environment.Analyzer
	vpnAggregator       *vpn.Aggregator

	embedder Embedder
	store    vectorstore.Store

	riskEvaluator *risk.Evaluator

	validate *validator.Validate
	logger   *logrus.Logger
}

// Embedder is the subset of vectorstore.Embedder the orchestrator depends
// on, named locally so callers can substitute a test double without
// importing vectorstore's HTTP client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// New builds an Orchestrator from its component collaborators. embedder and
// store may be nil to disable the best-effort pattern-analysis step
// entirely (step 5 is then recorded as a diagnostic on every verdict).
func New(
	registry *threshold.Registry,
	locationVerifier *location.Verifier,
	environmentAnalyzer *environment.Analyzer,
	vpnAggregator *vpn.Aggregator,
	embedder Embedder,
	store vectorstore.Store,
	riskEvaluator *risk.Evaluator,
	logger *logrus.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		registry:            registry,
		locationVerifier:    locationVerifier,
		environmentAnalyzer: environmentAnalyzer,
		vpnAggregator:       vpnAggregator,
		embedder:            embedder,
		store:               store,
		riskEvaluator:       riskEvaluator,
		validate:            validator.New(),
		logger:              logger,
	}
}

// Verify implements spec.md §4.H's sequence end to end.
func (o *Orchestrator) Verify(
	ctx context.Context,
	loc models.LocationSignal,
	env models.EnvironmentSignal,
	net models.NetworkSignal,
	useFullRiskPath bool,
) (models.Verdict, error) {
	// Step (1): validate inputs. Only this step fails the request.
	if err := o.validateInputs(loc, env, net); err != nil {
		return models.Verdict{}, err
	}

	// Step (2): Environment Analyzer and {Location Verifier <- VPN
	// Aggregator} run concurrently; both must complete before proceeding.
	var envResult environment.Result
	var locResult location.Result
	var vpnResult models.VPNAggregateResult

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		envResult = o.environmentAnalyzer.Analyze(env)
	}()

	go func() {
		defer wg.Done()
		vpnResult = o.vpnAggregator.Detect(ctx, net.ClientIP)
		locResult = o.locationVerifier.Verify(loc, vpnResult, net.ClientIP)
	}()

	wg.Wait()

	// Step (3)+(4): assemble the session record and build the fingerprint.
	record := fingerprint.SessionRecord{
		ID:          uuid.NewString(),
		Location:    loc,
		LocationOut: locResult,
		Environment: env,
		EnvironmentOut: envResult,
		Network:     net,
		VPN:         vpnResult,
	}
	record.Timestamp = timestampFromMillis(loc.TimestampMs)
	fp := fingerprint.Build(record)

	var diagnostics []string

	// Step (5): best-effort embed, upsert, and neighbour search.
	neighbours := o.patternAnalysis(ctx, fp, &diagnostics)

	// Step (6): risk evaluation, lite by default.
	var riskEval models.RiskEvaluation
	if o.riskEvaluator != nil {
		if useFullRiskPath {
			riskEval = o.riskEvaluator.Full(ctx, fp, neighbours)
		} else {
			riskEval = o.riskEvaluator.Lite(ctx, fp, neighbours)
		}
	} else {
		riskEval = models.RiskEvaluation{Tier: models.RiskUnknown, ProcessingTime: models.ProcessingError}
		diagnostics = append(diagnostics, "risk evaluator not configured")
	}

	// Step (7): assemble the verdict.
	return models.Verdict{
		Status:           locResult.Status,
		LocationScore:    locResult.Score,
		EnvironmentScore: envResult.Score,
		EnvironmentKind:  envResult.Kind,
		LocationFlags:    locResult.Flags,
		EnvironmentFlags: envResult.Flags,
		VPN:              &vpnResult,
		Fingerprint:      &fp,
		Risk:             &riskEval,
		Diagnostics:      diagnostics,
	}, nil
}

// CheckIP exposes the VPN Aggregator directly, per spec.md §6's
// checkIP(ip) contract.
func (o *Orchestrator) CheckIP(ctx context.Context, ip string) models.VPNAggregateResult {
	return o.vpnAggregator.Detect(ctx, ip)
}

func (o *Orchestrator) validateInputs(loc models.LocationSignal, env models.EnvironmentSignal, net models.NetworkSignal) error {
	if (loc.Latitude == nil) != (loc.Longitude == nil) {
		return errs.InvalidInput("latitude and longitude must both be present or both be absent")
	}

	if err := o.validate.Struct(loc); err != nil {
		return errs.Wrap(err, errs.InputInvalid, "invalid location signal")
	}
	if err := o.validate.Struct(env); err != nil {
		return errs.Wrap(err, errs.InputInvalid, "invalid environment signal")
	}
	if err := o.validate.Struct(net); err != nil {
		return errs.Wrap(err, errs.InputInvalid, "invalid network signal")
	}
	return nil
}

func (o *Orchestrator) patternAnalysis(ctx context.Context, fp models.SessionFingerprint, diagnostics *[]string) []models.ScoredPoint {
	if o.embedder == nil || o.store == nil {
		*diagnostics = append(*diagnostics, "vector store not configured, pattern analysis skipped")
		return nil
	}

	text := fingerprint.TextProjection(fp)
	vector, err := o.embedder.Embed(ctx, text)
	if err != nil {
		o.logger.WithError(err).Warn("embedding call failed")
		*diagnostics = append(*diagnostics, "embedding unavailable: "+err.Error())
		return nil
	}

	if err := o.store.EnsureCollection(ctx); err != nil {
		o.logger.WithError(err).Warn("vector store collection creation failed")
		*diagnostics = append(*diagnostics, "vector store unavailable: "+err.Error())
		return nil
	}

	point := models.VectorPoint{ID: fp.ID, Vector: vector, Payload: fp}
	if err := o.store.Upsert(ctx, point); err != nil {
		o.logger.WithError(err).Warn("vector store upsert failed")
		*diagnostics = append(*diagnostics, "vector store upsert unavailable: "+err.Error())
	}

	neighbours, searchErr := o.store.Search(ctx, vector, nearestNeighbourCount)
	if searchErr != nil {
		o.logger.WithError(searchErr).Warn("vector store search failed")
		*diagnostics = append(*diagnostics, "vector store search unavailable: "+searchErr.Error())
	}

	return neighbours
}

func timestampFromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Now()
	}
	return time.UnixMilli(ms)
}
