// Package router wires the console's HTTP surface (spec.md/SPEC_FULL.md
// §6): POST /v1/sequences:run, POST /v1/sequences:batch, GET /v1/health.
// Each request builds its own Species and Model fresh — the core never
// keeps state between requests (spec.md §5/§6).
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lamyj/sycomore/core/epg/discrete"
	"github.com/lamyj/sycomore/core/epg/regular"
	"github.com/lamyj/sycomore/core/quantity"
	"github.com/lamyj/sycomore/core/quantity/units"
	"github.com/lamyj/sycomore/core/species"
	"github.com/lamyj/sycomore/shared/metrics"
	"github.com/lamyj/sycomore/shared/types"
	"github.com/lamyj/sycomore/shared/validation"
)

// maxConcurrentRuns bounds the worker pool :batch fans sequences across
// (SPEC_FULL.md §5: "one goroutine per Model", bounded).
const maxConcurrentRuns = 8

// SpeciesRequest is the wire shape of a tissue description.
type SpeciesRequest struct {
	T1Ms                float64 `json:"t1_ms" binding:"required"`
	T2Ms                float64 `json:"t2_ms" binding:"required"`
	DiffusivityUm2PerMs float64 `json:"diffusivity_um2_per_ms,omitempty"`
	DeltaOmegaHz        float64 `json:"delta_omega_hz,omitempty"`
	M0                  float64 `json:"m0,omitempty"`
}

// EventRequest is one step of a submitted sequence. Kind is one of:
// pulse, interval, relaxation, diffusion, shift, off_resonance
// (SPEC_FULL.md §6).
type EventRequest struct {
	Kind           string  `json:"kind" binding:"required"`
	AngleDeg       float64 `json:"angle_deg,omitempty"`
	PhaseDeg       float64 `json:"phase_deg,omitempty"`
	DurationMs     float64 `json:"duration_ms,omitempty"`
	GradientMTPerM float64 `json:"gradient_mt_per_m,omitempty"`
}

// SequenceRequest is the body of POST /v1/sequences:run.
type SequenceRequest struct {
	Variant   string         `json:"variant,omitempty"` // "discrete" (default) or "regular"
	Threshold float64        `json:"threshold,omitempty"` // discrete-only: state-pruning cutoff
	Species   SpeciesRequest `json:"species" binding:"required"`
	Events    []EventRequest `json:"events" binding:"required"`
}

// StepResult is one recorded point of the trace returned to the caller.
type StepResult struct {
	Index      int     `json:"index"`
	ElapsedMs  float64 `json:"elapsed_ms"`
	EchoReal   float64 `json:"echo_real"`
	EchoImag   float64 `json:"echo_imag"`
	Populated  int     `json:"populated_states"`
}

// SequenceResult is the response body of a single run.
type SequenceResult struct {
	Variant string       `json:"variant"`
	ModelID string       `json:"model_id"`
	Trace   []StepResult `json:"trace"`
}

// RegisterSequenceRoutes attaches the console's sequence-execution
// endpoints to the given group.
func RegisterSequenceRoutes(rg *gin.RouterGroup, log *logrus.Logger) {
	rg.POST("/sequences:run", runSequenceHandler(log))
	rg.POST("/sequences:batch", batchSequenceHandler(log))
}

func runSequenceHandler(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("request_id")
		var req SequenceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, types.New(types.ValidationFailed, "malformed request body", err.Error()), requestID)
			return
		}

		result, vErr := runSequence(req)
		if vErr != nil {
			log.WithFields(logrus.Fields{"code": vErr.Code, "op": "sequences:run", "request_id": requestID}).Error(vErr.Message)
			respondError(c, http.StatusBadRequest, vErr, requestID)
			return
		}

		c.JSON(http.StatusOK, types.NewAPIResponse(result, requestID))
	}
}

func batchSequenceHandler(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("request_id")
		var reqs []SequenceRequest
		if err := c.ShouldBindJSON(&reqs); err != nil {
			respondError(c, http.StatusBadRequest, types.New(types.ValidationFailed, "malformed request body", err.Error()), requestID)
			return
		}

		results := make([]*SequenceResult, len(reqs))
		g := new(errgroup.Group)
		g.SetLimit(maxConcurrentRuns)
		for i, req := range reqs {
			i, req := i, req
			g.Go(func() error {
				result, vErr := runSequence(req)
				if vErr != nil {
					return vErr
				}
				results[i] = result
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			vErr, ok := err.(*types.Error)
			if !ok {
				vErr = types.New(types.Internal, err.Error())
			}
			log.WithFields(logrus.Fields{"code": vErr.Code, "op": "sequences:batch", "request_id": requestID}).Error(vErr.Message)
			respondError(c, http.StatusBadRequest, vErr, requestID)
			return
		}

		c.JSON(http.StatusOK, types.NewAPIResponse(results, requestID))
	}
}

// runSequence validates and executes one sequence end to end, building
// a fresh Species and Model for this call only.
func runSequence(req SequenceRequest) (result *SequenceResult, vErr *types.Error) {
	variant := req.Variant
	if variant == "" {
		variant = "discrete"
	}
	start := time.Now()
	defer func() { metrics.SequenceRunDuration.WithLabelValues(variant).Observe(time.Since(start).Seconds()) }()

	if res := validation.ValidateSpeciesRequest(map[string]interface{}{
		"t1_ms": req.Species.T1Ms, "t2_ms": req.Species.T2Ms, "diffusivity_um2_per_ms": req.Species.DiffusivityUm2PerMs,
	}); !res.Valid {
		return nil, types.New(types.ValidationFailed, "invalid species parameters", res.Errors[0].Message)
	}
	for _, ev := range req.Events {
		if res := validation.ValidateSequenceStep(map[string]interface{}{
			"kind": ev.Kind, "angle_deg": ev.AngleDeg, "duration_ms": ev.DurationMs, "gradient_mt_per_m": ev.GradientMTPerM,
		}); !res.Valid {
			return nil, types.New(types.ValidationFailed, "invalid sequence step", res.Errors[0].Message)
		}
	}

	sp, err := buildSpecies(req.Species)
	if err != nil {
		return nil, asTypesError(err)
	}

	switch variant {
	case "regular":
		return runRegular(sp, req.Events)
	case "discrete":
		return runDiscrete(sp, req.Threshold, req.Events)
	default:
		return nil, types.New(types.ValidationFailed, "unknown variant", "must be one of: discrete, regular")
	}
}

func buildSpecies(r SpeciesRequest) (species.Species, error) {
	opts := []species.Option{}
	if r.DiffusivityUm2PerMs > 0 {
		opts = append(opts, species.WithDiffusivity(units.SquareMicroMetersPerMilliSecond(r.DiffusivityUm2PerMs)))
	}
	if r.DeltaOmegaHz != 0 {
		opts = append(opts, species.WithChemicalShift(units.RadiansPerSecond(r.DeltaOmegaHz)))
	}
	if r.M0 > 0 {
		opts = append(opts, species.WithM0(r.M0))
	}
	return species.New(units.MilliSeconds(r.T1Ms), units.MilliSeconds(r.T2Ms), opts...)
}

func runDiscrete(sp species.Species, threshold float64, events []EventRequest) (*SequenceResult, *types.Error) {
	var opts []discrete.Option
	if threshold > 0 {
		opts = append(opts, discrete.WithThreshold(threshold))
	}
	m, err := discrete.New(sp, opts...)
	if err != nil {
		return nil, asTypesError(err)
	}

	trace := make([]StepResult, 0, len(events))
	for i, ev := range events {
		switch ev.Kind {
		case "pulse":
			m.ApplyPulse(units.Degrees(ev.AngleDeg), units.Degrees(ev.PhaseDeg))
			metrics.PulsesApplied.WithLabelValues("discrete").Inc()
		case "interval":
			tau := units.MilliSeconds(ev.DurationMs)
			g := units.MilliTeslaPerMeter(ev.GradientMTPerM)
			before := m.Len()
			if err := m.ApplyTimeInterval(tau, g); err != nil {
				return nil, asTypesError(err)
			}
			if threshold > 0 && m.Len() < before {
				metrics.PruningEvents.WithLabelValues("discrete").Inc()
				metrics.PrunedStates.WithLabelValues("discrete").Add(float64(before - m.Len()))
			}
			metrics.IntervalsApplied.WithLabelValues("discrete").Inc()
			metrics.StateSetSize.WithLabelValues("discrete").Observe(float64(m.Len()))
		case "relaxation":
			m.Relaxation(units.MilliSeconds(ev.DurationMs))
			metrics.EventsApplied.WithLabelValues("discrete", "relaxation").Inc()
		case "diffusion":
			m.Diffusion(units.MilliSeconds(ev.DurationMs), units.MilliTeslaPerMeter(ev.GradientMTPerM))
			metrics.EventsApplied.WithLabelValues("discrete", "diffusion").Inc()
		case "off_resonance":
			m.OffResonance(units.MilliSeconds(ev.DurationMs))
			metrics.EventsApplied.WithLabelValues("discrete", "off_resonance").Inc()
		case "shift":
			m.Shift(units.MilliSeconds(ev.DurationMs), units.MilliTeslaPerMeter(ev.GradientMTPerM))
			metrics.EventsApplied.WithLabelValues("discrete", "shift").Inc()
		default:
			return nil, types.New(types.ValidationFailed, "unknown event kind", ev.Kind)
		}
		trace = append(trace, stepResult(i, m.Elapsed().Magnitude*1000, m.Echo(), m.Len()))
	}

	return &SequenceResult{Variant: "discrete", ModelID: m.ID(), Trace: trace}, nil
}

func runRegular(sp species.Species, events []EventRequest) (*SequenceResult, *types.Error) {
	m, err := regular.New(sp)
	if err != nil {
		return nil, asTypesError(err)
	}

	trace := make([]StepResult, 0, len(events))
	for i, ev := range events {
		switch ev.Kind {
		case "pulse":
			m.ApplyPulse(units.Degrees(ev.AngleDeg), units.Degrees(ev.PhaseDeg))
			metrics.PulsesApplied.WithLabelValues("regular").Inc()
		case "interval":
			tau := units.MilliSeconds(ev.DurationMs)
			g := units.MilliTeslaPerMeter(ev.GradientMTPerM)
			if err := applyRegularInterval(m, tau, g); err != nil {
				return nil, err
			}
			metrics.IntervalsApplied.WithLabelValues("regular").Inc()
			metrics.StateSetSize.WithLabelValues("regular").Observe(float64(m.Len()))
		case "relaxation":
			m.Relaxation(units.MilliSeconds(ev.DurationMs))
			metrics.EventsApplied.WithLabelValues("regular", "relaxation").Inc()
		case "diffusion":
			m.Diffusion(units.MilliSeconds(ev.DurationMs), units.MilliTeslaPerMeter(ev.GradientMTPerM))
			metrics.EventsApplied.WithLabelValues("regular", "diffusion").Inc()
		case "off_resonance":
			m.OffResonance(units.MilliSeconds(ev.DurationMs))
			metrics.EventsApplied.WithLabelValues("regular", "off_resonance").Inc()
		case "shift":
			if err := applyRegularShift(m, units.MilliSeconds(ev.DurationMs), units.MilliTeslaPerMeter(ev.GradientMTPerM)); err != nil {
				return nil, err
			}
			metrics.EventsApplied.WithLabelValues("regular", "shift").Inc()
		default:
			return nil, types.New(types.ValidationFailed, "unknown event kind", ev.Kind)
		}
		trace = append(trace, stepResult(i, m.Elapsed().Magnitude*1000, m.Echo(), m.Len()))
	}

	return &SequenceResult{Variant: "regular", ModelID: m.ID(), Trace: trace}, nil
}

// applyRegularInterval recovers the fatal panic a Regular EPG shift
// raises on a non-integer gradient area (spec.md §4.5/§4.9) and turns
// it into a normal validation error for the console's callers, who
// submit gradients in milliTesla/meter rather than in units of the
// model's unit_gradient_area and so can easily miss the grid.
func applyRegularInterval(m *regular.Model, tau, gradient quantity.Quantity) (vErr *types.Error) {
	defer func() {
		if r := recover(); r != nil {
			if te, ok := r.(*types.Error); ok {
				vErr = te
				return
			}
			vErr = types.New(types.Internal, "panic applying interval")
		}
	}()
	if err := m.ApplyTimeInterval(tau, gradient); err != nil {
		return asTypesError(err)
	}
	return nil
}

// applyRegularShift recovers the same fatal panic as applyRegularInterval,
// for a standalone "shift" event rather than a combined interval.
func applyRegularShift(m *regular.Model, tau, gradient quantity.Quantity) (vErr *types.Error) {
	defer func() {
		if r := recover(); r != nil {
			if te, ok := r.(*types.Error); ok {
				vErr = te
				return
			}
			vErr = types.New(types.Internal, "panic applying shift")
		}
	}()
	m.Shift(tau, gradient)
	return nil
}

func stepResult(index int, elapsedMs float64, echo complex128, populated int) StepResult {
	return StepResult{
		Index:     index,
		ElapsedMs: elapsedMs,
		EchoReal:  real(echo),
		EchoImag:  imag(echo),
		Populated: populated,
	}
}

func asTypesError(err error) *types.Error {
	if te, ok := err.(*types.Error); ok {
		return te
	}
	return types.New(types.Internal, err.Error())
}

func respondError(c *gin.Context, status int, err *types.Error, requestID string) {
	c.JSON(status, types.NewAPIError(err, requestID))
}

// RegisterHealthRoute attaches GET /health to the given (unauthenticated)
// group — call with r.Group("/v1") so the route lands at GET /v1/health.
func RegisterHealthRoute(rg *gin.RouterGroup, healthy func() map[string]bool) {
	rg.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": healthy()})
	})
}
