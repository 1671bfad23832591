// Package branchlengths fits the edge lengths and inheritance
// probabilities of a fixed network topology to observed CFs by maximizing
// the quartet composite likelihood
//
//	sum over sets of ngenes * sum_k observed_k * log(expected_k)
//
// with gonum's Nelder-Mead simplex. Lengths are searched on a log scale and
// the γ of a hybrid node with two parents on a logit scale.
package branchlengths

import (
	"context"
	"math"

	"gonum.org/v1/gonum/optimize"

	"netgof/domain/network"
	"netgof/domain/quartet"
	"netgof/internal/errors"
	"netgof/internal/expectedcf"
	"netgof/internal/logging"
)

var log = logging.Get("branchlengths")

const (
	minLength = 1e-6
	maxLength = 20
	minGamma  = 1e-4
	// floor on an expected CF inside the log
	minCF = 1e-12
)

// Optimizer implements ports.BranchLengthOptimizer.
type Optimizer struct {
	maxEvals int
}

// NewOptimizer bounds the number of likelihood evaluations by maxEvals; 0
// picks 200 per free parameter.
func NewOptimizer(maxEvals int) *Optimizer {
	return &Optimizer{maxEvals: maxEvals}
}

// parameter is one free value of the network.
type parameter struct {
	edge  int
	other int // second parent edge of a γ, -1 for a length
}

// Optimize returns a refitted copy of net. Edges into leaves do not affect
// CFs and keep their lengths, except that a missing one is set to 0.
func (o *Optimizer) Optimize(ctx context.Context, net *network.Network, records []quartet.Record, rho float64) (*network.Network, error) {
	if err := expectedcf.CheckCorrelation(rho); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.InvalidInput("no observed four-taxon set to fit")
	}
	fit := net.Clone()
	params, x0 := parameters(fit)
	if err := fit.CheckForExpectedCF(); err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return fit, nil
	}

	work := append([]quartet.Record(nil), records...)
	var evalErr error
	negLogLik := func(x []float64) float64 {
		if evalErr != nil {
			return math.Inf(1)
		}
		if err := ctx.Err(); err != nil {
			evalErr = err
			return math.Inf(1)
		}
		apply(fit, params, x)
		if err := expectedcf.Fill(ctx, fit, work, rho, 1); err != nil {
			evalErr = err
			return math.Inf(1)
		}
		return -logLikelihood(work)
	}

	maxEvals := o.maxEvals
	if maxEvals <= 0 {
		maxEvals = 200 * len(params)
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Converger:       &optimize.FunctionConverge{Absolute: 1e-9, Iterations: 20 * len(params)},
	}
	start := -negLogLik(x0)
	if evalErr != nil {
		return nil, evalErr
	}
	res, err := optimize.Minimize(optimize.Problem{Func: negLogLik}, x0, settings, &optimize.NelderMead{})
	if evalErr != nil {
		return nil, evalErr
	}
	if err != nil {
		return nil, errors.Wrap(err, "likelihood optimization failed")
	}
	apply(fit, params, res.X)
	log.Infof("fitted %d parameters in %d evaluations: log-likelihood %.4f -> %.4f (%v)",
		len(params), res.Stats.FuncEvaluations, start, -res.F, res.Status)
	return fit, nil
}

// parameters lists the free values of net with their starting points, and
// fills in missing lengths and γ's.
func parameters(net *network.Network) ([]parameter, []float64) {
	var params []parameter
	var x0 []float64
	for _, e := range net.Edges() {
		if net.Node(e.Child).Leaf {
			if math.IsNaN(e.Length) {
				e.Length = 0
			}
			continue
		}
		if math.IsNaN(e.Length) {
			e.Length = 1
		}
		params = append(params, parameter{edge: e.ID, other: -1})
		x0 = append(x0, math.Log(clamp(e.Length, minLength, maxLength)))
	}
	for _, h := range net.Hybrids() {
		pe := net.ParentEdges(h)
		if len(pe) != 2 {
			continue
		}
		g := net.Edge(pe[0]).Gamma
		if math.IsNaN(g) {
			g = 0.5
		}
		g = clamp(g, minGamma, 1-minGamma)
		params = append(params, parameter{edge: pe[0], other: pe[1]})
		x0 = append(x0, math.Log(g/(1-g)))
	}
	apply(net, params, x0)
	return params, x0
}

func apply(net *network.Network, params []parameter, x []float64) {
	for i, p := range params {
		if p.other < 0 {
			net.Edge(p.edge).Length = clamp(math.Exp(x[i]), minLength, maxLength)
			continue
		}
		g := clamp(1/(1+math.Exp(-x[i])), minGamma, 1-minGamma)
		net.Edge(p.edge).Gamma = g
		net.Edge(p.other).Gamma = 1 - g
	}
}

func logLikelihood(records []quartet.Record) float64 {
	ll := 0.0
	for i := range records {
		r := &records[i]
		for k := 0; k < 3; k++ {
			if r.Observed[k] > 0 {
				ll += r.NGenes * r.Observed[k] * math.Log(math.Max(r.Expected[k], minCF))
			}
		}
	}
	return ll
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
