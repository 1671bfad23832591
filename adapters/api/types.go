package api

import (
	"netgof/adapters/netfile"
	"netgof/domain/quartet"
)

// ExpectedCFRequest asks for the expected CFs of every four-taxon set of a
// network.
type ExpectedCFRequest struct {
	Network netfile.Document `json:"network"`
	Rho     float64          `json:"rho" binding:"gte=0,lte=1"`
}

// ExpectedCFResponse lists the sets in rank order over the sorted taxa.
type ExpectedCFResponse struct {
	Taxa     []string         `json:"taxa"`
	Quartets []quartet.Record `json:"quartets"`
}

// QuartetInput is one observed four-taxon set. CF follows the slot order
// of Taxa: t1t2|t3t4, t1t3|t2t4, t1t4|t2t3.
type QuartetInput struct {
	Taxa   [4]string  `json:"taxa"`
	CF     [3]float64 `json:"cf"`
	NGenes float64    `json:"ngenes" binding:"gt=0"`
}

// TestRequestBody runs a goodness-of-fit test. Unset options take the
// server defaults.
type TestRequestBody struct {
	Network    netfile.Document `json:"network"`
	Quartets   []QuartetInput   `json:"quartets" binding:"required,min=1,dive"`
	Statistic  string           `json:"statistic,omitempty"`
	Correction string           `json:"correction,omitempty"`
	Seed       *int64           `json:"seed,omitempty"`
	NSim       *int             `json:"nsim,omitempty" binding:"omitempty,gte=1,lte=100000"`
	Rho        *float64         `json:"rho,omitempty" binding:"omitempty,gte=0,lte=1"`

	OptimizeBranchLengths bool `json:"optimize_branch_lengths,omitempty"`
}

// ErrorResponse carries the error code and message of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
