package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"netgof/adapters/stats/outlier"
	"netgof/app"
	"netgof/domain/quartet"
	"netgof/internal/errors"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleExpectedCF(c *gin.Context) {
	var body ExpectedCFRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.fail(c, errors.InvalidInputf("invalid request body: %v", err))
		return
	}
	net, err := body.Network.Build()
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := net.CheckForExpectedCF(); err != nil {
		s.fail(c, err)
		return
	}
	records, err := s.service.ExpectedCFs(c.Request.Context(), net, body.Rho, s.defaults.NProcs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ExpectedCFResponse{Taxa: net.Taxa(), Quartets: records})
}

func (s *Server) handleTest(c *gin.Context) {
	var body TestRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.fail(c, errors.InvalidInputf("invalid request body: %v", err))
		return
	}
	req, err := s.testRequest(&body)
	if err != nil {
		s.fail(c, err)
		return
	}
	req.RunID = c.GetString("request_id")

	res, err := s.service.Run(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// testRequest fills the options the body leaves out from the server
// defaults. Replicate files are never kept for HTTP requests.
func (s *Server) testRequest(body *TestRequestBody) (app.TestRequest, error) {
	net, err := body.Network.Build()
	if err != nil {
		return app.TestRequest{}, err
	}
	statistic := body.Statistic
	if statistic == "" {
		statistic = s.defaults.Statistic
	}
	kind, err := outlier.ParseKind(statistic)
	if err != nil {
		return app.TestRequest{}, err
	}
	correction := body.Correction
	if correction == "" {
		correction = s.defaults.Correction
	}
	corr, err := app.ParseCorrection(correction)
	if err != nil {
		return app.TestRequest{}, err
	}

	req := app.TestRequest{
		Network:    net,
		Records:    make([]quartet.Record, len(body.Quartets)),
		Statistic:  kind,
		Correction: corr,
		Seed:       s.defaults.Seed,
		NSim:       s.defaults.NSim,
		Rho:        s.defaults.Rho,
		NProcs:     s.defaults.NProcs,
		Dir:        s.defaults.TmpDir,

		OptimizeBranchLengths: body.OptimizeBranchLengths,
	}
	for i, q := range body.Quartets {
		req.Records[i] = quartet.Record{Taxa: q.Taxa, Observed: quartet.CF(q.CF), NGenes: q.NGenes}
	}
	if body.Seed != nil {
		req.Seed = *body.Seed
	}
	if body.NSim != nil {
		req.NSim = *body.NSim
	}
	if body.Rho != nil {
		req.Rho = *body.Rho
	}
	return req, nil
}

// fail maps the error code to an HTTP status.
func (s *Server) fail(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.CodeInvalidInput:
		status = http.StatusBadRequest
	case errors.CodeInvariantViolation:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		log.Errorf("[%s] %v", c.GetString("request_id"), err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
