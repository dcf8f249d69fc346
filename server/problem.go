package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inboxflow/inboxflow/engine/core"
	"github.com/inboxflow/inboxflow/engine/deploy"
	"github.com/inboxflow/inboxflow/engine/deploy/n8n"
	"github.com/inboxflow/inboxflow/engine/validate"
	"github.com/inboxflow/inboxflow/pkg/logger"
)

const problemContentType = "application/problem+json"

// Problem models an RFC 7807 error envelope for API responses.
type Problem struct {
	Type     string           `json:"type,omitempty"`
	Title    string           `json:"title"`
	Status   int              `json:"status"`
	Detail   string           `json:"detail,omitempty"`
	Instance string           `json:"instance,omitempty"`
	Code     string           `json:"code,omitempty"`
	Field    string           `json:"field,omitempty"`
	Report   *validate.Report `json:"report,omitempty"`
}

func newProblem(status int, code, detail string) *Problem {
	return &Problem{Type: "about:blank", Title: http.StatusText(status), Status: status, Code: code, Detail: detail}
}

// problemFor maps pipeline errors onto HTTP problems.
func problemFor(err error) *Problem {
	var cfgErr *core.ConfigurationError
	var rejected *deploy.RejectedError
	var apiErr *n8n.APIError
	switch {
	case errors.As(err, &cfgErr):
		p := newProblem(http.StatusBadRequest, "invalid_configuration", err.Error())
		p.Field = cfgErr.Field
		return p
	case errors.Is(err, core.ErrSubstitutionParse):
		return newProblem(http.StatusUnprocessableEntity, "substitution_failed", err.Error())
	case errors.As(err, &rejected):
		p := newProblem(http.StatusUnprocessableEntity, "validation_failed", err.Error())
		p.Report = &rejected.Report
		return p
	case errors.As(err, &apiErr):
		return newProblem(http.StatusBadGateway, "engine_error", err.Error())
	default:
		return newProblem(http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// RespondProblem writes p and aborts the chain.
func RespondProblem(c *gin.Context, p *Problem) {
	if p.Instance == "" {
		p.Instance = c.Request.URL.Path
	}
	fields := []any{"status", p.Status, "code", p.Code, "detail", p.Detail, "path", c.Request.URL.Path}
	log := logger.FromContext(c.Request.Context())
	if p.Status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Warn("request failed", fields...)
	}
	c.Header("Content-Type", problemContentType)
	c.AbortWithStatusJSON(p.Status, p)
}

// RespondError maps err to a problem document.
func RespondError(c *gin.Context, err error) {
	RespondProblem(c, problemFor(err))
}
