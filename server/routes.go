package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inboxflow/inboxflow/engine/deploy"
	"github.com/inboxflow/inboxflow/engine/infra/monitoring"
)

// RegisterRoutes mounts the API handlers on group.
func RegisterRoutes(group *gin.RouterGroup, components *Components) {
	group.GET("/healthz", healthHandler())
	workflows := group.Group("/workflows")
	workflows.POST("/preview", previewHandler(components.Deployer))
	workflows.POST("/deploy", deployHandler(components.Deployer))
	group.POST("/templates/invalidate", invalidateHandler(components))
}

func healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		version, commit, _ := monitoring.BuildInfo()
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
			"commit":  commit,
		})
	}
}

func bindRequest(c *gin.Context) (deploy.Request, bool) {
	var req deploy.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondProblem(c, newProblem(http.StatusBadRequest, "invalid_request", err.Error()))
		return req, false
	}
	return req, true
}

// previewHandler runs the pipeline and returns the workflow without
// deploying it.
//
//	POST /api/v0/workflows/preview {provider, business}
func previewHandler(svc *deploy.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindRequest(c)
		if !ok {
			return
		}
		res, err := svc.Preview(c.Request.Context(), req)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.PureJSON(http.StatusOK, res)
	}
}

// deployHandler creates or updates the workflow in the engine.
//
//	POST /api/v0/workflows/deploy {provider, business, workflow_id, activate, allow_invalid}
func deployHandler(svc *deploy.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := bindRequest(c)
		if !ok {
			return
		}
		res, err := svc.Deploy(c.Request.Context(), req)
		if err != nil {
			RespondError(c, err)
			return
		}
		status := http.StatusCreated
		if req.WorkflowID != "" {
			status = http.StatusOK
		}
		c.PureJSON(status, res)
	}
}

func invalidateHandler(components *Components) gin.HandlerFunc {
	return func(c *gin.Context) {
		components.Templates.InvalidateCache(c.Request.Context())
		c.Status(http.StatusNoContent)
	}
}
