package risk

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/riskgate/riskgate/internal/common/errors"
	"github.com/riskgate/riskgate/internal/common/logger"
	"github.com/riskgate/riskgate/internal/metrics"
)

// Handlers exposes the decision pipeline over HTTP.
type Handlers struct {
	svc    *Service
	audit  *logger.AuditLogger
	logger *zap.Logger
}

// NewHandlers creates the HTTP handler set. audit may be nil to disable the
// audit trail.
func NewHandlers(svc *Service, audit *logger.AuditLogger, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		svc:    svc,
		audit:  audit,
		logger: log.With(zap.String("component", "risk_handlers")),
	}
}

// RegisterRoutes mounts the risk and step-up endpoints under /v1.
func (h *Handlers) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/v1")
	{
		v1.POST("/risk/assess", h.handleAssess)
		v1.POST("/risk/outcome", h.handleOutcome)
		v1.POST("/risk/incident", h.handleIncident)
		v1.GET("/risk/profile/:identity", h.handleGetProfile)
		v1.GET("/risk/stats/:identity", h.handleGetStats)

		v1.POST("/stepup/challenge", h.handleStepUpChallenge)
		v1.POST("/stepup/verify", h.handleStepUpVerify)
		v1.GET("/stepup/status/:sessionID", h.handleStepUpStatus)
		v1.DELETE("/stepup/:sessionID", h.handleStepUpEnd)
	}
}

func (h *Handlers) handleAssess(c *gin.Context) {
	var authCtx AuthenticationContext
	if err := c.ShouldBindJSON(&authCtx); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("Invalid request body").WithDetails(err.Error()))
		return
	}
	if authCtx.UserID == "" {
		apperrors.HandleError(c, apperrors.ValidationError("user_id is required"))
		return
	}

	assessment, err := h.svc.Assess(c.Request.Context(), &authCtx)
	if err != nil {
		h.logger.Error("Assessment failed",
			zap.String("user_id", authCtx.UserID), zap.Error(err))
		apperrors.HandleError(c, apperrors.Internal("Failed to assess risk", err))
		return
	}

	if h.audit != nil {
		h.audit.LogAssessment(authCtx.UserID, assessment.ID, authCtx.IPAddress,
			assessment.Score, string(assessment.Level),
			string(assessment.Recommendation.Action), assessment.TopFactors)
	}

	c.JSON(http.StatusOK, assessment)
}

type outcomeRequest struct {
	AuthenticationContext
	Success bool `json:"success"`
}

func (h *Handlers) handleOutcome(c *gin.Context) {
	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("Invalid request body").WithDetails(err.Error()))
		return
	}
	if req.UserID == "" {
		apperrors.HandleError(c, apperrors.ValidationError("user_id is required"))
		return
	}

	err := h.svc.RecordOutcome(c.Request.Context(), &req.AuthenticationContext, req.Success)
	if err != nil {
		if errors.Is(err, ErrLockTimeout) {
			c.Header("Retry-After", "1")
			apperrors.HandleError(c, apperrors.ProfileLockTimeout(req.UserID))
			return
		}
		h.logger.Error("Failed to record outcome",
			zap.String("user_id", req.UserID), zap.Error(err))
		apperrors.HandleError(c, apperrors.Internal("Failed to record outcome", err))
		return
	}

	if h.audit != nil {
		h.audit.LogOutcomeRecorded(req.UserID, req.IPAddress, req.Success)
	}

	c.JSON(http.StatusOK, gin.H{"recorded": true})
}

type incidentRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Reason string `json:"reason"`
}

func (h *Handlers) handleIncident(c *gin.Context) {
	var req incidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("Invalid request body").WithDetails(err.Error()))
		return
	}

	if err := h.svc.RecordIncident(c.Request.Context(), req.UserID); err != nil {
		if errors.Is(err, ErrLockTimeout) {
			c.Header("Retry-After", "1")
			apperrors.HandleError(c, apperrors.ProfileLockTimeout(req.UserID))
			return
		}
		h.logger.Error("Failed to record incident",
			zap.String("user_id", req.UserID), zap.Error(err))
		apperrors.HandleError(c, apperrors.Internal("Failed to record incident", err))
		return
	}

	if h.audit != nil {
		h.audit.LogIncidentRecorded(req.UserID, req.Reason)
	}

	c.JSON(http.StatusOK, gin.H{"recorded": true})
}

func (h *Handlers) handleGetProfile(c *gin.Context) {
	userID := c.Param("identity")

	profile, err := h.svc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		apperrors.HandleError(c, apperrors.Internal("Failed to load profile", err))
		return
	}
	if profile == nil {
		apperrors.HandleError(c, apperrors.NotFound("Profile").WithMetadata("user_id", userID))
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *Handlers) handleGetStats(c *gin.Context) {
	userID := c.Param("identity")

	stats, err := h.svc.GetIdentityStats(c.Request.Context(), userID)
	if err != nil {
		apperrors.HandleError(c, apperrors.Internal("Failed to compute stats", err))
		return
	}

	c.JSON(http.StatusOK, stats)
}

type stepUpChallengeRequest struct {
	SessionID         string `json:"session_id" binding:"required"`
	UserID            string `json:"user_id"`
	ResumeDestination string `json:"resume_destination"`
}

func (h *Handlers) handleStepUpChallenge(c *gin.Context) {
	var req stepUpChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("Invalid request body").WithDetails(err.Error()))
		return
	}

	session, err := h.svc.StepUp().RequestStepUp(c.Request.Context(), req.SessionID, req.ResumeDestination)
	if err != nil {
		apperrors.HandleError(c, apperrors.Internal("Failed to request step-up", err))
		return
	}

	metrics.RecordStepUpEvent("requested")
	if h.audit != nil {
		h.audit.LogStepUpRequested(req.UserID, req.SessionID)
	}

	c.JSON(http.StatusOK, session)
}

type stepUpVerifyRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	UserID    string `json:"user_id"`
}

func (h *Handlers) handleStepUpVerify(c *gin.Context) {
	var req stepUpVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("Invalid request body").WithDetails(err.Error()))
		return
	}

	session, token, err := h.svc.StepUp().CompleteStepUp(c.Request.Context(), req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrStepUpNotFound):
			apperrors.HandleError(c, apperrors.SessionNotFound(req.SessionID))
		case errors.Is(err, ErrStepUpNotPending):
			apperrors.HandleError(c, apperrors.ChallengeNotActive(req.SessionID))
		default:
			apperrors.HandleError(c, apperrors.Internal("Failed to verify step-up", err))
		}
		return
	}

	metrics.RecordStepUpEvent("verified")
	if h.audit != nil {
		h.audit.LogStepUpVerified(req.UserID, req.SessionID)
	}

	resp := gin.H{
		"session_id":         session.SessionID,
		"state":              session.State,
		"expires_at":         session.ExpiresAt,
		"resume_destination": session.ResumeDestination,
	}
	if token != "" {
		resp["elevation_token"] = token
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) handleStepUpStatus(c *gin.Context) {
	sessionID := c.Param("sessionID")

	session, err := h.svc.StepUp().Status(c.Request.Context(), sessionID)
	if err != nil {
		apperrors.HandleError(c, apperrors.Internal("Failed to load step-up status", err))
		return
	}

	elevated := session.State == StepUpVerified
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.SessionID,
		"state":      session.State,
		"elevated":   elevated,
		"expires_at": session.ExpiresAt,
	})
}

func (h *Handlers) handleStepUpEnd(c *gin.Context) {
	sessionID := c.Param("sessionID")

	if err := h.svc.StepUp().EndSession(c.Request.Context(), sessionID); err != nil {
		apperrors.HandleError(c, apperrors.Internal("Failed to end step-up session", err))
		return
	}

	metrics.RecordStepUpEvent("ended")
	if h.audit != nil {
		h.audit.LogStepUpEnded(sessionID)
	}

	c.JSON(http.StatusOK, gin.H{"ended": true})
}
