package http

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"agenttrust/internal/domain"
	"agenttrust/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type verifyRequest struct {
	Document         domain.Document `json:"document"`
	PublicKeyPEM     string          `json:"public_key_pem,omitempty"`
	SkipVerification bool            `json:"skip_verification,omitempty"`
}

type registerAgentRequest struct {
	Name        string   `json:"name"`
	DocumentURL string   `json:"document_url"`
	Tags        []string `json:"tags,omitempty"`
}

type agentResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DocumentURL string   `json:"document_url"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

func (s *Server) handleVerify(c *gin.Context) {
	if !s.enforceRateLimit(c, "verify") {
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if len(req.Document) == 0 {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "document is required")
		return
	}

	opts := usecase.ValidateOptions{SkipVerification: req.SkipVerification}
	if req.PublicKeyPEM != "" {
		pem := req.PublicKeyPEM
		opts.PublicKeyResolver = func(ctx context.Context, url string) (string, error) {
			return pem, nil
		}
	}

	cacheKey := s.verifyCacheKey(req)
	if s.cache != nil && cacheKey != "" {
		if cached, ok, err := s.cache.Get(c.Request.Context(), cacheKey); err == nil && ok {
			c.JSON(http.StatusOK, gin.H{"report": cached, "cached": true})
			return
		}
	}

	report := s.validator.Validate(c.Request.Context(), req.Document, opts)
	if s.cache != nil && cacheKey != "" {
		_ = s.cache.Put(c.Request.Context(), cacheKey, report, s.cacheTTL)
	}

	payload := gin.H{"report": report}
	if s.policy != nil {
		decision, err := s.policy.Evaluate(c.Request.Context(), report)
		if err == nil {
			payload["policy"] = decision
		}
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) handleRegisterAgent(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.agents == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req registerAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.DocumentURL = strings.TrimSpace(req.DocumentURL)
	if req.Name == "" || req.DocumentURL == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "name and document_url are required")
		return
	}
	agent, err := s.agents.Create(c.Request.Context(), domain.Agent{
		Name:        req.Name,
		DocumentURL: req.DocumentURL,
		Tags:        req.Tags,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"agent": toAgentResponse(agent)})
}

func (s *Server) handleListAgents(c *gin.Context) {
	if s.agents == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	agents, err := s.agents.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]agentResponse, 0, len(agents))
	for _, agent := range agents {
		items = append(items, toAgentResponse(agent))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleGetAgent(c *gin.Context) {
	if s.agents == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	agent, err := s.agents.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agent": toAgentResponse(*agent)})
}

func (s *Server) handleGetAgentReport(c *gin.Context) {
	if s.reports == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	report, err := s.reports.LatestByAgent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	payload := gin.H{"report": report.Report, "created_at": report.CreatedAt}
	if report.Policy != nil {
		payload["policy"] = report.Policy
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) handleDeleteAgent(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.agents == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if err := s.agents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return false
	}
	key := c.GetHeader("X-Admin-Key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
		return false
	}
	return true
}

func toAgentResponse(agent domain.Agent) agentResponse {
	return agentResponse{
		ID:          agent.ID,
		Name:        agent.Name,
		DocumentURL: agent.DocumentURL,
		Tags:        agent.Tags,
		CreatedAt:   agent.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// verifyCacheKey derives a stable cache key from the whole request; stdlib
// json sorts map keys so the same document always hashes the same.
func (s *Server) verifyCacheKey(req verifyRequest) string {
	payload, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return "verify:" + hex.EncodeToString(sum[:])
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidDocument):
		status, code = http.StatusBadRequest, "INVALID_DOCUMENT"
	case errors.Is(err, domain.ErrAlreadyExists):
		status, code = http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	}
	c.JSON(status, errorResponse{Code: code, Message: err.Error()})
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}
