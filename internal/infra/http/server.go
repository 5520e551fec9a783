package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"agenttrust/internal/config"
	"agenttrust/internal/domain"
	"agenttrust/internal/infra/cachemem"
	"agenttrust/internal/infra/crypto"
	"agenttrust/internal/infra/db"
	"agenttrust/internal/infra/keyfetch"
	"agenttrust/internal/infra/policyopa"
	"agenttrust/internal/infra/ratelimit"
	"agenttrust/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	validator *usecase.DocumentValidator
	agents    usecase.AgentRepository
	reports   usecase.ReportRepository
	cache     usecase.ReportCache
	cacheTTL  time.Duration
	policy    usecase.PolicyGate

	adminAPIKey string

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r}
	s.initDeps()
	s.routes()
	return s
}

// ServerDeps lets tests assemble a server around fakes.
type ServerDeps struct {
	Validator   *usecase.DocumentValidator
	Agents      usecase.AgentRepository
	Reports     usecase.ReportRepository
	Cache       usecase.ReportCache
	CacheTTL    time.Duration
	Policy      usecase.PolicyGate
	AdminAPIKey string
	RateLimiter domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		r:           r,
		validator:   deps.Validator,
		agents:      deps.Agents,
		reports:     deps.Reports,
		cache:       deps.Cache,
		cacheTTL:    deps.CacheTTL,
		policy:      deps.Policy,
		adminAPIKey: deps.AdminAPIKey,
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() {
	s.adminAPIKey = s.cfg.AdminAPIKey

	cryptoSvc := crypto.NewService()
	fetcher := keyfetch.New(&http.Client{}, s.cfg.KeyFetchTimeout())
	s.validator = &usecase.DocumentValidator{
		Verifier:   &usecase.DocumentVerifier{Crypto: cryptoSvc, Keys: fetcher},
		Structural: &usecase.StructuralValidator{},
	}

	if s.store != nil && s.store.DB != nil {
		s.agents = db.NewAgentRepository(s.store.DB)
		s.reports = db.NewReportRepository(s.store.DB)
	}

	s.cache = cachemem.New()
	s.cacheTTL = s.cfg.CacheTTL()

	if s.cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath, s.cfg.PolicyBundleID)
		if err != nil {
			log.Printf("policy bundle %s not loaded: %v", s.cfg.PolicyBundlePath, err)
		} else {
			s.policy = engine
		}
	}

	s.initRateLimit(nil)
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryConfig{MaxKeys: s.cfg.RateLimitMaxKeys})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/verify", s.handleVerify)

		v1.GET("/agents", s.handleListAgents)
		v1.GET("/agents/:id", s.handleGetAgent)
		v1.GET("/agents/:id/report", s.handleGetAgentReport)
		v1.POST("/agents", s.handleRegisterAgent)
		v1.DELETE("/agents/:id", s.handleDeleteAgent)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.r
}
