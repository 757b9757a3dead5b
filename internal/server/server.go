package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/bizadmin/internal/apikey"
	apikeydomain "github.com/smallbiznis/bizadmin/internal/apikey/domain"
	"github.com/smallbiznis/bizadmin/internal/authorization"
	"github.com/smallbiznis/bizadmin/internal/cache"
	"github.com/smallbiznis/bizadmin/internal/client"
	clientdomain "github.com/smallbiznis/bizadmin/internal/client/domain"
	"github.com/smallbiznis/bizadmin/internal/companysettings"
	companydomain "github.com/smallbiznis/bizadmin/internal/companysettings/domain"
	"github.com/smallbiznis/bizadmin/internal/config"
	"github.com/smallbiznis/bizadmin/internal/dashboard"
	dashboarddomain "github.com/smallbiznis/bizadmin/internal/dashboard/domain"
	"github.com/smallbiznis/bizadmin/internal/invoice"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
	obsmiddleware "github.com/smallbiznis/bizadmin/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/bizadmin/internal/observability/metrics"
	obstracing "github.com/smallbiznis/bizadmin/internal/observability/tracing"
	"github.com/smallbiznis/bizadmin/internal/project"
	projectdomain "github.com/smallbiznis/bizadmin/internal/project/domain"
	"github.com/smallbiznis/bizadmin/internal/providers"
	"github.com/smallbiznis/bizadmin/internal/ratelimit"
	"github.com/smallbiznis/bizadmin/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	apikey.Module,
	cache.Module,
	ratelimit.Module,
	providers.Module,
	client.Module,
	project.Module,
	companysettings.Module,
	invoice.Module,
	dashboard.Module,
	seed.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(debug bool, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           debug,
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(cfg.IsDevelopment(), httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	apiKeySvc       apikeydomain.Service
	authzSvc        authorization.Service
	clientSvc       clientdomain.Service
	projectSvc      projectdomain.Service
	settingsSvc     companydomain.Service
	invoiceSvc      invoicedomain.Service
	documentSvc     invoicedomain.DocumentService
	dashboardSvc    dashboarddomain.Service
	seedSvc         seed.Service
	documentLimiter *ratelimit.DocumentLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	APIKeySvc       apikeydomain.Service
	AuthzSvc        authorization.Service
	ClientSvc       clientdomain.Service
	ProjectSvc      projectdomain.Service
	SettingsSvc     companydomain.Service
	InvoiceSvc      invoicedomain.Service
	DocumentSvc     invoicedomain.DocumentService
	DashboardSvc    dashboarddomain.Service
	SeedSvc         seed.Service
	DocumentLimiter *ratelimit.DocumentLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		apiKeySvc:       p.APIKeySvc,
		authzSvc:        p.AuthzSvc,
		clientSvc:       p.ClientSvc,
		projectSvc:      p.ProjectSvc,
		settingsSvc:     p.SettingsSvc,
		invoiceSvc:      p.InvoiceSvc,
		documentSvc:     p.DocumentSvc,
		dashboardSvc:    p.DashboardSvc,
		seedSvc:         p.SeedSvc,
		documentLimiter: p.DocumentLimiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.APIKeyRequired())

	// -------- Clients --------
	api.GET("/clients", s.authorize(authorization.ObjectClient, authorization.ActionView), s.ListClients)
	api.POST("/clients", s.authorize(authorization.ObjectClient, authorization.ActionCreate), s.CreateClient)
	api.GET("/clients/:id", s.authorize(authorization.ObjectClient, authorization.ActionView), s.GetClientByID)
	api.PUT("/clients/:id", s.authorize(authorization.ObjectClient, authorization.ActionUpdate), s.UpdateClient)
	api.DELETE("/clients/:id", s.authorize(authorization.ObjectClient, authorization.ActionDelete), s.DeleteClient)

	// -------- Projects --------
	api.GET("/projects", s.authorize(authorization.ObjectProject, authorization.ActionView), s.ListProjects)
	api.POST("/projects", s.authorize(authorization.ObjectProject, authorization.ActionCreate), s.CreateProject)
	api.GET("/projects/:id", s.authorize(authorization.ObjectProject, authorization.ActionView), s.GetProjectByID)
	api.PUT("/projects/:id", s.authorize(authorization.ObjectProject, authorization.ActionUpdate), s.UpdateProject)
	api.DELETE("/projects/:id", s.authorize(authorization.ObjectProject, authorization.ActionDelete), s.DeleteProject)

	// -------- Invoices --------
	api.GET("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.ListInvoices)
	api.POST("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionCreate), s.CreateInvoice)
	api.POST("/invoices/totals", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.PreviewInvoiceTotals)
	api.GET("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.GetInvoiceByID)
	api.PUT("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionUpdate), s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionDelete), s.DeleteInvoice)
	api.POST("/invoices/:id/paid", s.authorize(authorization.ObjectInvoice, authorization.ActionMarkPaid), s.MarkInvoicePaid)
	api.GET("/invoices/:id/preview", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.PreviewInvoice)
	api.GET("/invoices/:id/document", s.authorize(authorization.ObjectInvoice, authorization.ActionExport), s.DocumentExportRateLimit(), s.DownloadInvoiceDocument)
	api.POST("/invoices/:id/send", s.authorize(authorization.ObjectInvoice, authorization.ActionSend), s.DocumentExportRateLimit(), s.SendInvoice)

	// -------- Company settings --------
	api.GET("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionView), s.GetCompanySettings)
	api.PUT("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionUpdate), s.UpsertCompanySettings)

	// -------- Dashboard --------
	api.GET("/dashboard", s.authorize(authorization.ObjectDashboard, authorization.ActionView), s.GetDashboard)
	api.POST("/seed", s.authorize(authorization.ObjectSeed, authorization.ActionCreate), s.SeedSampleData)

	// -------- API keys --------
	api.GET("/api-keys", s.authorize(authorization.ObjectAPIKey, authorization.ActionView), s.ListAPIKeys)
	api.POST("/api-keys", s.authorize(authorization.ObjectAPIKey, authorization.ActionCreate), s.CreateAPIKey)
	api.POST("/api-keys/:key_id/rotate", s.authorize(authorization.ObjectAPIKey, authorization.ActionRotate), s.RotateAPIKey)
	api.POST("/api-keys/:key_id/revoke", s.authorize(authorization.ObjectAPIKey, authorization.ActionRevoke), s.RevokeAPIKey)
}
