package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/regalia/internal/config"
	"github.com/smallbiznis/regalia/internal/contract"
	contractdomain "github.com/smallbiznis/regalia/internal/contract/domain"
	"github.com/smallbiznis/regalia/internal/inbound"
	inbounddomain "github.com/smallbiznis/regalia/internal/inbound/domain"
	"github.com/smallbiznis/regalia/internal/ingestion"
	ingestiondomain "github.com/smallbiznis/regalia/internal/ingestion/domain"
	"github.com/smallbiznis/regalia/internal/mapping"
	mappingdomain "github.com/smallbiznis/regalia/internal/mapping/domain"
	"github.com/smallbiznis/regalia/internal/observability"
	obsmiddleware "github.com/smallbiznis/regalia/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/regalia/internal/observability/metrics"
	obstracing "github.com/smallbiznis/regalia/internal/observability/tracing"
	"github.com/smallbiznis/regalia/internal/providers"
	"github.com/smallbiznis/regalia/internal/providers/extraction"
	"github.com/smallbiznis/regalia/internal/royalty"
	royaltydomain "github.com/smallbiznis/regalia/internal/royalty/domain"
	"github.com/smallbiznis/regalia/internal/salesperiod"
	salesperioddomain "github.com/smallbiznis/regalia/internal/salesperiod/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	providers.Module,
	contract.Module,
	royalty.Module,
	salesperiod.Module,
	mapping.Module,
	inbound.Module,
	ingestion.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
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
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	genID  *snowflake.Node

	contractSvc  contractdomain.Service
	royaltySvc   royaltydomain.Service
	periodSvc    salesperioddomain.Service
	mappingSvc   mappingdomain.Service
	inboundSvc   inbounddomain.Service
	ingestionSvc ingestiondomain.Service
	extractor    extraction.TermsExtractor
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node

	ContractSvc  contractdomain.Service
	RoyaltySvc   royaltydomain.Service
	PeriodSvc    salesperioddomain.Service
	MappingSvc   mappingdomain.Service
	InboundSvc   inbounddomain.Service
	IngestionSvc ingestiondomain.Service
	Extractor    extraction.TermsExtractor
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		db:     p.DB,
		genID:  p.GenID,

		contractSvc:  p.ContractSvc,
		royaltySvc:   p.RoyaltySvc,
		periodSvc:    p.PeriodSvc,
		mappingSvc:   p.MappingSvc,
		inboundSvc:   p.InboundSvc,
		ingestionSvc: p.IngestionSvc,
		extractor:    p.Extractor,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1", RequireOrg())

	contracts := v1.Group("/contracts")
	contracts.POST("", s.CreateContract)
	contracts.GET("", s.ListContracts)
	contracts.GET("/:contract_id", s.GetContract)
	contracts.POST("/:contract_id/activate", s.ActivateContract)

	contracts.POST("/:contract_id/royalties/calculate", s.CalculateRoyalty)
	contracts.GET("/:contract_id/years", s.ListYearSummaries)
	contracts.POST("/:contract_id/years/:year_index/finalize", s.FinalizeYear)
	contracts.GET("/:contract_id/advance", s.GetAdvanceStatus)
	contracts.POST("/:contract_id/statement", s.RenderStatement)

	contracts.POST("/:contract_id/uploads", s.UploadSalesReport)

	periods := v1.Group("/sales-periods")
	periods.POST("", s.ConfirmSalesPeriod)
	periods.POST("/preview", s.PreviewSalesPeriod)
	periods.GET("", s.ListSalesPeriods)
	periods.GET("/:period_id", s.GetSalesPeriod)
	periods.POST("/:period_id/void", s.VoidSalesPeriod)

	mappings := v1.Group("/mappings")
	mappings.POST("/columns/resolve", s.ResolveColumns)
	mappings.POST("/categories/resolve", s.ResolveCategories)
	mappings.PUT("/columns", s.SaveColumnPreference)
	mappings.PUT("/categories", s.SaveCategoryPreference)

	reports := v1.Group("/inbound-reports")
	reports.POST("", s.ReceiveInboundReport)
	reports.GET("", s.ListInboundReports)
	reports.GET("/:report_id", s.GetInboundReport)
	reports.POST("/:report_id/confirm", s.ConfirmInboundMatch)
	reports.POST("/:report_id/reject", s.RejectInboundReport)
	reports.POST("/:report_id/processed", s.MarkInboundProcessed)
}
