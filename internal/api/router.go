package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vinieshwan/parking-system/internal/api/handler"
	"github.com/vinieshwan/parking-system/internal/api/middleware"
	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/logger"
	"github.com/vinieshwan/parking-system/internal/metrics"
	"github.com/vinieshwan/parking-system/internal/service"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	AuthService    *service.AuthService
	ParkingService *service.ParkingService
	LPRService     *service.LPRService
	WSManager      *handler.WebSocketManager
	Metrics        *metrics.ParkingMetrics
	Gatherer       prometheus.Gatherer
	Log            logger.Logger
}

func SetupRouter(d Deps) *gin.Engine {
	handler.RegisterValidators()
	log := d.Log.Named("http")

	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.CORS())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	if d.WSManager != nil {
		r.GET("/ws", handler.NewWebSocketHandler(d.WSManager).HandleWebSocket)
	}

	authMw := middleware.NewAuthMiddleware(d.AuthService)
	authH := handler.NewAuthHandler(d.AuthService, log)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authMw.OptionalAuthenticate(), authH.Register)
		authRoutes.POST("/login", authH.Login)
	}

	v1 := r.Group("/v1")
	v1.Use(authMw.Authenticate(), authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleOperator))
	{
		complexH := handler.NewParkingComplexHandler(d.ParkingService, log)
		v1.GET("/parking-complex/list", complexH.List)
		v1.GET("/parking-complex/get/:name", complexH.GetByName)
		v1.GET("/entry-points/list/:complexId", complexH.ListEntryPoints)
		v1.POST("/entry-points/add", authMw.AuthorizeRole(domain.RoleAdmin), complexH.AddEntryPoint)

		slotH := handler.NewParkingSlotHandler(d.ParkingService, log)
		v1.GET("/parking-slot/get/:complexId/:entryPointId/:type", slotH.FindSlot)

		sessionH := handler.NewParkingSessionHandler(d.ParkingService, log)
		historyRoutes := v1.Group("/parking-history")
		{
			historyRoutes.POST("/park", sessionH.Park)
			historyRoutes.POST("/unpark", sessionH.Unpark)
			historyRoutes.GET("/:plateNumber", sessionH.History)
		}

		if d.LPRService != nil {
			lprH := handler.NewLPRHandler(d.LPRService, log)
			v1.POST("/lpr/recognize", lprH.Recognize)
		}
	}
	return r
}
