package http

import (
	"log/slog"
	"time"

	"github.com/saarfitness/gymhub/internal/auth"
	"github.com/saarfitness/gymhub/internal/cache"
	"github.com/saarfitness/gymhub/internal/config"
	"github.com/saarfitness/gymhub/internal/db"
	"github.com/saarfitness/gymhub/internal/http/handlers"
	"github.com/saarfitness/gymhub/internal/http/middlewares"
	"github.com/saarfitness/gymhub/internal/notifications"
	"github.com/saarfitness/gymhub/internal/objstore"
	"github.com/saarfitness/gymhub/internal/observability"
	"github.com/saarfitness/gymhub/internal/queue/redisclient"
	"github.com/saarfitness/gymhub/internal/rbac"
	"github.com/saarfitness/gymhub/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries every process-wide resource the router needs. Everything is
// injected; nothing here is a package-level global.
type Deps struct {
	Cfg      config.Config
	Log      *slog.Logger
	DB       *db.Partitions
	Redis    *redisclient.Client
	Photos   *objstore.Client
	Notifier notifications.Notifier
	Prom     *observability.Prom
	Registry *prometheus.Registry
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware, outermost first

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("gymhub-api"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(d.Prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(10 << 20)) // photos ride along member creation

	secure := d.Cfg.Env == "prod"

	// one token manager per partition; only member sessions slide
	adminMgr := auth.NewManager(d.Cfg.SessionSecret, auth.PartitionAdmin, 8*time.Hour, 0)
	staffMgr := auth.NewManager(d.Cfg.SessionSecret, auth.PartitionStaff, 8*time.Hour, 0)
	memberMgr := auth.NewManager(d.Cfg.SessionSecret, auth.PartitionMember, 30*24*time.Hour, 24*time.Hour)

	guard := rbac.NewGuard(adminMgr, staffMgr, memberMgr, secure)

	r.Use(middlewares.EdgeGate(guard))

	// repositories, one per partition database

	adminUsers := postgres.NewUsersRepo(d.DB.Admin, auth.PartitionAdmin, d.Prom)
	staffUsers := postgres.NewUsersRepo(d.DB.Staff, auth.PartitionStaff, d.Prom)
	members := postgres.NewMembersRepo(d.DB.Member, d.Prom)
	attendance := postgres.NewAttendanceRepo(d.DB.Member, d.Prom)
	payments := postgres.NewPaymentsRepo(d.DB.Member, d.Prom)
	mailJobs := postgres.NewJobsRepo(d.DB.Member, d.Prom)

	listCache := cache.New(10 * time.Second)

	// keep these interfaces nil when the backing service is unconfigured so
	// handlers can tell (a typed nil pointer would read as non-nil)
	var photos handlers.PhotoStore

	if d.Photos != nil {
		photos = d.Photos
	}

	var locker handlers.Locker
	var redisPing handlers.Pinger

	if d.Redis != nil {
		locker = d.Redis
		redisPing = d.Redis
	}

	// handlers

	authHandler := handlers.NewAuthHandler(
		handlers.PartitionLogin{Provider: auth.NewProvider(auth.PartitionAdmin, adminUsers), Manager: adminMgr},
		handlers.PartitionLogin{Provider: auth.NewProvider(auth.PartitionStaff, staffUsers), Manager: staffMgr},
		handlers.PartitionLogin{Provider: auth.NewProvider(auth.PartitionMember, members), Manager: memberMgr},
		guard,
		secure,
	)

	membersHandler := handlers.NewMembersHandler(members, photos, mailJobs, guard, listCache, d.Log)
	staffHandler := handlers.NewStaffHandler(staffUsers, guard)
	adminUsersHandler := handlers.NewAdminUsersHandler(adminUsers, guard)
	attendanceHandler := handlers.NewAttendanceHandler(attendance, members, guard)
	paymentsHandler := handlers.NewPaymentsHandler(payments, members, guard, listCache)
	portalHandler := handlers.NewMemberPortalHandler(members, attendance, payments, photos, guard)
	subsHandler := handlers.NewSubscriptionsHandler(members, staffUsers, d.Notifier, mailJobs, locker, listCache, guard, d.Prom, d.Log)
	healthHandler := handlers.NewHealthHandler(d.DB, redisPing)

	// health + metrics

	r.GET("/health", healthHandler.Healthz)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))

	// login endpoints are the hot path for credential stuffing; rate limit by IP
	loginLimiter := middlewares.NewRateLimiter(10, time.Minute)
	limited := loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP)

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/admin/login", middlewares.RequireJSON(), limited, authHandler.AdminLogin)
		authGroup.POST("/login", middlewares.RequireJSON(), limited, authHandler.StaffLogin)
		authGroup.POST("/staff/login", middlewares.RequireJSON(), limited, authHandler.StaffLogin)
		authGroup.POST("/member/login", middlewares.RequireJSON(), limited, authHandler.MemberLogin)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/session", authHandler.Session)
	}

	api := r.Group("/api")
	{
		// members: staff/admin area; creation is multipart (photo upload)
		api.GET("/members", membersHandler.List)
		api.POST("/members", membersHandler.Create)
		api.GET("/members/:id", membersHandler.GetByID)
		api.PATCH("/members/:id", middlewares.RequireJSON(), membersHandler.Update)
		api.DELETE("/members/:id", membersHandler.Delete)
		api.GET("/members/:id/photo", membersHandler.Photo)
		api.GET("/members/:id/attendance", attendanceHandler.ListForMember)
		api.GET("/members/:id/payments", paymentsHandler.ListForMember)

		api.GET("/attendance", attendanceHandler.List)
		api.POST("/attendance/checkin", middlewares.RequireJSON(), attendanceHandler.CheckIn)
		api.POST("/attendance/checkout", middlewares.RequireJSON(), attendanceHandler.CheckOut)

		api.GET("/payments", paymentsHandler.List)
		api.POST("/payments", middlewares.RequireJSON(), paymentsHandler.Create)

		// raw photo fetch by object key; any authenticated session
		api.GET("/photos/*key", membersHandler.PhotoByKey)

		api.POST("/subscriptions/check", subsHandler.Check)
		api.GET("/subscriptions/check", subsHandler.Check) // client pollers use GET

		// staff accounts (admin-only at the guard)
		api.GET("/staff", staffHandler.List)
		api.POST("/staff", middlewares.RequireJSON(), staffHandler.Create)
		api.GET("/staff/:id", staffHandler.GetByID)
		api.PATCH("/staff/:id", middlewares.RequireJSON(), staffHandler.UpdateFlags)
		api.DELETE("/staff/:id", staffHandler.Delete)

		// admin accounts
		api.GET("/admin/users", adminUsersHandler.List)
		api.POST("/admin/users", middlewares.RequireJSON(), adminUsersHandler.Create)
		api.GET("/admin/users/:id", adminUsersHandler.GetByID)
		api.PATCH("/admin/users/:id", middlewares.RequireJSON(), adminUsersHandler.UpdateFlags)
		api.DELETE("/admin/users/:id", adminUsersHandler.Delete)

		// member self-service
		api.GET("/member/profile", portalHandler.Profile)
		api.PATCH("/member/profile", middlewares.RequireJSON(), portalHandler.UpdateProfile)
		api.GET("/member/membership", portalHandler.Membership)
		api.GET("/member/attendance", portalHandler.Attendance)
		api.GET("/member/payments", portalHandler.Payments)
		api.GET("/member/photo", portalHandler.Photo)
	}

	return r
}
