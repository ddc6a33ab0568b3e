package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tixgate/tixgate/config"
	"github.com/tixgate/tixgate/internal/accesskey"
	"github.com/tixgate/tixgate/internal/handlers"
	"github.com/tixgate/tixgate/internal/mailer"
	"github.com/tixgate/tixgate/internal/metrics"
	"github.com/tixgate/tixgate/internal/middleware"
	"github.com/tixgate/tixgate/internal/models"
	"github.com/tixgate/tixgate/internal/payment"
	"github.com/tixgate/tixgate/internal/qrcode"
	"github.com/tixgate/tixgate/internal/storage"
	"github.com/tixgate/tixgate/internal/store"
	"github.com/tixgate/tixgate/internal/ticket"
)

func Start() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	tickets := store.NewGormTicketStore(db)
	payments := store.NewGormPaymentStore(db)
	events := store.NewGormEventStore(db)
	users := store.NewGormUserStore(db)

	files := storage.NewDiskStore(cfg.UploadDir)
	qrIssuer := qrcode.NewIssuer(cfg.UploadDir)
	keys := accesskey.NewGenerator()

	var mail mailer.Mailer
	if smtp := config.LoadSMTPConfig(); smtp != nil {
		mail = mailer.NewSMTPMailer(smtp.Host, smtp.Port, smtp.Username, smtp.Password, smtp.From)
	} else {
		mail = &mailer.LogMailer{Logger: logger}
	}

	ticketSvc := ticket.NewService(ticket.Deps{
		Tickets:  tickets,
		Payments: payments,
		Events:   events,
		Users:    users,
		Files:    files,
		QR:       qrIssuer,
		Keys:     keys,
		Mail:     mail,
		Logger:   logger,
	})
	paymentSvc := payment.NewService(payment.Deps{
		Tickets:  tickets,
		Payments: payments,
		Events:   events,
		Users:    users,
		Files:    files,
		QR:       qrIssuer,
		Keys:     keys,
		Mail:     mail,
		Logger:   logger,
	})

	authHandler := handlers.NewAuthHandler(users, cfg.JWTSecret, logger)
	eventHandler := handlers.NewEventHandler(events, users, logger)
	ticketHandler := handlers.NewTicketHandler(ticketSvc, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentSvc, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(metrics.Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static("/uploads", cfg.UploadDir)

	setupRoutes(r, cfg, authHandler, eventHandler, ticketHandler, paymentHandler)

	logger.Info("server starting", zap.String("port", cfg.Port))
	return r.Run(":" + cfg.Port)
}

func setupRoutes(
	r *gin.Engine,
	cfg *config.Config,
	auth *handlers.AuthHandler,
	events *handlers.EventHandler,
	tickets *handlers.TicketHandler,
	payments *handlers.PaymentHandler,
) {
	public := r.Group("/v1")
	{
		public.POST("/register", auth.Register)
		public.POST("/login", auth.Login)

		eventPublic := public.Group("/events")
		{
			eventPublic.GET("", events.ListEvents)
			eventPublic.GET("/:id", events.GetEvent)
		}
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		eventProtected := protected.Group("/events")
		{
			eventProtected.POST("", events.CreateEvent)
			eventProtected.PATCH("/:id/approve", middleware.AdminOnly(), events.ApproveEvent)
		}

		ticketRoutes := protected.Group("/tickets")
		{
			ticketRoutes.POST("", tickets.CreateTicket)
			ticketRoutes.GET("", middleware.AdminOnly(), tickets.ListAllTickets)
			ticketRoutes.GET("/my", tickets.MyTickets)
			ticketRoutes.GET("/event/:eventId", tickets.TicketsByEvent)
			ticketRoutes.POST("/scan", middleware.RequireRoles(models.RoleOrganizer), tickets.ScanTicket)
			ticketRoutes.GET("/:id", tickets.GetTicket)
			ticketRoutes.PATCH("/:id/status", tickets.UpdateTicketStatus)
			ticketRoutes.DELETE("/:id", tickets.DeleteTicket)
		}

		paymentRoutes := protected.Group("/payments")
		{
			paymentRoutes.POST("", payments.SubmitPayment)
			paymentRoutes.GET("/my", payments.MyPayments)
			paymentRoutes.GET("/pending", middleware.AdminOnly(), payments.PendingPayments)
			paymentRoutes.GET("/:id", payments.GetPayment)
			paymentRoutes.PATCH("/:id/verify", middleware.AdminOnly(), payments.VerifyPayment)
		}
	}
}
