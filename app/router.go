package app

import (
	"context"
	"net/http"
	"time"

	"github.com/jovaandres/rest-api-ev/app/auth"
	"github.com/jovaandres/rest-api-ev/app/reminder"
	"github.com/jovaandres/rest-api-ev/app/task"
	"github.com/jovaandres/rest-api-ev/internal"
	"github.com/jovaandres/rest-api-ev/pkg/middleware"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type RouterConfig struct {
	CORSOrigins []string
	// RateLimit applies to every route, ProbeRateLimit additionally to the
	// routes that send mail. Both are requests per second per client IP.
	RateLimit      float64
	ProbeRateLimit float64
}

// handler adapts an endpoint taking the shared deps to a gin handler.
func handler(d *internal.Deps, h func(*gin.Context, *internal.Deps)) gin.HandlerFunc {
	return func(c *gin.Context) { h(c, d) }
}

// NewRouter builds the engine with every route mounted. Background work
// started here stops with ctx.
func NewRouter(ctx context.Context, d *internal.Deps, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == http.MethodHead
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("accountID"); v != "" {
					fields = append(fields, zap.String("account_id", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	limiter := middleware.NewRateLimiter(ctx, middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit,
	})
	probeLimiter := middleware.NewRateLimiter(ctx, middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.ProbeRateLimit,
		Burst:             3,
	})

	required := middleware.NewSessionMiddleware(d.Accounts, true)
	optional := middleware.NewSessionMiddleware(d.Accounts, false)
	probe := probeLimiter.Middleware()

	// HEAD /heartbeat		-> Used to check if the server is alive
	router.HEAD("/heartbeat", heartbeat)

	m := router.Group("", limiter.Middleware(), middleware.BodySizeLimiter(1<<20))
	{
		// POST /register		-> Creates an account and starts a session
		m.POST("/register", handler(d, auth.Register))

		// POST /login			-> Starts a session
		m.POST("/login", optional, handler(d, auth.Login))

		// POST|GET /logout		-> Ends the current session
		m.POST("/logout", optional, handler(d, auth.Logout))
		m.GET("/logout", optional, handler(d, auth.Logout))

		// POST /reqverify		-> Mails a new verification link
		m.POST("/reqverify", probe, handler(d, auth.RequestVerification))

		// POST /verify, GET /verify/:email/:token	-> Verifies an email
		m.POST("/verify", handler(d, auth.Verify))
		m.GET("/verify/:email/:token", handler(d, auth.Verify))

		// POST /reset, POST /reset/:email	-> Mails a password reset link
		m.POST("/reset", probe, handler(d, auth.RequestReset))
		m.POST("/reset/:email", probe, handler(d, auth.RequestReset))

		// PUT /reset			-> Sets a new password with a reset token
		m.PUT("/reset", handler(d, auth.ChangePassword))

		// POST|GET /getauth		-> Returns the logged in account
		m.POST("/getauth", required, handler(d, auth.GetAuth))
		m.GET("/getauth", required, handler(d, auth.GetAuth))
	}

	r := m.Group("/reminders", required)
	{
		r.GET("", handler(d, reminder.List))
		r.POST("", handler(d, reminder.Create))
		r.GET("/:id", handler(d, reminder.Fetch))
		r.PUT("/:id", handler(d, reminder.Update))
		r.DELETE("/:id", handler(d, reminder.Delete))
	}

	{
		// GET /tugas			-> Lists every task
		m.GET("/tugas", handler(d, task.List))

		// GET /tugas/:category	-> Lists the tasks of one category
		m.GET("/tugas/:category", handler(d, task.ByCategory))

		// POST /addtugas		-> Adds a task
		m.POST("/addtugas", required, handler(d, task.Add))
	}

	return router
}

func heartbeat(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
}
