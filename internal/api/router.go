package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"corplandlords/wireboard/internal/api/handlers"
	"corplandlords/wireboard/internal/api/middleware"
	"corplandlords/wireboard/internal/auth"
	"corplandlords/wireboard/internal/config"
	"corplandlords/wireboard/internal/email"
	"corplandlords/wireboard/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SetupRouter configures and returns the main Gin engine. ctx bounds background
// work owned by the middleware.
func SetupRouter(ctx context.Context, cfg *config.Config, wires services.IWireService, wizard services.IWizardService) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg)

	// OptionalAuth runs before the limiter so signed-in users get their own bucket.
	r.Use(middleware.CORSMiddleware(cfg.CorsAllowedOrigin))
	r.Use(middleware.OptionalAuthMiddleware(cfg.JwtSecret))
	r.Use(rateLimiter.Limit())

	wireHandler := handlers.NewRestWireHandler(wires, cfg.MaxPageSize)
	wizardHandler := handlers.NewRestWizardHandler(wizard)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Wire board
		v1.GET("/wires", wireHandler.ListWires)
		v1.GET("/wires/stream", wireHandler.StreamWires)
		v1.GET("/wires/:id", wireHandler.GetWire)
		v1.GET("/wires/:id/stream", wireHandler.StreamWire)

		// Submission wizard
		v1.POST("/requests", wizardHandler.Start)
		v1.GET("/requests/:id", wizardHandler.Get)
		v1.PUT("/requests/:id/contact", wizardHandler.SaveContact)
		v1.PUT("/requests/:id/details", wizardHandler.SaveDetails)
		v1.POST("/requests/:id/complete", wizardHandler.Complete)
		v1.POST("/requests/:id/submit", wizardHandler.Submit)
		v1.POST("/requests/:id/edit", wizardHandler.Edit)
		v1.DELETE("/requests/:id", wizardHandler.Cancel)

		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.POST("/wires/:id/like", wireHandler.Like)
			authRequired.DELETE("/wires/:id/like", wireHandler.Unlike)
			authRequired.PUT("/wires/:id/feedback", wireHandler.SetFeedback)
			authRequired.POST("/wires/:id/responses", wireHandler.Respond)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			admin.POST("/wires/:id/publish", wireHandler.Publish)
		}
	}

	return r
}

type serviceRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments"`
}

// SetupServiceRouter configures the internal service Gin engine: shutdown,
// publishWire (payment confirmation), and with mock services on, getTestEmail
// (mock mail readback) and issueToken. rdb may be nil when mock mail is off.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, wires services.IWireService, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req serviceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			slog.Info("shutdown requested via service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				slog.Warn("shutdown channel already signaled")
			}

		case "publishWire":
			var args []string
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 1 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [wireId]"})
				return
			}
			id, err := primitive.ObjectIDFromHex(args[0])
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid wire ID format"})
				return
			}
			if err := wires.PublishWire(c.Request.Context(), id); err != nil {
				status := http.StatusInternalServerError
				switch {
				case errors.Is(err, services.ErrNotFound):
					status = http.StatusNotFound
				case errors.Is(err, services.ErrInvalidTransition):
					status = http.StatusConflict
				}
				c.JSON(status, gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "published"})

		case "getTestEmail":
			if rdb == nil {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Mock mail is disabled"})
				return
			}
			var args []string
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 1 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [email]"})
				return
			}
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()

			// the worker may not have run yet
			for i := 0; i < 10; i++ {
				mail, err := email.GetMockEmail(ctx, rdb, args[0])
				if err != nil {
					slog.Error("service API: failed to read mock email", "to", args[0], "error", err)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				if mail != nil {
					rdb.Del(ctx, email.MockEmailKey(args[0]))
					c.JSON(http.StatusOK, gin.H{"success": true, "data": mail})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found for %s", args[0])})

		case "issueToken":
			if !cfg.MockServices {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Token issuing is disabled"})
				return
			}
			var args []string
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 1 || args[0] == "" {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [userId]"})
				return
			}
			token, err := auth.GenerateJWT(args[0], false, cfg.JwtSecret, cfg.TokenTTL)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "result": token})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
