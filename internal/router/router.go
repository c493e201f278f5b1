package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/taskhive/backend/api/handler"
)

type Handlers struct {
	Auth      *apiHandler.AuthHandler
	Directory *apiHandler.DirectoryHandler
	Workflow  *apiHandler.WorkflowHandler
	Member    *apiHandler.MemberHandler
	Task      *apiHandler.TaskHandler
	Events    *apiHandler.EventsHandler
	Health    *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/register", handlers.Auth.Register)
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/logout", authMiddleware(handlers.Auth.Logout))
	r.GET("/api/v1/auth/me", authMiddleware(handlers.Auth.Me))

	// User directory
	r.GET("/api/v1/users/search", authMiddleware(handlers.Directory.Search))
	r.GET("/api/v1/users/{id}", authMiddleware(handlers.Directory.Get))

	// Workflows
	r.GET("/api/v1/workflows", authMiddleware(handlers.Workflow.List))
	r.POST("/api/v1/workflows", authMiddleware(handlers.Workflow.Create))
	r.GET("/api/v1/workflows/{id}", authMiddleware(handlers.Workflow.Get))
	r.PUT("/api/v1/workflows/{id}", authMiddleware(handlers.Workflow.Update))
	r.DELETE("/api/v1/workflows/{id}", authMiddleware(handlers.Workflow.Delete))
	r.GET("/api/v1/workflows/{id}/stats", authMiddleware(handlers.Workflow.Stats))

	// Membership
	r.POST("/api/v1/workflows/{id}/members/invite", authMiddleware(handlers.Member.Invite))
	r.DELETE("/api/v1/workflows/{id}/members/{userId}", authMiddleware(handlers.Member.Remove))
	r.PUT("/api/v1/workflows/{id}/members/{userId}/permissions", authMiddleware(handlers.Member.UpdatePermissions))

	// Invites addressed to the current user
	r.GET("/api/v1/invites", authMiddleware(handlers.Member.PendingInvites))
	r.POST("/api/v1/invites/{id}/respond", authMiddleware(handlers.Member.Respond))

	// Tasks, scoped to their workflow
	r.GET("/api/v1/workflows/{id}/tasks", authMiddleware(handlers.Task.List))
	r.GET("/api/v1/workflows/{id}/tasks/completed", authMiddleware(handlers.Task.ListCompleted))
	r.POST("/api/v1/workflows/{id}/tasks", authMiddleware(handlers.Task.Create))
	r.PUT("/api/v1/workflows/{id}/tasks/{taskId}", authMiddleware(handlers.Task.Update))
	r.DELETE("/api/v1/workflows/{id}/tasks/{taskId}", authMiddleware(handlers.Task.Delete))
	r.PUT("/api/v1/workflows/{id}/tasks/{taskId}/status", authMiddleware(handlers.Task.UpdateStatus))
	r.POST("/api/v1/workflows/{id}/tasks/{taskId}/confirm", authMiddleware(handlers.Task.Confirm))
	r.DELETE("/api/v1/workflows/{id}/tasks/{taskId}/completion-message", authMiddleware(handlers.Task.DeleteCompletionMessage))
	r.DELETE("/api/v1/workflows/{id}/tasks/{taskId}/feedback-message", authMiddleware(handlers.Task.DeleteFeedback))

	// Live workflow events (SSE)
	r.GET("/api/v1/workflows/{id}/events", authMiddleware(handlers.Events.Stream))

	return r
}
