package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
)

// Handlers bundles every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Students      *StudentHandler
	Instructors   *InstructorHandler
	Courses       *CourseHandler
	Enrollments   *EnrollmentHandler
	Timetable     *TimetableHandler
	Events        *EventHandler
	Notifications *NotificationHandler
	Inscriptions  *InscriptionHandler
	Payments      *PaymentHandler
	Dashboard     *DashboardHandler
}

// RouteMiddleware supplies the authentication and audit middleware.
// A nil Audit disables audit recording.
type RouteMiddleware struct {
	Authenticate gin.HandlerFunc
	Audit        func(action, resource string) gin.HandlerFunc
}

var (
	adminRoles      = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}
	staffRoles      = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleInstructor}
	studentRoles    = []models.UserRole{models.RoleStudent}
	studentOrAdmins = []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleStudent}
)

// RegisterRoutes mounts the portal API on api.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, mw RouteMiddleware) {
	audit := func(action, resource string) gin.HandlerFunc {
		if mw.Audit == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return mw.Audit(action, resource)
	}
	admin := middleware.RequireRoles(adminRoles...)
	staff := middleware.RequireRoles(staffRoles...)
	student := middleware.RequireRoles(studentRoles...)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)

	// the signed token is the credential
	api.GET("/exports/:token", h.Timetable.Download)

	secured := api.Group("")
	secured.Use(mw.Authenticate)

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)
	secured.GET("/auth/me", h.Auth.Me)

	users := secured.Group("/users")
	users.GET("", admin, h.Users.List)
	users.GET("/:id", middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleAdmin), middleware.RoleSelf), h.Users.Get)
	users.POST("", admin, h.Users.Create)
	users.PUT("/:id", admin, h.Users.Update)
	users.DELETE("/:id", admin, h.Users.Delete)

	students := secured.Group("/students")
	students.GET("/me", student, h.Students.Me)
	students.GET("", staff, h.Students.List)
	students.GET("/:id", staff, h.Students.Get)
	students.POST("", admin, audit(models.AuditActionCreate, "students"), h.Students.Create)
	students.PUT("/:id", admin, audit(models.AuditActionUpdate, "students"), h.Students.Update)
	students.DELETE("/:id", admin, audit(models.AuditActionDelete, "students"), h.Students.Delete)

	instructors := secured.Group("/instructors")
	instructors.GET("", staff, h.Instructors.List)
	instructors.GET("/:id", staff, h.Instructors.Get)
	instructors.POST("", admin, audit(models.AuditActionCreate, "instructors"), h.Instructors.Create)
	instructors.PUT("/:id", admin, audit(models.AuditActionUpdate, "instructors"), h.Instructors.Update)
	instructors.DELETE("/:id", admin, audit(models.AuditActionDelete, "instructors"), h.Instructors.Delete)

	courses := secured.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.GET("/:id", h.Courses.Get)
	courses.POST("", admin, audit(models.AuditActionCreate, "courses"), h.Courses.Create)
	courses.PUT("/:id", admin, audit(models.AuditActionUpdate, "courses"), h.Courses.Update)
	courses.DELETE("/:id", admin, audit(models.AuditActionDelete, "courses"), h.Courses.Delete)

	enrollments := secured.Group("/enrollments")
	enrollments.GET("/me", student, h.Enrollments.Mine)
	enrollments.GET("", admin, h.Enrollments.List)
	enrollments.GET("/:id", admin, h.Enrollments.Get)
	enrollments.POST("", admin, audit(models.AuditActionCreate, "enrollments"), h.Enrollments.Create)
	enrollments.PUT("/:id/status", admin, audit(models.AuditActionUpdate, "enrollments"), h.Enrollments.UpdateStatus)
	enrollments.DELETE("/:id", admin, audit(models.AuditActionDelete, "enrollments"), h.Enrollments.Delete)

	timetable := secured.Group("/timetable")
	timetable.GET("/student", student, h.Timetable.Student)
	timetable.GET("/student/export", student, h.Timetable.Export)
	timetable.GET("", h.Timetable.List)
	timetable.GET("/:id", h.Timetable.Get)
	timetable.POST("", admin, audit(models.AuditActionCreate, "class_sessions"), h.Timetable.Create)
	timetable.PUT("/:id", admin, audit(models.AuditActionUpdate, "class_sessions"), h.Timetable.Update)
	timetable.DELETE("/:id", admin, audit(models.AuditActionDelete, "class_sessions"), h.Timetable.Delete)

	events := secured.Group("/events")
	events.GET("", h.Events.List)
	events.GET("/:id", h.Events.Get)
	events.POST("", staff, audit(models.AuditActionCreate, "events"), h.Events.Create)
	events.PUT("/:id", staff, audit(models.AuditActionUpdate, "events"), h.Events.Update)
	events.DELETE("/:id", staff, audit(models.AuditActionDelete, "events"), h.Events.Delete)

	notifications := secured.Group("/notifications")
	notifications.GET("", h.Notifications.List)
	notifications.POST("", admin, audit(models.AuditActionCreate, "notifications"), h.Notifications.Send)
	notifications.PUT("/read-all", h.Notifications.MarkAllRead)
	notifications.PUT("/:id/read", h.Notifications.MarkRead)
	notifications.DELETE("/:id", h.Notifications.Delete)

	inscriptions := secured.Group("/inscriptions")
	inscriptions.GET("", middleware.RequireRoles(studentOrAdmins...), h.Inscriptions.List)
	inscriptions.POST("", student, h.Inscriptions.Create)
	inscriptions.PUT("/:id", admin, audit(models.AuditActionUpdate, "inscriptions"), h.Inscriptions.Decide)
	inscriptions.DELETE("/:id", middleware.RequireRoles(studentOrAdmins...), h.Inscriptions.Delete)

	payments := secured.Group("/payments")
	payments.GET("", middleware.RequireRoles(studentOrAdmins...), h.Payments.List)
	payments.GET("/:id", admin, h.Payments.Get)
	payments.POST("", admin, audit(models.AuditActionCreate, "payments"), h.Payments.Create)
	payments.PUT("/:id", admin, audit(models.AuditActionUpdate, "payments"), h.Payments.Update)
	payments.POST("/:id/pay", middleware.RequireRoles(studentOrAdmins...), h.Payments.Pay)
	payments.DELETE("/:id", admin, audit(models.AuditActionDelete, "payments"), h.Payments.Delete)

	dashboard := secured.Group("/dashboard")
	dashboard.GET("/student", student, h.Dashboard.Student)
	dashboard.GET("/admin", admin, h.Dashboard.Admin)
}
