package dto

import "github.com/noah-isme/campus-portal-api/internal/models"

// StudentDashboard aggregates what a student sees after login.
type StudentDashboard struct {
	Student             models.Student              `json:"student"`
	Today               string                      `json:"today"`
	TodaySessions       []models.ClassSessionDetail `json:"today_sessions"`
	WeeklySessionCount  int                         `json:"weekly_session_count"`
	Enrollments         []models.EnrollmentDetail   `json:"enrollments"`
	UpcomingEvents      []models.AcademicEvent      `json:"upcoming_events"`
	UnreadNotifications int                         `json:"unread_notifications"`
	LatestNotifications []models.Notification       `json:"latest_notifications"`
	PendingPayments     models.PaymentSummary       `json:"pending_payments"`
}

// AdminDashboard exposes portal wide counters.
type AdminDashboard struct {
	ActiveStudents      int `json:"active_students"`
	ActiveInstructors   int `json:"active_instructors"`
	ActiveCourses       int `json:"active_courses"`
	PendingInscriptions int `json:"pending_inscriptions"`
	OverduePayments     int `json:"overdue_payments"`
}
