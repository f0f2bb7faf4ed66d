package dto

import "github.com/noah-isme/campus-portal-api/internal/models"

// TimetableDay groups a student's sessions for one weekday.
type TimetableDay struct {
	Day      string                      `json:"day"`
	Sessions []models.ClassSessionDetail `json:"sessions"`
}

// StudentTimetable is the weekly view returned to students.
type StudentTimetable struct {
	StudentID    string         `json:"student_id"`
	Days         []TimetableDay `json:"days"`
	SessionCount int            `json:"session_count"`
}

// TimetableExport points at a generated timetable document.
type TimetableExport struct {
	Format    string `json:"format"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}
