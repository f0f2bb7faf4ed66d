package models

import "time"

// Weekday names used by timetable entries, in display order.
var Weekdays = []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"}

// WeekdayIndex returns the 0-based position of day in Weekdays, or -1.
func WeekdayIndex(day string) int {
	for i, d := range Weekdays {
		if d == day {
			return i
		}
	}
	return -1
}

// WeekdayOf maps a time.Weekday onto the timetable day name.
func WeekdayOf(d time.Weekday) string {
	if d == time.Sunday {
		return Weekdays[6]
	}
	return Weekdays[int(d)-1]
}

// SessionType distinguishes lectures from practical sessions.
type SessionType string

const (
	SessionTypeLecture  SessionType = "LECTURE"
	SessionTypeLab      SessionType = "LAB"
	SessionTypeTutorial SessionType = "TUTORIAL"
	SessionTypeSeminar  SessionType = "SEMINAR"
)

// ClassSession is a weekly recurring timetable slot of a course.
type ClassSession struct {
	ID           string      `db:"id" json:"id"`
	CourseID     string      `db:"course_id" json:"course_id"`
	InstructorID *string     `db:"instructor_id" json:"instructor_id,omitempty"`
	DayOfWeek    string      `db:"day_of_week" json:"day_of_week"`
	StartTime    string      `db:"start_time" json:"start_time"`
	EndTime      string      `db:"end_time" json:"end_time"`
	Room         string      `db:"room" json:"room"`
	SessionType  SessionType `db:"session_type" json:"session_type"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// ClassSessionDetail adds course and instructor labels for display.
type ClassSessionDetail struct {
	ClassSession
	CourseCode     string  `db:"course_code" json:"course_code"`
	CourseName     string  `db:"course_name" json:"course_name"`
	InstructorName *string `db:"instructor_name" json:"instructor_name,omitempty"`
}

// ClassSessionFilter narrows timetable listings.
type ClassSessionFilter struct {
	CourseID     string
	InstructorID string
	DayOfWeek    string
	Room         string
	Page         int
	PageSize     int
}
