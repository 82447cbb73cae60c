package admin

import "time"

type Stats struct {
	TotalUsers           int `json:"totalUsers"`
	TotalAppointments    int `json:"totalAppointments"`
	TotalRegistrations   int `json:"totalRegistrations"`
	TotalHospitals       int `json:"totalHospitals"`
	TodayAppointments    int `json:"todayAppointments"`
	PendingRegistrations int `json:"pendingRegistrations"`
}

type ActivityType string

const (
	ActivityRegistration ActivityType = "registration"
	ActivityAppointment  ActivityType = "appointment"
)

// Activity is one line of the recent-activity feed.
type Activity struct {
	Type    ActivityType `json:"type"`
	Message string       `json:"message"`
	Time    time.Time    `json:"time"`
	Status  string       `json:"status"`
}

type Dashboard struct {
	Stats          Stats      `json:"stats"`
	RecentActivity []Activity `json:"recentActivity"`
}
