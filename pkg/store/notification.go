package store

import (
	"time"

	"github.com/moveaside/moveaside/pkg/alerting"
)

type NotificationStatus string

const (
	NotificationStatusSent NotificationStatus = "SENT"
)

// Notification is the record kept for every candidate notified in a cycle.
type Notification struct {
	UserID   string
	DriverID string
	RideID   string
	CycleID  string

	Title   string
	Message string

	Status NotificationStatus

	CreationDateTime time.Time
}

func notificationsForCycle(cycle *alerting.CycleResult, now time.Time) []Notification {
	notifications := make([]Notification, 0, len(cycle.Report.Notified))
	for _, userID := range cycle.Report.Notified {
		notifications = append(notifications, Notification{
			UserID:           userID,
			DriverID:         cycle.VehicleID,
			RideID:           cycle.RideID,
			CycleID:          cycle.CycleID,
			Title:            cycle.Title,
			Message:          cycle.Message,
			Status:           NotificationStatusSent,
			CreationDateTime: now,
		})
	}
	return notifications
}
