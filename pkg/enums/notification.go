package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrderAccepted    NotificationType = "order_accepted"
	NotificationTypeOrderDeclined    NotificationType = "order_declined"
	NotificationTypeOfferReceived    NotificationType = "offer_received"
	NotificationTypePaymentConfirmed NotificationType = "payment_confirmed"
	NotificationTypeCashVerified     NotificationType = "cash_verified"
	NotificationTypeDeliveryScanned  NotificationType = "delivery_scanned"
	NotificationTypeOrderCompleted   NotificationType = "order_completed"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderAccepted,
	NotificationTypeOrderDeclined,
	NotificationTypeOfferReceived,
	NotificationTypePaymentConfirmed,
	NotificationTypeCashVerified,
	NotificationTypeDeliveryScanned,
	NotificationTypeOrderCompleted,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
