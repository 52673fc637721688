package notifications

// Channel is a notification sink that may choose to filter alerts
// before sending.
type Channel interface {
	Name() string
	ShouldNotify(alert Alert) bool
	Send(alert Alert) error
}
