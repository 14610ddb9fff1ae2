package notifications

const (
	FilterRead   = "read"
	FilterUnread = "unread"
)
