package auth

import "context"

// LogNotifier writes notifications to the logger instead of a mail
// transport. It stands in for the host application's email dispatcher in
// development and tests.
type LogNotifier struct {
	logger Logger
}

// NewLogNotifier returns a Notifier backed by the given logger.
func NewLogNotifier(logger Logger) LogNotifier {
	if logger == nil {
		logger = defLogger{}
	}
	return LogNotifier{logger: logger}
}

func (n LogNotifier) Send(ctx context.Context, user *User, url string) error {
	n.logger.Info("notification to=%s url=%s", user.Email, url)
	return nil
}
