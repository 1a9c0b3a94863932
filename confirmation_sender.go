package authgate

import "context"

// LogConfirmationSender writes confirmation links to the log instead of
// sending email. Useful for development and tests.
type LogConfirmationSender struct {
	BaseURL string
	Logger  Logger
}

func NewLogConfirmationSender(baseURL string) *LogConfirmationSender {
	return &LogConfirmationSender{
		BaseURL: baseURL,
		Logger:  defLogger{},
	}
}

func (s *LogConfirmationSender) SendConfirmation(ctx context.Context, email, token string) error {
	logger := s.Logger
	if logger == nil {
		logger = defLogger{}
	}

	logger.Info("confirmation link",
		"email", email,
		"url", s.BaseURL+"/auth/callback?token="+token,
	)

	return nil
}

var _ ConfirmationSender = (*LogConfirmationSender)(nil)
