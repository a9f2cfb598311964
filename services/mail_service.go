package services

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/tribehub/tribehub_backend/config"
)

// Mailer delivers verification codes through the email gateway. Success
// means the gateway accepted the dispatch, not that the mail was
// delivered.
type Mailer interface {
	SendOTP(to, name, code string, ttl time.Duration) error
}

// MailService sends recovery emails over SMTP.
type MailService struct {
	cfg config.SMTPConfig
}

// NewMailService creates a mail service with the given gateway settings.
func NewMailService(cfg config.SMTPConfig) *MailService {
	return &MailService{cfg: cfg}
}

// SendOTP sends the verification code to the user's email
func (s *MailService) SendOTP(to, name, code string, ttl time.Duration) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	if name == "" {
		name = "there"
	}

	subject := "Your TribeHub verification code"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Reset Your Password</h2>
			<p>Hello %s,</p>
			<p>You have requested to reset your password. Please use the following code to verify your request:</p>
			<h3 style="background-color: #f0f0f0; padding: 10px; font-size: 24px; letter-spacing: 5px; text-align: center;">%s</h3>
			<p>This code will expire in %d minutes.</p>
			<p>Do not share this code with anyone. If you did not request a password reset, please ignore this email or contact support if you have concerns.</p>
			<p>Thank you,<br>The TribeHub Team</p>
		</body>
		</html>
	`, name, code, int(ttl.Minutes()))

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.SSL = s.cfg.UseTLS

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
