// Package notify sends budget alert emails through Resend.
package notify

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-budget/pkg/money"
)

// DefaultFrom is used when no sender address is configured.
const DefaultFrom = "Smart Budget <alerts@smart-budget.app>"

// BudgetAlert describes a budget that crossed its warning or limit.
type BudgetAlert struct {
	To          string
	Category    string // category name or bucket, e.g. "Needs"
	Budget      decimal.Decimal
	Spent       decimal.Decimal
	PercentUsed float64
	Currency    string
}

// IsOver reports whether the budget has been exhausted.
func (a BudgetAlert) IsOver() bool {
	return a.PercentUsed >= 100
}

// Subject is the email subject line.
func (a BudgetAlert) Subject() string {
	if a.IsOver() {
		return fmt.Sprintf("Budget exceeded: %s", a.Category)
	}
	return fmt.Sprintf("Budget warning: %s at %.0f%%", a.Category, a.PercentUsed)
}

// emailSender matches resend's EmailsSvc so tests can substitute it.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Sender delivers alerts. A Sender without an API key logs and skips.
type Sender struct {
	emails emailSender
	from   string
	logger *slog.Logger
}

// NewSender creates a Resend backed sender. An empty apiKey disables delivery.
func NewSender(apiKey, from string, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	if from == "" {
		from = DefaultFrom
	}
	s := &Sender{from: from, logger: logger}
	if apiKey != "" {
		s.emails = resend.NewClient(apiKey).Emails
	}
	return s
}

// SendBudgetAlert emails a budget alert.
func (s *Sender) SendBudgetAlert(ctx context.Context, alert BudgetAlert) error {
	if s.emails == nil {
		s.logger.Warn("resend client not configured, skipping budget alert",
			slog.String("category", alert.Category),
			slog.Float64("percent_used", alert.PercentUsed))
		return nil
	}
	if strings.TrimSpace(alert.To) == "" {
		s.logger.Warn("budget alert has no recipient, skipping", slog.String("category", alert.Category))
		return nil
	}

	html, err := renderAlert(alert)
	if err != nil {
		return fmt.Errorf("failed to render budget alert: %w", err)
	}

	_, err = s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{alert.To},
		Subject: alert.Subject(),
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to send budget alert: %w", err)
	}

	s.logger.Info("budget alert sent",
		slog.String("category", alert.Category),
		slog.Bool("over", alert.IsOver()))
	return nil
}

var alertTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: sans-serif; margin: 0; padding: 40px 0; }
    .container { border: 1px solid #e5e7eb; border-radius: 12px; padding: 32px; max-width: 480px; margin: 0 auto; }
    .label { color: {{.Color}}; font-size: 12px; font-weight: 700; letter-spacing: 2px; text-align: center; }
    h1 { font-size: 24px; text-align: center; margin: 16px 0; }
    .text { color: #4b5563; font-size: 16px; line-height: 24px; text-align: center; }
  </style>
</head>
<body>
  <div class="container">
    <p class="label">{{.Label}}</p>
    <h1>{{.Category}}</h1>
    <p class="text">You have spent {{.Spent}} of your {{.Budget}} budget ({{printf "%.0f" .PercentUsed}}%).</p>
  </div>
</body>
</html>
`))

func renderAlert(a BudgetAlert) (string, error) {
	data := struct {
		Label, Color, Category, Spent, Budget string
		PercentUsed                           float64
	}{
		Label:       "BUDGET WARNING",
		Color:       "#d97706",
		Category:    a.Category,
		Spent:       money.Display(a.Spent, a.Currency),
		Budget:      money.Display(a.Budget, a.Currency),
		PercentUsed: a.PercentUsed,
	}
	if a.IsOver() {
		data.Label = "BUDGET EXCEEDED"
		data.Color = "#dc2626"
	}

	var b strings.Builder
	if err := alertTemplate.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
