package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/content-factory/topic-monitor/internal/config"
	"github.com/content-factory/topic-monitor/internal/models"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier mails a digest of each run
type EmailNotifier struct {
	config *config.Config
	sender mailSender
}

// Ensure EmailNotifier implements RunNotifier
var _ RunNotifier = (*EmailNotifier)(nil)

// NewEmailNotifier creates a new SMTP run notifier
func NewEmailNotifier(cfg *config.Config) *EmailNotifier {
	return &EmailNotifier{
		config: cfg,
		sender: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

// SendRunSummary sends the run digest
func (e *EmailNotifier) SendRunSummary(summary *models.RunSummary) error {
	subject := fmt.Sprintf("选题分析日报 - %s (%d/%d succeeded)",
		summary.StartedAt.In(e.config.Location()).Format("2006-01-02"), summary.Succeeded(), len(summary.Results))

	htmlBody, err := e.buildEmailHTML(summary)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.config.SMTPUsername)
	m.SetHeader("To", e.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", e.buildEmailText(summary))
	m.AddAlternative("text/html", htmlBody)

	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	logrus.WithField("run_id", summary.RunID).Info("Sent run summary email")
	return nil
}

type emailView struct {
	*models.RunSummary
	Succeeded int
	Total     int
	Started   string
	Duration  string
	AppURL    string
}

func (e *EmailNotifier) view(summary *models.RunSummary) emailView {
	return emailView{
		RunSummary: summary,
		Succeeded:  summary.Succeeded(),
		Total:      len(summary.Results),
		Started:    summary.StartedAt.In(e.config.Location()).Format("2006-01-02 15:04:05 MST"),
		Duration:   summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second).String(),
		AppURL:     e.config.AppURL,
	}
}

const emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>选题分析日报</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #3370ff; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .result { border-left: 4px solid #107c10; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .failed { border-left-color: #d13438; }
        .meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>选题分析日报</h1>
        <p>Run {{.RunID}} started {{.Started}}, took {{.Duration}}</p>
    </div>

    <div class="summary">
        <p><strong>{{.Succeeded}}/{{.Total}}</strong> keywords succeeded</p>
    </div>

    {{range .Results}}
    <div class="result{{if not .Success}} failed{{end}}">
        <strong>{{.Keyword}}</strong> ({{.Platform.DisplayName}})
        <div class="meta">
            {{if .Success}}OK{{else}}Failed: {{.Error}}{{end}}
            {{if .ReportID}} | <a href="{{$.AppURL}}/reports/{{.ReportID}}">report #{{.ReportID}}</a>{{end}}
            {{if .Delivered}} | pushed{{else if .DeliveryError}} | push failed: {{.DeliveryError}}{{end}}
        </div>
    </div>
    {{end}}

    <hr>
    <p><small>This report was generated automatically by the topic monitor.</small></p>
</body>
</html>
`

var emailHTML = template.Must(template.New("email").Parse(emailTemplate))

func (e *EmailNotifier) buildEmailHTML(summary *models.RunSummary) (string, error) {
	var buf bytes.Buffer
	if err := emailHTML.Execute(&buf, e.view(summary)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *EmailNotifier) buildEmailText(summary *models.RunSummary) string {
	v := e.view(summary)
	var text strings.Builder

	text.WriteString("选题分析日报\n")
	text.WriteString(fmt.Sprintf("Run %s started %s, took %s\n\n", v.RunID, v.Started, v.Duration))
	text.WriteString(fmt.Sprintf("%d/%d keywords succeeded\n", v.Succeeded, v.Total))
	text.WriteString("=======\n")

	for i, r := range summary.Results {
		status := "OK"
		if !r.Success {
			status = "FAILED: " + r.Error
		}
		text.WriteString(fmt.Sprintf("\n%d. %s (%s) %s\n", i+1, r.Keyword, r.Platform.DisplayName(), status))
		if r.ReportID != nil {
			text.WriteString(fmt.Sprintf("   Report: %s/reports/%d\n", v.AppURL, *r.ReportID))
		}
		if r.DeliveryError != "" {
			text.WriteString(fmt.Sprintf("   Push failed: %s\n", r.DeliveryError))
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by the topic monitor.\n")
	return text.String()
}
