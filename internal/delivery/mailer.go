package delivery

import (
	"context"
	"fmt"
	"net/smtp"
	"path/filepath"
	"salesledger/internal/assert"
	"salesledger/internal/telemetry"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const report_mailer_send_report = "mailer.send-report"

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

// Enabled reports whether enough is configured to send anything.
func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && c.EmailAddress != "" && len(c.To) > 0
}

// Mailer e-mails report files as attachments.
type Mailer struct {
	config SmtpConfig
	tel    telemetry.API
}

var _ ReportSink = Mailer{}

func NewMailer(config SmtpConfig, tel telemetry.API) Mailer {
	assert.NotEmptyStr(config.Server)
	assert.NotNil(tel)
	if config.Port == 0 {
		config.Port = 587
	}
	return Mailer{
		config: config,
		tel:    telemetry.NewScopedAPI("delivery", tel),
	}
}

func (m Mailer) compose(path string) (*email.Email, error) {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Sales Ledger <%s>", m.config.EmailAddress)
	mail.To = m.config.To
	name := filepath.Base(path)
	mail.Subject = fmt.Sprintf("Relatório de vendas %s", strings.TrimSuffix(name, filepath.Ext(name)))
	mail.Text = []byte("Segue em anexo o relatório de vendas mais recente.\n")

	_, err := mail.AttachFile(path)
	if err != nil {
		return nil, fmt.Errorf("attach report: %w", err)
	}
	return mail, nil
}

func (m Mailer) SendReport(ctx context.Context, path string) (err error) {
	_, span := tracer.Start(ctx, "Mailer.SendReport", trace.WithAttributes(attribute.String("report.path", path)))
	defer func() { endSpan(span, err) }()

	mail, err := m.compose(path)
	if err != nil {
		m.tel.ReportBroken(report_mailer_send_report, err, path)
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
	err = mail.Send(addr, smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		m.tel.ReportBroken(report_mailer_send_report, err, path)
		return err
	}
	return nil
}
