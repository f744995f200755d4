package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"salesledger/internal/assert"
	"salesledger/internal/chrono"
	"salesledger/internal/restyutil"
	"salesledger/internal/sale"
	"salesledger/internal/telemetry"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("salesledger/internal/delivery")

const (
	report_webhook_send_sale   = "webhook.send-sale"
	report_webhook_send_report = "webhook.send-report"

	maxBodyPreview = 800
)

type WebhookOptions struct {
	// SaleURL receives every accepted sale as JSON, empty disables it.
	SaleURL string
	// ReportURL receives report files as a multipart upload, empty disables it.
	ReportURL string
	Retry     RetryPolicy
	Timeout   time.Duration
	// Exchanges, when set, receives the raw HTTP exchanges.
	Exchanges restyutil.Output
}

type Webhook struct {
	http      *resty.Client
	saleURL   string
	reportURL string
	retry     RetryPolicy
	time      chrono.API
	tel       telemetry.API
}

var (
	_ SaleSink   = Webhook{}
	_ ReportSink = Webhook{}
)

func NewWebhook(opts WebhookOptions, clock chrono.API, tel telemetry.API) Webhook {
	assert.NotNil(clock)
	assert.NotNil(tel)

	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	httpClient := resty.New()
	httpClient.SetTimeout(opts.Timeout)
	restyutil.InstrumentClient(httpClient, "webhook", tracer, opts.Exchanges)

	return Webhook{
		http:      httpClient,
		saleURL:   opts.SaleURL,
		reportURL: opts.ReportURL,
		retry:     opts.Retry,
		time:      clock,
		tel:       telemetry.NewScopedAPI("delivery", tel),
	}
}

func (w Webhook) check(res *resty.Response, err error) error {
	if err != nil {
		return &Failure{Err: err}
	}
	status := res.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}
	body := res.String()
	if len(body) > maxBodyPreview {
		body = body[:maxBodyPreview]
	}
	return &Failure{
		Status:     status,
		RetryAfter: parseRetryAfter(res.Header().Get("Retry-After"), w.time.Now()),
		Body:       body,
	}
}

// idempotencyKey is shared by every attempt of one delivery so the receiver
// can drop repeats.
func idempotencyKey() string {
	key, err := random.String(24)
	if err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return key
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
	}
	span.End()
}

func (w Webhook) SendSale(ctx context.Context, s sale.Sale) (err error) {
	if w.saleURL == "" {
		return nil
	}
	ctx, span := tracer.Start(ctx, "SendSale", trace.WithAttributes(attribute.String("sale.id", s.ID)))
	defer func() { endSpan(span, err) }()

	key := idempotencyKey()
	err = w.retry.Do(ctx, func(ctx context.Context) error {
		res, err := w.http.R().
			SetContext(ctx).
			SetHeader("Idempotency-Key", key).
			SetHeader("Content-Type", "application/json").
			SetBody(s).
			Post(w.saleURL)
		return w.check(res, err)
	})
	if err != nil {
		w.tel.ReportBroken(report_webhook_send_sale, err, s.ID)
	}
	return err
}

func (w Webhook) SendReport(ctx context.Context, path string) (err error) {
	if w.reportURL == "" {
		return nil
	}
	ctx, span := tracer.Start(ctx, "SendReport", trace.WithAttributes(attribute.String("report.path", path)))
	defer func() { endSpan(span, err) }()

	key := idempotencyKey()
	err = w.retry.Do(ctx, func(ctx context.Context) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		res, err := w.http.R().
			SetContext(ctx).
			SetHeader("Idempotency-Key", key).
			SetMultipartField("file", filepath.Base(path), "text/plain; charset=utf-8", f).
			Post(w.reportURL)
		return w.check(res, err)
	})
	if err != nil {
		w.tel.ReportBroken(report_webhook_send_report, err, path)
	}
	return err
}
