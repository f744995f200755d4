package upseller

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"salesledger/internal/accessor"
	"salesledger/internal/assert"
	"salesledger/internal/restyutil"
	"salesledger/internal/telemetry"
	"strconv"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch_page   = "client.fetch-page"
	report_client_capture_page = "client.capture-page"
)

var tracer = otel.Tracer("salesledger/internal/upseller")

type ClientOptions struct {
	// OrdersURL is the address of the order listing.
	OrdersURL string
	// Cookie is sent verbatim with every request, it carries the logged in
	// session of the panel.
	Cookie string
	// PageParam is the query parameter selecting the page, defaults to "page".
	PageParam string
	// CaptureDir, when set, receives a copy of every fetched page as
	// page-NNN.html so the listing can be replayed with a SnapshotAccessor.
	CaptureDir string
	// Exchanges, when set, receives the raw HTTP exchanges.
	Exchanges restyutil.Output
}

// HTTPAccessor fetches listing pages over HTTP and parses them with ParsePage.
type HTTPAccessor struct {
	http       *resty.Client
	ordersURL  string
	pageParam  string
	captureDir string
	tel        telemetry.API

	page    int
	current *Page
}

var _ accessor.Accessor = (*HTTPAccessor)(nil)

func NewHTTPAccessor(opts ClientOptions, tel telemetry.API) *HTTPAccessor {
	assert.NotEmptyStr(opts.OrdersURL)
	assert.NotNil(tel)

	if opts.PageParam == "" {
		opts.PageParam = "page"
	}

	httpClient := resty.New()
	httpClient.SetTimeout(time.Minute)
	httpClient.SetHeader("user-agent", "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0")
	if opts.Cookie != "" {
		httpClient.SetHeader("cookie", opts.Cookie)
	}
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	// 1 request per second, the panel throttles aggressive clients
	rateLimiter := rate.NewLimiter(1, 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return waitLimiter(req.Context(), rateLimiter)
	})

	restyutil.InstrumentClient(httpClient, "upseller", tracer, opts.Exchanges)

	return &HTTPAccessor{
		http:       httpClient,
		ordersURL:  opts.OrdersURL,
		pageParam:  opts.PageParam,
		captureDir: opts.CaptureDir,
		tel:        telemetry.NewScopedAPI("upseller", tel),
		page:       1,
	}
}

// waitLimiter waits for a request slot. The limiter refuses up front when the
// slot lies past the deadline of ctx, that refusal is reported as
// context.DeadlineExceeded.
func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	err := limiter.Wait(ctx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

func (a *HTTPAccessor) fetch(ctx context.Context) (*Page, error) {
	res, err := a.http.R().
		SetContext(ctx).
		SetQueryParam(a.pageParam, strconv.Itoa(a.page)).
		Get(a.ordersURL)
	if err != nil {
		a.tel.ReportBroken(report_client_fetch_page, fmt.Errorf("fetch: %w", err), a.page)
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		err = fmt.Errorf("unexpected status %d", res.StatusCode())
		a.tel.ReportBroken(report_client_fetch_page, err, a.page)
		return nil, err
	}

	a.capture(res.Body())

	page, err := ParsePage(bytes.NewReader(res.Body()))
	if err != nil {
		a.tel.ReportBroken(report_client_fetch_page, err, a.page)
		return nil, err
	}
	a.tel.ReportDebug("fetched page", a.page, page.Layout, len(page.Blocks))
	a.current = &page
	return &page, nil
}

func (a *HTTPAccessor) capture(body []byte) {
	if a.captureDir == "" {
		return
	}
	path := filepath.Join(a.captureDir, fmt.Sprintf("page-%03d.html", a.page))
	err := os.MkdirAll(a.captureDir, 0o755)
	if err == nil {
		err = os.WriteFile(path, body, 0o644)
	}
	if err != nil {
		a.tel.ReportWarning(report_client_capture_page, err, path)
	}
}

func (a *HTTPAccessor) currentPage(ctx context.Context) (*Page, error) {
	if a.current != nil {
		return a.current, nil
	}
	return a.fetch(ctx)
}

// RowBlocks fetches the current page again, so every cycle sees a fresh render.
func (a *HTTPAccessor) RowBlocks(ctx context.Context) ([]accessor.RowBlock, error) {
	page, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return page.Blocks, nil
}

func (a *HTTPAccessor) AdvancePage(ctx context.Context) (bool, error) {
	page, err := a.currentPage(ctx)
	if err != nil {
		return false, err
	}
	if !page.HasNext {
		return false, nil
	}
	a.page++
	a.current = nil
	return true, nil
}

func (a *HTTPAccessor) FirstPage(ctx context.Context) (bool, error) {
	a.page = 1
	page, err := a.fetch(ctx)
	if err != nil {
		return false, err
	}
	return page.OnFirst, nil
}
