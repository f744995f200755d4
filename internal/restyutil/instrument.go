// Package restyutil instruments resty clients with tracing and an optional
// dump of every request/response exchange.
package restyutil

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

type Output interface {
	Write(id string, contents string)
}

type instrumentCtx struct {
	name      string
	output    Output
	tracer    trace.Tracer
	idcounter *uint64
}

type messageIDKey struct{}

// InstrumentClient starts a span around every request of client. When output
// is not nil, every completed exchange is also written to it under an
// incrementing id prefixed with name.
//
// `tracer` can be nil, it will default to a library name of "resty"
func InstrumentClient(client *resty.Client, name string, tracer trace.Tracer, output Output) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}

	var idcounter uint64
	i := instrumentCtx{name: name, output: output, tracer: tracer, idcounter: &idcounter}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentCtx) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))

	messageID := fmt.Sprintf("%s-%s", i.name, strconv.FormatUint(atomic.AddUint64(i.idcounter, 1), 10))
	slog.DebugContext(
		ctx, "start request",
		"method", req.Method,
		"url", req.URL,
		"message_id", messageID,
	)
	ctx = context.WithValue(ctx, messageIDKey{}, messageID)

	req.SetContext(ctx)
	return nil
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	// request attributes are set here since res.Request.RawRequest is nil in onBeforeRequest
	if res.RawResponse != nil {
		span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}
	span.SetStatus(httpconv.ClientStatus(res.StatusCode()))

	messageID, _ := ctx.Value(messageIDKey{}).(string)
	if i.output != nil && res.Request.RawRequest != nil {
		i.output.Write(messageID, FormatExchange(res))
	}
	slog.DebugContext(
		ctx, "request finished",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"status", res.StatusCode(),
		"message_id", messageID,
	)
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	if req.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
	}

	messageID, _ := ctx.Value(messageIDKey{}).(string)
	slog.DebugContext(
		ctx, "request failed",
		"method", req.Method,
		"url", req.URL,
		"err", err,
		"message_id", messageID,
	)
}
