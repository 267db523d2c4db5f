package observability

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/fantasy-letters-backend/internal/config"
)

// keepGlobals restores the OTel globals when the test ends.
func keepGlobals(t *testing.T) {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func otelCfg(enabled, insecure bool) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     enabled,
		Insecure:    insecure,
		Endpoint:    "localhost:4317",
		ServiceName: "fantasy-letters-test",
		SampleRatio: 1,
	}
}

func TestSetupOTel(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name    string
		ctx     context.Context
		cfg     config.OTELConfig
		wantSDK bool
	}{
		{"disabled keeps no-op provider", context.Background(), otelCfg(false, true), false},
		{"insecure exporter", context.Background(), otelCfg(true, true), true},
		{"tls exporter", context.Background(), otelCfg(true, false), true},
		// The gRPC exporter connects lazily, so setup survives a dead context.
		{"cancelled context", cancelled, otelCfg(true, true), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keepGlobals(t)

			shutdown, err := SetupOTel(tc.ctx, tc.cfg, "v-test")
			if err != nil {
				t.Fatalf("SetupOTel: %v", err)
			}
			_, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
			if isSDK != tc.wantSDK {
				t.Fatalf("sdk provider installed = %v; want %v", isSDK, tc.wantSDK)
			}
			if tc.wantSDK {
				carrier := propagation.MapCarrier{}
				ctx, span := otel.Tracer("test").Start(context.Background(), "letter")
				otel.GetTextMapPropagator().Inject(ctx, carrier)
				span.End()
				if carrier.Get("traceparent") == "" {
					t.Fatalf("trace context propagator not installed")
				}
			}
			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown: %v", err)
			}
		})
	}
}

func TestSetupOTel_FailuresLeaveGlobalsAlone(t *testing.T) {
	origExp, origRes := newOTLPExporterFn, newServiceResourceFn
	t.Cleanup(func() { newOTLPExporterFn, newServiceResourceFn = origExp, origRes })

	cases := map[string]func(){
		"exporter": func() {
			newOTLPExporterFn = func(context.Context, otlptrace.Client) (*otlptrace.Exporter, error) {
				return nil, errors.New("exporter down")
			}
		},
		"resource": func() {
			newServiceResourceFn = func(context.Context, string, string) (*resource.Resource, error) {
				return nil, errors.New("no resource")
			}
		},
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			keepGlobals(t)
			newOTLPExporterFn, newServiceResourceFn = origExp, origRes
			breakIt()

			tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
			if _, err := SetupOTel(context.Background(), otelCfg(true, true), "v0"); err == nil {
				t.Fatalf("expected error")
			}
			if otel.GetTracerProvider() != tp || otel.GetTextMapPropagator() != prop {
				t.Fatalf("globals changed on failure")
			}
		})
	}
}

func TestStartSpan_AndFail_RecordOnProvider(t *testing.T) {
	keepGlobals(t)

	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	_, span := StartSpan(context.Background(), "services/LetterService", "Generate",
		trace.WithSpanKind(trace.SpanKindInternal))
	Fail(span, errors.New("generator timed out"))
	Fail(span, nil)
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("want 1 ended span, got %d", len(ended))
	}
	got := ended[0]
	if got.Name() != "Generate" || got.InstrumentationScope().Name != "services/LetterService" {
		t.Fatalf("span = %s scope=%s", got.Name(), got.InstrumentationScope().Name)
	}
	if got.Status().Code != codes.Error || got.Status().Description != "generator timed out" {
		t.Fatalf("status = %+v", got.Status())
	}
	if len(got.Events()) != 1 {
		t.Fatalf("want one exception event, got %d", len(got.Events()))
	}
}

func TestSamplerFor(t *testing.T) {
	cases := map[float64]string{
		1:    "AlwaysOnSampler",
		2:    "AlwaysOnSampler",
		0:    "AlwaysOffSampler",
		-1:   "AlwaysOffSampler",
		0.25: "TraceIDRatioBased",
	}
	for ratio, want := range cases {
		desc := samplerFor(ratio).Description()
		if !strings.Contains(desc, want) {
			t.Fatalf("samplerFor(%v) = %s; want it to mention %s", ratio, desc, want)
		}
	}
}

func TestDomainCollectorsRegistered(t *testing.T) {
	before := testutil.ToFloat64(CreditsGranted.WithLabelValues("physical"))
	CreditsGranted.WithLabelValues("physical").Add(5)
	if got := testutil.ToFloat64(CreditsGranted.WithLabelValues("physical")); got != before+5 {
		t.Fatalf("credits_granted_total = %v; want %v", got, before+5)
	}
	LettersGenerated.WithLabelValues("digital", "free").Inc()
	if n := testutil.CollectAndCount(LettersGenerated, "letters_generated_total"); n == 0 {
		t.Fatalf("letters_generated_total has no series")
	}
}

func TestExporterOptions(t *testing.T) {
	if n := len(exporterOptions(otelCfg(true, true))); n != 3 {
		t.Fatalf("insecure options = %d; want 3", n)
	}
	if n := len(exporterOptions(otelCfg(true, false))); n != 3 {
		t.Fatalf("tls options = %d; want 3", n)
	}
}
