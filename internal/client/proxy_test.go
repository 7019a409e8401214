package client

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/jumpstarter-dev/jumpstarter-go/internal/wire"
)

// fakeExporter implements wire.ExporterClient against an in-memory
// report and a scripted DriverCall response, enough to exercise
// BuildProxies and Call without a real gRPC channel.
type fakeExporter struct {
	report     *wire.DriverReport
	callResult *wire.DriverCallResponse
	callErr    error
}

func (f *fakeExporter) GetReport(context.Context, *wire.GetReportRequest, ...grpc.CallOption) (*wire.DriverReport, error) {
	return f.report, nil
}

func (f *fakeExporter) DriverCall(context.Context, *wire.DriverCallRequest, ...grpc.CallOption) (*wire.DriverCallResponse, error) {
	return f.callResult, f.callErr
}

func (f *fakeExporter) StreamingDriverCall(context.Context, *wire.DriverCallRequest, ...grpc.CallOption) (wire.Exporter_StreamingDriverCallClient, error) {
	return nil, errors.New("not implemented by fake")
}

func (f *fakeExporter) Stream(context.Context, ...grpc.CallOption) (wire.Exporter_StreamClient, error) {
	return nil, errors.New("not implemented by fake")
}

func (f *fakeExporter) LogStream(context.Context, *wire.LogStreamRequest, ...grpc.CallOption) (wire.Exporter_LogStreamClient, error) {
	return nil, errors.New("not implemented by fake")
}

func TestBuildProxiesReassemblesParentChildTree(t *testing.T) {
	root := uuid.New()
	child := uuid.New()
	report := &wire.DriverReport{Entries: []*wire.DriverReportEntry{
		{UUID: root.String(), Labels: map[string]string{"name": "root"}, ClientClass: "jumpstarter_driver_composite.client.CompositeClient"},
		{UUID: child.String(), ParentUUID: root.String(), Labels: map[string]string{"name": "power0"}, ClientClass: "jumpstarter_driver_power.client.PowerClient"},
	}}

	allow, err := NewAllowList([]string{"jumpstarter_driver_*"}, false, 0)
	if err != nil {
		t.Fatalf("NewAllowList: %v", err)
	}
	c := NewClient(&fakeExporter{report: report}, allow)

	proxy, err := c.BuildProxies(context.Background())
	if err != nil {
		t.Fatalf("BuildProxies: %v", err)
	}
	if proxy.UUID != root {
		t.Fatalf("got root %s, want %s", proxy.UUID, root)
	}
	power0 := proxy.Child("power0")
	if power0 == nil {
		t.Fatal("expected a power0 child proxy")
	}
	if power0.UUID != child {
		t.Fatalf("got child %s, want %s", power0.UUID, child)
	}
}

func TestBuildProxiesRefusesDisallowedClientClass(t *testing.T) {
	root := uuid.New()
	report := &wire.DriverReport{Entries: []*wire.DriverReportEntry{
		{UUID: root.String(), ClientClass: "com.example.Evil"},
	}}

	allow, err := NewAllowList([]string{"jumpstarter.*"}, false, 0)
	if err != nil {
		t.Fatalf("NewAllowList: %v", err)
	}
	c := NewClient(&fakeExporter{report: report}, allow)

	if _, err := c.BuildProxies(context.Background()); err == nil {
		t.Fatal("expected a disallowed client-class to fail proxy construction")
	}
}
