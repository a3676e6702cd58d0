package nelson

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"math"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/BTBurke/nelson/pkg/proto"
	"github.com/BTBurke/nelson/pkg/stat"
)

const createMethod = "/nelson.Reports/Create"

// Report describes a change of chart state
type Report struct {
	RunID      string
	ConfigID   string
	Chart      string
	Reason     proto.ReportReason
	Summary    stat.Summary
	Violations map[string][]int
	CreatedAt  time.Time
}

// ReportSender sends reports in the background
type ReportSender interface {
	Send(ctx context.Context, rpt Report)
	Wait() error
}

// senderService sends reports to the report server over gRPC, retrying with exponential backoff until the
// report is acknowledged, maxElapsed passes or the context is cancelled
type senderService struct {
	target     string
	opts       []grpc.DialOption
	maxElapsed time.Duration
	errors     ErrorReporter
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func newSenderService(c Config, errors ErrorReporter, logger *slog.Logger) *senderService {
	s := &senderService{
		target:     net.JoinHostPort(c.host, c.port),
		maxElapsed: 15 * time.Minute,
		errors:     errors,
		logger:     logger,
	}
	if c.useTLS {
		s.opts = append(s.opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
	} else {
		s.opts = append(s.opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	return s
}

// Send transmits rpt in a goroutine.  Failures are passed to the error reporter.
func (s *senderService) Send(ctx context.Context, rpt Report) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.send(ctx, rpt); err != nil {
			s.errors.ReportError(fmt.Errorf("failed to send %s report for run %s: %w", rpt.Reason, rpt.RunID, err))
			return
		}
		s.logger.Info("report sent", "run", rpt.RunID, "reason", rpt.Reason.String())
	}()
}

// Wait blocks until every report started with Send has finished
func (s *senderService) Wait() error {
	s.wg.Wait()
	return nil
}

func (s *senderService) send(ctx context.Context, rpt Report) error {
	req := rpt.toStruct()
	op := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		conn, err := grpc.DialContext(dialCtx, s.target, s.opts...)
		if err != nil {
			return err
		}
		defer conn.Close()

		ack := new(structpb.Struct)
		if err := conn.Invoke(ctx, createMethod, req, ack); err != nil {
			s.logger.Debug("report attempt failed", "run", rpt.RunID, "err", err)
			return err
		}
		if !success(ack) {
			return fmt.Errorf("report not acknowledged")
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = s.maxElapsed
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

func success(ack *structpb.Struct) bool {
	v, ok := ack.GetFields()["success"]
	if !ok {
		return false
	}
	return v.GetBoolValue()
}

// toStruct converts the report to a protobuf Struct.  NaN statistics are sent as null.
func (r Report) toStruct() *structpb.Struct {
	keys := make([]string, 0, len(r.Violations))
	for k := range r.Violations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	counts := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	flagged := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	for _, k := range keys {
		idx := r.Violations[k]
		counts.Fields[k] = numberValue(float64(len(idx)))
		list := &structpb.ListValue{}
		for _, i := range idx {
			list.Values = append(list.Values, numberValue(float64(i)))
		}
		flagged.Fields[k] = &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: list}}
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"run_id":     stringValue(r.RunID),
		"config_id":  stringValue(r.ConfigID),
		"chart":      stringValue(r.Chart),
		"reason":     stringValue(r.Reason.String()),
		"n":          numberValue(float64(r.Summary.N)),
		"mean":       numberValue(r.Summary.Mean),
		"stddev":     numberValue(r.Summary.StdDev),
		"counts":     {Kind: &structpb.Value_StructValue{StructValue: counts}},
		"violations": {Kind: &structpb.Value_StructValue{StructValue: flagged}},
		"created_at": numberValue(float64(r.CreatedAt.Unix())),
	}}
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func numberValue(f float64) *structpb.Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &structpb.Value{Kind: &structpb.Value_NullValue{}}
	}
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: f}}
}

// nopSender drops reports when no report host is configured
type nopSender struct{}

func (nopSender) Send(ctx context.Context, rpt Report) {}
func (nopSender) Wait() error                          { return nil }
