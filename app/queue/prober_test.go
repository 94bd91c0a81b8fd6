package queue

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type fakeMetadata struct {
	responses []metadataResult
	calls     int
}

type metadataResult struct {
	topics []string
	err    error
}

func (f *fakeMetadata) Metadata(_ context.Context, _ *kafka.MetadataRequest) (*kafka.MetadataResponse, error) {
	res := f.responses[len(f.responses)-1]
	if f.calls < len(f.responses) {
		res = f.responses[f.calls]
	}
	f.calls++
	if res.err != nil {
		return nil, res.err
	}
	resp := &kafka.MetadataResponse{}
	for _, name := range res.topics {
		resp.Topics = append(resp.Topics, kafka.Topic{Name: name})
	}
	return resp, nil
}

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestProber(fetcher MetadataFetcher, attempts int) (*TopicProber, *[]time.Duration) {
	var sleeps []time.Duration
	prober := NewTopicProber(fetcher, ProbeConfig{MaxAttempts: attempts, RetryInterval: 2 * time.Second}, testLogger())
	prober.wait = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return prober, &sleeps
}

func TestProbeOutcomes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		result metadataResult
		want   ProbeOutcome
	}{
		{name: "found", result: metadataResult{topics: []string{"other", DefaultTopic}}, want: ProbeFound},
		{name: "not found", result: metadataResult{topics: []string{"other"}}, want: ProbeNotFound},
		{name: "empty cluster", result: metadataResult{}, want: ProbeNotFound},
		{name: "broker unreachable", result: metadataResult{err: errors.New("dial tcp: refused")}, want: ProbeError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			prober, _ := newTestProber(&fakeMetadata{responses: []metadataResult{tc.result}}, 1)
			if got := prober.Probe(context.Background(), DefaultTopic); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestTopicReadySleepsAfterEachMiss(t *testing.T) {
	t.Parallel()

	fetcher := &fakeMetadata{responses: []metadataResult{
		{topics: []string{"other"}},
		{err: errors.New("timeout")},
		{topics: []string{DefaultTopic}},
	}}
	prober, sleeps := newTestProber(fetcher, 30)

	ready, err := prober.TopicReady(context.Background(), DefaultTopic)
	if err != nil || !ready {
		t.Fatalf("expected topic ready, got ready=%v err=%v", ready, err)
	}
	if fetcher.calls != 3 {
		t.Fatalf("expected 3 probes, got %d", fetcher.calls)
	}
	if len(*sleeps) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(*sleeps))
	}
	for _, d := range *sleeps {
		if d != 2*time.Second {
			t.Fatalf("unexpected sleep interval %s", d)
		}
	}
}

func TestTopicReadyExhaustsAttempts(t *testing.T) {
	t.Parallel()

	fetcher := &fakeMetadata{responses: []metadataResult{{topics: []string{"other"}}}}
	prober, sleeps := newTestProber(fetcher, 3)

	ready, err := prober.TopicReady(context.Background(), DefaultTopic)
	if err != nil || ready {
		t.Fatalf("expected not ready without error, got ready=%v err=%v", ready, err)
	}
	if fetcher.calls != 3 || len(*sleeps) != 3 {
		t.Fatalf("expected 3 probes and 3 sleeps, got %d and %d", fetcher.calls, len(*sleeps))
	}
}

func TestTopicReadyStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &fakeMetadata{responses: []metadataResult{{topics: []string{"other"}}}}
	prober, _ := newTestProber(fetcher, 30)
	prober.wait = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	ready, err := prober.TopicReady(ctx, DefaultTopic)
	if ready || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got ready=%v err=%v", ready, err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected a single probe, got %d", fetcher.calls)
	}
}

func TestNewTopicProberDefaults(t *testing.T) {
	t.Parallel()

	prober := NewTopicProber(&fakeMetadata{}, ProbeConfig{}, testLogger())
	if prober.config.MaxAttempts != 1 || prober.config.RetryInterval != 2*time.Second || prober.config.MetadataTimeout != 10*time.Second {
		t.Fatalf("unexpected defaults: %+v", prober.config)
	}
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("sleepContext: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
