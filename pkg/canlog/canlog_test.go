package canlog_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/canlog/pkg/canlog"
)

// =============================================================================
// Test Utilities
// =============================================================================

// pipeSource is a ByteSource fed by the test.
type pipeSource struct {
	mu     sync.Mutex
	data   []byte
	fail   error
	closed bool
}

func (s *pipeSource) Write(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, b...)
}

func (s *pipeSource) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *pipeSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New("closed")
	}
	if len(s.data) > 0 {
		n := copy(p, s.data)
		s.data = s.data[n:]
		return n, nil
	}
	if s.fail != nil {
		return 0, s.fail
	}
	return 0, nil
}

func (s *pipeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *pipeSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// memorySink collects appended records.
type memorySink struct {
	mu    sync.Mutex
	lines []string
	names map[string]bool
}

func newMemorySink() *memorySink {
	return &memorySink{names: make(map[string]bool)}
}

func (s *memorySink) Append(_ context.Context, name string, lines []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, lines...)
	s.names[name] = true
	return name, nil
}

func (s *memorySink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func frame(seq byte) []byte {
	b := make([]byte, canlog.PacketSize)
	b[0], b[1] = canlog.Sync0, canlog.Sync1
	for i := 2; i < len(b); i++ {
		b[i] = seq + byte(i)
	}
	return b
}

func testConfig(t *testing.T) canlog.Config {
	t.Helper()
	return canlog.Config{
		Port:           "COM3",
		Baud:           115200,
		LogDir:         filepath.Join(t.TempDir(), "Logs"),
		FlushInterval:  10 * time.Millisecond,
		StatusInterval: 10 * time.Millisecond,
	}
}

// eventTracker records events.
type eventTracker struct {
	canlog.BaseEventHandler
	mu           sync.Mutex
	stateChanges []canlog.StateChangeEvent
	batches      []canlog.BatchWrittenEvent
	connErrors   []canlog.ConnectionErrorEvent
}

func (e *eventTracker) OnStateChange(event canlog.StateChangeEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateChanges = append(e.stateChanges, event)
}

func (e *eventTracker) OnBatchWritten(event canlog.BatchWrittenEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batches = append(e.batches, event)
}

func (e *eventTracker) OnConnectionError(event canlog.ConnectionErrorEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connErrors = append(e.connErrors, event)
}

func (e *eventTracker) States() []canlog.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []canlog.State
	for _, ev := range e.stateChanges {
		out = append(out, ev.Current)
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(2 * time.Millisecond):
		}
	}
}

// trackingPlugin records initialization and shutdown order.
type trackingPlugin struct {
	name      string
	order     *[]string
	mu        *sync.Mutex
	initError error
}

func (p *trackingPlugin) Name() string { return p.name }

func (p *trackingPlugin) Initialize(ctx context.Context, cfg canlog.PluginConfig) error {
	if p.initError != nil {
		return p.initError
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.order = append(*p.order, "init:"+p.name)
	return nil
}

func (p *trackingPlugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.order = append(*p.order, "shutdown:"+p.name)
	return nil
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  canlog.Config
	}{
		{"missing port", canlog.Config{}},
		{"negative baud", canlog.Config{Port: "COM3", Baud: -1}},
		{"negative queue limit", canlog.Config{Port: "COM3", QueueLimit: -5}},
		{"unknown overflow policy", canlog.Config{Port: "COM3", OverflowPolicy: "block"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := canlog.New(tt.cfg)
			if !errors.Is(err, canlog.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestCapture_StartStop(t *testing.T) {
	src := &pipeSource{}
	sink := newMemorySink()
	events := &eventTracker{}

	c, err := canlog.New(testConfig(t),
		canlog.WithPortOpener(func(name string, baud int) (canlog.ByteSource, error) { return src, nil }),
		canlog.WithLogSink(sink),
		canlog.WithEventHandler(events),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Status() != canlog.StateStopped {
		t.Errorf("Status() = %v, want Stopped", c.Status())
	}
	if err := c.Stop(); !errors.Is(err, canlog.ErrNotRunning) {
		t.Errorf("Stop() before Start = %v, want ErrNotRunning", err)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if c.Status() != canlog.StateRunning {
		t.Errorf("Status() = %v, want Running", c.Status())
	}
	if err := c.Start(context.Background()); !errors.Is(err, canlog.ErrAlreadyRunning) {
		t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
	}

	src.Write([]byte{0x00, 0xAA})
	src.Write(frame(0))
	src.Write(frame(1))
	waitFor(t, "two records", func() bool { return len(sink.Lines()) == 2 })

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if c.Status() != canlog.StateStopped {
		t.Errorf("Status() = %v, want Stopped", c.Status())
	}
	if !src.Closed() {
		t.Error("serial port not closed")
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v after clean stop", c.Err())
	}

	counters := c.Counters()
	if counters.FramesWritten != 2 || counters.BytesSkipped != 2 {
		t.Errorf("Counters() = %+v", counters)
	}

	want := []canlog.State{canlog.StateStarting, canlog.StateRunning, canlog.StateStopping, canlog.StateStopped}
	got := events.States()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("state changes = %v, want %v", got, want)
	}
	if len(events.batches) == 0 {
		t.Error("no BatchWritten event")
	}
	for _, line := range sink.Lines() {
		if !strings.Contains(line, ",AA 55 ") {
			t.Errorf("record %q lacks the sync marker", line)
		}
	}
}

func TestCapture_OpenFailure(t *testing.T) {
	events := &eventTracker{}
	c, err := canlog.New(testConfig(t),
		canlog.WithPortOpener(func(name string, baud int) (canlog.ByteSource, error) {
			return nil, os.ErrNotExist
		}),
		canlog.WithLogSink(newMemorySink()),
		canlog.WithEventHandler(events),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = c.Start(context.Background())
	var connErr *canlog.ConnectionError
	if !errors.As(err, &connErr) || connErr.Op != "open" {
		t.Fatalf("Start() = %v, want open ConnectionError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("ConnectionError does not wrap the cause")
	}
	if c.Status() != canlog.StateCrashed {
		t.Errorf("Status() = %v, want Crashed", c.Status())
	}
	if len(events.connErrors) != 1 || events.connErrors[0].Port != "COM3" {
		t.Errorf("connection error events = %+v", events.connErrors)
	}
}

func TestCapture_ConnectionLostCrashesAndRestarts(t *testing.T) {
	var sources []*pipeSource
	opener := func(name string, baud int) (canlog.ByteSource, error) {
		s := &pipeSource{}
		sources = append(sources, s)
		return s, nil
	}
	c, err := canlog.New(testConfig(t), canlog.WithPortOpener(opener), canlog.WithLogSink(newMemorySink()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sources[0].Fail(errors.New("device unplugged"))

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not end after read failure")
	}
	waitFor(t, "crashed state", func() bool { return c.Status() == canlog.StateCrashed })

	var connErr *canlog.ConnectionError
	if !errors.As(c.Err(), &connErr) || connErr.Op != "read" {
		t.Errorf("Err() = %v, want read ConnectionError", c.Err())
	}
	if !sources[0].Closed() {
		t.Error("port not closed after crash")
	}
	if err := c.Stop(); !errors.Is(err, canlog.ErrNotRunning) {
		t.Errorf("Stop() after crash = %v, want ErrNotRunning", err)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("port opened %d times, want 2", len(sources))
	}
	if err := c.Stop(); err != nil {
		t.Errorf("Stop() after restart = %v", err)
	}
}

func TestCapture_StatusFile(t *testing.T) {
	cfg := testConfig(t)
	src := &pipeSource{}
	c, err := canlog.New(cfg,
		canlog.WithPortOpener(func(string, int) (canlog.ByteSource, error) { return src, nil }),
		canlog.WithLogSink(newMemorySink()),
		canlog.WithStatusFile(""),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "status file", func() bool {
		st, err := canlog.ReadStatus(context.Background(), cfg.LogDir)
		return err == nil && st.State == "Running"
	})

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	st, err := canlog.ReadStatus(context.Background(), cfg.LogDir)
	if err != nil {
		t.Fatalf("ReadStatus() error = %v", err)
	}
	if st.State != "Stopped" || st.Port != "COM3" {
		t.Errorf("final status = %+v", st)
	}
}

// =============================================================================
// Plugin Tests
// =============================================================================

func TestPlugin_Order(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	p1 := &trackingPlugin{name: "p1", order: &order, mu: &mu}
	p2 := &trackingPlugin{name: "p2", order: &order, mu: &mu}

	c, err := canlog.New(testConfig(t),
		canlog.WithPortOpener(func(string, int) (canlog.ByteSource, error) { return &pipeSource{}, nil }),
		canlog.WithLogSink(newMemorySink()),
		canlog.WithPlugin(p1),
		canlog.WithPlugin(p2),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	want := "[init:p1 init:p2 shutdown:p2 shutdown:p1]"
	if got := fmt.Sprint(order); got != want {
		t.Errorf("plugin calls = %s, want %s", got, want)
	}
}

func TestPlugin_InitFailurePreventsStart(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	p1 := &trackingPlugin{name: "p1", order: &order, mu: &mu}
	p2 := &trackingPlugin{name: "p2", order: &order, mu: &mu, initError: errors.New("boom")}
	opened := false

	c, err := canlog.New(testConfig(t),
		canlog.WithPortOpener(func(string, int) (canlog.ByteSource, error) {
			opened = true
			return &pipeSource{}, nil
		}),
		canlog.WithPlugin(p1),
		canlog.WithPlugin(p2),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start() succeeded despite plugin failure")
	}
	if opened {
		t.Error("serial port opened after plugin failure")
	}
	if c.Status() != canlog.StateCrashed {
		t.Errorf("Status() = %v, want Crashed", c.Status())
	}
	if got := fmt.Sprint(order); got != "[init:p1 shutdown:p1]" {
		t.Errorf("plugin calls = %s", got)
	}
}

// =============================================================================
// Verify and readout
// =============================================================================

func TestVerify(t *testing.T) {
	input := strings.Join([]string{
		"13:37:00.000001,AA 55 00 01 02 03 04 05 06 07 08 09 0A 0B 0C 0D 0E 0F 10 11",
		"",
		"13:37:00.000002,AA 55 00 01",
		"13:37:00.000003,00 55 00 01 02 03 04 05 06 07 08 09 0A 0B 0C 0D 0E 0F 10 11",
		"garbage",
	}, "\n")

	res, err := canlog.Verify(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if res.Records != 2 || res.MalformedCount != 2 || res.Unsynced != 1 {
		t.Errorf("Verify() = %+v", res)
	}
	if res.Malformed[0].Line != 3 || res.Malformed[1].Line != 5 {
		t.Errorf("malformed lines = %+v", res.Malformed)
	}
	if res.OK() {
		t.Error("OK() = true for a damaged file")
	}
}

func TestFormatReadout(t *testing.T) {
	got := canlog.FormatReadout(canlog.Counters{Port: "COM3", ByteQueueDepth: 12, FrameQueueDepth: 4})
	if got != "Port: COM3 | Q: 12 | Log: 4" {
		t.Errorf("FormatReadout() = %q", got)
	}
}
