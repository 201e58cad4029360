package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/burst-fire/internal/logic"
	"github.com/sweeney/burst-fire/internal/status"
)

type nopDriver struct{}

func (nopDriver) Set(int, bool) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *logic.Engine) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:        10,
		HeartbeatMs:   900000,
		LinkPort:      "/dev/ttyAMA0",
		BaudRate:      115200,
		Broker:        "tcp://192.168.1.200:1883",
		HTTPAddr:      ":80",
		ZeroCrossEdge: "rising",
	}
	e := logic.NewEngine(nopDriver{}, time.Now())
	tr := status.NewTracker(start, cfg, e)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, e
}

func commit(e *logic.Engine, values ...byte) {
	now := time.Now()
	e.OnByte(logic.StartMarker, now)
	for _, v := range values {
		e.OnByte(v, now)
	}
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, e := newTestServer(t)
	commit(e, 10, 0, 120, 0, 60, 30)
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.State != "IDLE" {
		t.Errorf("State: got %q, want IDLE", sj.Status.State)
	}
	want := []int{10, 0, 120, 0, 60, 30}
	for i, ch := range sj.Status.Channels {
		if ch.Threshold != want[i] {
			t.Errorf("channel %d threshold: got %d, want %d", i, ch.Threshold, want[i])
		}
	}
	if sj.Status.Channels[4].DutyPercent != 50 {
		t.Errorf("channel 4 duty: got %v, want 50", sj.Status.Channels[4].DutyPercent)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.Transactions != 1 {
		t.Errorf("Counts.Transactions: got %d, want 1", sj.Status.Counts.Transactions)
	}
	if sj.Status.Config.PollMs != 10 {
		t.Errorf("Config.PollMs: got %d, want 10", sj.Status.Config.PollMs)
	}
}

func TestJSONInitialState(t *testing.T) {
	ts, _, _ := newTestServer(t)

	sj := getJSON(t, ts.URL)
	if sj.Status.State != "IDLE" {
		t.Errorf("State: got %q, want IDLE", sj.Status.State)
	}
	for _, ch := range sj.Status.Channels {
		if ch.Threshold != 0 {
			t.Errorf("channel %d: expected threshold 0 at startup, got %d", ch.Channel, ch.Threshold)
		}
	}
}

func TestJSONReportsStopped(t *testing.T) {
	ts, _, e := newTestServer(t)
	commit(e, 120, 120, 120, 120, 120, 120)

	if _, err := e.Tick(time.Now().Add(logic.FailsafeTimeout + time.Second)); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	sj := getJSON(t, ts.URL)
	if sj.Status.State != "STOPPED" {
		t.Errorf("State: got %q, want STOPPED", sj.Status.State)
	}
	if sj.Status.Counts.Stops != 1 {
		t.Errorf("Counts.Stops: got %d, want 1", sj.Status.Counts.Stops)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, _, e := newTestServer(t)
	commit(e, 10, 0, 120, 0, 60, 30)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"Burst Fire", "IDLE", "50.0%", "100.0%", "/dev/ttyAMA0"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, e := newTestServer(t)

	sj1 := getJSON(t, ts.URL)
	if sj1.Status.MQTT.Connected {
		t.Error("expected MQTT disconnected initially")
	}

	// Mid-transaction
	e.OnByte(logic.StartMarker, time.Now())
	e.OnByte(5, time.Now())
	tr.SetMQTTConnected(true)

	sj2 := getJSON(t, ts.URL)
	if sj2.Status.State != "RECEIVING" {
		t.Errorf("State: got %q, want RECEIVING", sj2.Status.State)
	}
	if sj2.Status.Cursor != 1 {
		t.Errorf("Cursor: got %d, want 1", sj2.Status.Cursor)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
