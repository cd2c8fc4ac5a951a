package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pxbase/pxread/pkg/pxfile"
	"github.com/pxbase/pxread/pkg/pxfile/pxfiletest"
)

func writeTable(t *testing.T) string {
	t.Helper()
	b := pxfiletest.New().
		Field("Code", pxfile.TypeLong, 4).
		Field("Label", pxfile.TypeAlpha, 10)
	b.Row(pxfiletest.Long(10), pxfiletest.Alpha(10, "ten"))
	b.Row(pxfiletest.Long(20), pxfiletest.Alpha(10, "twenty"))

	dbPath, _, err := b.Write(t.TempDir(), "items")
	if err != nil {
		t.Fatalf("failed to write test table: %v", err)
	}
	return dbPath
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string) map[string]interface{} {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func TestInfoEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{DBPath: writeTable(t)})

	payload := getJSON(t, ts.URL+"/api/info")
	if payload["success"] != true {
		t.Fatalf("expected success, got %v", payload)
	}
	if n := payload["num_records"].(float64); n != 2 {
		t.Errorf("num_records = %v", n)
	}
	if n := payload["num_fields"].(float64); n != 2 {
		t.Errorf("num_fields = %v", n)
	}
	fields := payload["fields"].([]interface{})
	first := fields[0].(map[string]interface{})
	if first["name"] != "Code" {
		t.Errorf("first field = %v", first)
	}
}

func TestRecordsEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{DBPath: writeTable(t)})

	payload := getJSON(t, ts.URL+"/api/records")
	if payload["count"].(float64) != 2 {
		t.Fatalf("count = %v", payload["count"])
	}
	records := payload["records"].([]interface{})
	row := records[0].(map[string]interface{})
	if row["Code"].(float64) != 10 {
		t.Errorf("Code = %v", row["Code"])
	}
	if row["Label"] != "ten" {
		t.Errorf("Label = %v", row["Label"])
	}
}

func TestCodepageEndpoint(t *testing.T) {
	b := pxfiletest.New().
		Field("Name", pxfile.TypeAlpha, 4).
		Codepage(1252)
	b.Row(pxfiletest.Alpha(4, "abc"))
	dbPath, _, err := b.Write(t.TempDir(), "cp")
	if err != nil {
		t.Fatalf("failed to write test table: %v", err)
	}

	ts := newTestServer(t, Options{DBPath: dbPath})
	payload := getJSON(t, ts.URL+"/api/codepage")
	if payload["codepage"] != "CP1252" {
		t.Errorf("codepage = %v", payload["codepage"])
	}
	if payload["recorded"] != true {
		t.Errorf("recorded = %v", payload["recorded"])
	}
}

func TestMissingTableReportsError(t *testing.T) {
	ts := newTestServer(t, Options{DBPath: "/nonexistent/table.db"})

	resp, err := http.Get(ts.URL + "/api/records")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}

func TestWebSocketOriginRejected(t *testing.T) {
	ts := newTestServer(t, Options{DBPath: writeTable(t)})

	req, err := http.NewRequest("GET", ts.URL+"/ws", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusSwitchingProtocols {
		t.Error("expected upgrade rejection for unlisted origin")
	}
}

func TestSnapshotServing(t *testing.T) {
	dbPath := writeTable(t)
	ts := newTestServer(t, Options{DBPath: dbPath, Snapshot: true})

	payload := getJSON(t, ts.URL+"/api/records")
	if payload["count"].(float64) != 2 {
		t.Fatalf("count = %v", payload["count"])
	}
	// The served file name still reports the original path.
	info := getJSON(t, ts.URL+"/api/info")
	if file := info["file"].(string); !strings.HasSuffix(file, ".db") {
		t.Errorf("file = %q", file)
	}
}
