package transferencias_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jonboulle/clockwork"

	transferencias "github.com/Weatherlly/sr-transferencias"
)

func newService(t *testing.T, watch bool, opts ...transferencias.Option) (*transferencias.Service, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	cfg := transferencias.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.DataDir = filepath.Join(t.TempDir(), "transferencias")
	cfg.Timezone = "UTC"
	cfg.Watch = watch
	cfg.ShutdownTimeout = 2 * time.Second

	opts = append([]transferencias.Option{transferencias.WithListener(ln)}, opts...)
	svc, err := transferencias.New(cfg, opts...)
	if err != nil {
		ln.Close()
		t.Fatalf("New: %v", err)
	}
	return svc, cfg.DataDir
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := transferencias.DefaultConfig()
	cfg.DataDir = "  "
	if _, err := transferencias.New(cfg); err == nil {
		t.Fatal("expected error for empty data dir")
	}

	cfg = transferencias.DefaultConfig()
	cfg.StaticDir = filepath.Join(t.TempDir(), "missing")
	if _, err := transferencias.New(cfg); err == nil {
		t.Fatal("expected error for missing static dir")
	}
}

func TestServiceLifecycle(t *testing.T) {
	var states []string
	svc, dir := newService(t, false,
		transferencias.WithClock(clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC))),
		transferencias.WithStateHandler(func(_, cur transferencias.State, _ string) {
			states = append(states, cur.String())
		}),
	)

	if got := svc.Status(); got != transferencias.StateStopped {
		t.Fatalf("initial status = %v", got)
	}
	if err := svc.Stop(); !errors.Is(err, transferencias.ErrNotRunning) {
		t.Fatalf("Stop before Start = %v, want ErrNotRunning", err)
	}

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := svc.Start(context.Background()); !errors.Is(err, transferencias.ErrAlreadyRunning) {
		t.Fatalf("second Start = %v, want ErrAlreadyRunning", err)
	}
	if got := svc.Status(); got != transferencias.StateRunning {
		t.Fatalf("status = %v, want Running", got)
	}

	base := "http://" + svc.Addr().String()
	resp, err := http.Post(base+"/api/transferencias", "application/json",
		strings.NewReader(`{"lojaOrigem":"Loja Centro","lojaDestino":"Loja Sul","itensQuantidade":{"P01 - Calabresa":3}}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var created struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || !created.Success {
		t.Fatalf("POST = %d %+v", resp.StatusCode, created)
	}
	if want := "1714555800000"; created.ID != want {
		t.Errorf("id = %s, want %s", created.ID, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "transferencia_"+created.ID+".json")); err != nil {
		t.Errorf("record file: %v", err)
	}

	resp, err = http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	var st struct {
		State    string `json:"state"`
		Watching bool   `json:"watching"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&st)
	resp.Body.Close()
	if st.State != "Running" || st.Watching {
		t.Errorf("status body = %+v", st)
	}

	resp, err = http.Get(base + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET / = %d", resp.StatusCode)
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := svc.Status(); got != transferencias.StateStopped {
		t.Errorf("status after Stop = %v", got)
	}

	want := []string{"Starting", "Running", "Stopping", "Stopped"}
	if strings.Join(states, ",") != strings.Join(want, ",") {
		t.Errorf("transitions = %v, want %v", states, want)
	}
}

func TestServiceStartListenFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()

	cfg := transferencias.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = busy.Addr().(*net.TCPAddr).Port
	cfg.DataDir = t.TempDir()
	cfg.Watch = false

	svc, err := transferencias.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := svc.Start(context.Background()); err == nil {
		t.Fatal("expected listen error")
	}
	if got := svc.Status(); got != transferencias.StateCrashed {
		t.Errorf("status = %v, want Crashed", got)
	}
	if err := svc.Stop(); err != nil {
		t.Errorf("Stop after crash: %v", err)
	}
	if got := svc.Status(); got != transferencias.StateStopped {
		t.Errorf("status = %v, want Stopped", got)
	}
}

func TestServiceStaticOverride(t *testing.T) {
	static := fstest.MapFS{"index.html": {Data: []byte("painel")}}
	svc, _ := newService(t, false, transferencias.WithStaticFS(static))

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	resp, err := http.Get("http://" + svc.Addr().String() + "/index.html")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	buf := make([]byte, 16)
	n, _ := resp.Body.Read(buf)
	if got := string(buf[:n]); got != "painel" {
		t.Errorf("body = %q", got)
	}
}

func TestServiceWatchesDataDir(t *testing.T) {
	changes := make(chan string, 4)
	svc, dir := newService(t, true, transferencias.WithDirChangeHandler(func(file, op string, _ time.Time) {
		select {
		case changes <- op + " " + file:
		default:
		}
	}))

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	// The watcher creates the directory before subscribing; retry the write until it is seen.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	name := "transferencia_1700000000000.json"
	for {
		_ = os.WriteFile(filepath.Join(dir, name), []byte(`{"id":"1700000000000"}`), 0o600)
		select {
		case got := <-changes:
			if got != "added "+name {
				t.Errorf("change = %q", got)
			}
			return
		case <-tick.C:
		case <-deadline:
			t.Fatal("no change reported")
		}
	}
}
