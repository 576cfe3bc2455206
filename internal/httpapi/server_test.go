package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Weatherlly/sr-transferencias/internal/adapters/fs"
	"github.com/Weatherlly/sr-transferencias/internal/app"
	"github.com/Weatherlly/sr-transferencias/internal/domain"
	"github.com/Weatherlly/sr-transferencias/internal/httpapi"
	"github.com/Weatherlly/sr-transferencias/pkg/log"
)

type fixture struct {
	dir    string
	server *httptest.Server
}

func newFixture(t *testing.T, opts httpapi.Options) *fixture {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "transferencias")
	logger := log.NewNoopLogger()
	store := fs.NewRecordStore(dir, logger)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 10, 14, 0, 1, 0, time.UTC))
	service := app.NewTransferService(store, clock, logger)

	srv := httptest.NewServer(httpapi.New(service, logger, opts).Handler())
	t.Cleanup(srv.Close)

	return &fixture{dir: dir, server: srv}
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

type result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
	Error   string `json:"error"`
}

const validBody = `{
	"lojaOrigem": "Loja Centro",
	"lojaDestino": "Loja Norte",
	"itensQuantidade": {"Calabresa": 4, "Mussarela": "2"},
	"itensPeso": {"Caldo Verde": "1,5"}
}`

func TestCreateListDelete(t *testing.T) {
	f := newFixture(t, httpapi.Options{})

	resp := f.do(t, http.MethodPost, "/api/transferencias", validBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created result
	decode(t, resp, &created)
	if !created.Success || created.ID == "" {
		t.Fatalf("POST body = %+v", created)
	}

	resp = f.do(t, http.MethodGet, "/api/transferencias", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d", resp.StatusCode)
	}
	var records []domain.TransferRecord
	decode(t, resp, &records)
	if len(records) != 1 {
		t.Fatalf("listed %d records, want 1", len(records))
	}
	got := records[0]
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}
	if got.Origin != "Loja Centro" || got.Destination != "Loja Norte" {
		t.Errorf("stores = %q -> %q", got.Origin, got.Destination)
	}
	if got.Quantities["Mussarela"] != 2 {
		t.Errorf("Mussarela = %d, want 2", got.Quantities["Mussarela"])
	}
	if !got.Weights["Caldo Verde"].Equal(domain.MustWeight("1.5").Decimal) {
		t.Errorf("Caldo Verde = %s, want 1.5", got.Weights["Caldo Verde"])
	}
	if got.CreatedAt != "10/03/2024 - 14:00:01" {
		t.Errorf("CreatedAt = %q", got.CreatedAt)
	}

	resp = f.do(t, http.MethodDelete, "/api/transferencias/"+created.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE status = %d", resp.StatusCode)
	}
	var deleted result
	decode(t, resp, &deleted)
	if !deleted.Success {
		t.Errorf("DELETE body = %+v", deleted)
	}

	resp = f.do(t, http.MethodGet, "/api/transferencias", "")
	records = nil
	decode(t, resp, &records)
	if len(records) != 0 {
		t.Errorf("listed %d records after delete, want 0", len(records))
	}

	resp = f.do(t, http.MethodDelete, "/api/transferencias/"+created.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, httpapi.Options{})

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{
			name:    "same store",
			body:    `{"lojaOrigem":"A","lojaDestino":"A"}`,
			message: "Loja de origem e destino devem ser diferentes",
		},
		{
			name:    "same store different case",
			body:    `{"lojaOrigem":"loja a","lojaDestino":" Loja A "}`,
			message: "Loja de origem e destino devem ser diferentes",
		},
		{
			name:    "missing origin",
			body:    `{"lojaDestino":"B"}`,
			message: "Loja de origem é obrigatória",
		},
		{
			name:    "missing destination",
			body:    `{"lojaOrigem":"A","lojaDestino":"   "}`,
			message: "Loja de destino é obrigatória",
		},
		{
			name:    "not json",
			body:    `lojaOrigem=A`,
			message: "JSON inválido",
		},
		{
			name:    "trailing data after body",
			body:    `{"lojaOrigem":"A","lojaDestino":"B"} lixo`,
			message: "JSON inválido",
		},
		{
			name:    "second JSON value",
			body:    `{"lojaOrigem":"A","lojaDestino":"B"}{"lojaOrigem":"C","lojaDestino":"D"}`,
			message: "JSON inválido",
		},
		{
			name:    "quantity overflow",
			body:    `{"lojaOrigem":"A","lojaDestino":"B","itensQuantidade":{"Calabresa":99999999999999999999}}`,
			message: "JSON inválido",
		},
		{
			name:    "weight exponent",
			body:    `{"lojaOrigem":"A","lojaDestino":"B","itensPeso":{"Canja":1e50000000}}`,
			message: "JSON inválido",
		},
		{
			name:    "fractional quantity",
			body:    `{"lojaOrigem":"A","lojaDestino":"B","itensQuantidade":{"Calabresa":2.5}}`,
			message: "JSON inválido",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/api/transferencias", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			var body result
			decode(t, resp, &body)
			if body.Success {
				t.Error("success = true on rejected input")
			}
			if body.Message != tt.message {
				t.Errorf("message = %q, want %q", body.Message, tt.message)
			}
		})
	}

	resp := f.do(t, http.MethodGet, "/api/transferencias", "")
	var records []domain.TransferRecord
	decode(t, resp, &records)
	if len(records) != 0 {
		t.Errorf("rejected input stored %d records", len(records))
	}
}

func TestCreateBodyTooLarge(t *testing.T) {
	f := newFixture(t, httpapi.Options{MaxBodyBytes: 64})

	body := `{"lojaOrigem":"A","lojaDestino":"B","itensQuantidade":{"` + strings.Repeat("x", 128) + `":1}}`
	resp := f.do(t, http.MethodPost, "/api/transferencias", body)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}

func TestListEmptyIsArray(t *testing.T) {
	f := newFixture(t, httpapi.Options{})

	resp := f.do(t, http.MethodGet, "/api/transferencias", "")
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if got := string(bytes.TrimSpace(raw)); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestListSkipsUnreadableFiles(t *testing.T) {
	f := newFixture(t, httpapi.Options{})

	resp := f.do(t, http.MethodPost, "/api/transferencias", validBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d", resp.StatusCode)
	}
	if err := os.WriteFile(filepath.Join(f.dir, "transferencia_1.json"), []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}

	resp = f.do(t, http.MethodGet, "/api/transferencias", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d", resp.StatusCode)
	}
	var records []domain.TransferRecord
	decode(t, resp, &records)
	if len(records) != 1 {
		t.Errorf("listed %d records, want 1", len(records))
	}
}

func TestListedRecordsAreDeletable(t *testing.T) {
	f := newFixture(t, httpapi.Options{})

	resp := f.do(t, http.MethodPost, "/api/transferencias", validBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d", resp.StatusCode)
	}
	manual := `{"lojaOrigem":"Loja Sul","lojaDestino":"Loja Norte"}`
	if err := os.WriteFile(filepath.Join(f.dir, "manual.json"), []byte(manual), 0o600); err != nil {
		t.Fatal(err)
	}

	resp = f.do(t, http.MethodGet, "/api/transferencias", "")
	var records []domain.TransferRecord
	decode(t, resp, &records)
	if len(records) != 1 {
		t.Fatalf("listed %d records, want 1", len(records))
	}
	for _, rec := range records {
		resp := f.do(t, http.MethodDelete, "/api/transferencias/"+rec.ID, "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("DELETE %q status = %d, want 200", rec.ID, resp.StatusCode)
		}
	}
}

func TestDeleteRejectsMalformedID(t *testing.T) {
	f := newFixture(t, httpapi.Options{})

	for _, id := range []string{"abc", "..%2F..%2Fetc", "-5"} {
		resp := f.do(t, http.MethodDelete, "/api/transferencias/"+id, "")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("DELETE %q status = %d, want 404", id, resp.StatusCode)
		}
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	f := newFixture(t, httpapi.Options{})

	resp := f.do(t, http.MethodGet, "/api/desconhecido", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var body map[string]string
	decode(t, resp, &body)
	if body["error"] != "Endpoint não encontrado" {
		t.Errorf("body = %v", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t, httpapi.Options{})

	resp := f.do(t, http.MethodPut, "/api/transferencias", validBody)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, httpapi.Options{})

	resp := f.do(t, http.MethodGet, "/api/transferencias", "")
	if id := resp.Header.Get(httpapi.RequestIDHeader); len(id) != 36 {
		t.Errorf("generated request id = %q", id)
	}

	req, _ := http.NewRequest(http.MethodGet, f.server.URL+"/api/transferencias", nil)
	req.Header.Set(httpapi.RequestIDHeader, "abc-123")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if id := resp2.Header.Get(httpapi.RequestIDHeader); id != "abc-123" {
		t.Errorf("echoed request id = %q, want abc-123", id)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, httpapi.Options{CORSOrigins: []string{"http://loja.local"}})

	req, _ := http.NewRequest(http.MethodOptions, f.server.URL+"/api/transferencias", nil)
	req.Header.Set("Origin", "http://loja.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://loja.local" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req, _ = http.NewRequest(http.MethodGet, f.server.URL+"/api/transferencias", nil)
	req.Header.Set("Origin", "http://outra.local")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if got := resp2.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for foreign origin = %q, want empty", got)
	}
}

func TestStatus(t *testing.T) {
	since := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	f := newFixture(t, httpapi.Options{
		Status: func() httpapi.Status {
			return httpapi.Status{State: "Running", Since: since, DataDir: "transferencias", Watching: true}
		},
	})

	resp := f.do(t, http.MethodGet, "/api/status", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var st httpapi.Status
	decode(t, resp, &st)
	if st.State != "Running" || !st.Watching || !st.Since.Equal(since) {
		t.Errorf("status = %+v", st)
	}
	if st.LastChange != nil {
		t.Errorf("LastChange = %v, want nil", st.LastChange)
	}
}

func TestStaticFiles(t *testing.T) {
	static := fstest.MapFS{
		"index.html": {Data: []byte("<h1>Transferências</h1>")},
	}
	f := newFixture(t, httpapi.Options{Static: static})

	resp := f.do(t, http.MethodGet, "/", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "Transferências") {
		t.Errorf("body = %q", raw)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, httpapi.Options{Metrics: true})

	resp := f.do(t, http.MethodPost, "/api/transferencias", validBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status = %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	for _, name := range []string{"transferencias_registered_total", "transferencias_http_requests_total"} {
		if !strings.Contains(string(raw), name) {
			t.Errorf("/metrics missing %s", name)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	f := newFixture(t, httpapi.Options{})

	resp := f.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /metrics status = %d, want 404", resp.StatusCode)
	}
}
