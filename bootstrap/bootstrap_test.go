package bootstrap_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artpar/rewardctl/bootstrap"
	"github.com/artpar/rewardctl/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// newFakeNode serves the partner query endpoints of a chain REST service.
func newFakeNode(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/rewardchain/rewardchain/partners":
			w.Write([]byte(`{"partners":[{"id":"1","name":"Acme","country":"US"}],"pagination":{"next_key":null,"total":"1"}}`))
		case "/cosmos/base/tendermint/v1beta1/node_info":
			w.Write([]byte(`{"default_node_info":{"network":"rewardchain","version":"0.38.12"}}`))
		case "/rewardchain/rewardchain/partners/1":
			w.Write([]byte(`{"partner":{"id":"1","name":"Acme","country":"US"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"code":5,"message":"not found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "rewardctl.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func baseConfig(nodeURL, dir string) string {
	return `
chain:
  rpc_url: "` + nodeURL + `"
database:
  dsn: "` + filepath.Join(dir, "journal.db") + `"
logging:
  level: debug
  format: json
`
}

func newApp(t *testing.T, opts bootstrap.Options) *bootstrap.App {
	t.Helper()
	opts.LogOutput = io.Discard
	a, err := bootstrap.New(opts)
	if err != nil {
		t.Fatalf("bootstrap.New() error = %v", err)
	}
	t.Cleanup(func() { a.Shutdown() })
	return a
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestBootstrap_Integration(t *testing.T) {
	node := newFakeNode(t)
	dir := t.TempDir()
	a := newApp(t, bootstrap.Options{ConfigPath: writeConfig(t, dir, baseConfig(node.URL, dir)), Version: "test"})

	if a.DB == nil {
		t.Error("DB should not be nil")
	}
	if a.Signer() != nil || a.Service.Address() != "" {
		t.Error("expected query-only mode without a mnemonic")
	}

	h := a.Handler()

	rec := get(t, h, "/v1/partners")
	if rec.Code != http.StatusOK {
		t.Fatalf("list partners status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"name":"Acme"`) {
		t.Errorf("list body = %s", rec.Body.String())
	}

	if rec := get(t, h, "/v1/partners/1"); rec.Code != http.StatusOK {
		t.Errorf("get partner status = %d", rec.Code)
	}
	if rec := get(t, h, "/v1/partners/2"); rec.Code != http.StatusNotFound {
		t.Errorf("missing partner status = %d", rec.Code)
	}

	rec = get(t, h, "/v1/types")
	var types map[string][]string
	json.Unmarshal(rec.Body.Bytes(), &types)
	if len(types["types"]) != 4 {
		t.Errorf("types = %v", types)
	}

	rec = get(t, h, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "rewardctl_queries_total") {
		t.Errorf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics missing Go runtime collector")
	}

	if rec := get(t, h, "/.well-known/openapi.json"); rec.Code != http.StatusOK {
		t.Errorf("openapi status = %d", rec.Code)
	}
}

func TestBootstrap_Wallet(t *testing.T) {
	node := newFakeNode(t)
	dir := t.TempDir()
	cfg := baseConfig(node.URL, dir) + `
wallet:
  mnemonic: "` + testMnemonic + `"
`
	a := newApp(t, bootstrap.Options{ConfigPath: writeConfig(t, dir, cfg)})
	if a.Signer() == nil {
		t.Fatal("Signer() = nil with a mnemonic configured")
	}
	if addr := a.Service.Address(); !strings.HasPrefix(addr, "reward1") {
		t.Errorf("Address() = %q, want reward1 prefix", addr)
	}

	q := newApp(t, bootstrap.Options{ConfigPath: writeConfig(t, t.TempDir(), cfg), QueryOnly: true})
	if q.Signer() != nil {
		t.Error("QueryOnly should skip the wallet")
	}
}

func TestBootstrap_InvalidMnemonic(t *testing.T) {
	node := newFakeNode(t)
	dir := t.TempDir()
	cfg := baseConfig(node.URL, dir) + `
wallet:
  mnemonic: "hello world"
`
	_, err := bootstrap.New(bootstrap.Options{ConfigPath: writeConfig(t, dir, cfg), LogOutput: io.Discard})
	if err == nil {
		t.Fatal("expected error for invalid mnemonic")
	}
}

func TestBootstrap_SchemaFiles(t *testing.T) {
	node := newFakeNode(t)
	dir := t.TempDir()

	schemaPath := filepath.Join(dir, "extra.yaml")
	os.WriteFile(schemaPath, []byte(`
package: rewardchain.loyalty
messages:
  - name: MsgRedeem
    fields:
      - { number: 1, name: creator, kind: string }
      - { number: 2, name: points,  kind: varint_uint64 }
`), 0644)

	cfg := baseConfig(node.URL, dir) + `
schemas:
  files: ["` + schemaPath + `"]
`
	a := newApp(t, bootstrap.Options{ConfigPath: writeConfig(t, dir, cfg)})
	if !a.Registry.Has("rewardchain.loyalty.MsgRedeem") {
		t.Errorf("types = %v", a.Registry.Types())
	}
	if len(a.Registry.Types()) != 5 {
		t.Errorf("got %d types, want 5", len(a.Registry.Types()))
	}
}

func TestBootstrap_JournalDisabled(t *testing.T) {
	node := newFakeNode(t)
	cfg, err := config.Parse([]byte(`
chain:
  rpc_url: "` + node.URL + `"
database:
  dsn: none
`))
	if err != nil {
		t.Fatal(err)
	}

	a := newApp(t, bootstrap.Options{Config: cfg})
	if a.DB != nil {
		t.Error("DB should be nil when the journal is disabled")
	}
	if err := a.Reload(); !errors.Is(err, bootstrap.ErrNoConfigFile) {
		t.Errorf("Reload() error = %v, want ErrNoConfigFile", err)
	}
}

func TestBootstrap_Reload(t *testing.T) {
	node := newFakeNode(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, baseConfig(node.URL, dir))
	a := newApp(t, bootstrap.Options{ConfigPath: path})

	if got := a.Service.EventMatcher().AttributeKeys; len(got) != 2 {
		t.Fatalf("default matcher keys = %v", got)
	}

	writeConfig(t, dir, baseConfig(node.URL, dir)+`
events:
  created_id:
    event_types: ["partner_created"]
    attribute_keys: ["pid"]
gas:
  price: "0.025stake"
`)
	if err := a.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	m := a.Service.EventMatcher()
	if len(m.EventTypes) != 1 || m.EventTypes[0] != "partner_created" || m.AttributeKeys[0] != "pid" {
		t.Errorf("matcher after reload = %+v", m)
	}
	if a.Config.Gas.Price != "0.025stake" {
		t.Errorf("gas price after reload = %q", a.Config.Gas.Price)
	}
	if got := testutil.ToFloat64(a.Metrics.ConfigReloads); got != 1 {
		t.Errorf("config_reloads_total = %v, want 1", got)
	}

	writeConfig(t, dir, "chain: [")
	if err := a.Reload(); err == nil {
		t.Error("expected reload error for invalid YAML")
	}
	if got := testutil.ToFloat64(a.Metrics.ConfigReloadErrors); got != 1 {
		t.Errorf("config_reload_errors_total = %v, want 1", got)
	}
}

func TestBootstrap_NodeInfo(t *testing.T) {
	node := newFakeNode(t)
	dir := t.TempDir()
	a := newApp(t, bootstrap.Options{ConfigPath: writeConfig(t, dir, baseConfig(node.URL, dir))})

	network, version, err := a.NodeInfo(context.Background())
	if err != nil {
		t.Fatalf("NodeInfo() error = %v", err)
	}
	if network != "rewardchain" || version != "0.38.12" {
		t.Errorf("NodeInfo() = %q, %q", network, version)
	}
}

func TestBootstrap_MemoryJournal(t *testing.T) {
	node := newFakeNode(t)
	cfg, err := config.Parse([]byte(`
chain:
  rpc_url: "` + node.URL + `"
database:
  dsn: memory
`))
	if err != nil {
		t.Fatal(err)
	}

	a := newApp(t, bootstrap.Options{Config: cfg})
	if a.DB != nil {
		t.Error("DB should be nil for an in-memory journal")
	}

	rec := get(t, a.Handler(), "/v1/journal")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":0`) {
		t.Errorf("journal status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestBootstrap_LogFile(t *testing.T) {
	node := newFakeNode(t)
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "rewardctl.log")
	cfg := baseConfig(node.URL, dir) + `
  file: "` + logPath + `"
`
	a, err := bootstrap.New(bootstrap.Options{ConfigPath: writeConfig(t, dir, cfg), LogOutput: io.Discard})
	if err != nil {
		t.Fatal(err)
	}
	a.Shutdown()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "rewardctl initialized") {
		t.Errorf("log file content = %s", data)
	}
}
