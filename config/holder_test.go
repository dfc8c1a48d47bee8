package config_test

import (
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/artpar/rewardctl/config"
	"github.com/rs/zerolog"
)

func validConfig() string {
	return `
chain:
  rpc_url: "http://localhost:26657"
gas:
  price: "0.0001stake"
  limit: 200000
`
}

func TestHolder_Get(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Chain.RPCURL != "http://localhost:26657" {
		t.Errorf("Chain.RPCURL = %s", got.Chain.RPCURL)
	}
}

func TestHolder_NewHolderInvalid(t *testing.T) {
	if _, err := config.NewHolder(writeConfig(t, "gas:\n  price: free\n"), zerolog.Nop()); err == nil {
		t.Error("NewHolder should fail for invalid config")
	}
}

func TestHolder_ReloadNotifies(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var received *config.Config
	var reloads []error

	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		received = cfg
		mu.Unlock()
	})
	h.OnReload(func(at time.Time, err error) {
		mu.Lock()
		reloads = append(reloads, err)
		mu.Unlock()
	})

	newContent := `
gas:
  price: "0.5ureward"
  limit: 250000
events:
  created_id:
    event_types: ["partner_created"]
    attribute_keys: ["id"]
`
	if err := os.WriteFile(path, []byte(newContent), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if received == nil {
		t.Fatal("OnChange callback was not called")
	}
	if received.Gas.Price != "0.5ureward" || received.Gas.Limit != 250000 {
		t.Errorf("callback received Gas = %+v", received.Gas)
	}
	if received.Events.CreatedID.EventTypes[0] != "partner_created" {
		t.Errorf("callback received matcher = %+v", received.Events.CreatedID)
	}
	if len(reloads) != 1 || reloads[0] != nil {
		t.Errorf("reload callbacks = %v, want one nil", reloads)
	}
	if h.Get() != received {
		t.Error("Get should return the reloaded config")
	}
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var failed int
	h.OnReload(func(at time.Time, err error) {
		if err != nil {
			failed++
		}
	})

	if err := os.WriteFile(path, []byte("logging:\n  format: xml\n"), 0644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for invalid config")
	}
	if failed != 1 {
		t.Errorf("failed reload callbacks = %d, want 1", failed)
	}

	// Old config should still be in effect
	if cfg := h.Get(); cfg.Logging.Format != "console" {
		t.Errorf("should keep old config, got Logging.Format = %s", cfg.Logging.Format)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := make(chan *config.Config, 64)
	h.OnChange(func(cfg *config.Config) { changed <- cfg })

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	// A write can surface as several events; wait for the one that saw
	// the complete file.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Logging.Level == "debug" {
				return
			}
		case <-deadline:
			t.Fatalf("file watcher did not reload, Logging.Level = %s", h.Get().Logging.Level)
		}
	}
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}
	wg.Wait()
}

func TestReloadableFields(t *testing.T) {
	reloadable := config.ReloadableFields()
	for _, want := range []string{"gas.price", "events.created_id", "logging.level"} {
		if !slices.Contains(reloadable, want) {
			t.Errorf("%s not in ReloadableFields", want)
		}
	}

	static := config.NonReloadableFields()
	for _, want := range []string{"server.port", "chain.rpc_url", "wallet", "database.dsn"} {
		if !slices.Contains(static, want) {
			t.Errorf("%s not in NonReloadableFields", want)
		}
	}
	for _, f := range reloadable {
		if slices.Contains(static, f) {
			t.Errorf("%s is listed as both reloadable and static", f)
		}
	}
}
