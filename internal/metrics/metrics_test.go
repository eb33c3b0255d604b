package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteFile(t *testing.T) {
	ObserveFetch("mysql", 120*time.Millisecond, 2048)
	ObserveOutcome("mysql", "stored")

	path := filepath.Join(t.TempDir(), "sqlsteal.prom")
	if err := WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`sqlsteal_retrievals_total{driver="mysql",outcome="stored"} 1`,
		`sqlsteal_retrieved_bytes_total{driver="mysql"} 2048`,
		`sqlsteal_fetch_duration_seconds_count{driver="mysql"} 1`,
		"sqlsteal_last_run_timestamp_seconds",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in metrics output:\n%s", want, out)
		}
	}
}
