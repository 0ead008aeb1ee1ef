package platform

import "testing"

func TestOptionsDefaults(t *testing.T) {
	var o Options
	if o.app() != DefaultAppName {
		t.Fatalf("app() = %q, want %q", o.app(), DefaultAppName)
	}
	if o.timeout() != 5000 {
		t.Fatalf("timeout() = %d, want 5000", o.timeout())
	}
	o = Options{AppName: "other", TimeoutMillis: -1}
	if o.app() != "other" || o.timeout() != -1 {
		t.Fatalf("explicit options not kept: %+v", o)
	}
}
