package config

import "testing"

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.Baud != 115200 {
		t.Fatalf("baud default mismatch: got=%d", cfg.Baud)
	}
	if cfg.DataDir == "" {
		t.Fatalf("data dir default missing")
	}
}

func TestParseExportRequiresOut(t *testing.T) {
	if _, err := Parse([]string{"-export", "a/b/c"}); err == nil {
		t.Fatalf("expected error when -out is missing")
	}
	cfg, err := Parse([]string{"-export", "a/b/c", "-out", "/tmp/x.csv"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.ExportKey != "a/b/c" || cfg.ExportOut != "/tmp/x.csv" {
		t.Fatalf("export flags mismatch: %+v", cfg)
	}
}

func TestSplitSessionKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid", key: "alice_1/forearm_2/2026-03-02T10-00-00-000Z"},
		{name: "leading-slash", key: "/alice_1/forearm_2/sess_3"},
		{name: "too-few", key: "alice_1/forearm_2", wantErr: true},
		{name: "empty-segment", key: "alice_1//sess_3", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u, bp, sess, err := SplitSessionKey(tc.key)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.key)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitSessionKey error: %v", err)
			}
			if u == "" || bp == "" || sess == "" {
				t.Fatalf("empty segment returned: %q %q %q", u, bp, sess)
			}
		})
	}
}
