package api

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"pressurebench/internal/device"
	"pressurebench/internal/store"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(store.New(t.TempDir()), device.NewManager(logrus.NewEntry(logger)))
}

func TestEnvelopeSuccessAndFailure(t *testing.T) {
	a := newTestAPI(t)

	created := a.CreateUser("Alice", "")
	if !created.Success || created.Error != "" {
		t.Fatalf("create envelope mismatch: %+v", created.Result)
	}
	if created.User.ID == "" {
		t.Fatalf("created user missing id")
	}

	missing := a.GetUser("nobody_1")
	if missing.Success {
		t.Fatalf("missing user must not succeed")
	}
	if !strings.Contains(missing.Error, "not found") {
		t.Fatalf("error message mismatch: %q", missing.Error)
	}

	blank := a.CreateUser("  ", "")
	if blank.Success || blank.Error == "" {
		t.Fatalf("blank name must fail with an error message: %+v", blank.Result)
	}
}

func TestListMissingParentSucceedsEmpty(t *testing.T) {
	a := newTestAPI(t)
	resp := a.ListBodyParts("nobody_1")
	if !resp.Success {
		t.Fatalf("missing parent must still succeed: %+v", resp.Result)
	}
	if len(resp.BodyParts) != 0 {
		t.Fatalf("expected empty list, got %d", len(resp.BodyParts))
	}
}

func TestReadingFlowThroughSurface(t *testing.T) {
	a := newTestAPI(t)
	u := a.CreateUser("Alice", "")
	bp := a.CreateBodyPart(u.User.ID, "Forearm", "")
	sess := a.CreateSession(u.User.ID, bp.BodyPart.ID, "", 0.7, 41)
	if !sess.Success {
		t.Fatalf("CreateSession failed: %q", sess.Error)
	}

	for slot := 1; slot <= 5; slot++ {
		if r := a.AddReading(u.User.ID, bp.BodyPart.ID, sess.Session.ID, slot, float64(slot), float64(slot)/10); !r.Success {
			t.Fatalf("AddReading slot=%d failed: %q", slot, r.Error)
		}
	}

	hist := a.History(u.User.ID, bp.BodyPart.ID)
	if !hist.Success || len(hist.Points) != 1 {
		t.Fatalf("history mismatch: %+v", hist)
	}
	if hist.Points[0].AvgGrams != 3 {
		t.Fatalf("avg grams mismatch: got=%v want=3", hist.Points[0].AvgGrams)
	}

	if r := a.AddReading(u.User.ID, bp.BodyPart.ID, sess.Session.ID, 9, 1, 1); r.Success {
		t.Fatalf("slot out of range must fail")
	}
}

func TestExportSessionWritesFile(t *testing.T) {
	a := newTestAPI(t)
	u := a.CreateUser("Alice", "")
	bp := a.CreateBodyPart(u.User.ID, "Forearm", "")
	sess := a.CreateSession(u.User.ID, bp.BodyPart.ID, "", 0.7, 41)

	dest := filepath.Join(t.TempDir(), "export.csv")
	resp := a.ExportSession(u.User.ID, bp.BodyPart.ID, sess.Session.ID, dest)
	if !resp.Success {
		t.Fatalf("export failed: %q", resp.Error)
	}
	if resp.Path != dest {
		t.Fatalf("path mismatch: got=%q", resp.Path)
	}

	b, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read export error: %v", err)
	}
	if !strings.HasPrefix(string(b), "# Patient: Alice\n") {
		t.Fatalf("export content mismatch:\n%s", b)
	}

	empty := a.ExportSession(u.User.ID, bp.BodyPart.ID, sess.Session.ID, " ")
	if empty.Success {
		t.Fatalf("blank destination must fail")
	}
}

func TestDeviceOpsWithoutLink(t *testing.T) {
	a := newTestAPI(t)

	if got := a.IsConnected(); got.Connected || !got.Success {
		t.Fatalf("fresh manager must report disconnected: %+v", got)
	}
	if r := a.Send("CAL"); r.Success {
		t.Fatalf("send without link must fail")
	}
	if r := a.Disconnect(); !r.Success {
		t.Fatalf("disconnect must be idempotent: %+v", r)
	}
}
