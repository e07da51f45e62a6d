package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const oatsReply = `{"item":"Oats","per_100g":{"calories":380,"proteins":12,"fats":8.5,"carbohydrates":60},"portion_g":150}`

type cliTestEnv struct {
	configPath string
	notePath   string
	worker     *httptest.Server
	requests   []map[string]any
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("FOODLOG_WORKER_URL", "")
	t.Setenv("GEMINI_API_KEY", "")

	env := &cliTestEnv{
		configPath: filepath.Join(base, "config.toml"),
		notePath:   filepath.Join(base, "vault", "Food Log.md"),
	}
	env.worker = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		env.requests = append(env.requests, req)
		w.Header().Set("Content-Type", "application/json")
		if req["mode"] == "final" {
			_, _ = w.Write([]byte(`{"message":"final"}`))
			return
		}
		_, _ = w.Write([]byte(oatsReply))
	}))
	t.Cleanup(env.worker.Close)

	if err := os.MkdirAll(filepath.Dir(env.notePath), 0o755); err != nil {
		t.Fatalf("mkdir vault: %v", err)
	}
	content := fmt.Sprintf(`[paths]
note_path = %q
state_dir = %q
log_dir = %q

[ledger]
timezone = "UTC"

[estimator]
worker_url = %q

[logging]
level = "error"
`, env.notePath, filepath.Join(base, "state"), filepath.Join(base, "logs"), env.worker.URL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func (env *cliTestEnv) note(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(env.notePath)
	if err != nil {
		t.Fatalf("read note: %v", err)
	}
	return string(data)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestNoteInitSyncAndVerify(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "sync"); err == nil || !strings.Contains(err.Error(), "note init") {
		t.Fatalf("expected missing note hint, got %v", err)
	}

	out, err := env.run(t, "note", "init")
	if err != nil {
		t.Fatalf("note init: %v", err)
	}
	requireContains(t, out, "Created")
	requireContains(t, env.note(t), "<!--MEALS_TABLE_START-->")

	out, err = env.run(t, "sync")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	requireContains(t, out, "already in sync")

	out, err = env.run(t, "verify")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	requireContains(t, out, "Note OK")
}

func TestAddEntriesDelete(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "note", "init"); err != nil {
		t.Fatalf("note init: %v", err)
	}

	out, err := env.run(t, "add", "--item", "Oats", "--description", "with milk", "--at", "2024-05-01T08:30:00Z", "--json")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	var res struct {
		MealID  string `json:"meal_id"`
		Changed bool   `json:"changed"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode add output: %v (%s)", err, out)
	}
	if !res.Changed || !strings.HasPrefix(res.MealID, "MID-") {
		t.Fatalf("unexpected add result %+v", res)
	}
	if len(env.requests) != 2 || env.requests[0]["mode"] != "text" || env.requests[1]["mode"] != "final" {
		t.Fatalf("unexpected worker requests %v", env.requests)
	}
	note := env.note(t)
	requireContains(t, note, "| 08:30 | Oats | 150 | 570 |")
	requireContains(t, note, "<!--MEAL_ID:"+res.MealID+"-->")

	out, err = env.run(t, "entries")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	requireContains(t, out, res.MealID)

	out, err = env.run(t, "show", "--date", "2024-05-01")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "**Блюдо:** Oats")
	requireContains(t, out, "**2024-05-01:**")

	out, err = env.run(t, "delete", res.MealID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "deleted")
	if strings.Contains(env.note(t), res.MealID) {
		t.Fatal("expected meal to be gone from the note")
	}
	out, _ = env.run(t, "entries")
	requireContains(t, out, "No entries recorded")
}

func TestEstimatePortionExport(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "note", "init"); err != nil {
		t.Fatalf("note init: %v", err)
	}

	if _, err := env.run(t, "export"); err == nil || !strings.Contains(err.Error(), "foodlog estimate") {
		t.Fatalf("expected no-session hint, got %v", err)
	}

	out, err := env.run(t, "estimate", "--text", "bowl of oats")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	requireContains(t, out, "Oats")

	out, err = env.run(t, "portion", "200")
	if err != nil {
		t.Fatalf("portion: %v", err)
	}
	requireContains(t, out, "Portion 200 g: 760.0 kcal")

	out, err = env.run(t, "export", "--offline", "--at", "2024-05-01T12:00:00Z")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Logged Oats at 2024-05-01 12:00:00")
	requireContains(t, env.note(t), "| 12:00 | Oats | 200 | 760 |")

	if _, err := env.run(t, "export"); err == nil {
		t.Fatal("expected the session to be cleared after export")
	}
}

func TestDoctorReportsMissingNote(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "doctor")
	if err == nil {
		t.Fatal("expected doctor to fail without a note")
	}
	requireContains(t, out, "[FAIL]")

	if _, err := env.run(t, "note", "init"); err != nil {
		t.Fatalf("note init: %v", err)
	}
	out, err = env.run(t, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Reachable")
}
