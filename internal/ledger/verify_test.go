package ledger_test

import (
	"reflect"
	"strings"
	"testing"

	"foodlog/internal/ledger"
)

func TestVerifyConsistentNote(t *testing.T) {
	rep, err := ledger.Verify(twoMeals)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !rep.OK() {
		t.Fatalf("expected no problems, got %v", rep.Problems)
	}
	if !rep.HasMealsTable || rep.MarkerRows != 2 || rep.RenderedRows != 2 || !rep.RefreshButton {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestVerifyBrokenTable(t *testing.T) {
	broken := strings.Replace(twoMeals, mealsSep+"\n", "", 1)
	rep, err := ledger.Verify(broken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if rep.OK() || rep.RenderedRows != 0 {
		t.Fatalf("expected a table without separator to be flagged, got %+v", rep)
	}
}

func TestVerifyDriftAndDanglingButtons(t *testing.T) {
	text := strings.Replace(drifted, "# Food Log",
		"# Food Log\n\n"+`<button class="ca-delete-meal-btn" data-meal-id="GONE">Удалить приём</button>`, 1)
	rep, err := ledger.Verify(text)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !reflect.DeepEqual(rep.StaleRows, []string{"B"}) || !reflect.DeepEqual(rep.OrphanBlocks, []string{"C"}) {
		t.Fatalf("unexpected drift %+v", rep)
	}
	if !reflect.DeepEqual(rep.DanglingButtons, []string{"GONE"}) {
		t.Fatalf("unexpected dangling buttons %v", rep.DanglingButtons)
	}
	if rep.OK() {
		t.Fatal("expected problems to be reported")
	}
}
