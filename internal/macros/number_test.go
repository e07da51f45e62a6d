package macros_test

import (
	"encoding/json"
	"math"
	"testing"

	"foodlog/internal/macros"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want *float64
	}{
		{"123,4 ккал", f(123.4)},
		{"≈56", f(56)},
		{"n/a", nil},
		{"", nil},
		{"-7.25g", f(-7.25)},
		{"+3", f(3)},
		{"１２０ kcal", f(120)},
		{"—", nil},
	}
	for _, tc := range cases {
		assertValue(t, tc.in, macros.ParseNumber(tc.in), tc.want)
	}
}

func TestNumberCoercion(t *testing.T) {
	assertValue(t, "float", macros.Number(2.5), f(2.5))
	assertValue(t, "int", macros.Number(3), f(3))
	assertValue(t, "nan", macros.Number(math.NaN()), nil)
	assertValue(t, "inf", macros.Number(math.Inf(1)), nil)
	assertValue(t, "json number", macros.Number(json.Number("4.5")), f(4.5))
	assertValue(t, "bool", macros.Number(true), nil)
	assertValue(t, "nil", macros.Number(nil), nil)
}

func TestScaleAndSum(t *testing.T) {
	per := macros.Set{Calories: f(380), Proteins: f(12), Fats: f(8.5), Carbohydrates: f(60)}
	assertSet(t, per.Scale(150), macros.Set{Calories: f(570), Proteins: f(18), Fats: f(12.75), Carbohydrates: f(90)})

	total := macros.Sum(macros.Set{Calories: f(100)}, macros.Set{Calories: f(50), Fats: f(2)}, macros.Set{})
	assertSet(t, total, macros.Set{Calories: f(150), Fats: f(2)})

	if (macros.Set{}).ScalePortion(nil).HasAny() {
		t.Fatal("expected nil portion to yield unknown values")
	}
}

func TestFormatting(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"cell strips .0", macros.FormatCell(f(570)), "570"},
		{"cell rounds", macros.FormatCell(f(12.75)), "12.8"},
		{"cell nil", macros.FormatCell(nil), "—"},
		{"fixed keeps .0", macros.FormatFixed(f(250)), "250.0"},
		{"rounded", macros.FormatRounded(f(1234.5)), "1235"},
		{"rounded nil", macros.FormatRounded(nil), "—"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, tc.got, tc.want)
		}
	}
}
