package pricing

import (
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"
)

func TestRoundToNearest(t *testing.T) {
	tests := []struct {
		step  int64
		input string
		want  string
	}{
		{5, "12", "10"},
		{5, "13", "15"},
		{5, "17", "15"},
		{5, "18", "20"},
		{10, "100", "100"},
		{10, "104", "100"},
		{10, "105", "110"},
		{10, "114", "110"},
		{10, "115", "120"},
		{10, "104.99", "100"},
		{50, "124", "100"},
		{50, "125", "150"},
		{50, "174", "150"},
		{50, "175", "200"},
	}

	for _, tt := range tests {
		t.Run(strconv.FormatInt(tt.step, 10)+"/"+tt.input, func(t *testing.T) {
			got, err := RoundToNearest(Dec(tt.input), tt.step)
			if err != nil {
				t.Fatalf("RoundToNearest() error = %v", err)
			}
			if got.Cmp(Dec(tt.want)) != 0 {
				t.Errorf("RoundToNearest(%s, %d) = %s, want %s", tt.input, tt.step, got, tt.want)
			}
		})
	}
}

func TestRoundToNearest_RejectsBadStep(t *testing.T) {
	if _, err := RoundToNearest(Dec("1"), 0); err == nil {
		t.Error("expected error for zero step")
	}
}

func TestRoundEstimate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"994", "990"},
		{"995", "1000"},
		{"999.99", "1000"},
		{"1000", "1000"},
		{"1024", "1000"},
		{"1025", "1050"},
		{"5428.5", "5450"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := RoundEstimate(Dec(tt.input))
			if err != nil {
				t.Fatalf("RoundEstimate() error = %v", err)
			}
			if got.Cmp(Dec(tt.want)) != 0 {
				t.Errorf("RoundEstimate(%s) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 15, 12, 0, 0, 0, time.UTC)
}

func TestInflation_Apply(t *testing.T) {
	in, err := ParseInflation("2024-11", "1.00165")
	if err != nil {
		t.Fatalf("ParseInflation() error = %v", err)
	}

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"same month", month(2024, time.November), "100.00"},
		{"one month", month(2024, time.December), "100.17"},
		{"across year boundary", month(2025, time.February), "100.50"},
		{"twelve months", month(2025, time.November), "102.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := in.Apply(Dec("100.00"), tt.at)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if Cents(got) != tt.want {
				t.Errorf("Apply() = %s, want %s", Cents(got), tt.want)
			}
		})
	}
}

func TestParseInflation(t *testing.T) {
	in, err := ParseInflation("2024-01", "")
	if err != nil {
		t.Fatalf("ParseInflation() error = %v", err)
	}
	got, err := in.Apply(Dec("100.00"), month(2025, time.January))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if Cents(got) != "102.00" {
		t.Errorf("default rate over a year = %s, want 102.00", Cents(got))
	}

	if _, err := ParseInflation("2024-13", ""); err == nil {
		t.Error("expected error for bad month")
	}
	if _, err := ParseInflation("2024-01", "0.99"); err == nil {
		t.Error("expected error for shrinking rate")
	}
	if _, err := ParseInflation("2024-01", "abc"); err == nil {
		t.Error("expected error for malformed rate")
	}
}

func TestTreePlanting_BasePrice(t *testing.T) {
	tests := []struct {
		size  string
		count int
		want  string
	}{
		{"1 gallon", 1, "100"},
		{"3 gallons", 2, "327.36"},
		{"7 gallons", 3, "1070.10"},
		{"15 gallons", 4, "2227.80"},
		{"1 gallon", 5, "390"},
		{"1 gallon", 6, "462"},
		{"15 gallons", 10, "5428.5"},
	}

	for _, tt := range tests {
		t.Run(tt.size+"x"+strconv.Itoa(tt.count), func(t *testing.T) {
			args := gjson.Parse(`{"tree_size":"` + tt.size + `","number_of_trees":` + strconv.Itoa(tt.count) + `}`)
			got, err := TreePlanting{}.BasePrice(args)
			if err != nil {
				t.Fatalf("BasePrice() error = %v", err)
			}
			if got.Cmp(Dec(tt.want)) != 0 {
				t.Errorf("BasePrice() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTreePlanting_Validate(t *testing.T) {
	tests := []struct {
		name string
		args string
		want []string
	}{
		{"valid", `{"tree_size":"7 gallons","number_of_trees":2}`, nil},
		{
			name: "bad size and count",
			args: `{"tree_size":"2 gallons","number_of_trees":"two"}`,
			want: []string{
				`body.args.tree_size should be one of "1 gallon", "3 gallons", "7 gallons", "15 gallons"`,
				"body.args.number_of_trees should be a number",
			},
		},
		{"not an object", `[]`, []string{"body.args should be an object"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TreePlanting{}.Validate(gjson.Parse(tt.args), "body.args")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Validate() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTreePlanting_DefaultArgsAreValid(t *testing.T) {
	svc := TreePlanting{}
	if msgs := svc.Validate(gjson.ParseBytes(svc.DefaultArgs()), "args"); len(msgs) != 0 {
		t.Errorf("default args invalid: %v", msgs)
	}
}

func TestCatalog_Quote(t *testing.T) {
	in, err := ParseInflation("2025-11", "1.00165")
	if err != nil {
		t.Fatalf("ParseInflation() error = %v", err)
	}
	catalog := NewCatalog(in, Services(), WithClock(func() time.Time { return month(2026, time.November) }))

	svc, ok := catalog.Lookup("tree_planting")
	if !ok {
		t.Fatal("tree_planting not registered")
	}
	if diff := cmp.Diff([]string{"tree_planting"}, catalog.Keys()); diff != "" {
		t.Errorf("Keys() (-want +got):\n%s", diff)
	}

	q, err := catalog.Quote(svc, gjson.Parse(`{"tree_size":"3 gallons","number_of_trees":2}`))
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"original", Cents(q.OriginalPrice), "327.36"},
		{"rounded original", Cents(q.RoundedOriginalPrice), "330.00"},
		{"after inflation", Cents(q.PriceAfterInflation), "333.90"},
		{"rounded after inflation", Cents(q.RoundedPriceAfterInflation), "330.00"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestCatalog_QuoteRejectsBadArgs(t *testing.T) {
	catalog := NewCatalog(Inflation{StartYear: 2025, StartMonth: time.January}, Services())
	svc, _ := catalog.Lookup("tree_planting")

	if _, err := catalog.Quote(svc, gjson.Parse(`{"tree_size":"huge","number_of_trees":1}`)); err == nil {
		t.Error("expected error for unknown size")
	}
}
