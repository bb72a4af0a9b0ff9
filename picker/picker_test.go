package picker

import (
	"testing"

	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/model"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/reconcile"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		row  model.Record
		want string
	}{
		{
			name: "full row",
			row:  model.Record{Invoice: "12345", RawDate: "01.02.2024", User: "Иванов И.И."},
			want: "12345  01.02.2024  Иванов И.И.",
		},
		{
			name: "missing date gets a placeholder",
			row:  model.Record{Invoice: "777", RawDate: "", User: "Неизвестно"},
			want: "777  -  Неизвестно",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.row); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectEmptyReport(t *testing.T) {
	rows, err := Select(reconcile.Report{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if rows != nil {
		t.Errorf("Select() = %v, want nil", rows)
	}
}
