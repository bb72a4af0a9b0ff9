package picker

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/model"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/reconcile"
)

// Select shows the report rows as an interactive multiselect and
// returns the rows the operator kept, in report order. Every row starts
// selected, so pressing enter exports the full report.
func Select(report reconcile.Report) ([]model.Record, error) {
	if len(report.Rows) == 0 {
		return nil, nil
	}

	options := make([]string, len(report.Rows))
	for i, row := range report.Rows {
		options[i] = Label(row)
	}

	chosen, err := pterm.DefaultInteractiveMultiselect.
		WithOptions(options).
		WithDefaultOptions(options).
		WithFilter(false).
		Show("Выберите накладные для выгрузки")
	if err != nil {
		return nil, fmt.Errorf("row selection: %w", err)
	}

	chosenSet := make(map[string]struct{}, len(chosen))
	for _, label := range chosen {
		chosenSet[label] = struct{}{}
	}

	selected := make([]model.Record, 0, len(chosen))
	for i, row := range report.Rows {
		if _, ok := chosenSet[options[i]]; ok {
			selected = append(selected, row)
		}
	}
	return selected, nil
}

// Label renders one report row for display. Report rows are unique
// tuples, so labels are unique too.
func Label(row model.Record) string {
	date := row.RawDate
	if date == "" {
		date = "-"
	}
	return fmt.Sprintf("%s  %s  %s", row.Invoice, date, row.User)
}

// Table renders the report as a terminal table, used by dry runs.
func Table(report reconcile.Report) error {
	data := pterm.TableData{{"Накладная", "Дата", "Пользователь"}}
	for _, row := range report.Rows {
		data = append(data, []string{row.Invoice, row.RawDate, row.User})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
