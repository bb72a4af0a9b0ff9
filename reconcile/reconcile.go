package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/model"
)

// dateLayouts are tried in order; the four-digit year wins over a
// two-digit interpretation when both could apply.
var dateLayouts = []string{"02.01.2006", "02.01.06"}

// Exclusions is a set of user names whose records never reach the
// report. Treat values as immutable; With returns extended copies.
type Exclusions map[string]struct{}

func NewExclusions(names ...string) Exclusions {
	set := make(Exclusions, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// With returns a copy of the set extended by the given names.
func (e Exclusions) With(names ...string) Exclusions {
	set := make(Exclusions, len(e)+len(names))
	for name := range e {
		set[name] = struct{}{}
	}
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func (e Exclusions) Contains(user string) bool {
	_, ok := e[user]
	return ok
}

// DefaultExclusions lists the warehouse and back-office accounts whose
// receipts are reconciled through other channels.
var DefaultExclusions = NewExclusions(
	"Авраменко Наталия",
	"Вифлянцев А.В.",
	"Воробьева",
	"Горностаева",
	"Гринчук Ольга",
	"Гулуева Татьяна",
	"Дегтярев Алексей",
	"Дегтярева О.А.",
	"Джиоева Ирина Витальевна",
	"Заподовникова И.",
	"Зеленская Галина",
	"Земцова",
	"Золотова Наталья",
	"Кирпичева",
	"Клишина Александра",
	"КонтроллерПеремещения1",
	"Коронова О.",
	"Куприянова О.В.",
	"МагазинПриемка3",
	"Майданик Ирина",
	"Пименова Вал.Ром.",
	"Скоробогатова Вера",
	"СтройградСклад1",
)

// Report is the final ordered row set, ready for display or export.
type Report struct {
	Rows []model.Record
}

// BuildReport deduplicates records by full tuple equality, drops
// excluded users and orders the rest ascending by parsed date, ties
// broken by the (invoice, rawDate, user) tuple. Records whose date does
// not parse keep their raw date string but sort before everything else
// so they surface instead of disappearing.
func BuildReport(records []model.Record, exclusions Exclusions) Report {
	unique := make(map[model.Record]struct{}, len(records))
	for _, rec := range records {
		if exclusions.Contains(rec.User) {
			continue
		}
		unique[rec] = struct{}{}
	}

	rows := make([]model.Record, 0, len(unique))
	for rec := range unique {
		rows = append(rows, rec)
	}

	sort.Slice(rows, func(i, j int) bool {
		di := sortDate(rows[i].RawDate)
		dj := sortDate(rows[j].RawDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return lessTuple(rows[i], rows[j])
	})

	return Report{Rows: rows}
}

// ParseDate resolves a raw invoice date against the accepted formats.
// False means the date is unparseable.
func ParseDate(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// sortDate maps unparseable dates onto the zero time so they order
// before every real date.
func sortDate(raw string) time.Time {
	t, _ := ParseDate(raw)
	return t
}

func lessTuple(a, b model.Record) bool {
	if a.Invoice != b.Invoice {
		return a.Invoice < b.Invoice
	}
	if a.RawDate != b.RawDate {
		return a.RawDate < b.RawDate
	}
	return a.User < b.User
}
