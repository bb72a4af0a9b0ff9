package extract

import (
	"regexp"
	"strings"

	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/model"
)

// UnknownUser marks records whose source text carries no user line.
const UnknownUser = "Неизвестно"

// The notifications name the acting user on a line like
// "Пользователь: Иванов И.И. провел ..." and each receipt as
// "Приходная накл. 12345 (01.02.2024)". Older message variants omit the
// parenthesized date. \p{Zs} is part of the whitespace classes because
// entity decoding leaves non-breaking spaces where the HTML had &nbsp;.
var (
	userPattern    = regexp.MustCompile(`Пользователь:[\s\p{Zs}]*(.*?)[\s\p{Zs}]+провел`)
	invoicePattern = regexp.MustCompile(`Приходная накл\.[\s\p{Zs}]+([^\s\p{Zs}(]+)(?:[\s\p{Zs}]*\(([^)]+)\))?`)
)

// User returns the first user name mentioned in the text.
func User(text string) (string, bool) {
	m := userPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Records returns every invoice mentioned in the text. All records from
// one text share the same user; UnknownUser substitutes when no user
// line is present. No semantic validation happens here, malformed
// invoice numbers and dates are carried through for reconciliation.
func Records(text string) []model.Record {
	user, ok := User(text)
	if !ok {
		user = UnknownUser
	}

	matches := invoicePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	records := make([]model.Record, 0, len(matches))
	for _, m := range matches {
		records = append(records, model.Record{
			Invoice: m[1],
			RawDate: m[2],
			User:    user,
		})
	}
	return records
}
