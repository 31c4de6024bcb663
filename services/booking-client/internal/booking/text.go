package booking

import (
	"fmt"
	"time"
)

const (
	ProviderDays  = "Segunda à sexta"
	ProviderHours = "8h às 18h"
)

var weekdays = [...]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda-feira",
	time.Tuesday:   "terça-feira",
	time.Wednesday: "quarta-feira",
	time.Thursday:  "quinta-feira",
	time.Friday:    "sexta-feira",
	time.Saturday:  "sábado",
}

var months = [...]string{
	time.January:   "janeiro",
	time.February:  "fevereiro",
	time.March:     "março",
	time.April:     "abril",
	time.May:       "maio",
	time.June:      "junho",
	time.July:      "julho",
	time.August:    "agosto",
	time.September: "setembro",
	time.October:   "outubro",
	time.November:  "novembro",
	time.December:  "dezembro",
}

// Confirmation renders the appointment time in pt-BR, for example
// "sexta-feira, dia 17 de maio de 2024 às 14:00".
func Confirmation(t time.Time) string {
	return fmt.Sprintf("%s, dia %02d de %s de %d às %s",
		weekdays[t.Weekday()], t.Day(), months[t.Month()], t.Year(), t.Format("15:04"))
}
