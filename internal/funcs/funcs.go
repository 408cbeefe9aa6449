package funcs

import (
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// TemplateFuncs are shared by the email templates.
var TemplateFuncs = template.FuncMap{
	"formatAmount": FormatAmount,
	"formatTime":   formatTime,
}

// FormatAmount renders a monetary amount with thousands separators.
func FormatAmount(amount float64) string {
	return printer.Sprintf("%.2f", amount)
}

func formatTime(t time.Time) string {
	return t.Format("02 Jan 2006 15:04")
}
