// Package confirmation renders the plain-text document a customer receives
// after checkout.
package confirmation

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dharmasatrya/flightbooking/internal/models"
	"github.com/dharmasatrya/flightbooking/internal/timezone"
	"github.com/dharmasatrya/flightbooking/pkg/currency"
)

const timeLayout = "Mon 02 Jan 2006 15:04 MST"

var funcs = template.FuncMap{
	"money": currency.Format,
	"route": route,
	"local": func(t time.Time, airport string) string {
		return timezone.LocalTime(t, airport).Format(timeLayout)
	},
	"passengers": passengers,
	"upper":      strings.ToUpper,
	"add":        func(a, b int) int { return a + b },
}

var tmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(`BOOKING CONFIRMATION
Booking:  {{ .ID }}
Status:   {{ upper (printf "%s" .Status) }}
Date:     {{ .CreatedAt.UTC.Format "2006-01-02 15:04 UTC" }}
{{- if .Customer }}
Customer: {{ .Customer }}
{{- end }}
{{ range $i, $l := .Lines }}
{{ add $i 1 }}. {{ route $l.Flight }}  x{{ $l.Quantity }}  ({{ passengers $l.Passengers }})
{{- range $l.Flight.Legs }}
   {{ .Carrier }}{{ if .FlightNumber }} {{ .FlightNumber }}{{ end }}  {{ .Origin }} {{ local .Departure .Origin }}  ->  {{ .Destination }} {{ local .Arrival .Destination }}
{{- end }}
   {{ money $l.Amount $l.Flight.Currency }}
{{ end }}
Total: {{ money .TotalAmount .Currency }}
`))

func Render(w io.Writer, b models.Booking) error {
	return tmpl.Execute(w, b)
}

func Text(b models.Booking) (string, error) {
	var sb strings.Builder
	if err := Render(&sb, b); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func route(f models.FlightResult) string {
	if len(f.Legs) == 0 {
		return f.Key()
	}
	stops := "direct"
	if n := f.Stops(); n == 1 {
		stops = "1 stop"
	} else if n > 1 {
		stops = fmt.Sprintf("%d stops", n)
	}
	return fmt.Sprintf("%s -> %s, %s", f.Legs[0].Origin, f.Legs[len(f.Legs)-1].Destination, stops)
}

func passengers(p models.PassengerCounts) string {
	parts := []string{plural(p.Adults, "adult")}
	if p.Children > 0 {
		parts = append(parts, plural(p.Children, "child"))
	}
	if p.Infants > 0 {
		parts = append(parts, plural(p.Infants, "infant"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if noun == "child" {
		return fmt.Sprintf("%d children", n)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
