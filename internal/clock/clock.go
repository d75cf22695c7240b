package clock

import (
	"errors"
	"strings"
	"time"
)

// ZoneName es la zona civil fija del negocio; los limites de jornada se
// calculan siempre contra ella, no contra la hora del servidor.
const ZoneName = "Africa/Nairobi"

// WorkdayEndHour es la hora de corte (18:00) para sesiones forzadas o capadas.
const WorkdayEndHour = 18

var location = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation(ZoneName)
	if err != nil {
		// Nairobi no tiene horario de verano: UTC+3 fijo.
		return time.FixedZone("EAT", 3*60*60)
	}
	return loc
}

// Location devuelve la zona horaria del negocio.
func Location() *time.Location {
	return location
}

// Now devuelve el instante actual expresado en hora civil de Nairobi.
func Now() time.Time {
	return time.Now().In(location)
}

// CivilDate trunca un instante a la medianoche de su dia civil en Nairobi.
func CivilDate(t time.Time) time.Time {
	local := t.In(location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location)
}

// Today devuelve el dia civil actual.
func Today() time.Time {
	return CivilDate(Now())
}

// DayBounds devuelve [inicio, fin) del dia civil que contiene a t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := CivilDate(t)
	return start, start.AddDate(0, 0, 1)
}

// MonthBounds devuelve el primer y ultimo dia civil del mes que contiene a t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(location)
	first := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, location)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// WorkdayEnd devuelve las 18:00:00 del dia civil de inicio de la sesion.
func WorkdayEnd(sessionStart time.Time) time.Time {
	d := CivilDate(sessionStart)
	return time.Date(d.Year(), d.Month(), d.Day(), WorkdayEndHour, 0, 0, 0, location)
}

// Localize reinterpreta el reloj de pared de t como hora civil de Nairobi.
// Las columnas timestamp son naive y el driver las devuelve etiquetadas UTC;
// sin reinterpretar, cada instante leido quedaria corrido tres horas.
func Localize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), location)
}

// MinutesBetween devuelve los minutos completos entre start y end, nunca
// negativos.
func MinutesBetween(start, end time.Time) int {
	minutes := int(end.Sub(start).Minutes())
	if minutes < 0 {
		return 0
	}
	return minutes
}

var clientTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

var ErrInvalidTimestamp = errors.New("invalid timestamp")

// ParseClientTime interpreta un timestamp ISO-like del cliente como hora
// civil de Nairobi, truncado a segundos.
func ParseClientTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	for _, layout := range clientTimeLayouts {
		t, err := time.ParseInLocation(layout, value, location)
		if err == nil {
			return t.In(location).Truncate(time.Second), nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}

// ParseDate interpreta una fecha YYYY-MM-DD como dia civil de Nairobi.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	t, err := time.ParseInLocation("2006-01-02", value, location)
	if err != nil {
		return time.Time{}, ErrInvalidTimestamp
	}
	return t, nil
}

// FormatTimestamp serializa un instante como string naive de segundos.
func FormatTimestamp(t time.Time) string {
	return t.In(location).Format("2006-01-02 15:04:05")
}

// FormatDate serializa un dia civil como YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.In(location).Format("2006-01-02")
}
