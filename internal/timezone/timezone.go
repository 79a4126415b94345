package timezone

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// airportZones maps IATA codes to IANA zone names. Unknown codes fall back
// to UTC.
var airportZones = map[string]string{
	// North America
	"JFK": "America/New_York",
	"EWR": "America/New_York",
	"LGA": "America/New_York",
	"BOS": "America/New_York",
	"IAD": "America/New_York",
	"ATL": "America/New_York",
	"MIA": "America/New_York",
	"ORD": "America/Chicago",
	"DFW": "America/Chicago",
	"DEN": "America/Denver",
	"PHX": "America/Phoenix",
	"LAX": "America/Los_Angeles",
	"SFO": "America/Los_Angeles",
	"SEA": "America/Los_Angeles",
	"YYZ": "America/Toronto",
	"YVR": "America/Vancouver",
	"MEX": "America/Mexico_City",

	// South America
	"GRU": "America/Sao_Paulo",
	"EZE": "America/Argentina/Buenos_Aires",
	"BOG": "America/Bogota",
	"LIM": "America/Lima",

	// Europe
	"LHR": "Europe/London",
	"LGW": "Europe/London",
	"DUB": "Europe/Dublin",
	"CDG": "Europe/Paris",
	"ORY": "Europe/Paris",
	"AMS": "Europe/Amsterdam",
	"FRA": "Europe/Berlin",
	"MUC": "Europe/Berlin",
	"MAD": "Europe/Madrid",
	"BCN": "Europe/Madrid",
	"FCO": "Europe/Rome",
	"ZRH": "Europe/Zurich",
	"VIE": "Europe/Vienna",
	"CPH": "Europe/Copenhagen",
	"IST": "Europe/Istanbul",

	// Middle East and Africa
	"DXB": "Asia/Dubai",
	"DOH": "Asia/Qatar",
	"CAI": "Africa/Cairo",
	"JNB": "Africa/Johannesburg",
	"NBO": "Africa/Nairobi",

	// Asia
	"DEL": "Asia/Kolkata",
	"BOM": "Asia/Kolkata",
	"SIN": "Asia/Singapore",
	"KUL": "Asia/Kuala_Lumpur",
	"BKK": "Asia/Bangkok",
	"HKG": "Asia/Hong_Kong",
	"PEK": "Asia/Shanghai",
	"PVG": "Asia/Shanghai",
	"ICN": "Asia/Seoul",
	"NRT": "Asia/Tokyo",
	"HND": "Asia/Tokyo",
	"MNL": "Asia/Manila",

	// Indonesia
	"CGK": "Asia/Jakarta",
	"HLP": "Asia/Jakarta",
	"SUB": "Asia/Jakarta",
	"KNO": "Asia/Jakarta",
	"JOG": "Asia/Jakarta",
	"DPS": "Asia/Makassar",
	"UPG": "Asia/Makassar",
	"BPN": "Asia/Makassar",
	"LOP": "Asia/Makassar",
	"DJJ": "Asia/Jayapura",
	"AMQ": "Asia/Jayapura",

	// Oceania
	"SYD": "Australia/Sydney",
	"MEL": "Australia/Melbourne",
	"PER": "Australia/Perth",
	"AKL": "Pacific/Auckland",
}

var (
	locMu sync.RWMutex
	locs  = map[string]*time.Location{}
)

// ZoneName returns the IANA zone of an airport, or "UTC" when unknown.
func ZoneName(code string) string {
	if tz, ok := airportZones[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return tz
	}
	return "UTC"
}

func Known(code string) bool {
	_, ok := airportZones[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

func GetLocationByAirport(code string) *time.Location {
	return GetLocationByName(ZoneName(code))
}

// GetLocationByName loads an IANA zone, caching the result. Unloadable names
// resolve to UTC.
func GetLocationByName(name string) *time.Location {
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC
	}

	locMu.RLock()
	loc, ok := locs[name]
	locMu.RUnlock()
	if ok {
		return loc
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = time.UTC
	}

	locMu.Lock()
	locs[name] = loc
	locMu.Unlock()
	return loc
}

// ParseTimeWithOffset parses a vendor timestamp. Strings that carry an
// offset keep it; bare local times are read in tzName.
func ParseTimeWithOffset(timeStr string, tzName string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05-0700", // Without colon
		"2006-01-02T15:04:05Z",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t, nil
		}
	}

	loc := GetLocationByName(tzName)
	simpleFormats := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
	for _, format := range simpleFormats {
		if t, err := time.ParseInLocation(format, timeStr, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &time.ParseError{
		Value:   timeStr,
		Message: "unable to parse time string",
	}
}

// LocalTime shows t in the zone of the given airport.
func LocalTime(t time.Time, airportCode string) time.Time {
	return t.In(GetLocationByAirport(airportCode))
}
