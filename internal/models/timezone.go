package models

// TimeZone is one option of the availability timezone selection.
type TimeZone struct {
	Code  string
	Label string
}

// TimeZones lists the selectable zones, west to east. Discord caps a select
// menu at 25 options.
var TimeZones = []TimeZone{
	{Code: "HST", Label: "Hawaii (UTC-10)"},
	{Code: "AKST", Label: "Alaska (UTC-9)"},
	{Code: "PST", Label: "Pacific (UTC-8)"},
	{Code: "MST", Label: "Mountain (UTC-7)"},
	{Code: "CST", Label: "Central (UTC-6)"},
	{Code: "EST", Label: "Eastern (UTC-5)"},
	{Code: "AST", Label: "Atlantic (UTC-4)"},
	{Code: "BRT", Label: "Brasília (UTC-3)"},
	{Code: "UTC", Label: "Coordinated Universal Time (UTC)"},
	{Code: "GMT", Label: "Greenwich Mean Time (UTC+0)"},
	{Code: "WET", Label: "Western Europe (UTC+0)"},
	{Code: "CET", Label: "Central Europe (UTC+1)"},
	{Code: "EET", Label: "Eastern Europe (UTC+2)"},
	{Code: "MSK", Label: "Moscow (UTC+3)"},
	{Code: "GST", Label: "Gulf (UTC+4)"},
	{Code: "PKT", Label: "Pakistan (UTC+5)"},
	{Code: "IST", Label: "India (UTC+5:30)"},
	{Code: "ICT", Label: "Indochina (UTC+7)"},
	{Code: "SGT", Label: "Singapore (UTC+8)"},
	{Code: "AWST", Label: "Western Australia (UTC+8)"},
	{Code: "JST", Label: "Japan (UTC+9)"},
	{Code: "KST", Label: "Korea (UTC+9)"},
	{Code: "AEST", Label: "Eastern Australia (UTC+10)"},
	{Code: "NZST", Label: "New Zealand (UTC+12)"},
}

// LookupTimeZone reports whether code names a selectable zone.
func LookupTimeZone(code string) (TimeZone, bool) {
	for _, tz := range TimeZones {
		if tz.Code == code {
			return tz, true
		}
	}
	return TimeZone{}, false
}
