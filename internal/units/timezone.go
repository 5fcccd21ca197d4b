package units

import (
	"fmt"
	"strings"
	"time"
)

// timezoneEntry pairs a tz database ID with the label shown for it.
// Labels carry the STD/DST offsets so near-identical zones stay
// distinguishable in pickers and report subtitles.
type timezoneEntry struct {
	ID    string
	Label string
}

// commonTimezones is the curated zone table, one entry per unique STD/DST
// offset pair, ordered west to east from -11:00 (Niue) to +14:00
// (Kiritimati). Every ID is verified to exist in the system tz database.
var commonTimezones = []timezoneEntry{
	{"Pacific/Niue", "Niue (-11:00)"},
	{"America/Adak", "Adak (-10:00/-09:00)"},
	{"Pacific/Honolulu", "Honolulu (-10:00)"},
	{"Pacific/Marquesas", "Marquesas (-09:30)"},
	{"America/Anchorage", "Anchorage (-09:00/-08:00)"},
	{"Pacific/Gambier", "Gambier (-09:00)"},
	{"America/Los_Angeles", "Los Angeles (-08:00/-07:00)"},
	{"Pacific/Pitcairn", "Pitcairn (-08:00)"},
	{"America/Denver", "Denver (-07:00/-06:00)"},
	{"America/Phoenix", "Phoenix (-07:00)"},
	{"America/Chicago", "Chicago (-06:00/-05:00)"},
	{"America/Mexico_City", "Mexico City (-06:00)"},
	{"America/New_York", "New York (-05:00/-04:00)"},
	{"America/Lima", "Lima (-05:00)"},
	{"America/Barbados", "Barbados (-04:00)"},
	{"America/Santiago", "Santiago (-04:00/-03:00)"},
	{"America/St_Johns", "St. John's (-03:30/-02:30)"},
	{"America/Miquelon", "Miquelon (-03:00/-02:00)"},
	{"America/Sao_Paulo", "São Paulo (-03:00)"},
	{"America/Godthab", "Godthab/Nuuk (-02:00/-01:00)"},
	{"Atlantic/South_Georgia", "South Georgia (-02:00)"},
	{"Atlantic/Azores", "Azores (-01:00/+00:00)"},
	{"Atlantic/Cape_Verde", "Cape Verde (-01:00)"},
	{"UTC", "UTC (+00:00)"},
	{"Africa/Abidjan", "Abidjan (+00:00)"},
	{"Europe/Dublin", "Dublin (+00:00/+01:00)"},
	{"Antarctica/Troll", "Troll (+00:00/+02:00)"},
	{"Africa/Lagos", "Lagos (+01:00)"},
	{"Europe/Berlin", "Berlin (+01:00/+02:00)"},
	{"Africa/Johannesburg", "Johannesburg (+02:00)"},
	{"Europe/Athens", "Athens (+02:00/+03:00)"},
	{"Africa/Nairobi", "Nairobi (+03:00)"},
	{"Asia/Tehran", "Tehran (+03:30)"},
	{"Asia/Dubai", "Dubai (+04:00)"},
	{"Asia/Kabul", "Kabul (+04:30)"},
	{"Asia/Karachi", "Karachi (+05:00)"},
	{"Asia/Kolkata", "Mumbai/Kolkata (+05:30)"},
	{"Asia/Kathmandu", "Kathmandu (+05:45)"},
	{"Asia/Dhaka", "Dhaka (+06:00)"},
	{"Asia/Yangon", "Yangon (+06:30)"},
	{"Asia/Bangkok", "Bangkok (+07:00)"},
	{"Asia/Singapore", "Singapore (+08:00)"},
	{"Australia/Eucla", "Eucla (+08:45)"},
	{"Asia/Seoul", "Seoul (+09:00)"},
	{"Australia/Darwin", "Darwin (+09:30)"},
	{"Australia/Adelaide", "Adelaide (+09:30/+10:30)"},
	{"Australia/Brisbane", "Brisbane (+10:00)"},
	{"Australia/Sydney", "Sydney (+10:00/+11:00)"},
	{"Australia/Lord_Howe", "Lord Howe (+10:30/+11:00)"},
	{"Pacific/Bougainville", "Bougainville (+11:00)"},
	{"Pacific/Norfolk", "Norfolk (+11:00/+12:00)"},
	{"Pacific/Fiji", "Fiji (+12:00)"},
	{"Pacific/Auckland", "Auckland (+12:00/+13:00)"},
	{"Pacific/Chatham", "Chatham (+12:45/+13:45)"},
	{"Pacific/Apia", "Apia (+13:00)"},
	{"Pacific/Kiritimati", "Kiritimati (+14:00)"},
}

// CommonTimezones lists the curated tz database IDs, west to east.
var CommonTimezones = func() []string {
	ids := make([]string, len(commonTimezones))
	for i, e := range commonTimezones {
		ids[i] = e.ID
	}
	return ids
}()

// timezoneLabels indexes the curated table by ID.
var timezoneLabels = func() map[string]string {
	m := make(map[string]string, len(commonTimezones))
	for _, e := range commonTimezones {
		m[e.ID] = e.Label
	}
	return m
}()

// IsTimezoneValid reports whether tz loads from the system tz database.
// Any database zone is accepted, not just the curated list.
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// IsCommonTimezone reports whether tz is in the curated list.
func IsCommonTimezone(tz string) bool {
	_, ok := timezoneLabels[tz]
	return ok
}

// GetValidTimezonesString returns the curated list comma-separated, for
// error messages.
func GetValidTimezonesString() string {
	return strings.Join(CommonTimezones, ", ")
}

// ConvertTime converts a stored UTC time to the target timezone for
// display.
func ConvertTime(utcTime time.Time, targetTimezone string) (time.Time, error) {
	if targetTimezone == "UTC" {
		return utcTime, nil
	}

	loc, err := time.LoadLocation(targetTimezone)
	if err != nil {
		return utcTime, fmt.Errorf("failed to load timezone %s: %w", targetTimezone, err)
	}

	return utcTime.In(loc), nil
}

// GetTimezoneLabel returns the curated label for tz, or the ID itself for
// zones outside the curated list.
func GetTimezoneLabel(tz string) string {
	if label, ok := timezoneLabels[tz]; ok {
		return label
	}
	return tz
}
