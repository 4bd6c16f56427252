package pms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are the date forms the upstream sends. Layouts without a
// zone parse as UTC, and fractional seconds are accepted after any seconds field.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006/01/02T15:04:05",
	"01/02/2006 15:04:05",
	"01/02/2006T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// ParseTimestamp parses raw with the first matching upstream layout and
// returns the instant in UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidTimestamp)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
}

// decodeTimestamp reads a JSON date. Null and blank strings report ok=false.
func decodeTimestamp(data []byte) (time.Time, bool, error) {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		return time.Time{}, false, nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %s", ErrInvalidTimestamp, string(data))
	}
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, false, nil
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return parsed, true, nil
}

// UnmarshalJSON accepts every upstream date layout for the stay window.
func (payload *UnitPayload) UnmarshalJSON(data []byte) error {
	type unitPayloadFields UnitPayload
	decoded := struct {
		*unitPayloadFields
		CheckIn  Patch[time.Time] `json:"check_in_date"`
		CheckOut Patch[time.Time] `json:"check_out_date"`
	}{unitPayloadFields: (*unitPayloadFields)(payload)}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	payload.CheckIn = decoded.CheckIn.ValueOr(time.Time{})
	payload.CheckOut = decoded.CheckOut.ValueOr(time.Time{})
	return nil
}

// UnmarshalJSON accepts every upstream date layout for the night date.
func (item *DayRateItem) UnmarshalJSON(data []byte) error {
	type dayRateItemFields DayRateItem
	decoded := struct {
		*dayRateItemFields
		NightDate Patch[time.Time] `json:"night_date"`
	}{dayRateItemFields: (*dayRateItemFields)(item)}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	item.NightDate = decoded.NightDate.ValueOr(time.Time{})
	return nil
}
