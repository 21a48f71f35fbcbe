package database

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// timestampLayouts are the text forms a driver may return for a timestamp column.
// SQLite returns text when the declared type is lost, for example through subqueries.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NullTime is a nullable timestamp that scans both native and text values
type NullTime struct {
	Time *time.Time
}

// NewNullTime wraps t, which may be nil
func NewNullTime(t *time.Time) NullTime {
	if t == nil {
		return NullTime{}
	}
	utc := t.UTC()
	return NullTime{Time: &utc}
}

func (n *NullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.Time = nil
		return nil
	case time.Time:
		t := v.UTC()
		n.Time = &t
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("NullTime.Scan: unsupported type %T", src)
	}
}

func (n *NullTime) parse(s string) error {
	if s == "" {
		n.Time = nil
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			n.Time = &t
			return nil
		}
	}
	return fmt.Errorf("NullTime.Scan: unrecognized timestamp %q", s)
}

func (n NullTime) Value() (driver.Value, error) {
	if n.Time == nil {
		return nil, nil
	}
	return n.Time.UTC(), nil
}

// Ptr returns the wrapped time or nil
func (n NullTime) Ptr() *time.Time {
	return n.Time
}
