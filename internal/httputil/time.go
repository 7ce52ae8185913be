package httputil

import (
	"encoding/json"
	"time"
)

// Date is a JSON timestamp that also accepts a bare YYYY-MM-DD date.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := ParseTime(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Ptr returns the time, or nil when d is nil.
func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
