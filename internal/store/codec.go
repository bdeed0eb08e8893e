package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Canonical textual forms written by every backend.
const (
	TimeLayout = time.RFC3339Nano
	DateLayout = "2006-01-02"
)

// Layout produced by documents written with a space separator instead of "T".
const legacyTimeLayout = "2006-01-02 15:04:05.999999999"

func EncodeID(id uuid.UUID) string {
	return id.String()
}

func DecodeID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("decode id %q: %w", s, err)
	}
	return id, nil
}

func EncodeTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func DecodeTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(legacyTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func EncodeNullableTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := EncodeTime(*t)
	return &s
}

func DecodeNullableTime(s *string) (*time.Time, error) {
	if isNull(s) {
		return nil, nil
	}
	t, err := DecodeTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Date is a calendar day without a time component.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("decode date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func EncodeDate(d *Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func DecodeDate(s *string) (*Date, error) {
	if isNull(s) {
		return nil, nil
	}
	d, err := ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// isNull also accepts the "None" and "null" strings older documents used for
// missing values.
func isNull(s *string) bool {
	if s == nil {
		return true
	}
	switch strings.TrimSpace(*s) {
	case "", "None", "null":
		return true
	}
	return false
}
