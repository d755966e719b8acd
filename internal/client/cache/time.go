package cache

import (
	"database/sql"
	"time"
)

// Timestamps are stored as RFC3339Nano strings; the zero time maps to NULL.

func timeToDB(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func timeFromDB(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func timePtrToDB(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func timePtrFromDB(s sql.NullString) *time.Time {
	t := timeFromDB(s)
	if t.IsZero() {
		return nil
	}
	return &t
}
