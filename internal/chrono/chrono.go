package chrono

import (
	"time"
	_ "time/tzdata"
)

// API is the interface that anything depending on the system clock should use.
type API interface {
	Now() time.Time
	Location() *time.Location
}

// StandardImpl is the standard implementation of API using the standard library.
type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl loads the given IANA timezone, an empty name defaults to America/Sao_Paulo
// which is where the order panel renders its timestamps.
func NewStandardImpl(timezone string) (StandardImpl, error) {
	if timezone == "" {
		timezone = "America/Sao_Paulo"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl always returns the same instant, it is meant for tests.
type FixedImpl struct {
	At time.Time
}

func (f *FixedImpl) Now() time.Time {
	return f.At
}

func (f *FixedImpl) Location() *time.Location {
	return f.At.Location()
}

// Advance moves the fixed clock forward.
func (f *FixedImpl) Advance(d time.Duration) {
	f.At = f.At.Add(d)
}
