package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service reports whether the datastore is reachable.
type Service struct {
	DB      Pinger
	Storage string
}

func NewService(db Pinger, storage string) *Service {
	return &Service{DB: db, Storage: storage}
}

// Status is the health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Storage  string `json:"storage"`
}

// Status pings the database. A nil database means in-memory repositories.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{OK: true, Database: "memory", Storage: s.Storage}
	if s.DB == nil {
		return st
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		st.OK = false
		st.Database = "unreachable"
		return st
	}
	st.Database = "up"
	return st
}
