package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Server is one registered capability provider.
type Server struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Keywords    string    `json:"keywords"`
	EndpointURL string    `json:"endpoint_url"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

const serverColumns = `id, name, COALESCE(keywords, ''), endpoint_url, is_active, created_at`

func scanServer(sc interface{ Scan(...any) error }) (Server, error) {
	var srv Server
	var active int
	var created string
	if err := sc.Scan(&srv.ID, &srv.Name, &srv.Keywords, &srv.EndpointURL, &active, &created); err != nil {
		return Server{}, err
	}
	srv.IsActive = active != 0
	srv.CreatedAt = parseTime(created)
	return srv, nil
}

// ListServers returns the active servers in registration order.
func (s *Store) ListServers(ctx context.Context) ([]Server, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+serverColumns+` FROM mcp_servers WHERE is_active = 1 ORDER BY created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []Server
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, srv)
	}
	return servers, rows.Err()
}

func (s *Store) GetServer(ctx context.Context, id string) (Server, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM mcp_servers WHERE id = ?`, id)
	srv, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Server{}, ErrNotFound
	}
	return srv, err
}

// GetServerByName resolves an active server by its registered name.
func (s *Store) GetServerByName(ctx context.Context, name string) (Server, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM mcp_servers WHERE name = ? AND is_active = 1`, name)
	srv, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Server{}, ErrNotFound
	}
	return srv, err
}

// SaveServer inserts srv, or updates the row with the same id.
func (s *Store) SaveServer(ctx context.Context, srv Server) (Server, error) {
	if srv.ID != "" {
		existing, err := s.GetServer(ctx, srv.ID)
		if err == nil {
			_, err = s.DB.ExecContext(ctx,
				`UPDATE mcp_servers SET name = ?, keywords = ?, endpoint_url = ?, is_active = ? WHERE id = ?`,
				srv.Name, srv.Keywords, srv.EndpointURL, boolInt(srv.IsActive), srv.ID)
			if err != nil {
				return Server{}, err
			}
			srv.CreatedAt = existing.CreatedAt
			return srv, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Server{}, err
		}
	} else {
		srv.ID = uuid.New().String()
	}

	created := s.timestamp(srv.CreatedAt)
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO mcp_servers (id, name, keywords, endpoint_url, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		srv.ID, srv.Name, srv.Keywords, srv.EndpointURL, boolInt(srv.IsActive), created)
	if err != nil {
		return Server{}, err
	}
	srv.CreatedAt = parseTime(created)
	return srv, nil
}

// DeleteServer reports whether a row was removed.
func (s *Store) DeleteServer(ctx context.Context, id string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM mcp_servers WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
