package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Incident struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	SectorID       int64     `json:"sector_id"`
	IncidentTypeID int64     `json:"incident_type_id"`
	Probability    float64   `json:"probability"`
	RiskScore      *float64  `json:"risk_score,omitempty"`
	Severity       string    `json:"severity,omitempty"`
	Status         string    `json:"status"`
	ReportedBy     string    `json:"reported_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Version        int       `json:"version"`
}

type Sector struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	RiskLevel   string `json:"risk_level"`
}

type IncidentType struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	SeverityWeight int    `json:"severity_weight"`
	Description    string `json:"description,omitempty"`
}

type IncidentFilter struct {
	Search   string
	Status   string
	Severity string
	SectorID int64
	Limit    int
	Offset   int
}

type IncidentsStore interface {
	CreateIncident(ctx context.Context, incident *Incident) (int64, error)
	GetIncident(ctx context.Context, id int64) (*Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, error)
	// SetIncidentScore writes the computed risk score and severity class
	// under optimistic concurrency; a stale version loses with ErrConflict.
	SetIncidentScore(ctx context.Context, id int64, score float64, severity string, expectedVersion int) error

	GetSector(ctx context.Context, id int64) (*Sector, error)
	ListSectors(ctx context.Context) ([]Sector, error)
	GetIncidentType(ctx context.Context, id int64) (*IncidentType, error)
	ListIncidentTypes(ctx context.Context) ([]IncidentType, error)
}

type incidentsStore struct {
	db     *sql.DB
	flavor Flavor
}

func NewIncidentsStore(db *sql.DB, flavor Flavor) IncidentsStore {
	return &incidentsStore{db: db, flavor: flavor}
}

func (s *incidentsStore) CreateIncident(ctx context.Context, incident *Incident) (int64, error) {
	if incident.Version <= 0 {
		incident.Version = 1
	}
	if strings.TrimSpace(incident.Status) == "" {
		incident.Status = "open"
	}
	now := time.Now().UTC()
	var id int64
	var err error
	if s.flavor == FlavorPostgres {
		err = s.db.QueryRowContext(ctx, rebind(s.flavor, `
			INSERT INTO incidents(title, description, sector_id, incident_type_id, probability, risk_score, severity, status, reported_by, created_at, updated_at, version)
			VALUES(?,?,?,?,?,NULL,?,?,?,?,?,?) RETURNING id`),
			incident.Title, incident.Description, incident.SectorID, incident.IncidentTypeID, incident.Probability, incident.Severity, incident.Status, incident.ReportedBy, now, now, incident.Version).Scan(&id)
	} else {
		var res sql.Result
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO incidents(title, description, sector_id, incident_type_id, probability, risk_score, severity, status, reported_by, created_at, updated_at, version)
			VALUES(?,?,?,?,?,NULL,?,?,?,?,?,?)`,
			incident.Title, incident.Description, incident.SectorID, incident.IncidentTypeID, incident.Probability, incident.Severity, incident.Status, incident.ReportedBy, now, now, incident.Version)
		if err == nil {
			id, _ = res.LastInsertId()
		}
	}
	if err != nil {
		return 0, err
	}
	incident.ID = id
	incident.CreatedAt = now
	incident.UpdatedAt = now
	return id, nil
}

func (s *incidentsStore) GetIncident(ctx context.Context, id int64) (*Incident, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.flavor, `
		SELECT id, title, description, sector_id, incident_type_id, probability, risk_score, severity, status, reported_by, created_at, updated_at, version
		FROM incidents WHERE id=?`), id)
	var inc Incident
	var score sql.NullFloat64
	if err := row.Scan(&inc.ID, &inc.Title, &inc.Description, &inc.SectorID, &inc.IncidentTypeID, &inc.Probability, &score, &inc.Severity, &inc.Status, &inc.ReportedBy, &inc.CreatedAt, &inc.UpdatedAt, &inc.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if score.Valid {
		inc.RiskScore = &score.Float64
	}
	return &inc, nil
}

func (s *incidentsStore) ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, error) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, filter.Status)
	}
	if filter.Severity != "" {
		clauses = append(clauses, "severity=?")
		args = append(args, filter.Severity)
	}
	if filter.SectorID > 0 {
		clauses = append(clauses, "sector_id=?")
		args = append(args, filter.SectorID)
	}
	if filter.Search != "" {
		clauses = append(clauses, "(title LIKE ? OR description LIKE ?)")
		q := "%" + filter.Search + "%"
		args = append(args, q, q)
	}
	query := `SELECT id, title, description, sector_id, incident_type_id, probability, risk_score, severity, status, reported_by, created_at, updated_at, version FROM incidents`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}
	rows, err := s.db.QueryContext(ctx, rebind(s.flavor, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Incident
	for rows.Next() {
		var inc Incident
		var score sql.NullFloat64
		if err := rows.Scan(&inc.ID, &inc.Title, &inc.Description, &inc.SectorID, &inc.IncidentTypeID, &inc.Probability, &score, &inc.Severity, &inc.Status, &inc.ReportedBy, &inc.CreatedAt, &inc.UpdatedAt, &inc.Version); err != nil {
			return nil, err
		}
		if score.Valid {
			inc.RiskScore = &score.Float64
		}
		res = append(res, inc)
	}
	return res, rows.Err()
}

func (s *incidentsStore) SetIncidentScore(ctx context.Context, id int64, score float64, severity string, expectedVersion int) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, rebind(s.flavor, `
		UPDATE incidents SET risk_score=?, severity=?, updated_at=?, version=version+1
		WHERE id=? AND version=?`),
		score, severity, now, id, expectedVersion)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *incidentsStore) GetSector(ctx context.Context, id int64) (*Sector, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.flavor, `
		SELECT id, name, description, risk_level FROM sectors WHERE id=?`), id)
	var sec Sector
	if err := row.Scan(&sec.ID, &sec.Name, &sec.Description, &sec.RiskLevel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sec, nil
}

func (s *incidentsStore) ListSectors(ctx context.Context) ([]Sector, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, risk_level FROM sectors ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Sector
	for rows.Next() {
		var sec Sector
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.Description, &sec.RiskLevel); err != nil {
			return nil, err
		}
		res = append(res, sec)
	}
	return res, rows.Err()
}

func (s *incidentsStore) GetIncidentType(ctx context.Context, id int64) (*IncidentType, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.flavor, `
		SELECT id, name, category, severity_weight, description FROM incident_types WHERE id=?`), id)
	var it IncidentType
	if err := row.Scan(&it.ID, &it.Name, &it.Category, &it.SeverityWeight, &it.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &it, nil
}

func (s *incidentsStore) ListIncidentTypes(ctx context.Context) ([]IncidentType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, category, severity_weight, description FROM incident_types ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []IncidentType
	for rows.Next() {
		var it IncidentType
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.SeverityWeight, &it.Description); err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, rows.Err()
}
