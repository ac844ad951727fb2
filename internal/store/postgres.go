package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gastrack/industrial-gas-monitoring/internal/database"
	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
)

// Postgres implements Store over the shared Postgres instance all clients
// replicate from. Meter lists and assignment sets live in JSON text columns;
// reading timestamps are epoch milliseconds.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := database.Connect(dsn)
	if err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

type industryRow struct {
	ID                      string  `db:"id"`
	Name                    string  `db:"name"`
	SubscriptionID          string  `db:"subscription_id"`
	City                    string  `db:"city"`
	Address                 string  `db:"address"`
	Meters                  string  `db:"meters"`
	AllowedDailyConsumption float64 `db:"allowed_daily_consumption"`
}

func (r industryRow) toDomain() domain.Industry {
	ind := domain.Industry{
		ID:                      r.ID,
		Name:                    r.Name,
		SubscriptionID:          r.SubscriptionID,
		City:                    r.City,
		Address:                 r.Address,
		AllowedDailyConsumption: r.AllowedDailyConsumption,
	}
	// A corrupt meters column degrades to an industry without meters.
	_ = json.Unmarshal([]byte(r.Meters), &ind.Meters)
	return ind
}

type readingRow struct {
	ID         string  `db:"id"`
	IndustryID string  `db:"industry_id"`
	MeterID    string  `db:"meter_id"`
	Timestamp  int64   `db:"timestamp"`
	Value      float64 `db:"value"`
	ImageRef   string  `db:"image_ref"`
	RecordedBy string  `db:"recorded_by"`
	IsManual   bool    `db:"is_manual"`
}

type assignmentRow struct {
	Username   string `db:"username"`
	Industries string `db:"industries"`
}

func (p *Postgres) FetchAll(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{Assignments: domain.Assignments{}}

	if err := p.db.SelectContext(ctx, &snap.Users,
		`SELECT id, username, password, full_name, role FROM users`); err != nil {
		return nil, err
	}

	var inds []industryRow
	if err := p.db.SelectContext(ctx, &inds,
		`SELECT id, name, subscription_id, city, address, meters, allowed_daily_consumption FROM industries`); err != nil {
		return nil, err
	}
	for _, row := range inds {
		snap.Industries = append(snap.Industries, row.toDomain())
	}

	var reads []readingRow
	if err := p.db.SelectContext(ctx, &reads,
		`SELECT id, industry_id, meter_id, timestamp, value, image_ref, recorded_by, is_manual FROM readings ORDER BY timestamp DESC`); err != nil {
		return nil, err
	}
	for _, row := range reads {
		snap.Readings = append(snap.Readings, domain.Reading{
			ID:         row.ID,
			IndustryID: row.IndustryID,
			MeterID:    row.MeterID,
			Timestamp:  time.UnixMilli(row.Timestamp),
			Value:      row.Value,
			ImageRef:   row.ImageRef,
			RecordedBy: row.RecordedBy,
			IsManual:   row.IsManual,
		})
	}

	var assigns []assignmentRow
	if err := p.db.SelectContext(ctx, &assigns,
		`SELECT username, industries FROM assignments`); err != nil {
		return nil, err
	}
	for _, row := range assigns {
		var list []domain.Industry
		_ = json.Unmarshal([]byte(row.Industries), &list)
		snap.Assignments[row.Username] = list
	}

	return snap, nil
}

func (p *Postgres) PutUser(ctx context.Context, u domain.User) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password, full_name, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			password = EXCLUDED.password,
			full_name = EXCLUDED.full_name,
			role = EXCLUDED.role`,
		u.ID, u.Username, u.Password, u.FullName, u.Role)
	return err
}

func (p *Postgres) PutIndustry(ctx context.Context, ind domain.Industry) error {
	meters, err := json.Marshal(ind.Meters)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO industries (id, name, subscription_id, city, address, meters, allowed_daily_consumption)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			subscription_id = EXCLUDED.subscription_id,
			city = EXCLUDED.city,
			address = EXCLUDED.address,
			meters = EXCLUDED.meters,
			allowed_daily_consumption = EXCLUDED.allowed_daily_consumption`,
		ind.ID, ind.Name, ind.SubscriptionID, ind.City, ind.Address, string(meters), ind.AllowedDailyConsumption)
	return err
}

// PutReading is first-write-wins: DO NOTHING on an id conflict so a duplicate
// submission never clobbers the stored reading.
func (p *Postgres) PutReading(ctx context.Context, r domain.Reading) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO readings (id, industry_id, meter_id, timestamp, value, image_ref, recorded_by, is_manual)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.IndustryID, r.MeterID, r.Timestamp.UnixMilli(), r.Value, r.ImageRef, r.RecordedBy, r.IsManual)
	return err
}

func (p *Postgres) DeleteUser(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (p *Postgres) DeleteIndustry(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM industries WHERE id = $1`, id)
	return err
}

func (p *Postgres) DeleteReading(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM readings WHERE id = $1`, id)
	return err
}

func (p *Postgres) BulkPutIndustries(ctx context.Context, industries []domain.Industry) error {
	for _, ind := range industries {
		if err := p.PutIndustry(ctx, ind); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) SaveAssignment(ctx context.Context, username string, industries []domain.Industry) error {
	list, err := json.Marshal(industries)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO assignments (username, industries)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET industries = EXCLUDED.industries`,
		username, string(list))
	return err
}
