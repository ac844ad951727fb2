package domain

import "time"

// UnknownIndustry is rendered wherever a reading references an industry or
// meter that is no longer present in the snapshot. Referential integrity is
// not enforced by the store, so dangling references are expected.
const UnknownIndustry = "unknown"

type User struct {
	ID       string `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Password string `db:"password" json:"password"`
	FullName string `db:"full_name" json:"full_name"`
	Role     Role   `db:"role" json:"role"`
}

type Meter struct {
	ID           string `json:"id"`
	SerialNumber string `json:"serial_number"`
	Name         string `json:"name"`
}

type Industry struct {
	ID                      string  `db:"id" json:"id"`
	Name                    string  `db:"name" json:"name"`
	SubscriptionID          string  `db:"subscription_id" json:"subscription_id"`
	City                    string  `db:"city" json:"city"`
	Address                 string  `db:"address" json:"address"`
	AllowedDailyConsumption float64 `db:"allowed_daily_consumption" json:"allowed_daily_consumption"`
	Meters                  []Meter `json:"meters"`
}

// MeterByID resolves a meter on the industry, or nil when the reading points
// at a meter that has since been removed.
func (i Industry) MeterByID(id string) *Meter {
	for idx := range i.Meters {
		if i.Meters[idx].ID == id {
			return &i.Meters[idx]
		}
	}
	return nil
}

type Reading struct {
	ID         string    `db:"id" json:"id"`
	IndustryID string    `db:"industry_id" json:"industry_id"`
	MeterID    string    `db:"meter_id" json:"meter_id"`
	Timestamp  time.Time `db:"-" json:"timestamp"`
	Value      float64   `db:"value" json:"value"`
	ImageRef   string    `db:"image_ref" json:"image_ref,omitempty"`
	RecordedBy string    `db:"recorded_by" json:"recorded_by,omitempty"`
	IsManual   bool      `db:"-" json:"is_manual"`
}

// Assignments maps a username to the industries that user may see. Saving a
// new set for a user discards the previous set entirely.
type Assignments map[string][]Industry

// Snapshot is the four-collection result of one successful poll tick. The
// collections are fetched independently, so a reading may reference an
// industry deleted in the same instant.
type Snapshot struct {
	Users       []User      `json:"users"`
	Industries  []Industry  `json:"industries"`
	Readings    []Reading   `json:"readings"`
	Assignments Assignments `json:"assignments"`
}

// IndustryByID resolves an industry in the snapshot, nil when absent.
func (s *Snapshot) IndustryByID(id string) *Industry {
	for idx := range s.Industries {
		if s.Industries[idx].ID == id {
			return &s.Industries[idx]
		}
	}
	return nil
}

// ReadingsForIndustry returns the readings recorded against one industry,
// in the order they appear in the snapshot.
func (s *Snapshot) ReadingsForIndustry(industryID string) []Reading {
	var out []Reading
	for _, r := range s.Readings {
		if r.IndustryID == industryID {
			out = append(out, r)
		}
	}
	return out
}

type AlertLevel string

const (
	AlertNormal   AlertLevel = "normal"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Consumption is the analyzer output for one industry: the extrapolated
// daily usage and its classification against the allowed limit.
type Consumption struct {
	RatePerDay float64    `json:"rate_per_day"`
	Percent    float64    `json:"percent"`
	Level      AlertLevel `json:"level"`
}
