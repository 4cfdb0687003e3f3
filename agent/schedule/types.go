package schedule

// Activity is one schedule activity as the copilot sees it. Optional
// attributes (float, production data) are pointers: absent is distinct
// from zero and the analysis tools report the two differently.
type Activity struct {
	ID              int64    `json:"id"`
	ProjectID       int64    `json:"project_id"`
	Code            string   `json:"code"`
	Name            string   `json:"name"`
	DurationHours   float64  `json:"duration_hours"`
	TotalFloatHours *float64 `json:"total_float_hours,omitempty"`
	IsStart         bool     `json:"is_start"`
	IsFinish        bool     `json:"is_finish"`
	IsProduction    bool     `json:"is_production"`
	Volume          *float64 `json:"volume,omitempty"`
	ProductionRate  *float64 `json:"production_rate,omitempty"`
}

// Relationship links a predecessor activity to a successor.
type Relationship struct {
	PredecessorID int64  `json:"predecessor_id"`
	SuccessorID   int64  `json:"successor_id"`
	Type          string `json:"type"` // FS, SS, FF, SF
}

// Writable field names accepted by UpdateActivity.
const (
	FieldName           = "name"
	FieldDurationHours  = "duration_hours"
	FieldVolume         = "volume"
	FieldProductionRate = "production_rate"
)

// WritableFields is the closed set of fields a change proposal may touch.
var WritableFields = map[string]struct{}{
	FieldName:           {},
	FieldDurationHours:  {},
	FieldVolume:         {},
	FieldProductionRate: {},
}

// FieldValue returns the current value of a writable field by name.
func (a *Activity) FieldValue(field string) (any, bool) {
	switch field {
	case FieldName:
		return a.Name, true
	case FieldDurationHours:
		return a.DurationHours, true
	case FieldVolume:
		if a.Volume == nil {
			return nil, true
		}
		return *a.Volume, true
	case FieldProductionRate:
		if a.ProductionRate == nil {
			return nil, true
		}
		return *a.ProductionRate, true
	default:
		return nil, false
	}
}
