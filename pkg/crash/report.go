package crash

import "time"

// Kinds of crash reports.
const (
	KindPanic = "panic"
	KindFatal = "fatal"
	KindError = "error"
)

// Report is a persisted crash.
type Report struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	CrashID   string    `gorm:"uniqueIndex;size:36" json:"crash_id"`
	Kind      string    `gorm:"size:16;index" json:"kind"`
	Message   string    `gorm:"type:text" json:"message"`
	Stack     string    `gorm:"type:text" json:"stack,omitempty"`
	Process   string    `gorm:"size:255" json:"process"`
	Version   string    `gorm:"size:64" json:"version,omitempty"`
	Fatal     bool      `json:"fatal"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName sets the table name.
func (Report) TableName() string {
	return "crash_reports"
}
