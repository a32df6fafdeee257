package model

import "time"

// Violation types reported by the anti-cheat client.
const (
	ViolationTabSwitch = "tab_switch"
	ViolationPageLeave = "page_leave"
	ViolationMinimize  = "minimize"
	ViolationOther     = "other"
)

// Violation is an append-only log row. Count carries the running per-result
// total at the time the row was written and is non-decreasing.
type Violation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ResultID  uint      `json:"result_id" gorm:"not null;index"`
	Type      string    `json:"type" gorm:"not null"`
	Count     int       `json:"count" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// KickRecord is written once when a result crosses the violation threshold.
type KickRecord struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	ResultID       uint      `json:"result_id" gorm:"not null;uniqueIndex"`
	Reason         string    `json:"reason" gorm:"type:text;not null"`
	ViolationCount int       `json:"violation_count" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidViolationType reports whether t names a known violation type.
func ValidViolationType(t string) bool {
	switch t {
	case ViolationTabSwitch, ViolationPageLeave, ViolationMinimize, ViolationOther:
		return true
	}
	return false
}
