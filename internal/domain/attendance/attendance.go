package attendance

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("attendance record not found")

type Record struct {
	ID           string     `json:"id"`
	MemberID     string     `json:"memberId"`
	CheckInTime  time.Time  `json:"checkInTime"`
	CheckOutTime *time.Time `json:"checkOutTime,omitempty"`
	Date         time.Time  `json:"date"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type CheckInRequest struct {
	MemberID string `json:"memberId" binding:"required,uuid"`
	Notes    string `json:"notes" binding:"omitempty,max=500"`
}

type CheckOutRequest struct {
	MemberID string `json:"memberId" binding:"required,uuid"`
}
