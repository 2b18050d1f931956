package member

import (
	"errors"
	"math"
	"time"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentDue     PaymentStatus = "due"
	PaymentPartial PaymentStatus = "partial"
)

var ErrNotFound = errors.New("member not found")

// Member extends the credential shape with the gym-domain attributes. The
// password hash is optional: records created at the front desk without portal
// access simply have none and cannot log in.
type Member struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Email              string        `json:"email,omitempty"`
	PasswordHash       string        `json:"-"`
	PhoneNumber        string        `json:"phoneNumber,omitempty"`
	Age                int           `json:"age,omitempty"`
	Gender             string        `json:"gender,omitempty"`
	PlanType           string        `json:"planType,omitempty"`
	HeightCm           float64       `json:"heightCm,omitempty"`
	WeightKg           float64       `json:"weightKg,omitempty"`
	BMI                float64       `json:"bmi,omitempty"`
	SubscriptionMonths int           `json:"subscriptionMonths"`
	StartDate          time.Time     `json:"startDate"`
	EndDate            time.Time     `json:"endDate"`
	Status             Status        `json:"status"`
	PaymentStatus      PaymentStatus `json:"paymentStatus"`
	PhotoKey           string        `json:"photoKey,omitempty"`
	CreatedByID        string        `json:"createdById,omitempty"` // staff who registered the member
	IsActive           bool          `json:"isActive"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// CreateRequest arrives as multipart form fields (the photo rides alongside),
// so everything is bound with form tags rather than JSON.
type CreateRequest struct {
	Name               string  `form:"name" binding:"required,min=2,max=120"`
	Email              string  `form:"email" binding:"omitempty,email"`
	Password           string  `form:"password" binding:"omitempty,min=8"`
	PhoneNumber        string  `form:"phoneNumber" binding:"omitempty,max=20"`
	Age                int     `form:"age" binding:"omitempty,min=1,max=120"`
	Gender             string  `form:"gender" binding:"omitempty,oneof=Male Female Other"`
	PlanType           string  `form:"planType" binding:"omitempty,max=60"`
	HeightCm           float64 `form:"heightCm" binding:"omitempty,min=0"`
	WeightKg           float64 `form:"weightKg" binding:"omitempty,min=0"`
	SubscriptionMonths int     `form:"subscriptionMonths" binding:"omitempty,min=1,max=36"`
	StartDate          string  `form:"startDate" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateRequest is a partial update, nil means "leave as is".
type UpdateRequest struct {
	PlanType      *string  `json:"planType" binding:"omitempty,max=60"`
	HeightCm      *float64 `json:"heightCm" binding:"omitempty,min=0"`
	WeightKg      *float64 `json:"weightKg" binding:"omitempty,min=0"`
	PaymentStatus *string  `json:"paymentStatus" binding:"omitempty,oneof=paid due partial"`
	Status        *string  `json:"status" binding:"omitempty,oneof=active expired"`
}

type ListFilter struct {
	Query string // case-insensitive name search
	Sort  string // name | startDate | endDate
	Limit int
}

// ComputeBMI returns kg/m^2 rounded to one decimal, zero if either input is
// missing.
func ComputeBMI(heightCm, weightKg float64) float64 {
	if heightCm <= 0 || weightKg <= 0 {
		return 0
	}

	meters := heightCm / 100
	bmi := weightKg / (meters * meters)

	return math.Round(bmi*10) / 10
}

// SubscriptionEnd adds whole months to the start date, matching how the
// front desk reasons about "a 3 month plan".
func SubscriptionEnd(start time.Time, months int) time.Time {
	if months <= 0 {
		months = 1
	}

	return start.AddDate(0, months, 0)
}

// DaysRemaining is clamped at zero for already-expired windows.
func DaysRemaining(endDate, now time.Time) int {
	d := int(math.Ceil(endDate.Sub(now).Hours() / 24))

	if d < 0 {
		return 0
	}
	return d
}
