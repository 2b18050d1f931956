package payment

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("payment not found")

type Method string

const (
	MethodCash   Method = "cash"
	MethodCard   Method = "card"
	MethodOnline Method = "online"
	MethodUPI    Method = "upi"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

type Payment struct {
	ID            string    `json:"id"`
	MemberID      string    `json:"memberId"`
	Amount        float64   `json:"amount"`
	PaymentDate   time.Time `json:"paymentDate"`
	Method        Method    `json:"paymentMethod"`
	Status        Status    `json:"status"`
	Description   string    `json:"description,omitempty"`
	ReceiptNumber string    `json:"receiptNumber,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	MemberID    string  `json:"memberId" binding:"required,uuid"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Method      string  `json:"paymentMethod" binding:"omitempty,oneof=cash card online upi"`
	Description string  `json:"description" binding:"omitempty,max=500"`
}
