package domain

import "time"

const PaymentStatusCaptured = "captured"

// Order es la orden creada en la pasarela; no se persiste localmente.
type Order struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Status   string            `json:"status,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Payment es el estado autoritativo reportado por la pasarela.
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

const (
	RepairPending  = "pending"
	RepairResolved = "resolved"

	RepairSideUser   = "user"
	RepairSideCourse = "course"
)

// EnrollmentRepair registra una inscripción aplicada a medias.
type EnrollmentRepair struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id"`
	OrderID    string    `json:"order_id"`
	PaymentID  string    `json:"payment_id"`
	FailedSide string    `json:"failed_side"`
	LastError  string    `json:"last_error"`
	Attempts   int       `json:"attempts"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
