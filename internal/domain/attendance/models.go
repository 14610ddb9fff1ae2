package attendance

import "time"

type Record struct {
	ID              string     `json:"id"`
	EmployeeID      string     `json:"employeeId"`
	WorkDate        time.Time  `json:"workDate"`
	CheckInAt       time.Time  `json:"checkInAt"`
	CheckOutAt      *time.Time `json:"checkOutAt,omitempty"`
	IsLateCheckIn   bool       `json:"isLateCheckIn"`
	IsEarlyCheckOut bool       `json:"isEarlyCheckOut"`
	DeviceIP        string     `json:"deviceIp"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Worked is the time between check-in and check-out, zero while still
// checked in.
func (r Record) Worked() time.Duration {
	if r.CheckOutAt == nil {
		return 0
	}
	return r.CheckOutAt.Sub(r.CheckInAt)
}
