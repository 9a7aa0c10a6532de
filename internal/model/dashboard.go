package model

// AdminDashboard aggregates headline counts for the admin console
type AdminDashboard struct {
	TotalCustomers  int64     `json:"total_customers"`
	TotalStaff      int64     `json:"total_staff"`
	TotalVehicles   int64     `json:"total_vehicles"`
	PendingBookings int64     `json:"pending_bookings"`
	TotalServices   int64     `json:"total_services"`
	RecentBookings  []Booking `json:"recent_bookings"`
}

// StaffDashboard shows a staff member's open workload
type StaffDashboard struct {
	AssignedBookings  []Booking `json:"assigned_bookings"`
	CompletedBookings int64     `json:"completed_bookings"`
}

// CustomerDashboard summarises a customer's account
type CustomerDashboard struct {
	BookingsCount  int64     `json:"bookings_count"`
	VehiclesCount  int64     `json:"vehicles_count"`
	FeedbackCount  int64     `json:"feedback_count"`
	RecentBookings []Booking `json:"recent_bookings"`
}

// AnalyticsDashboard lists the latest stored reports
type AnalyticsDashboard struct {
	RevenueReports    []RevenueReport    `json:"revenue_reports"`
	StaffPerformances []StaffPerformance `json:"staff_performances"`
}
