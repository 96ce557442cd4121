package model

// All lists every persisted model in foreign-key dependency order, for
// schema migration.
func All() []any {
	return []any{
		&User{},
		&Conversation{},
		&Message{},
		&Appointment{},
		&AppointmentStatusHistory{},
		&Payment{},
		&Notification{},
	}
}
