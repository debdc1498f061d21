package models

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{
		&Company{},
		&User{},
		&Customer{},
		&Product{},
		&ProductStep{},
		&Order{},
		&OrderItem{},
		&OrderStep{},
		&Notification{},
	}
}
