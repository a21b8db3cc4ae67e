package domain

import "time"

// Address — адрес доставки пользователя.
// Инвариант: у пользователя с хотя бы одним адресом ровно один IsDefault=true.
type Address struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Address      string    `json:"address"`
	Number       string    `json:"number"`
	Complement   string    `json:"complement,omitempty"`
	Neighborhood string    `json:"neighborhood"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Zipcode      string    `json:"zipcode"`
	IsDefault    bool      `json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
}

// AddressFields — поля нового адреса.
type AddressFields struct {
	Address      string `json:"address" validate:"required,max=255"`
	Number       string `json:"number" validate:"max=20"`
	Complement   string `json:"complement" validate:"max=100"`
	Neighborhood string `json:"neighborhood" validate:"max=100"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"required,len=2,alpha"`
	Zipcode      string `json:"zipcode" validate:"required,min=8,max=9"`
	IsDefault    bool   `json:"is_default"`
}

// AddressUpdate — частичное обновление; nil означает «не менять».
type AddressUpdate struct {
	Address      *string `json:"address,omitempty" validate:"omitempty,min=1,max=255"`
	Number       *string `json:"number,omitempty" validate:"omitempty,max=20"`
	Complement   *string `json:"complement,omitempty" validate:"omitempty,max=100"`
	Neighborhood *string `json:"neighborhood,omitempty" validate:"omitempty,max=100"`
	City         *string `json:"city,omitempty" validate:"omitempty,min=1,max=100"`
	State        *string `json:"state,omitempty" validate:"omitempty,len=2,alpha"`
	Zipcode      *string `json:"zipcode,omitempty" validate:"omitempty,min=8,max=9"`
	IsDefault    *bool   `json:"is_default,omitempty"`
}

// Apply переносит заданные поля на адрес. Флаг IsDefault обрабатывается репозиторием.
func (u AddressUpdate) Apply(a *Address) {
	if u.Address != nil {
		a.Address = *u.Address
	}
	if u.Number != nil {
		a.Number = *u.Number
	}
	if u.Complement != nil {
		a.Complement = *u.Complement
	}
	if u.Neighborhood != nil {
		a.Neighborhood = *u.Neighborhood
	}
	if u.City != nil {
		a.City = *u.City
	}
	if u.State != nil {
		a.State = *u.State
	}
	if u.Zipcode != nil {
		a.Zipcode = *u.Zipcode
	}
}

// PromoteToDefault сообщает, запрошено ли назначение адреса адресом по умолчанию.
func (u AddressUpdate) PromoteToDefault() bool {
	return u.IsDefault != nil && *u.IsDefault
}
