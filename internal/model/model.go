// Package model содержит доменные сущности сервиса Fadj Ma.
package model

import "time"

// Role определяет роль пользователя в системе.
type Role string

const (
	RolePatient  Role = "PATIENT"
	RolePharmacy Role = "PHARMACY"
	RoleAdmin    Role = "ADMIN"
)

// Valid сообщает, является ли значение роли допустимым.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RolePharmacy, RoleAdmin:
		return true
	}
	return false
}

// User представляет зарегистрированного пользователя маркетплейса.
type User struct {
	ID           int64
	Phone        string
	Name         string
	Role         Role
	PasswordHash []byte
	CreatedAt    time.Time
}

// VerificationStatus описывает статус проверки аптеки администратором.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// Pharmacy описывает аптеку, принадлежащую одному пользователю с ролью PHARMACY.
type Pharmacy struct {
	ID                 int64
	UserID             int64
	Name               string
	Address            string
	Latitude           float64
	Longitude          float64
	VerificationStatus VerificationStatus
	IsVerified         bool
	CreatedAt          time.Time

	// OwnerName и OwnerPhone заполняются только в админских выборках.
	OwnerName  string
	OwnerPhone string
}

// Drug описывает препарат глобального каталога.
type Drug struct {
	ID    int64
	Name  string
	Form  string
	Class string
}

// Stock описывает позицию склада: пара (аптека, препарат) с количеством и ценой.
// Цена хранится в целых франках CFA, дробных единиц нет.
type Stock struct {
	ID         int64
	PharmacyID int64
	DrugID     int64
	Quantity   int64
	Price      int64
}

// StockListing — строка склада вместе с препаратом и аптекой, как её видит поиск.
type StockListing struct {
	Stock    Stock
	Drug     Drug
	Pharmacy Pharmacy
}

// DeliveryMode определяет способ получения заказа.
type DeliveryMode string

const (
	DeliveryModeDelivery DeliveryMode = "delivery"
	DeliveryModePickup   DeliveryMode = "pickup"
)

// Valid сообщает, является ли способ получения допустимым.
func (m DeliveryMode) Valid() bool {
	return m == DeliveryModeDelivery || m == DeliveryModePickup
}

// OrderItem — позиция заказа с зафиксированной на момент оформления ценой.
type OrderItem struct {
	DrugID   int64
	Name     string
	Price    int64
	Quantity int64
}

// Order описывает заказ пациента в одной аптеке.
type Order struct {
	ID              int64
	PatientID       int64
	PharmacyID      int64
	Items           []OrderItem
	DeliveryMode    DeliveryMode
	DeliveryAddress string
	Subtotal        int64
	DeliveryFee     int64
	Total           int64
	Status          OrderStatus
	CreatedAt       time.Time

	// PatientName и PatientPhone заполняются в выборках для аптеки.
	PatientName  string
	PatientPhone string
}

// PaymentMethod определяет платёжного провайдера мобильных денег.
type PaymentMethod string

const (
	PaymentMethodWave   PaymentMethod = "wave"
	PaymentMethodOrange PaymentMethod = "orange"
	PaymentMethodFree   PaymentMethod = "free"
)

// Valid сообщает, является ли метод оплаты допустимым.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodWave, PaymentMethodOrange, PaymentMethodFree:
		return true
	}
	return false
}

// Payment описывает платёж по заказу. Подтверждается ровно один раз.
type Payment struct {
	ID          int64
	OrderID     int64
	Method      PaymentMethod
	PhoneNumber string
	Amount      int64
	Confirmed   bool
	CreatedAt   time.Time
}

// SubscriptionPlan определяет тариф профессионального аккаунта.
type SubscriptionPlan string

const (
	PlanBasic        SubscriptionPlan = "basic"
	PlanProfessional SubscriptionPlan = "professional"
	PlanEnterprise   SubscriptionPlan = "enterprise"
)

// PlanInfo описывает тариф из справочника тарифов.
type PlanInfo struct {
	ID          int64
	Type        SubscriptionPlan
	Description string
	Price       int64
	Duration    string
}

// Subscription описывает активную подписку аптеки. Новая подписка замещает предыдущую.
type Subscription struct {
	ID              int64
	PharmacyID      int64
	Plan            SubscriptionPlan
	RenewalPrice    int64
	ExpiresAt       time.Time
	NextRenewalDate time.Time
}
