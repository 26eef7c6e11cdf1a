package models

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type Request struct {
	ID                     int    `gorm:"primaryKey;autoIncrement" json:"id"`
	CaseType               string `gorm:"not null;index"           json:"case_type"`
	Status                 string `gorm:"not null;index"           json:"status"`
	RequestReceivedYear    string `gorm:"not null;index"           json:"request_received_year"`
	RequestReceivedQuarter string `gorm:"not null;index"           json:"request_received_quarter"`
	RequestReceivedMonth   string `json:"request_received_month"`
	CaseActiveDaysGrouped  string `json:"case_active_days_grouped"`
}
