package models

// ContactStatus is the inbox workflow state of a contact message.
type ContactStatus string

const (
	ContactNew      ContactStatus = "new"
	ContactRead     ContactStatus = "read"
	ContactReplied  ContactStatus = "replied"
	ContactArchived ContactStatus = "archived"
)

// ValidContactStatus reports whether s is a defined workflow state.
func ValidContactStatus(s ContactStatus) bool {
	switch s {
	case ContactNew, ContactRead, ContactReplied, ContactArchived:
		return true
	}
	return false
}

// ContactMessageModel is an inbound contact-form submission.
type ContactMessageModel struct {
	Base
	Name    string        `json:"name"    gorm:"not null"`
	Email   string        `json:"email"   gorm:"not null"`
	Subject string        `json:"subject"`
	Message string        `json:"message" gorm:"type:text;not null"`
	Status  ContactStatus `json:"status"  gorm:"default:new;index"`
}

func (ContactMessageModel) TableName() string { return "contact_messages" }
