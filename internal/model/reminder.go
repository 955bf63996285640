package model

import "time"

// ReminderTimeLayout is the wire format of Reminder.Time. Fractional
// seconds of any precision are accepted when parsing.
const ReminderTimeLayout = "2006-01-02 15:04:05.000"

type Reminder struct {
	ID          string    `gorm:"primaryKey;size:16" json:"id" bson:"_id"`
	OwnerID     string    `gorm:"index;not null" json:"-" bson:"owner_id"`
	Title       string    `gorm:"not null" json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Major       string    `gorm:"not null" json:"major" bson:"major"`
	Time        time.Time `gorm:"not null" json:"-" bson:"time"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
}

// ReminderView is the JSON shape of a reminder with its time in wire format.
type ReminderView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Major       string `json:"major"`
	Time        string `json:"time"`
}

func (r *Reminder) View() ReminderView {
	return ReminderView{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Major:       r.Major,
		Time:        r.Time.Format(ReminderTimeLayout),
	}
}
