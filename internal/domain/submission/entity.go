package submission

import "time"

// Submission is the immutable record of one accepted ingestion. Created
// once, never updated; deleted only by explicit operator action, which
// also decrements the owning task's counter.
type Submission struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TaskID        int64     `gorm:"column:task_id;index;not null" json:"taskId"`
	SubmitterName string    `gorm:"column:submitter_name;not null" json:"name"`
	Contact       string    `gorm:"column:contact;not null" json:"contact"`
	Department    string    `gorm:"column:department" json:"department"`
	StoredName    string    `gorm:"column:stored_name;not null" json:"filename"`
	Attachments   string    `gorm:"column:attachments" json:"-"` // JSON array of stored attachment names
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Submission) TableName() string { return "submissions" }
