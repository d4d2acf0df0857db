package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image 是图库中的一条图片记录，创建后不再修改
type Image struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:80;not null" json:"title"`
	Description string    `gorm:"size:260;not null" json:"description"`
	URL         string    `gorm:"not null" json:"url"`
	Ts          int64     `gorm:"autoCreateTime:milli;index" json:"ts"`
	CreatedAt   time.Time `json:"-"`
}

// BeforeCreate assigns a random id when none is set.
func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// CreatedTime returns the creation timestamp as a time.Time.
func (i Image) CreatedTime() time.Time {
	return time.UnixMilli(i.Ts)
}
