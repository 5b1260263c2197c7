package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SchedulerLock marks one run of a scheduled job as claimed. Replicas
// sharing the identity store race on the (lock_name, lock_key) index and
// only the inserter runs the job.
type SchedulerLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LockName  string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_name"`
	LockKey   string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_key"`
	LockedBy  string    `gorm:"size:100" json:"locked_by"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (SchedulerLock) TableName() string { return "scheduler_locks" }

// ClaimRun inserts the lock row for name/key and reports whether this
// caller got it. Rows past their expiry are purged first.
func ClaimRun(db *gorm.DB, name, key, owner string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	if err := db.Where("expires_at < ?", now).Delete(&SchedulerLock{}).Error; err != nil {
		return false, err
	}
	lock := SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  owner,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
