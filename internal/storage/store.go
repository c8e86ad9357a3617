package storage

import "gorm.io/gorm"

// Repositories bundles the gorm repositories over one connection.
type Repositories struct {
	Groups     *GroupRepository
	Violations *ViolationRepository
	Challenges *ChallengeRepository
	Notices    *NoticeRepository
	Blocks     *BlockRepository
	Unbans     *UnbanRepository
}

// NewRepositories creates every repository over db.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Groups:     NewGroupRepository(db),
		Violations: NewViolationRepository(db),
		Challenges: NewChallengeRepository(db),
		Notices:    NewNoticeRepository(db),
		Blocks:     NewBlockRepository(db),
		Unbans:     NewUnbanRepository(db),
	}
}
