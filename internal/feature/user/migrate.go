package user

import (
	"fmt"

	"gorm.io/gorm"
)

// 大小写不敏感的唯一索引：uk_users_* 是区分大小写的列约束，这里再兜底一层
var lowerIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_username_lower ON app_users (LOWER(username))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email_lower ON app_users (LOWER(email))`,
}

// Migrate 建表 + 索引。mysql 默认 _ci 排序规则，uk_* 本身已不区分大小写
func Migrate(db *gorm.DB, driver string) error {
	if err := db.AutoMigrate(&UserModel{}, &UserRoleModel{}); err != nil {
		return fmt.Errorf("automigrate users: %w", err)
	}
	if driver == "mysql" {
		return nil
	}
	for _, stmt := range lowerIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create lower index: %w", err)
		}
	}
	return nil
}
