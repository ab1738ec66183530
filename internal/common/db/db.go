package db

import (
	"fmt"
	"time"

	"github.com/FindOutRent/FindOutRent/internal/common/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open 按配置打开数据库连接（postgres / mysql），带重试。
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	const maxAttempts = 10
	var gdb *gorm.DB
	for i := 1; i <= maxAttempts; i++ {
		gdb, err = gorm.Open(dialector, &gorm.Config{TranslateError: true})
		if err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxAttempts, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	}

	return gdb, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "":
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// Migrate 执行 AutoMigrate，postgres 下额外安装 schedules 的排他约束。
func Migrate(gdb *gorm.DB, models ...interface{}) error {
	if err := gdb.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return ensureScheduleExclusion(gdb)
}

// ensureScheduleExclusion 在数据库层面兜底日程重叠：
// 同一 vehicle_id 下，闭区间 [start_date, end_date] 互相重叠的两行不允许共存。
// 应用层的串行化事务先挡一道，这个约束防并发写入绕过校验。
// 仅 postgres 支持（btree_gist 排他约束）；mysql 下只依赖事务。
func ensureScheduleExclusion(gdb *gorm.DB) error {
	if gdb.Dialector.Name() != "postgres" {
		return nil
	}
	if err := gdb.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
		return fmt.Errorf("failed to create btree_gist extension: %w", err)
	}
	const ddl = `
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM pg_constraint WHERE conname = 'schedules_no_overlap'
    ) THEN
        ALTER TABLE schedules
            ADD CONSTRAINT schedules_no_overlap
            EXCLUDE USING gist (
                vehicle_id WITH =,
                daterange(start_date::date, end_date::date, '[]') WITH &&
            );
    END IF;
END
$$;`
	if err := gdb.Exec(ddl).Error; err != nil {
		return fmt.Errorf("failed to install schedules exclusion constraint: %w", err)
	}
	return nil
}
