package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Init 初始化数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 gallery.db。
func Init(databasePath string) error {
	gdb, err := Open(databasePath, logger.Warn)
	if err != nil {
		return err
	}
	DB = gdb
	return nil
}

// Open opens the SQLite database at databasePath and migrates the schema.
func Open(databasePath string, level logger.LogLevel) (*gorm.DB, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "gallery.db"
	}

	if err := ensureParentDir(path); err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(level)})
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate creates or updates the tables of every model.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&Image{})
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
