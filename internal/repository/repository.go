package repository

import "gorm.io/gorm"

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB         *gorm.DB // 直接访问数据库
	File       *FileRepository
	Storage    *StorageRepository
	Extraction *ExtractionRepository
	Index      *IndexRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:         db,
		File:       NewFileRepository(db),
		Storage:    NewStorageRepository(db),
		Extraction: NewExtractionRepository(db),
		Index:      NewIndexRepository(db),
	}
}
