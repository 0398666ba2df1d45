package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// 所有模型的统一导入点
// 用于 AutoMigrate
var AllModels = []interface{}{
	&File{},
	&StorageLocation{},
	&StorageSyncJob{},
	&ExtractionJob{},
	&ExtractedContent{},
	&IndexStatus{},
}

// JSON 自定义 JSON 字段类型
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSON: %T", value)
	}

	return json.Unmarshal(data, j)
}
