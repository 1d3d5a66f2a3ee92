package repository

import "gorm.io/gorm"

const maxListPageSize = 100

// paginate is a gorm scope for page/pageSize listings. A non-positive pageSize
// returns every row; sizes above maxListPageSize are clamped.
func paginate(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(query *gorm.DB) *gorm.DB {
		if pageSize <= 0 {
			return query
		}
		if pageSize > maxListPageSize {
			pageSize = maxListPageSize
		}
		if page < 1 {
			page = 1
		}
		return query.Limit(pageSize).Offset((page - 1) * pageSize)
	}
}
