package repository

import "gorm.io/gorm"

// maxListPageSize bounds a single page regardless of what the caller asks for.
const maxListPageSize = 500

// pageWindow turns a 1-based page into limit and offset. ok is false when
// pageSize is not positive, meaning the whole result set is returned.
func pageWindow(page, pageSize int) (limit, offset int, ok bool) {
	if pageSize <= 0 {
		return 0, 0, false
	}
	if pageSize > maxListPageSize {
		pageSize = maxListPageSize
	}
	if page < 1 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize, true
}

func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	limit, offset, ok := pageWindow(page, pageSize)
	if query == nil || !ok {
		return query
	}
	return query.Limit(limit).Offset(offset)
}
