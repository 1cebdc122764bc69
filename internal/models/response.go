package models

// StandardResponse is the envelope for successful non-list responses
type StandardResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK builds a successful envelope
func OK(message string, data any) StandardResponse {
	return StandardResponse{Success: true, Message: message, Data: data}
}

// Page is a slice of a larger result set
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPage computes TotalPages from total and pageSize
func NewPage[T any](items []T, total int64, page, pageSize int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Page[T]{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: pages}
}

// PageQuery is the common pagination query string
type PageQuery struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"page_size,default=10" binding:"min=1,max=100"`
	Search   string `form:"search"`
}

// Offset is the number of rows to skip
func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}
