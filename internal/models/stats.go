package models

import "time"

// UserStats summarises the users table
type UserStats struct {
	TotalUsers   int64 `json:"total_users"`
	ActiveUsers  int64 `json:"active_users"`
	AdminUsers   int64 `json:"admin_users"`
	NewUsersWeek int64 `json:"new_users_week"`
}

// ArticleStats summarises the articles table
type ArticleStats struct {
	TotalArticles     int64 `json:"total_articles"`
	PublishedArticles int64 `json:"published_articles"`
	TotalViews        int64 `json:"total_views"`
	NewArticlesWeek   int64 `json:"new_articles_week"`
}

// Overview is the admin dashboard payload
type Overview struct {
	UserStats    UserStats    `json:"user_stats"`
	ArticleStats ArticleStats `json:"article_stats"`
}

// PopularArticle is one row of the popularity ranking
type PopularArticle struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	ViewCount  int64     `json:"view_count"`
	CreatedAt  time.Time `json:"created_at"`
	AuthorName string    `json:"author_name"`
}

// ArticleHit is an article search result
type ArticleHit struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"created_at"`
	AuthorName string    `json:"author_name"`
}

// UserHit is a user search result
type UserHit struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchResults groups hits by type; a type not searched stays empty
type SearchResults struct {
	Articles []ArticleHit `json:"articles"`
	Users    []UserHit    `json:"users"`
}

// SearchQuery is the /stats/search query string
type SearchQuery struct {
	Q        string `form:"q" binding:"required"`
	Type     string `form:"type,default=all" binding:"oneof=all articles users"`
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"page_size,default=10" binding:"min=1,max=50"`
}

// Batch operation types
const (
	BatchPublish   = "publish"
	BatchUnpublish = "unpublish"
	BatchDelete    = "delete"
)

// BatchOperation is one item of a batch request
type BatchOperation struct {
	Type      string `json:"type"`
	ArticleID uint   `json:"article_id"`
}

// BatchResult reports the outcome of one operation
type BatchResult struct {
	ArticleID uint   `json:"article_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// ExportRow is one exported article
type ExportRow struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Summary     string    `json:"summary"`
	IsPublished bool      `json:"is_published"`
	ViewCount   int64     `json:"view_count"`
	CreatedAt   time.Time `json:"created_at"`
	AuthorName  string    `json:"author_name"`
}
