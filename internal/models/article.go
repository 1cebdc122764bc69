package models

import "time"

// Article is a piece of content written by a user
type Article struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null;index" json:"title"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Summary     string    `gorm:"size:500" json:"summary,omitempty"`
	Tags        []string  `gorm:"serializer:json" json:"tags"`
	IsPublished bool      `gorm:"default:false;index" json:"is_published"`
	ViewCount   int64     `gorm:"default:0" json:"view_count"`
	AuthorID    uint      `gorm:"index;not null" json:"author_id"`
	Author      *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ArticleCreate is the creation payload
type ArticleCreate struct {
	Title       string   `json:"title" binding:"required,min=1,max=200"`
	Content     string   `json:"content" binding:"required,min=1"`
	Summary     string   `json:"summary" binding:"max=500"`
	Tags        []string `json:"tags"`
	IsPublished bool     `json:"is_published"`
}

// ArticleUpdate carries only the fields to change
type ArticleUpdate struct {
	Title       *string   `json:"title" binding:"omitempty,min=1,max=200"`
	Content     *string   `json:"content" binding:"omitempty,min=1"`
	Summary     *string   `json:"summary" binding:"omitempty,max=500"`
	Tags        *[]string `json:"tags"`
	IsPublished *bool     `json:"is_published"`
}

// Empty reports whether no field was supplied
func (a ArticleUpdate) Empty() bool {
	return a.Title == nil && a.Content == nil && a.Summary == nil && a.Tags == nil && a.IsPublished == nil
}

// ArticleResponse adds the author's username
type ArticleResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Summary     string    `json:"summary,omitempty"`
	Tags        []string  `json:"tags"`
	IsPublished bool      `json:"is_published"`
	ViewCount   int64     `json:"view_count"`
	AuthorID    uint      `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToResponse flattens the preloaded author
func (a *Article) ToResponse() ArticleResponse {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	resp := ArticleResponse{
		ID:          a.ID,
		Title:       a.Title,
		Content:     a.Content,
		Summary:     a.Summary,
		Tags:        tags,
		IsPublished: a.IsPublished,
		ViewCount:   a.ViewCount,
		AuthorID:    a.AuthorID,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.Author != nil {
		resp.AuthorName = a.Author.Username
	}
	return resp
}
