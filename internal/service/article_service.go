package service

import (
	"context"
	"errors"
	"strings"

	"article-api/backend/internal/models"

	"gorm.io/gorm"
)

var ErrArticleNotFound = errors.New("article not found")

// ArticleService handles article persistence and authorship checks
type ArticleService struct {
	db *gorm.DB
}

// NewArticleService creates a new article service
func NewArticleService(db *gorm.DB) *ArticleService {
	return &ArticleService{db: db}
}

// CreateArticle stores a new article written by authorID
func (s *ArticleService) CreateArticle(ctx context.Context, authorID uint, req *models.ArticleCreate) (*models.Article, error) {
	article := models.Article{
		Title:       req.Title,
		Content:     req.Content,
		Summary:     req.Summary,
		Tags:        req.Tags,
		IsPublished: req.IsPublished,
		AuthorID:    authorID,
	}
	if article.Tags == nil {
		article.Tags = []string{}
	}
	if err := s.db.WithContext(ctx).Omit("Author").Create(&article).Error; err != nil {
		return nil, err
	}
	return s.find(ctx, article.ID)
}

// ListArticles returns one page of articles, newest first
func (s *ArticleService) ListArticles(ctx context.Context, q models.PageQuery) ([]models.Article, int64, error) {
	db := s.db.WithContext(ctx).Model(&models.Article{})
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + term + "%"
		db = db.Where("title LIKE ? OR content LIKE ?", like, like)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var articles []models.Article
	if err := db.Preload("Author").
		Order("created_at DESC").Order("id DESC").
		Offset(q.Offset()).Limit(q.PageSize).
		Find(&articles).Error; err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// GetArticle returns an article and counts the view
func (s *ArticleService) GetArticle(ctx context.Context, id uint) (*models.Article, error) {
	result := s.db.WithContext(ctx).Model(&models.Article{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrArticleNotFound
	}
	return s.find(ctx, id)
}

// UpdateArticle applies the supplied fields; only the author or an admin may edit
func (s *ArticleService) UpdateArticle(ctx context.Context, actor Actor, id uint, req *models.ArticleUpdate) (*models.Article, error) {
	article, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, ErrNoFields
	}

	if req.Title != nil {
		article.Title = *req.Title
	}
	if req.Content != nil {
		article.Content = *req.Content
	}
	if req.Summary != nil {
		article.Summary = *req.Summary
	}
	if req.Tags != nil {
		article.Tags = *req.Tags
	}
	if req.IsPublished != nil {
		article.IsPublished = *req.IsPublished
	}

	if err := s.db.WithContext(ctx).Omit("Author").Save(article).Error; err != nil {
		return nil, err
	}
	return s.find(ctx, id)
}

// DeleteArticle removes an article; only the author or an admin may delete
func (s *ArticleService) DeleteArticle(ctx context.Context, actor Actor, id uint) error {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Article{}, id).Error
}

// SetPublished flips the publication flag without an authorship check
func (s *ArticleService) SetPublished(ctx context.Context, id uint, published bool) error {
	result := s.db.WithContext(ctx).Model(&models.Article{}).
		Where("id = ?", id).
		Update("is_published", published)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrArticleNotFound
	}
	return nil
}

// Remove deletes an article without an authorship check
func (s *ArticleService) Remove(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Article{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func (s *ArticleService) authorize(ctx context.Context, actor Actor, id uint) (*models.Article, error) {
	var article models.Article
	if err := s.db.WithContext(ctx).First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	if article.AuthorID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return &article, nil
}

func (s *ArticleService) find(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	if err := s.db.WithContext(ctx).Preload("Author").First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	return &article, nil
}
