package service

import (
	"context"
	"errors"
	"time"

	"article-api/backend/internal/models"
	"article-api/backend/pkg/cache"
	"article-api/backend/pkg/jwt"

	"gorm.io/gorm"
)

// ErrUnknownOperation is reported for a batch item with an unsupported type
var ErrUnknownOperation = errors.New("unknown operation type")

// StatsService computes dashboard figures, search and bulk operations
type StatsService struct {
	db       *gorm.DB
	articles *ArticleService
	overview *cache.Cache[models.Overview]
	now      func() time.Time
}

// NewStatsService creates a new stats service. Overview results are kept
// for overviewTTL; pass zero to always hit the database.
func NewStatsService(db *gorm.DB, articles *ArticleService, overviewTTL time.Duration) *StatsService {
	return &StatsService{
		db:       db,
		articles: articles,
		overview: cache.New[models.Overview](overviewTTL, 1),
		now:      time.Now,
	}
}

const overviewKey = "overview"

// Overview counts users and articles
func (s *StatsService) Overview(ctx context.Context) (*models.Overview, error) {
	if cached, ok := s.overview.Get(overviewKey); ok {
		return &cached, nil
	}

	db := s.db.WithContext(ctx)
	weekAgo := s.now().AddDate(0, 0, -7)

	var out models.Overview
	counts := []struct {
		dst   *int64
		model any
		where []any
	}{
		{&out.UserStats.TotalUsers, &models.User{}, nil},
		{&out.UserStats.ActiveUsers, &models.User{}, []any{"status = ?", models.StatusActive}},
		{&out.UserStats.AdminUsers, &models.User{}, []any{"role = ?", jwt.RoleAdmin}},
		{&out.UserStats.NewUsersWeek, &models.User{}, []any{"created_at >= ?", weekAgo}},
		{&out.ArticleStats.TotalArticles, &models.Article{}, nil},
		{&out.ArticleStats.PublishedArticles, &models.Article{}, []any{"is_published = ?", true}},
		{&out.ArticleStats.NewArticlesWeek, &models.Article{}, []any{"created_at >= ?", weekAgo}},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != nil {
			q = q.Where(c.where[0], c.where[1:]...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	if err := db.Model(&models.Article{}).
		Select("COALESCE(SUM(view_count), 0)").
		Scan(&out.ArticleStats.TotalViews).Error; err != nil {
		return nil, err
	}
	s.overview.Set(overviewKey, out)
	return &out, nil
}

// Popular returns the most viewed published articles
func (s *StatsService) Popular(ctx context.Context, limit int) ([]models.PopularArticle, error) {
	var articles []models.Article
	if err := s.db.WithContext(ctx).Preload("Author").
		Where("is_published = ?", true).
		Order("view_count DESC").Order("id ASC").
		Limit(limit).
		Find(&articles).Error; err != nil {
		return nil, err
	}

	out := make([]models.PopularArticle, 0, len(articles))
	for _, a := range articles {
		out = append(out, models.PopularArticle{
			ID:         a.ID,
			Title:      a.Title,
			ViewCount:  a.ViewCount,
			CreatedAt:  a.CreatedAt,
			AuthorName: authorName(&a),
		})
	}
	return out, nil
}

// Search matches published articles by title or content and active users by name
func (s *StatsService) Search(ctx context.Context, q models.SearchQuery) (*models.SearchResults, error) {
	db := s.db.WithContext(ctx)
	like := "%" + q.Q + "%"
	offset := (q.Page - 1) * q.PageSize
	out := &models.SearchResults{Articles: []models.ArticleHit{}, Users: []models.UserHit{}}

	if q.Type == "all" || q.Type == "articles" {
		var articles []models.Article
		if err := db.Preload("Author").
			Where("is_published = ?", true).
			Where("title LIKE ? OR content LIKE ?", like, like).
			Order("created_at DESC").Order("id DESC").
			Offset(offset).Limit(q.PageSize).
			Find(&articles).Error; err != nil {
			return nil, err
		}
		for _, a := range articles {
			out.Articles = append(out.Articles, models.ArticleHit{
				ID:         a.ID,
				Title:      a.Title,
				Summary:    a.Summary,
				CreatedAt:  a.CreatedAt,
				AuthorName: authorName(&a),
			})
		}
	}

	if q.Type == "all" || q.Type == "users" {
		var users []models.User
		if err := db.Where("status = ?", models.StatusActive).
			Where("username LIKE ? OR full_name LIKE ?", like, like).
			Order("created_at DESC").Order("id DESC").
			Offset(offset).Limit(q.PageSize).
			Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			out.Users = append(out.Users, models.UserHit{
				ID:        u.ID,
				Username:  u.Username,
				FullName:  u.FullName,
				CreatedAt: u.CreatedAt,
			})
		}
	}
	return out, nil
}

// Batch runs each operation independently; failures are reported per item
func (s *StatsService) Batch(ctx context.Context, ops []models.BatchOperation) []models.BatchResult {
	results := make([]models.BatchResult, 0, len(ops))
	for _, op := range ops {
		res := models.BatchResult{ArticleID: op.ArticleID}
		var err error
		switch op.Type {
		case models.BatchPublish:
			err = s.articles.SetPublished(ctx, op.ArticleID, true)
			res.Status = "published"
		case models.BatchUnpublish:
			err = s.articles.SetPublished(ctx, op.ArticleID, false)
			res.Status = "unpublished"
		case models.BatchDelete:
			err = s.articles.Remove(ctx, op.ArticleID)
			res.Status = "deleted"
		default:
			err = ErrUnknownOperation
		}
		if err != nil {
			res.Status = "error"
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	s.overview.Flush()
	return results
}

// Export returns every article, newest first
func (s *StatsService) Export(ctx context.Context) ([]models.ExportRow, error) {
	var articles []models.Article
	if err := s.db.WithContext(ctx).Preload("Author").
		Order("created_at DESC").Order("id DESC").
		Find(&articles).Error; err != nil {
		return nil, err
	}

	rows := make([]models.ExportRow, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, models.ExportRow{
			ID:          a.ID,
			Title:       a.Title,
			Content:     a.Content,
			Summary:     a.Summary,
			IsPublished: a.IsPublished,
			ViewCount:   a.ViewCount,
			CreatedAt:   a.CreatedAt,
			AuthorName:  authorName(&a),
		})
	}
	return rows, nil
}

func authorName(a *models.Article) string {
	if a.Author == nil {
		return ""
	}
	return a.Author.Username
}
