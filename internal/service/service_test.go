package service

import (
	"context"
	"testing"
	"time"

	"article-api/backend/internal/models"
	"article-api/backend/pkg/jwt"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newUserService(t *testing.T, db *gorm.DB) *UserService {
	t.Helper()
	return NewUserService(db, jwt.NewService("test-secret", time.Minute))
}

func mustCreateUser(t *testing.T, svc *UserService, username string, role jwt.Role) *models.User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), &models.UserCreate{
		Username: username,
		Email:    username + "@example.com",
		FullName: "Full " + username,
		Password: "secret1",
		Role:     role,
	})
	require.NoError(t, err)
	return user
}

func mustCreateArticle(t *testing.T, svc *ArticleService, authorID uint, title string, published bool) *models.Article {
	t.Helper()
	article, err := svc.CreateArticle(context.Background(), authorID, &models.ArticleCreate{
		Title:       title,
		Content:     "content of " + title,
		Summary:     "summary of " + title,
		Tags:        []string{"go"},
		IsPublished: published,
	})
	require.NoError(t, err)
	return article
}
