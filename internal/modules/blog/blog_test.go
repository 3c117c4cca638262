package blog

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hamxasajid/blogsite-core/internal/models"
	"github.com/hamxasajid/blogsite-core/internal/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.UserModel{},
		&models.BlogModel{},
		&models.CommentModel{},
		&models.BlogLikeModel{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.UserModel {
	t.Helper()
	u := models.UserModel{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		Name:     username,
		Role:     role,
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func seedBlog(t *testing.T, svc *Service, userID string, status models.BlogStatus) *models.BlogModel {
	t.Helper()
	b, err := svc.Create(userID, &CreateBlogDTO{
		Title:  "A title",
		Text:   "some words in a post",
		Status: status,
	})
	require.NoError(t, err)
	return b
}

func manyWords(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += "word "
	}
	return out
}

func TestCreateComputesReadTime(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)

	cases := []struct {
		words   int
		minutes int
	}{
		{10, 1},
		{200, 1},
		{201, 2},
		{450, 3},
	}
	for _, tc := range cases {
		b, err := svc.Create(author.ID, &CreateBlogDTO{Title: "t", Text: manyWords(tc.words)})
		require.NoError(t, err)
		assert.Equal(t, tc.minutes, b.ReadTime, "words=%d", tc.words)
	}
}

func TestCreateDefaults(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)

	b, err := svc.Create(author.ID, &CreateBlogDTO{Title: "t", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, models.BlogDraft, b.Status)
	assert.True(t, b.AllowComment)
}

func TestUpdateRecomputesReadTime(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	b := seedBlog(t, svc, author.ID, models.BlogPublished)
	assert.Equal(t, 1, b.ReadTime)

	text := manyWords(450)
	updated, err := svc.Update(b.ID, author.ID, &UpdateBlogDTO{Text: &text})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.ReadTime)

	var stored models.BlogModel
	require.NoError(t, db.First(&stored, "id = ?", b.ID).Error)
	assert.Equal(t, 3, stored.ReadTime)
}

func TestUpdateOwnerOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	other := seedUser(t, db, "other", models.RoleAuthor)
	admin := seedUser(t, db, "admin", models.RoleAdmin)
	b := seedBlog(t, svc, author.ID, models.BlogPublished)

	title := "hijacked"
	_, err := svc.Update(b.ID, other.ID, &UpdateBlogDTO{Title: &title})
	assert.ErrorIs(t, err, errNotOwner)

	// admins moderate by deleting, they cannot rewrite someone's post
	title = "moderated"
	_, err = svc.Update(b.ID, admin.ID, &UpdateBlogDTO{Title: &title})
	assert.ErrorIs(t, err, errNotOwner)

	title = "revised"
	got, err := svc.Update(b.ID, author.ID, &UpdateBlogDTO{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "revised", got.Title)
}

func TestUpdateMissingBlog(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	title := "x"
	_, err := svc.Update("missing", "u", &UpdateBlogDTO{Title: &title})
	assert.ErrorIs(t, err, errBlogNotFound)
}

func TestDeleteAdminOverride(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	admin := seedUser(t, db, "admin", models.RoleAdmin)
	b := seedBlog(t, svc, author.ID, models.BlogPublished)

	assert.NoError(t, svc.Delete(b.ID, admin.ID, models.RoleAdmin))
}

func TestToggleLike(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, svc, author.ID, models.BlogPublished)

	likes, liked, err := svc.ToggleLike(b.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, likes)
	assert.True(t, svc.HasLiked(b.ID, reader.ID))

	// second toggle restores the original state
	likes, liked, err = svc.ToggleLike(b.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.EqualValues(t, 0, likes)
	assert.False(t, svc.HasLiked(b.ID, reader.ID))

	var stored models.BlogModel
	require.NoError(t, db.First(&stored, "id = ?", b.ID).Error)
	assert.Equal(t, 0, stored.LikeCount)
}

func TestToggleLikeRepairsDriftedCounter(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, svc, author.ID, models.BlogPublished)

	// a counter that drifted away from the join rows
	require.NoError(t, db.Model(&models.BlogModel{}).
		Where("id = ?", b.ID).
		Update("like_count", 42).Error)

	likes, liked, err := svc.ToggleLike(b.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.EqualValues(t, 1, likes)

	var stored models.BlogModel
	require.NoError(t, db.First(&stored, "id = ?", b.ID).Error)
	assert.Equal(t, 1, stored.LikeCount)
}

func TestToggleLikeMissingBlog(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	_, _, err := svc.ToggleLike("missing", "u")
	assert.ErrorIs(t, err, errBlogNotFound)
}

func TestToggleLikeDistinctUsers(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	b := seedBlog(t, svc, author.ID, models.BlogPublished)

	for i, u := range []*models.UserModel{
		seedUser(t, db, "u1", models.RoleUser),
		seedUser(t, db, "u2", models.RoleUser),
		seedUser(t, db, "u3", models.RoleUser),
	} {
		likes, liked, err := svc.ToggleLike(b.ID, u.ID)
		require.NoError(t, err)
		assert.True(t, liked)
		assert.EqualValues(t, i+1, likes)
	}
}

func TestDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, svc, author.ID, models.BlogPublished)

	_, _, err := svc.ToggleLike(b.ID, reader.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.CommentModel{
		BlogID: b.ID, Author: "reader", Mail: "r@example.com",
		UserID: reader.ID, Text: "hi",
	}).Error)

	require.NoError(t, svc.Delete(b.ID, author.ID, models.RoleAuthor))

	var likeCount, commentCount int64
	db.Model(&models.BlogLikeModel{}).Where("blog_id = ?", b.ID).Count(&likeCount)
	db.Model(&models.CommentModel{}).Where("blog_id = ?", b.ID).Count(&commentCount)
	assert.EqualValues(t, 0, likeCount)
	assert.EqualValues(t, 0, commentCount)

	got, err := svc.GetByID(b.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	other := seedUser(t, db, "other", models.RoleAuthor)
	b := seedBlog(t, svc, author.ID, models.BlogPublished)

	assert.ErrorIs(t, svc.Delete(b.ID, other.ID, models.RoleAuthor), errNotOwner)
	assert.NoError(t, svc.Delete(b.ID, author.ID, models.RoleAuthor))
}

func TestListFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)

	published := models.BlogPublished
	_, err := svc.Create(author.ID, &CreateBlogDTO{Title: "a", Text: "x", Category: "go", Status: published})
	require.NoError(t, err)
	_, err = svc.Create(author.ID, &CreateBlogDTO{Title: "b", Text: "x", Category: "web", Status: published})
	require.NoError(t, err)
	_, err = svc.Create(author.ID, &CreateBlogDTO{Title: "c", Text: "x", Category: "go"})
	require.NoError(t, err)

	q := pagination.Query{Page: 1, Size: 10}

	blogs, pag, err := svc.List(q, ListOptions{Status: &published})
	require.NoError(t, err)
	assert.Len(t, blogs, 2)
	assert.EqualValues(t, 2, pag.Total)

	blogs, _, err = svc.List(q, ListOptions{Status: &published, Category: "go"})
	require.NoError(t, err)
	require.Len(t, blogs, 1)
	assert.Equal(t, "a", blogs[0].Title)
}

func TestListByTag(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)

	published := models.BlogPublished
	_, err := svc.Create(author.ID, &CreateBlogDTO{
		Title: "tagged", Text: "x",
		Tags: models.StringSlice{"gorm", "gin"}, Status: published,
	})
	require.NoError(t, err)
	_, err = svc.Create(author.ID, &CreateBlogDTO{Title: "plain", Text: "x", Status: published})
	require.NoError(t, err)

	blogs, _, err := svc.List(pagination.Query{Page: 1, Size: 10}, ListOptions{Status: &published, Tag: "gin"})
	require.NoError(t, err)
	require.Len(t, blogs, 1)
	assert.Equal(t, "tagged", blogs[0].Title)
}
