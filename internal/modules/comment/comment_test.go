package comment

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hamxasajid/blogsite-core/internal/middleware"
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

func seedBlog(t *testing.T, db *gorm.DB, userID string, allowComment bool) *models.BlogModel {
	t.Helper()
	b := models.BlogModel{
		Title:        "a blog",
		Text:         "content",
		AllowComment: allowComment,
		Status:       models.BlogPublished,
		UserID:       userID,
	}
	require.NoError(t, db.Create(&b).Error)
	return &b
}

func TestCreate(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	cm, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "  nice post  "})
	require.NoError(t, err)
	assert.Equal(t, "nice post", cm.Text)
	assert.Equal(t, "reader", cm.Author)
	assert.Equal(t, "reader@example.com", cm.Mail)
	assert.Nil(t, cm.ParentID)
	assert.Equal(t, 0, cm.LikeCount)
}

func TestCreateMissingBlog(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	reader := seedUser(t, db, "reader", models.RoleUser)

	_, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: "missing", Text: "hi"})
	assert.ErrorIs(t, err, errBlogNotFound)
}

func TestCreateCommentsDisabled(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, false)

	_, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "hi"})
	assert.ErrorIs(t, err, errCommentsDisabled)
}

func TestCreateTooLong(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	ok := strings.Repeat("x", maxCommentLength)
	_, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: ok})
	assert.NoError(t, err)

	_, err = svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: ok + "x"})
	assert.ErrorIs(t, err, errCommentTooLong)
}

func TestCreateLengthCountsRunes(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	// 500 multi-byte characters must still be accepted
	text := strings.Repeat("é", maxCommentLength)
	_, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: text})
	assert.NoError(t, err)
}

func TestCreateWhitespaceOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	_, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "   \n\t "})
	assert.ErrorIs(t, err, errCommentTextEmpty)
}

func TestCreateWhitespaceOnlyStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	r := gin.New()
	NewHandler(NewService(db)).RegisterRoutes(r.Group("/api/v1"), func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, reader.ID)
		c.Set(middleware.ContextKeyRole, reader.Role)
		c.Next()
	})

	body := strings.NewReader(`{"blog_id":"` + b.ID + `","text":"   "}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/comments", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// a blank comment is the client's mistake, not a server failure
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "comment text is required")
}

func TestEditWhitespaceOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	cm, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "fine"})
	require.NoError(t, err)

	_, err = svc.Edit(cm.ID, reader.ID, " \t ")
	assert.ErrorIs(t, err, errCommentTextEmpty)
}

func TestReply(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	parent, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "top"})
	require.NoError(t, err)

	reply, err := svc.Reply(parent.ID, author.ID, &ReplyCommentDTO{Text: "thanks"})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, parent.ID, *reply.ParentID)
	assert.Equal(t, b.ID, reply.BlogID)
}

func TestReplyToReplyRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	parent, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "top"})
	require.NoError(t, err)
	reply, err := svc.Reply(parent.ID, author.ID, &ReplyCommentDTO{Text: "thanks"})
	require.NoError(t, err)

	_, err = svc.Reply(reply.ID, reader.ID, &ReplyCommentDTO{Text: "too deep"})
	assert.ErrorIs(t, err, errReplyTooDeep)
}

func TestReplyMissingParent(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	reader := seedUser(t, db, "reader", models.RoleUser)

	_, err := svc.Reply("missing", reader.ID, &ReplyCommentDTO{Text: "hi"})
	assert.ErrorIs(t, err, errCommentNotFound)
}

func TestToggleLikeDoubleFlipRestores(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	cm, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "hi"})
	require.NoError(t, err)

	liked, err := svc.ToggleLike(cm.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.LikeCount)
	assert.True(t, liked.LikedBy.Contains(author.ID))

	unliked, err := svc.ToggleLike(cm.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, unliked.LikeCount)
	assert.False(t, unliked.LikedBy.Contains(author.ID))

	var stored models.CommentModel
	require.NoError(t, db.First(&stored, "id = ?", cm.ID).Error)
	assert.Equal(t, 0, stored.LikeCount)
	assert.Empty(t, stored.LikedBy)
}

func TestToggleLikeCountIsSetSize(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	third := seedUser(t, db, "third", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	cm, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "hi"})
	require.NoError(t, err)

	_, err = svc.ToggleLike(cm.ID, author.ID)
	require.NoError(t, err)
	got, err := svc.ToggleLike(cm.ID, third.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.LikeCount)
	assert.Len(t, got.LikedBy, 2)
}

func TestToggleLikeMissingComment(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	_, err := svc.ToggleLike("missing", "u")
	assert.ErrorIs(t, err, errCommentNotFound)
}

func TestEdit(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	cm, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "typo"})
	require.NoError(t, err)
	assert.Nil(t, cm.EditedAt)

	edited, err := svc.Edit(cm.ID, reader.ID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Text)
	require.NotNil(t, edited.EditedAt)
	assert.WithinDuration(t, time.Now(), *edited.EditedAt, time.Minute)
}

func TestEditIdentity(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	admin := seedUser(t, db, "admin", models.RoleAdmin)
	b := seedBlog(t, db, author.ID, true)

	cm, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "mine"})
	require.NoError(t, err)

	_, err = svc.Edit(cm.ID, author.ID, "not yours")
	assert.ErrorIs(t, err, errNotCommentAuthor)

	// not even an admin can rewrite someone else's comment
	_, err = svc.Edit(cm.ID, admin.ID, "moderated")
	assert.ErrorIs(t, err, errNotCommentAuthor)

	var stored models.CommentModel
	require.NoError(t, db.First(&stored, "id = ?", cm.ID).Error)
	assert.Equal(t, "mine", stored.Text)
}

func TestDeleteCascadesReplies(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	parent, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "top"})
	require.NoError(t, err)
	reply, err := svc.Reply(parent.ID, author.ID, &ReplyCommentDTO{Text: "sub"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(parent.ID, reader.ID, models.RoleUser))

	got, err := svc.GetByID(parent.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = svc.GetByID(reply.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteIdentity(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	admin := seedUser(t, db, "admin", models.RoleAdmin)
	b := seedBlog(t, db, author.ID, true)

	cm, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "hi"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(cm.ID, author.ID, models.RoleAuthor), errNotCommentAuthor)
	assert.NoError(t, svc.Delete(cm.ID, admin.ID, models.RoleAdmin))
	assert.ErrorIs(t, svc.Delete(cm.ID, admin.ID, models.RoleAdmin), errCommentNotFound)
}

func TestListByBlogOrdering(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	first, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "first"})
	require.NoError(t, err)
	second, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "second"})
	require.NoError(t, err)

	// force distinct timestamps so the ordering is deterministic
	require.NoError(t, db.Model(&models.CommentModel{}).
		Where("id = ?", second.ID).
		Update("created_at", time.Now().Add(time.Hour)).Error)

	earlyReply, err := svc.Reply(first.ID, author.ID, &ReplyCommentDTO{Text: "r1"})
	require.NoError(t, err)
	lateReply, err := svc.Reply(first.ID, reader.ID, &ReplyCommentDTO{Text: "r2"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.CommentModel{}).
		Where("id = ?", lateReply.ID).
		Update("created_at", time.Now().Add(time.Hour)).Error)

	comments, pag, err := svc.ListByBlog(b.ID, pagination.Query{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, pag.Total)
	require.Len(t, comments, 2)

	// newest first everywhere, for top-level comments and their replies
	assert.Equal(t, second.ID, comments[0].ID)
	assert.Equal(t, first.ID, comments[1].ID)
	require.Len(t, comments[1].Replies, 2)
	assert.Equal(t, lateReply.ID, comments[1].Replies[0].ID)
	assert.Equal(t, earlyReply.ID, comments[1].Replies[1].ID)
}

func TestListByBlogExcludesReplyRows(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	author := seedUser(t, db, "author", models.RoleAuthor)
	reader := seedUser(t, db, "reader", models.RoleUser)
	b := seedBlog(t, db, author.ID, true)

	parent, err := svc.Create(reader.ID, &CreateCommentDTO{BlogID: b.ID, Text: "top"})
	require.NoError(t, err)
	_, err = svc.Reply(parent.ID, author.ID, &ReplyCommentDTO{Text: "sub"})
	require.NoError(t, err)

	comments, pag, err := svc.ListByBlog(b.ID, pagination.Query{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, pag.Total)
	require.Len(t, comments, 1)
	assert.Len(t, comments[0].Replies, 1)
}
