package tweet

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"twitter_api/internal/store"
)

const (
	msgTweetNotFound = "This tweet does not exist"
	msgDuplicateID   = "A tweet with this id already exists"
)

type TweetController struct {
	service TweetServiceInterface
}

func NewTweetController(service TweetServiceInterface) *TweetController {
	return &TweetController{
		service: service,
	}
}

// SetupRoutes registers the tweet endpoints
func (tc *TweetController) SetupRoutes(r gin.IRouter) {
	tweets := r.Group("/tweets")
	{
		tweets.GET("", tc.ListTweets)
		tweets.POST("/post", tc.PostTweet)
		tweets.GET("/:id", tc.GetTweet)
		tweets.PUT("/:id/update", tc.UpdateTweet)
		tweets.DELETE("/:id/delete", tc.DeleteTweet)
	}
}

type PostRequest struct {
	TweetID string `json:"tweet_id" form:"tweet_id" binding:"omitempty,uuid"`
	Content string `json:"content" form:"content" binding:"required,min=1,max=256"`
	UserBy  string `json:"user_by" form:"user_by" binding:"required,uuid"`
}

type UpdateRequest struct {
	Content string `json:"content" form:"content" binding:"required,min=1,max=256"`
}

// PostTweet handles tweet creation
func (tc *TweetController) PostTweet(c *gin.Context) {
	var req PostRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	in := PostInput{
		Content: req.Content,
		UserBy:  uuid.MustParse(req.UserBy),
	}
	if req.TweetID != "" {
		id := uuid.MustParse(req.TweetID)
		in.TweetID = &id
	}

	tweet, err := tc.service.PostTweet(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tweet)
}

func (tc *TweetController) ListTweets(c *gin.Context) {
	tweets, err := tc.service.ListTweets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tweets)
}

func (tc *TweetController) GetTweet(c *gin.Context) {
	tweet, err := tc.service.GetTweet(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tweet)
}

func (tc *TweetController) UpdateTweet(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	tweet, err := tc.service.UpdateTweet(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tweet)
}

func (tc *TweetController) DeleteTweet(c *gin.Context) {
	tweet, err := tc.service.DeleteTweet(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tweet)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": msgTweetNotFound})
	case errors.Is(err, store.ErrDuplicateID):
		c.JSON(http.StatusConflict, gin.H{"detail": msgDuplicateID})
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Tweet request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}
