package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"neurax/helpers"
	"neurax/models"
)

type createPostRequest struct {
	Content          string `json:"content"`
	ImageURL         string `json:"imageUrl"`
	TwitterAccountID int64  `json:"twitterAccountId"`
	ScheduledFor     string `json:"scheduledFor"`
	AIGenerated      bool   `json:"aiGenerated"`
}

func (api *API) SetupPostRoutes(se *core.ServeEvent) {
	se.Router.GET("/api/posts", api.listPosts)
	se.Router.GET("/api/posts/scheduled", api.listScheduledPosts)
	se.Router.POST("/api/posts", api.createPost)
	se.Router.DELETE("/api/posts/{id}", api.deletePost)
}

func (api *API) listPosts(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	posts, err := api.Stores.Posts.ListByUser(user.ID)
	if err != nil {
		api.App.Logger().Error("post list failed", "userId", user.ID, "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Could not load posts")
		return nil
	}
	helpers.Success(e, "", posts)
	return nil
}

func (api *API) listScheduledPosts(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	posts, err := api.Stores.Posts.ListByUser(user.ID)
	if err != nil {
		api.App.Logger().Error("post list failed", "userId", user.ID, "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Could not load posts")
		return nil
	}

	scheduled := []models.Post{}
	for _, post := range posts {
		if post.Status == models.PostStatusScheduled {
			scheduled = append(scheduled, post)
		}
	}
	helpers.Success(e, "", scheduled)
	return nil
}

// createPost saves the post and, when it is not scheduled for the future,
// publishes it right away.
func (api *API) createPost(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	var req createPostRequest
	if err := e.BindBody(&req); err != nil {
		helpers.Error(e, http.StatusBadRequest, "Invalid request body")
		return nil
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		helpers.Error(e, http.StatusBadRequest, "Content is required")
		return nil
	}
	if len(req.Content) > 280 {
		helpers.Error(e, http.StatusBadRequest, "Content exceeds 280 characters")
		return nil
	}

	publishNow := true
	if req.ScheduledFor != "" {
		at, err := time.Parse(time.RFC3339, req.ScheduledFor)
		if err != nil {
			helpers.Error(e, http.StatusBadRequest, "scheduledFor must be RFC3339")
			return nil
		}
		publishNow = !at.After(time.Now())
	}

	post, err := api.Stores.Posts.Create(&models.Post{
		UserID:           user.ID,
		TwitterAccountID: req.TwitterAccountID,
		Content:          req.Content,
		ImageURL:         req.ImageURL,
		ScheduledFor:     req.ScheduledFor,
		AIGenerated:      req.AIGenerated,
	})
	if err != nil {
		api.App.Logger().Error("post create failed", "userId", user.ID, "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Could not save post")
		return nil
	}

	if publishNow {
		if err := api.Publisher.PublishPost(e.Request.Context(), post); err != nil {
			api.App.Logger().Error("immediate publish failed", "postId", post.ID, "error", err)
			failed, getErr := api.Stores.Posts.Get(user.ID, post.ID)
			if getErr == nil {
				post = failed
			}
			helpers.Error(e, helpers.StatusFor(err), "Post saved but publishing failed")
			return nil
		}
		post, _ = api.Stores.Posts.Get(user.ID, post.ID)
	} else {
		api.Hub.SendContentUpdate(user.ID, post)
	}

	helpers.Success(e, "Post created", post)
	return nil
}

func (api *API) deletePost(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}
	id, ok := pathID(e)
	if !ok {
		return nil
	}

	if err := api.Stores.Posts.Delete(user.ID, id); err != nil {
		helpers.Error(e, helpers.StatusFor(err), "Post not found")
		return nil
	}
	helpers.Success(e, "Post deleted", nil)
	return nil
}
