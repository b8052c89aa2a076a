package controllers

import (
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/core"

	"neurax/helpers"
	"neurax/models"
)

func (api *API) SetupAIRoutes(se *core.ServeEvent) {
	se.Router.POST("/api/ai/generate-text", api.generateText)
	se.Router.POST("/api/ai/generate-image", api.generateImage)
	se.Router.POST("/api/ai/save-idea", api.saveIdea)
	se.Router.GET("/api/ai/ideas", api.listIdeas)
}

func (api *API) generateText(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	var req struct {
		Topic string `json:"topic"`
		Tone  string `json:"tone"`
		Count int    `json:"count"`
		Kind  string `json:"contentType"`
	}
	if err := e.BindBody(&req); err != nil {
		helpers.Error(e, http.StatusBadRequest, "Invalid request body")
		return nil
	}

	if req.Kind == "ideas" {
		ideas, err := api.AI.GenerateIdeas(e.Request.Context(), req.Topic, req.Count)
		if err != nil {
			helpers.Error(e, helpers.StatusFor(err), "Idea generation failed")
			return nil
		}
		helpers.Success(e, "", map[string]interface{}{"ideas": ideas})
		return nil
	}

	tweet, err := api.AI.GenerateTweet(e.Request.Context(), req.Topic, req.Tone)
	if err != nil {
		helpers.Error(e, helpers.StatusFor(err), "Text generation failed")
		return nil
	}

	api.App.Logger().Info("text generated", "userId", user.ID, "topic", req.Topic)
	helpers.Success(e, "", map[string]string{"content": tweet})
	return nil
}

func (api *API) generateImage(e *core.RequestEvent) error {
	_, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := e.BindBody(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		helpers.Error(e, http.StatusBadRequest, "Prompt is required")
		return nil
	}

	uri, err := api.AI.GenerateImage(e.Request.Context(), req.Prompt)
	if err != nil {
		api.App.Logger().Error("image generation failed", "error", err)
		helpers.Error(e, helpers.StatusFor(err), "Image generation failed")
		return nil
	}
	helpers.Success(e, "", map[string]string{"imageUrl": uri})
	return nil
}

func (api *API) saveIdea(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	var req struct {
		Content string `json:"content"`
		Type    string `json:"type"`
	}
	if err := e.BindBody(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		helpers.Error(e, http.StatusBadRequest, "Content is required")
		return nil
	}

	idea, err := api.Stores.Ideas.Create(&models.ContentIdea{
		UserID:  user.ID,
		Content: strings.TrimSpace(req.Content),
		Type:    req.Type,
	})
	if err != nil {
		api.App.Logger().Error("idea save failed", "userId", user.ID, "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Could not save idea")
		return nil
	}
	helpers.Success(e, "Idea saved", idea)
	return nil
}

func (api *API) listIdeas(e *core.RequestEvent) error {
	user, ok := api.requireUser(e)
	if !ok {
		return nil
	}

	ideas, err := api.Stores.Ideas.ListByUser(user.ID)
	if err != nil {
		api.App.Logger().Error("idea list failed", "userId", user.ID, "error", err)
		helpers.Error(e, http.StatusInternalServerError, "Could not load ideas")
		return nil
	}

	unused := []models.ContentIdea{}
	for _, idea := range ideas {
		if !idea.Used {
			unused = append(unused, idea)
		}
	}
	helpers.Success(e, "", unused)
	return nil
}
