package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"careerprep/internal/domain"
)

// CreateRoadmap asks the backend to generate a roadmap and returns its ID.
func (c *Client) CreateRoadmap(ctx context.Context, req domain.CreateRoadmapRequest) (string, error) {
	if req.TargetJob == "" {
		return "", fmt.Errorf("api.CreateRoadmap: %w: target job is required", domain.ErrInvalidInput)
	}
	var res struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, request{method: http.MethodPost, path: "/roadmap", body: req, auth: true}, &res); err != nil {
		return "", domain.WrapOp("api.CreateRoadmap", err)
	}
	return res.ID, nil
}

// Roadmap fetches a roadmap with its steps.
func (c *Client) Roadmap(ctx context.Context, id string) (*domain.Roadmap, error) {
	var rm domain.Roadmap
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/roadmap/" + url.PathEscape(id), auth: true}, &rm); err != nil {
		return nil, domain.WrapOp("api.Roadmap", err)
	}
	return &rm, nil
}

type roadmapListResponse struct {
	Roadmaps []struct {
		UID       string `json:"uid"`
		Title     string `json:"title"`
		CreatedAt string `json:"created_at"`
		UpdatedAt string `json:"updated_at"`
	} `json:"roadmaps"`
}

// Roadmaps lists the signed-in user's roadmaps.
func (c *Client) Roadmaps(ctx context.Context) ([]domain.RoadmapPreview, error) {
	var res roadmapListResponse
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/roadmap", auth: true}, &res); err != nil {
		return nil, domain.WrapOp("api.Roadmaps", err)
	}
	out := make([]domain.RoadmapPreview, 0, len(res.Roadmaps))
	for _, r := range res.Roadmaps {
		out = append(out, domain.RoadmapPreview{
			ID:        r.UID,
			Title:     r.Title,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return out, nil
}

// StepGuide opens the streamed detail guide for a step.
func (c *Client) StepGuide(ctx context.Context, stepID string) (io.ReadCloser, error) {
	body, err := c.doStream(ctx, request{
		method: http.MethodGet,
		path:   "/roadmap/step/" + url.PathEscape(stepID) + "/guide",
		auth:   true,
	})
	if err != nil {
		return nil, domain.WrapOp("api.StepGuide", err)
	}
	return body, nil
}

// StepResources lists recommended learning resources for a step.
func (c *Client) StepResources(ctx context.Context, stepID string) ([]domain.LearningResource, error) {
	var res struct {
		Resources []domain.LearningResource `json:"resources"`
	}
	path := "/roadmap/step/" + url.PathEscape(stepID) + "/resources"
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: path, auth: true}, &res); err != nil {
		return nil, domain.WrapOp("api.StepResources", err)
	}
	return res.Resources, nil
}

type bookmarksResponse struct {
	Steps []struct {
		RoadmapUID string `json:"roadmap_uid"`
		StepUID    string `json:"step_uid"`
		Title      string `json:"title"`
	} `json:"steps"`
}

// Bookmarks lists bookmarked steps across roadmaps.
func (c *Client) Bookmarks(ctx context.Context) ([]domain.StepPreview, error) {
	var res bookmarksResponse
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/roadmap/bookmarks", auth: true}, &res); err != nil {
		return nil, domain.WrapOp("api.Bookmarks", err)
	}
	out := make([]domain.StepPreview, 0, len(res.Steps))
	for _, s := range res.Steps {
		out = append(out, domain.StepPreview{RoadmapID: s.RoadmapUID, StepID: s.StepUID, Title: s.Title})
	}
	return out, nil
}

// ToggleBookmark flips the bookmark state of a step.
func (c *Client) ToggleBookmark(ctx context.Context, stepID string) error {
	err := c.doJSON(ctx, request{
		method: http.MethodPost,
		path:   "/roadmap/step/" + url.PathEscape(stepID) + "/bookmark",
		auth:   true,
	}, nil)
	return domain.WrapOp("api.ToggleBookmark", err)
}

// Assistant sends a chat message about a roadmap and opens the streamed reply.
func (c *Client) Assistant(ctx context.Context, roadmapID, input string) (io.ReadCloser, error) {
	body, err := c.doStream(ctx, request{
		method: http.MethodPost,
		path:   "/roadmap/" + url.PathEscape(roadmapID) + "/assistant",
		body:   map[string]string{"user_input": input},
		auth:   true,
	})
	if err != nil {
		return nil, domain.WrapOp("api.Assistant", err)
	}
	return body, nil
}
