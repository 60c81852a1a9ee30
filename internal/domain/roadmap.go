package domain

// RoadmapStep is one step of a learning roadmap.
type RoadmapStep struct {
	ID           string   `json:"id"`
	Step         int      `json:"step"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	SubRoadmapID *string  `json:"subRoadMapId"`
	IsBookmarked bool     `json:"isBookmarked,omitempty"`
}

// Roadmap is a full roadmap with its steps.
type Roadmap struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Steps     []RoadmapStep `json:"steps"`
	CreatedAt string        `json:"createdAt"`
	UpdatedAt string        `json:"updatedAt"`
}

// RoadmapPreview is a roadmap list entry.
type RoadmapPreview struct {
	ID        string
	Title     string
	CreatedAt string
	UpdatedAt string
}

// LearningResource is a recommended link for a step.
type LearningResource struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// StepPreview is a bookmarked step.
type StepPreview struct {
	RoadmapID string
	StepID    string
	Title     string
}

// CreateRoadmapRequest asks the backend to generate a roadmap.
type CreateRoadmapRequest struct {
	TargetJob string `json:"target_job"`
	Instruct  string `json:"instruct"`
}
