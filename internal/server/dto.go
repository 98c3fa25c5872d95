package server

import "bountyline/internal/domain"

// Request payloads

type RegisterSponsorRequest struct {
	WalletAddress string `json:"wallet_address" minLength:"1"`
	Name          string `json:"name,omitempty"`
	Bio           string `json:"bio,omitempty"`
	Website       string `json:"website,omitempty"`
	Password      string `json:"password" minLength:"1"`
}

type SponsorLoginRequest struct {
	WalletAddress string `json:"wallet_address" minLength:"1"`
	Password      string `json:"password" minLength:"1"`
}

type UpdateSponsorRequest struct {
	Name    *string `json:"name,omitempty"`
	Bio     *string `json:"bio,omitempty"`
	Website *string `json:"website,omitempty"`
}

type RegisterContributorRequest struct {
	Email         string `json:"email" format:"email"`
	Name          string `json:"name,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
	Bio           string `json:"bio,omitempty"`
	Password      string `json:"password" minLength:"1"`
}

type ContributorLoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password" minLength:"1"`
}

type SkillRefRequest struct {
	SkillID string `json:"skill_id" minLength:"1"`
	Level   string `json:"level,omitempty"`
}

type UpdateContributorRequest struct {
	Name          *string           `json:"name,omitempty"`
	WalletAddress *string           `json:"wallet_address,omitempty"`
	Bio           *string           `json:"bio,omitempty"`
	Skills        []SkillRefRequest `json:"skills,omitempty"`
}

type CreateTaskRequest struct {
	SponsorID   string `json:"sponsor_id" minLength:"1"`
	Title       string `json:"title" minLength:"1"`
	Description string `json:"description,omitempty"`
	Reward      string `json:"reward,omitempty"`
}

type SetTaskStatusRequest struct {
	Status string `json:"status" enum:"completed,cancelled"`
}

type CreateSubmissionRequest struct {
	WalletAddress string `json:"wallet_address" minLength:"1"`
	Content       string `json:"content,omitempty"`
}

type ReviewSubmissionRequest struct {
	Status   string  `json:"status" enum:"accepted,rejected"`
	Rating   *int    `json:"rating,omitempty" minimum:"0" maximum:"5"`
	Feedback *string `json:"feedback,omitempty"`
}

type CreateSkillRequest struct {
	Name string `json:"name" minLength:"1"`
}

// Response payloads

type SponsorAuthResponse struct {
	Token   string         `json:"token"`
	Sponsor domain.Sponsor `json:"sponsor"`
}

type ContributorAuthResponse struct {
	Token       string             `json:"token"`
	Contributor domain.Contributor `json:"contributor"`
}
