package domain

// Sponsor posts tasks and is addressed by wallet address.
type Sponsor struct {
	WalletAddress string   `json:"wallet_address"`
	Name          string   `json:"name,omitempty"`
	Bio           string   `json:"bio,omitempty"`
	Website       string   `json:"website,omitempty"`
	PasswordHash  string   `json:"-"`
	TaskIDs       []string `json:"task_ids"`
	CreatedAt     string   `json:"created_at" format:"date-time"`
	UpdatedAt     string   `json:"updated_at" format:"date-time"`
}

// Contributor submits work against open tasks and is addressed by email.
type Contributor struct {
	Email         string             `json:"email"`
	Name          string             `json:"name,omitempty"`
	WalletAddress string             `json:"wallet_address,omitempty"`
	Bio           string             `json:"bio,omitempty"`
	Reputation    int                `json:"reputation"`
	PasswordHash  string             `json:"-"`
	Skills        []ContributorSkill `json:"skills,omitempty"`
	// TaskIDs is reserved for submission history. No code path writes it;
	// it stays on the wire for compatibility.
	TaskIDs   []string `json:"task_ids,omitempty"`
	CreatedAt string   `json:"created_at" format:"date-time"`
	UpdatedAt string   `json:"updated_at" format:"date-time"`
}

// ContributorSkill stores a skill id reference. SkillName is resolved from
// the skill catalog at read time and never persisted.
type ContributorSkill struct {
	SkillID   string `json:"skill_id"`
	SkillName string `json:"skill_name,omitempty"`
	Level     string `json:"level,omitempty"`
}

type Skill struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Task struct {
	ID          string   `json:"id"`
	SponsorID   string   `json:"sponsor_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Reward      string   `json:"reward,omitempty"`
	Status      string   `json:"status" enum:"open,completed,cancelled"`
	Submissions []string `json:"submissions"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
}

type Submission struct {
	ID            string  `json:"id"`
	TaskID        string  `json:"task_id"`
	WalletAddress string  `json:"wallet_address"`
	Content       string  `json:"content,omitempty"`
	Status        string  `json:"status" enum:"pending,accepted,rejected"`
	IsAccepted    bool    `json:"is_accepted"`
	Rating        *int    `json:"rating,omitempty" minimum:"0" maximum:"5"`
	Feedback      *string `json:"feedback,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

// Task status values. Once a task leaves "open" it never returns.
const (
	TaskOpen      = "open"
	TaskCompleted = "completed"
	TaskCancelled = "cancelled"
)

// Submission status values.
const (
	SubmissionPending  = "pending"
	SubmissionAccepted = "accepted"
	SubmissionRejected = "rejected"
)

// Roles form a flat space: admin does not imply sponsor or contributor.
const (
	RoleSponsor     = "sponsor"
	RoleContributor = "contributor"
	RoleAdmin       = "admin"
	RoleUser        = "user"
)
