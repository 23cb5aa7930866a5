package models

import (
	"time"

	"github.com/google/uuid"
)

// App modes
const (
	AppModeChat         = "chat"
	AppModeAgentChat    = "agent-chat"
	AppModeAdvancedChat = "advanced-chat"
	AppModeCompletion   = "completion"
	AppModeWorkflow     = "workflow"
)

// Message statuses
const (
	MessageStatusNormal = "normal"
	MessageStatusError  = "error"
)

// Feedback ratings
const (
	FeedbackRatingLike    = "like"
	FeedbackRatingDislike = "dislike"
)

// Invocation sources
const (
	InvokeFromServiceAPI = "service-api"
	InvokeFromWebApp     = "web-app"
	InvokeFromDebugger   = "debugger"
)

// IsChatMode reports whether an app mode supports conversations
func IsChatMode(mode string) bool {
	switch mode {
	case AppModeChat, AppModeAgentChat, AppModeAdvancedChat:
		return true
	}
	return false
}

// App represents a configured application on the platform
type App struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	TenantID    uuid.UUID `json:"tenant_id" gorm:"type:uuid;index" validate:"required,uuid"`
	Name        string    `json:"name" validate:"required,max=255"`
	Mode        string    `json:"mode" validate:"required,oneof=chat agent-chat advanced-chat completion workflow"`
	Status      string    `json:"status" gorm:"default:normal" validate:"required,oneof=normal disabled"`
	EnableAPI   bool      `json:"enable_api" gorm:"default:true"`
	Description string    `json:"description" validate:"omitempty,max=1000"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	ModelConfig *AppModelConfig `json:"model_config,omitempty" gorm:"foreignKey:AppID"`
}

// AppModelConfig holds the per-app feature configuration
type AppModelConfig struct {
	ID                        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	AppID                     uuid.UUID `json:"app_id" gorm:"type:uuid;uniqueIndex" validate:"required,uuid"`
	Provider                  string    `json:"provider" validate:"omitempty,max=255"`
	Model                     string    `json:"model" validate:"omitempty,max=255"`
	SuggestedQuestionsEnabled bool      `json:"suggested_questions_enabled"`
	SpeechToTextEnabled       bool      `json:"speech_to_text_enabled"`
	TextToSpeechEnabled       bool      `json:"text_to_speech_enabled"`
	TextToSpeechVoice         string    `json:"text_to_speech_voice" validate:"omitempty,max=64"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// APIToken is an app-scoped bearer token for the service API
type APIToken struct {
	ID         uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	AppID      uuid.UUID  `json:"app_id" gorm:"type:uuid;index" validate:"required,uuid"`
	Token      string     `json:"-" gorm:"uniqueIndex" validate:"required,min=20"`
	Type       string     `json:"type" gorm:"default:app" validate:"required,oneof=app"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// EndUser is the resolved caller identity behind an app token
type EndUser struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	AppID      uuid.UUID `json:"app_id" gorm:"type:uuid;index:idx_end_users_app_external" validate:"required,uuid"`
	ExternalID string    `json:"external_id" gorm:"index:idx_end_users_app_external" validate:"required,max=255"`
	Type       string    `json:"type" gorm:"default:service_api" validate:"required,oneof=service_api browser"`
	IsAnon     bool      `json:"is_anonymous"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Conversation groups messages exchanged with one end user
type Conversation struct {
	ID            uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	AppID         uuid.UUID `json:"app_id" gorm:"type:uuid;index" validate:"required,uuid"`
	FromEndUserID uuid.UUID `json:"from_end_user_id" gorm:"type:uuid;index" validate:"required,uuid"`
	FromSource    string    `json:"from_source" validate:"required,oneof=api console"`
	Name          string    `json:"name" validate:"omitempty,max=255"`
	Status        string    `json:"status" gorm:"default:normal" validate:"required,oneof=normal archived"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Message is one question/answer round within a conversation
type Message struct {
	ID              uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	AppID           uuid.UUID  `json:"app_id" gorm:"type:uuid;index" validate:"required,uuid"`
	ConversationID  uuid.UUID  `json:"conversation_id" gorm:"type:uuid;index" validate:"required,uuid"`
	ParentMessageID *uuid.UUID `json:"parent_message_id" gorm:"type:uuid" validate:"omitempty,uuid"`
	Inputs          string     `json:"inputs" gorm:"type:text" validate:"omitempty,json"` // JSON object of prompt variables
	Query           string     `json:"query" gorm:"type:text"`
	Answer          string     `json:"answer" gorm:"type:text"`
	Metadata        string     `json:"metadata" gorm:"type:text" validate:"omitempty,json"` // JSON: retriever_resources, usage, etc.
	Status          string     `json:"status" gorm:"default:normal" validate:"required,oneof=normal error"`
	Error           string     `json:"error" gorm:"type:text"`
	FromSource      string     `json:"from_source" validate:"required,oneof=api console"`
	FromEndUserID   uuid.UUID  `json:"from_end_user_id" gorm:"type:uuid;index" validate:"required,uuid"`
	CreatedAt       time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Files         []MessageFile         `json:"files,omitempty" gorm:"foreignKey:MessageID"`
	AgentThoughts []MessageAgentThought `json:"agent_thoughts,omitempty" gorm:"foreignKey:MessageID"`
}

// MessageFile is a file attached to a message (input or generated)
type MessageFile struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	MessageID      uuid.UUID `json:"message_id" gorm:"type:uuid;index" validate:"required,uuid"`
	Type           string    `json:"type" validate:"required,oneof=image audio video document"`
	TransferMethod string    `json:"transfer_method" validate:"required,oneof=remote_url local_file"`
	URL            string    `json:"url" validate:"omitempty,max=2048"`
	UploadFileID   *uuid.UUID `json:"upload_file_id" gorm:"type:uuid" validate:"omitempty,uuid"`
	BelongsTo      string    `json:"belongs_to" validate:"required,oneof=user assistant"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageFeedback is an end user's rating of one message
type MessageFeedback struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	AppID          uuid.UUID `json:"app_id" gorm:"type:uuid;index" validate:"required,uuid"`
	ConversationID uuid.UUID `json:"conversation_id" gorm:"type:uuid;index" validate:"required,uuid"`
	MessageID      uuid.UUID `json:"message_id" gorm:"type:uuid;index" validate:"required,uuid"`
	Rating         string    `json:"rating" validate:"required,oneof=like dislike"`
	Content        string    `json:"content" gorm:"type:text" validate:"omitempty,max=4000"`
	FromSource     string    `json:"from_source" validate:"required,oneof=api console"`
	FromEndUserID  uuid.UUID `json:"from_end_user_id" gorm:"type:uuid;index" validate:"required,uuid"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MessageAgentThought is one reasoning step recorded while answering
type MessageAgentThought struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	MessageID   uuid.UUID `json:"message_id" gorm:"type:uuid;index" validate:"required,uuid"`
	Position    int       `json:"position" validate:"min=0"`
	Thought     string    `json:"thought" gorm:"type:text"`
	Tool        string    `json:"tool" validate:"omitempty,max=255"`
	ToolInput   string    `json:"tool_input" gorm:"type:text"`
	Observation string    `json:"observation" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}
