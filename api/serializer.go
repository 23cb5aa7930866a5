package api

import (
	"encoding/json"

	"github.com/parleyhq/parley/internal/message"
	"github.com/parleyhq/parley/pkg/models"
)

// MessagePageResponse is the listing envelope
type MessagePageResponse struct {
	Limit   int               `json:"limit"`
	HasMore bool              `json:"has_more"`
	Data    []MessageResponse `json:"data"`
}

// MessageResponse is the public projection of a message
type MessageResponse struct {
	ID                 string                   `json:"id"`
	ConversationID     string                   `json:"conversation_id"`
	ParentMessageID    *string                  `json:"parent_message_id"`
	Inputs             map[string]interface{}   `json:"inputs"`
	Query              string                   `json:"query"`
	Answer             string                   `json:"answer"`
	MessageFiles       []MessageFileResponse    `json:"message_files"`
	Feedback           *FeedbackResponse        `json:"feedback"`
	RetrieverResources []map[string]interface{} `json:"retriever_resources"`
	CreatedAt          int64                    `json:"created_at"`
	AgentThoughts      []AgentThoughtResponse   `json:"agent_thoughts"`
	Status             string                   `json:"status"`
	Error              string                   `json:"error"`
}

// MessageFileResponse is the public projection of a message file
type MessageFileResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	BelongsTo string `json:"belongs_to"`
}

// FeedbackResponse is the public projection of a feedback
type FeedbackResponse struct {
	Rating  string `json:"rating"`
	Content string `json:"content,omitempty"`
}

// AgentThoughtResponse is the public projection of an agent reasoning step
type AgentThoughtResponse struct {
	ID          string `json:"id"`
	MessageID   string `json:"message_id"`
	Position    int    `json:"position"`
	Thought     string `json:"thought"`
	Tool        string `json:"tool"`
	ToolInput   string `json:"tool_input"`
	Observation string `json:"observation"`
	CreatedAt   int64  `json:"created_at"`
}

// marshalMessagePage projects a service page into the response envelope
func (s *Server) marshalMessagePage(page *message.Page) MessagePageResponse {
	data := make([]MessageResponse, len(page.Data))
	for i := range page.Data {
		data[i] = s.marshalMessage(&page.Data[i], page.Feedbacks[page.Data[i].ID])
	}
	return MessagePageResponse{
		Limit:   page.Limit,
		HasMore: page.HasMore,
		Data:    data,
	}
}

func (s *Server) marshalMessage(msg *models.Message, feedback *models.MessageFeedback) MessageResponse {
	resp := MessageResponse{
		ID:                 msg.ID.String(),
		ConversationID:     msg.ConversationID.String(),
		Inputs:             s.sanitizedInputs(msg.Inputs),
		Query:              s.sanitizer.Sanitize(msg.Query),
		Answer:             s.signer.ReSignText(msg.Answer),
		MessageFiles:       s.marshalFiles(msg.Files),
		RetrieverResources: retrieverResources(msg.Metadata),
		CreatedAt:          msg.CreatedAt.Unix(),
		AgentThoughts:      marshalAgentThoughts(msg.AgentThoughts),
		Status:             msg.Status,
		Error:              msg.Error,
	}
	if msg.ParentMessageID != nil {
		id := msg.ParentMessageID.String()
		resp.ParentMessageID = &id
	}
	if feedback != nil {
		resp.Feedback = &FeedbackResponse{
			Rating:  feedback.Rating,
			Content: feedback.Content,
		}
	}
	return resp
}

func (s *Server) marshalFiles(msgFiles []models.MessageFile) []MessageFileResponse {
	result := make([]MessageFileResponse, len(msgFiles))
	for i, f := range msgFiles {
		result[i] = MessageFileResponse{
			ID:        f.ID.String(),
			Type:      f.Type,
			URL:       s.signer.ReSignURL(f.URL),
			BelongsTo: f.BelongsTo,
		}
	}
	return result
}

func marshalAgentThoughts(thoughts []models.MessageAgentThought) []AgentThoughtResponse {
	result := make([]AgentThoughtResponse, len(thoughts))
	for i, t := range thoughts {
		result[i] = AgentThoughtResponse{
			ID:          t.ID.String(),
			MessageID:   t.MessageID.String(),
			Position:    t.Position,
			Thought:     t.Thought,
			Tool:        t.Tool,
			ToolInput:   t.ToolInput,
			Observation: t.Observation,
			CreatedAt:   t.CreatedAt.Unix(),
		}
	}
	return result
}

// sanitizedInputs parses the stored inputs JSON and strips any markup
// from its string values, including nested objects and lists.
func (s *Server) sanitizedInputs(raw string) map[string]interface{} {
	inputs := map[string]interface{}{}
	if raw == "" {
		return inputs
	}
	if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
		return map[string]interface{}{}
	}
	for k, v := range inputs {
		inputs[k] = s.sanitizeValue(v)
	}
	return inputs
}

func (s *Server) sanitizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return s.sanitizer.Sanitize(v)
	case map[string]interface{}:
		for k, inner := range v {
			v[k] = s.sanitizeValue(inner)
		}
		return v
	case []interface{}:
		for i, inner := range v {
			v[i] = s.sanitizeValue(inner)
		}
		return v
	default:
		return v
	}
}

// retrieverResources extracts the retriever_resources list from the
// message metadata blob. Absent or malformed metadata yields an empty
// list, never an error.
func retrieverResources(metadata string) []map[string]interface{} {
	if metadata == "" {
		return []map[string]interface{}{}
	}
	var parsed struct {
		RetrieverResources []map[string]interface{} `json:"retriever_resources"`
	}
	if err := json.Unmarshal([]byte(metadata), &parsed); err != nil || parsed.RetrieverResources == nil {
		return []map[string]interface{}{}
	}
	return parsed.RetrieverResources
}
