package upstream

import (
	"context"
	"net/http"
	"net/url"
)

// ChatReply is one assistant turn from the chat engine. Done is set when
// the engine has finished its triage flow for the session.
type ChatReply struct {
	Message string `json:"message"`
	Done    bool   `json:"done"`
}

// ChatSummary is the engine's wrap-up of a completed conversation.
type ChatSummary struct {
	Symptoms     []string `json:"symptoms"`
	Diagnosis    string   `json:"diagnosis"`
	Alternatives []string `json:"alternatives"`
}

// StartChat opens a new engine-side conversation and returns the greeting.
func (c *Client) StartChat(ctx context.Context, sessionID string) (*ChatReply, error) {
	req := struct {
		SessionID string `json:"session_id"`
	}{SessionID: sessionID}

	var reply ChatReply
	if err := c.do(ctx, http.MethodPost, "/chatbot/start_chat", "", req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// SendMessage forwards one user turn and returns the assistant's reply.
func (c *Client) SendMessage(ctx context.Context, sessionID, message string) (*ChatReply, error) {
	req := struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}{SessionID: sessionID, Message: message}

	var reply ChatReply
	if err := c.do(ctx, http.MethodPost, "/chatbot/process_message", "", req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Summary fetches the engine's summary for a session.
func (c *Client) Summary(ctx context.Context, sessionID string) (*ChatSummary, error) {
	var summary ChatSummary
	path := "/chatbot/get_summary?session_id=" + url.QueryEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
