package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"skillswap-service/internal/models"
)

// APIError is a non-2xx answer of the REST API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client is a typed client for the chat REST endpoints.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the server at baseURL authenticating with token.
// A nil httpClient selects a client with a 10s timeout.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

func (c *Client) ListChats(ctx context.Context) ([]models.ChatView, error) {
	var resp struct {
		Chats []models.ChatView `json:"chats"`
	}
	err := c.do(ctx, http.MethodGet, "/api/chats", nil, &resp)
	return resp.Chats, err
}

func (c *Client) GetOrCreateChat(ctx context.Context, userID int, swapRequestID *int) (models.ChatView, error) {
	body := map[string]any{"user_id": userID}
	if swapRequestID != nil {
		body["swap_request_id"] = *swapRequestID
	}
	var resp struct {
		Chat models.ChatView `json:"chat"`
	}
	err := c.do(ctx, http.MethodPost, "/api/chats", body, &resp)
	return resp.Chat, err
}

func (c *Client) ListMessages(ctx context.Context, chatID, limit, skip int) ([]models.MessageView, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	path := "/api/chats/" + strconv.Itoa(chatID) + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Messages []models.MessageView `json:"messages"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Messages, err
}

// SendMessage stores a message and returns the canonical copy.
func (c *Client) SendMessage(ctx context.Context, chatID int, content string) (models.MessageView, error) {
	var resp struct {
		Message models.MessageView `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/api/chats/"+strconv.Itoa(chatID)+"/messages", map[string]string{"content": content}, &resp)
	return resp.Message, err
}

func (c *Client) MarkRead(ctx context.Context, chatID int) (int64, error) {
	var resp struct {
		Updated int64 `json:"updated"`
	}
	err := c.do(ctx, http.MethodPut, "/api/chats/"+strconv.Itoa(chatID)+"/messages/read", nil, &resp)
	return resp.Updated, err
}

func (c *Client) DeleteChat(ctx context.Context, chatID int) error {
	return c.do(ctx, http.MethodDelete, "/api/chats/"+strconv.Itoa(chatID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
