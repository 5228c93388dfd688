package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Dreyzab/grenzwanderer-sub000/internal/handlers"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/quest"
)

// apiClient wraps the HTTP API for the console UI.
type apiClient struct {
	client  *http.Client
	baseURL string
}

func (a *apiClient) testConnection() bool {
	resp, err := a.client.Get(a.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (a *apiClient) post(path string, reqBody, respBody interface{}) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := a.client.Post(a.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp handlers.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("%s", errResp.Error)
	}

	if respBody != nil {
		if err := json.Unmarshal(body, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func (a *apiClient) get(path string, respBody interface{}) error {
	resp, err := a.client.Get(a.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var errResp handlers.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("%s", errResp.Error)
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (a *apiClient) createSession() (*handlers.SessionResponse, error) {
	var resp handlers.SessionResponse
	if err := a.post("/v1/sessions", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type actionResult struct {
	Result  quest.Result             `json:"result"`
	Session handlers.SessionResponse `json:"session"`
}

func (a *apiClient) dispatchAction(sessionID string, action quest.Action) (*actionResult, error) {
	var resp actionResult
	req := map[string]interface{}{"action": action}
	if err := a.post("/v1/sessions/"+sessionID+"/actions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type choiceResult struct {
	Outcome struct {
		Kind        string `json:"kind"`
		Reason      string `json:"reason,omitempty"`
		NextSceneID string `json:"next_scene_id,omitempty"`
	} `json:"outcome"`
	Session handlers.SessionResponse `json:"session"`
}

func (a *apiClient) resolveChoice(sessionID string, index int) (*choiceResult, error) {
	var resp choiceResult
	req := map[string]int{"index": index}
	if err := a.post("/v1/sessions/"+sessionID+"/choices", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type scanResult struct {
	Result  quest.Result             `json:"result"`
	Session handlers.SessionResponse `json:"session"`
}

func (a *apiClient) scanCode(sessionID, code string) (*scanResult, error) {
	var resp scanResult
	req := map[string]string{"session_id": sessionID, "code": code}
	if err := a.post("/v1/codes", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *apiClient) getSession(sessionID string) (*handlers.SessionResponse, error) {
	var resp handlers.SessionResponse
	if err := a.get("/v1/sessions/"+sessionID, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *apiClient) resetSession(sessionID string) (*handlers.SessionResponse, error) {
	var resp handlers.SessionResponse
	if err := a.post("/v1/sessions/"+sessionID+"/reset", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
