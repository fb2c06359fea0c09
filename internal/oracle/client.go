// Package oracle is the client for the external verification service that
// scores LeetCode submissions and quizzes.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the verification oracle over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Result is the oracle's verdict on a submission.
type Result struct {
	Success        bool   `json:"success"`
	Passed         bool   `json:"passed"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"total_questions"`
	Reward         int64  `json:"reward"`
	TxHash         string `json:"tx_hash"`
	Message        string `json:"message"`
}

func (c *Client) post(ctx context.Context, path string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("oracle error: %s - %s", resp.Status, string(b))
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// VerifyLeetCodeTask asks the oracle whether the user solved the problem.
func (c *Client) VerifyLeetCodeTask(ctx context.Context, address, leetcodeUsername, titleSlug string) (*Result, error) {
	return c.post(ctx, "/verify/leetcode-task", map[string]string{
		"address":           address,
		"leetcode_username": leetcodeUsername,
		"title_slug":        titleSlug,
	})
}

// VerifyLeetCodeAccount checks the verification token the user placed in
// their LeetCode profile summary.
func (c *Client) VerifyLeetCodeAccount(ctx context.Context, address, leetcodeUsername, token string) (*Result, error) {
	return c.post(ctx, "/verify/leetcode-account", map[string]string{
		"address":           address,
		"leetcode_username": leetcodeUsername,
		"token":             token,
	})
}

// VerifyQuiz scores a quiz submission.
func (c *Client) VerifyQuiz(ctx context.Context, address, quizID string, answers []int) (*Result, error) {
	return c.post(ctx, "/verify/quiz", map[string]any{
		"address": address,
		"quiz_id": quizID,
		"answers": answers,
	})
}
