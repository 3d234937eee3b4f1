// Package report calls the external report-generation collaborator. The
// core supplies event facts and accepts opaque prose back; a failure here
// never touches stored event state.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Facts are the event facts handed to the generator.
type Facts struct {
	Title            string
	Date             time.Time
	Location         string
	Description      string
	ParticipantCount int
	Capacity         int
}

// Generator produces free-text prose from event facts.
type Generator interface {
	Generate(ctx context.Context, facts Facts) (string, error)
}

// GeminiClient is a Generator backed by a Gemini-style generateContent
// endpoint.
type GeminiClient struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

// NewGeminiClient constructs a client for the given endpoint, model and key.
func NewGeminiClient(endpoint, model, apiKey string) *GeminiClient {
	return &GeminiClient{
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate builds the post-event summary prompt and returns the collaborator's
// prose unchanged.
func (c *GeminiClient) Generate(ctx context.Context, facts Facts) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(facts)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal report request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call report generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("report generator returned status %d", resp.StatusCode)
	}

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode report response: %w", err)
	}
	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("report generator returned no content")
	}
	return payload.Candidates[0].Content.Parts[0].Text, nil
}

func buildPrompt(facts Facts) string {
	return fmt.Sprintf(`Generate a detailed Post-Event Summary Report for the following event as plain text, without using any formatting symbols like asterisks or bold markers. Use line breaks and indentation for structure.

Post-Event Summary Report

Event Details:
Name of Event: %s
Date of Event: %s
Location of Event: %s
Number of Persons Attending: %d
Total Capacity: %d

Event Summary:

On %s, the event "%s" was hosted at %s. The event focused on %s and was attended by %d participants out of a total capacity of %d.

Assessment and Actionable Outcomes:

Summarize the event's success by highlighting its impact, participant satisfaction, and any actionable outcomes or future steps planned. Include recommendations based on the event data, such as improving attendance or defining clear objectives if applicable.

Conclusion:

Provide a concise conclusion summarizing the event's success and areas for improvement, ensuring the tone is professional and the structure follows the example of a formal event summary report.`,
		facts.Title, facts.Date.Format(time.RFC1123), facts.Location,
		facts.ParticipantCount, facts.Capacity,
		facts.Date.Format(time.RFC1123), facts.Title, facts.Location,
		facts.Description, facts.ParticipantCount, facts.Capacity,
	)
}
