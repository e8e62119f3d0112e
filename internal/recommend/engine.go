// Package recommend generates strategic review recommendations from
// aggregated metrics and sampled ticket summaries by calling an
// OpenAI-style chat gateway, and expands the result into the numbered
// deck tokens.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"qbr-generator-go/internal/deck"
	"qbr-generator-go/internal/logger"
	"qbr-generator-go/internal/metrics"
	"qbr-generator-go/internal/types"
)

const systemPrompt = `You are a senior IT consultant and customer success strategist specializing in Managed Service Providers (MSPs).
Your role is to analyze IT support data for a client and generate strategic, actionable recommendations that demonstrate the MSP's value and help the client improve their IT posture.

Your recommendations must:
1. Be a MIX of data-driven insights (grounded in the specific ticket data provided) AND general IT best practice recommendations relevant to the client's situation.
2. Be written in plain, executive-friendly language, no jargon.
3. Each have a SHORT TITLE (5 words or fewer) and a 1-2 sentence RATIONALE.
4. Be returned as a valid JSON array ONLY, with no preamble and no explanation outside JSON.

Output format:
[
  {
    "title": "Short Action Title",
    "rationale": "1-2 sentences explaining why this matters and what action to take."
  }
]`

// Input is everything the generator needs for one call.
type Input struct {
	ClientName      string
	ReviewPeriod    string
	Metrics         map[string]string // the six-key token map
	TicketSummaries []string
	Count           int
}

// Generate asks the configured LLM gateway for Count recommendations.
// Set USE_MOCK_LLM=true for a deterministic offline result.
func Generate(ctx context.Context, in Input) ([]types.Recommendation, error) {
	log := logger.Component("recommend")

	if in.Count <= 0 {
		in.Count = 3
	}

	if os.Getenv("USE_MOCK_LLM") == "true" {
		log.Info("mock LLM mode ON - returning deterministic recommendations")
		return mockRecommendations(in.Count), nil
	}

	gatewayURL := os.Getenv("LLM_GATEWAY_URL")
	apiKey := os.Getenv("LLM_API_KEY")
	model := os.Getenv("LLM_MODEL")
	if gatewayURL == "" || apiKey == "" {
		return nil, fmt.Errorf("llm gateway not configured")
	}

	reqBody := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildUserPrompt(in)},
		},
		"temperature": 0.2,
	}
	data, _ := json.Marshal(reqBody)

	ctx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, gatewayURL, bytes.NewReader(data))
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 45 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.WithError(err).Error("llm request failed")
		return nil, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		log.WithField("http_status", resp.StatusCode).Error("llm request rejected")
		return nil, fmt.Errorf("llm request: status %d", resp.StatusCode)
	}

	raw := contentFromChoices(body)
	if raw == "" {
		raw = string(body)
	}
	recs, err := ParseRecommendations(raw)
	if err != nil {
		return nil, err
	}
	log.WithField("count", len(recs)).Info("recommendations generated")
	return recs, nil
}

// buildUserPrompt formats metrics and sampled summaries into the request.
func buildUserPrompt(in Input) string {
	get := func(key string) string {
		if v, ok := in.Metrics[key]; ok && v != "" {
			return v
		}
		return "N/A"
	}
	metricsText := strings.Join([]string{
		"- Total Tickets: " + get(metrics.TokenTicketCount),
		"- Same-Day Resolution Rate: " + get(metrics.TokenSameDayRate) + "%",
		"- Average First Response Time: " + get(metrics.TokenAvgFirstResponse),
		"- Critical Issue Resolution Time: " + get(metrics.TokenCriticalResTime),
		"- Proactive Work: " + get(metrics.TokenProactivePct) + "%",
		"- Reactive Work: " + get(metrics.TokenReactivePct) + "%",
	}, "\n")

	var summaries strings.Builder
	n := 0
	for _, s := range in.TicketSummaries {
		if strings.TrimSpace(s) == "" {
			continue
		}
		n++
		fmt.Fprintf(&summaries, "%d. %s\n", n, s)
	}

	return fmt.Sprintf(`Please generate exactly %d strategic recommendations for the following MSP client QBR.

CLIENT: %s
REVIEW PERIOD: %s

--- AGGREGATED METRICS ---
%s

--- SAMPLE TICKET SUMMARIES (%d tickets sampled) ---
%s
Generate exactly %d recommendations as a JSON array.
Mix data-driven insights from the ticket summaries with general IT best practices.`,
		in.Count, in.ClientName, in.ReviewPeriod, metricsText, n, summaries.String(), in.Count)
}

// contentFromChoices pulls choices[0].message.content out of an
// OpenAI-style response body.
func contentFromChoices(body []byte) string {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Choices) == 0 {
		return ""
	}
	return parsed.Choices[0].Message.Content
}

// ParseRecommendations decodes model output into validated recommendations.
// Markdown code fences are stripped and, failing a direct decode, the first
// bracketed JSON array in the text is tried.
func ParseRecommendations(raw string) ([]types.Recommendation, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.Index(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}

	var recs []types.Recommendation
	if err := json.Unmarshal([]byte(text), &recs); err != nil {
		start := strings.Index(text, "[")
		end := strings.LastIndex(text, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON array in llm output")
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &recs); err != nil {
			return nil, fmt.Errorf("decode recommendations: %w", err)
		}
	}

	var validated []types.Recommendation
	for _, r := range recs {
		title := strings.TrimSpace(r.Title)
		rationale := strings.TrimSpace(r.Rationale)
		if title == "" && rationale == "" {
			continue
		}
		validated = append(validated, types.Recommendation{Title: title, Rationale: rationale})
	}
	if len(validated) == 0 {
		return nil, fmt.Errorf("llm returned no usable recommendations")
	}
	return validated, nil
}

// Replacements expands recommendations into the numbered deck tokens:
// {{RECOMMENDATION_1}}, {{RECOMMENDATION_2}}, ...
func Replacements(recs []types.Recommendation) map[string]string {
	out := map[string]string{}
	for i, r := range recs {
		text := r.Rationale
		if r.Title != "" {
			text = r.Title
			if r.Rationale != "" {
				text += ": " + r.Rationale
			}
		}
		out[deck.Token(fmt.Sprintf("RECOMMENDATION_%d", i+1))] = text
	}
	return out
}

// Manual wraps caller-typed recommendation texts, skipping blanks.
func Manual(texts []string) []types.Recommendation {
	var recs []types.Recommendation
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		recs = append(recs, types.Recommendation{
			Title:     fmt.Sprintf("Recommendation %d", i+1),
			Rationale: strings.TrimSpace(t),
		})
	}
	return recs
}

func mockRecommendations(count int) []types.Recommendation {
	all := []types.Recommendation{
		{Title: "Upgrade Legacy Workstations", Rationale: "Aging hardware drives recurring slow-performance tickets; a staged refresh removes the most frequent complaint category."},
		{Title: "Security Awareness Training", Rationale: "User-caused incidents respond well to short monthly training; this lowers reactive ticket volume."},
		{Title: "Review Backup Redundancy", Rationale: "Critical servers should survive a single-site failure; verify restore times quarterly."},
		{Title: "Expand Proactive Monitoring", Rationale: "A higher proactive share indicates healthier systems; extend monitoring to remaining endpoints."},
		{Title: "Quarterly Network Assessment", Rationale: "Scheduled infrastructure health checks catch capacity issues before they page anyone."},
		{Title: "Standardize Onboarding Checklist", Rationale: "Consistent account and device setup reduces first-week support requests for new staff."},
		{Title: "Patch Compliance Reporting", Rationale: "A monthly patch report keeps update gaps visible before they become incidents."},
		{Title: "Document Escalation Paths", Rationale: "Clear ownership for critical issues shortens resolution time on the highest priority tickets."},
		{Title: "Consolidate SaaS Licensing", Rationale: "A license review typically finds unused seats and simplifies access management."},
		{Title: "Test Incident Response Plan", Rationale: "A tabletop exercise validates the response plan while the stakes are low."},
	}
	if count > len(all) {
		count = len(all)
	}
	return all[:count]
}
