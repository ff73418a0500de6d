package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const extractTimeout = 120 * time.Second

const systemPrompt = `You extract knowledge graph data from text.
Respond with a single JSON object: {"entities": [{"name": "...", "type": "..."}], "relations": [{"source": "...", "target": "...", "fact": "..."}]}.
Entity types are short lowercase nouns (person, organization, technology, place, concept).
Each relation's source and target must be entity names from the entities list, and fact is one short sentence stating the relationship.
Extract only what the text states. No commentary, JSON only.`

// OllamaExtractor extracts entities and relations via the Ollama chat API.
type OllamaExtractor struct {
	ollamaURL string
	model     string
	client    *http.Client
}

// NewOllamaExtractor creates an OllamaExtractor for the given endpoint and model.
func NewOllamaExtractor(ollamaURL, model string) *OllamaExtractor {
	return &OllamaExtractor{
		ollamaURL: ollamaURL,
		model:     model,
		client:    &http.Client{Timeout: extractTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Format   string        `json:"format"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Extract analyzes text and returns the entities and relations it states.
func (e *OllamaExtractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	body, err := json.Marshal(chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Format: "json",
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.ollamaURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating extraction request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama chat API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain body so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20)) //nolint:errcheck // best-effort drain before close.
		return nil, fmt.Errorf("ollama chat API returned status %d", resp.StatusCode)
	}

	var result chatResponse

	limited := io.LimitReader(resp.Body, 10<<20) // 10 MB
	if err := json.NewDecoder(limited).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}

	extraction, err := parseExtraction(result.Message.Content)
	if err != nil {
		return nil, err
	}

	return extraction, nil
}

// parseExtraction decodes the model's JSON reply. Models occasionally wrap
// the object in prose or code fences, so parsing retries on the outermost
// brace-delimited span before giving up.
func parseExtraction(content string) (*Extraction, error) {
	var ex Extraction
	if err := json.Unmarshal([]byte(content), &ex); err == nil {
		return sanitize(&ex), nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("extraction reply contains no JSON object")
	}

	if err := json.Unmarshal([]byte(content[start:end+1]), &ex); err != nil {
		return nil, fmt.Errorf("decoding extraction JSON: %w", err)
	}

	return sanitize(&ex), nil
}

// sanitize drops empty entities and relations whose endpoints are not in the
// entity list, so the graph engine never writes dangling references.
func sanitize(ex *Extraction) *Extraction {
	names := make(map[string]bool, len(ex.Entities))
	entities := ex.Entities[:0]

	for _, ent := range ex.Entities {
		ent.Name = strings.TrimSpace(ent.Name)
		if ent.Name == "" || names[strings.ToLower(ent.Name)] {
			continue
		}

		names[strings.ToLower(ent.Name)] = true
		entities = append(entities, ent)
	}

	ex.Entities = entities

	relations := ex.Relations[:0]
	for _, rel := range ex.Relations {
		rel.Source = strings.TrimSpace(rel.Source)
		rel.Target = strings.TrimSpace(rel.Target)

		if rel.Fact == "" || !names[strings.ToLower(rel.Source)] || !names[strings.ToLower(rel.Target)] {
			continue
		}

		relations = append(relations, rel)
	}

	ex.Relations = relations

	return ex
}
