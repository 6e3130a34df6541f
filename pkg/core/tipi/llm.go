package tipi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"google.golang.org/genai"
)

// LLMExtractor is a fallback for PDF editions whose text layout defeats the
// line patterns: the page text is handed to a Gemini model that returns the
// table rows as JSON.
type LLMExtractor struct {
	Model string // default "gemini-2.0-flash-exp"
}

const extractionPrompt = `You are a Brazilian tax table extraction assistant.

You are given text extracted from the official TIPI publication (Tabela de
Incidência do Imposto sobre Produtos Industrializados).

Extract ONLY the rows where the NCM code is exactly in the format 0000.00.00
(four digits, dot, two digits, dot, two digits).

Rules:
1. ncm: keep it exactly as printed, e.g. "2204.30.00".
2. descricao: the full Portuguese description. If it is broken across lines,
   join it into a single line separated by spaces.
3. aliquota: the IPI rate as shown, numeric only (e.g. "0", "5", "10") or
   the literal "NT" for não tributado. No percent sign.

Output a JSON array, nothing else:
[{"ncm": "...", "descricao": "...", "aliquota": "..."}]

Be exhaustive: include every valid NCM row in the text.`

// ExtractFromText asks the model to parse the given page text into rows.
// Model output is passed through json-repair before decoding since LLMs
// routinely emit trailing commas or markdown fences.
func (e *LLMExtractor) ExtractFromText(ctx context.Context, pageText string) ([]Row, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("tipi: GEMINI_API_KEY environment variable not set")
	}

	model := e.Model
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("tipi: create GenAI client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0)),
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: extractionPrompt}},
		},
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(pageText), config)
	if err != nil {
		return nil, fmt.Errorf("tipi: extraction request failed: %w", err)
	}

	raw := strings.TrimSpace(result.Text())
	if raw == "" {
		return nil, fmt.Errorf("tipi: model returned empty content")
	}

	return decodeRows(raw)
}

func decodeRows(raw string) ([]Row, error) {
	var rows []Row
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		repaired, repErr := jsonrepair.RepairJSON(raw)
		if repErr != nil {
			return nil, fmt.Errorf("tipi: model output is not JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &rows); err != nil {
			return nil, fmt.Errorf("tipi: repaired model output still invalid: %w", err)
		}
	}

	// Keep only well-formed rows; the model occasionally invents heading
	// entries without a rate.
	out := rows[:0]
	for _, r := range rows {
		if ncmLineStart.MatchString(r.NCM) && r.Aliquota != "" {
			out = append(out, r)
		}
	}
	return out, nil
}
