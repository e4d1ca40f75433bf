package testutil

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode"

	openai "github.com/sashabaranov/go-openai"
)

// FakeOpenAI serves the embeddings and streaming chat endpoints with
// deterministic output. Embeddings are hashed bags of words, so texts that
// share words have a positive cosine similarity.
type FakeOpenAI struct {
	Server     *httptest.Server
	Dimensions int
	// Answer is streamed word by word for every chat completion.
	Answer string

	mu      sync.Mutex
	prompts []string
}

// NewFakeOpenAI starts a fake provider and closes it when the test ends.
func NewFakeOpenAI(t *testing.T, dimensions int) *FakeOpenAI {
	t.Helper()

	f := &FakeOpenAI{Dimensions: dimensions, Answer: "Based on the knowledge base, here is the answer."}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/embeddings", f.embeddings)
	mux.HandleFunc("POST /v1/chat/completions", f.chat)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)

	return f
}

// BaseURL is the value for the client's base URL setting.
func (f *FakeOpenAI) BaseURL() string {
	return f.Server.URL + "/v1"
}

// SystemPrompts returns the system prompts of every chat request so far.
func (f *FakeOpenAI) SystemPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// Embed returns the vector the fake assigns to text.
func (f *FakeOpenAI) Embed(text string) []float32 {
	v := make([]float64, f.Dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[int(h.Sum32())%f.Dimensions]++
	}

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	out := make([]float32, f.Dimensions)
	if norm == 0 {
		out[0] = 1
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out
}

func (f *FakeOpenAI) embeddings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := openai.EmbeddingResponse{
		Object: "list",
		Model:  openai.EmbeddingModel(req.Model),
	}
	for i, input := range req.Input {
		resp.Data = append(resp.Data, openai.Embedding{
			Object:    "embedding",
			Embedding: f.Embed(input),
			Index:     i,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *FakeOpenAI) chat(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Messages) > 0 && req.Messages[0].Role == openai.ChatMessageRoleSystem {
		f.mu.Lock()
		f.prompts = append(f.prompts, req.Messages[0].Content)
		f.mu.Unlock()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	words := strings.SplitAfter(f.Answer, " ")
	for i, word := range words {
		chunk := openai.ChatCompletionStreamResponse{
			ID:     "chatcmpl-fake",
			Object: "chat.completion.chunk",
			Model:  req.Model,
			Choices: []openai.ChatCompletionStreamChoice{{
				Index: 0,
				Delta: openai.ChatCompletionStreamChoiceDelta{Content: word},
			}},
		}
		if i == len(words)-1 {
			chunk.Choices[0].FinishReason = openai.FinishReasonStop
		}
		data, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}
