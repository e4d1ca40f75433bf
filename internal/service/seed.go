package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// SeedDocuments is the built-in sample corpus loaded by the seed command.
var SeedDocuments = []domain.Document{
	seedDoc("React Server Components", "react", "docs",
		"React Server Components allow you to write components that render on the server. They reduce the JavaScript bundle sent to the client and improve performance. Server Components can directly access backend resources like databases."),
	seedDoc("React 19 useActionState Hook", "react", "docs",
		"The useActionState hook manages form submission states. It provides pending state, form data handling, and optimistic updates out of the box. It replaces the need for manual loading state management."),
	seedDoc("React Compiler", "react", "docs",
		"The React Compiler automatically memoizes components and hooks, eliminating the need for manual memo, useMemo, and useCallback. It analyzes your code at build time and optimizes re-renders."),

	seedDoc("Next.js App Router", "nextjs", "docs",
		"The App Router uses React Server Components by default. It supports nested layouts, loading states, and error boundaries. File-system based routing with app directory structure."),
	seedDoc("Next.js API Routes", "nextjs", "docs",
		"API Routes provide a solution to build your API with Next.js. Any file inside app/api folder is mapped to /api/* and treated as an API endpoint. They support streaming responses and edge runtime."),
	seedDoc("Next.js Server Actions", "nextjs", "docs",
		"Server Actions are asynchronous server functions that can be called from Client or Server Components. They provide type-safe API calls without manual fetch logic. Defined with use server directive."),
	seedDoc("Next.js Streaming", "nextjs", "docs",
		"Next.js supports streaming responses for better perceived performance. You can stream React components or API responses. Use Suspense boundaries and streaming-compatible data fetching."),

	seedDoc("RAG Overview", "rag", "theory",
		"Retrieval-Augmented Generation combines information retrieval with language generation. It retrieves relevant documents from a knowledge base and uses them to generate informed responses. Improves accuracy over pure LLM generation."),
	seedDoc("Vector Embeddings", "rag", "theory",
		"Vector embeddings convert text into numerical vectors that capture semantic meaning. Similar concepts have similar vectors. Used for semantic search by comparing vector similarity using cosine distance or dot product."),
	seedDoc("pgvector Extension", "rag", "theory",
		"pgvector adds vector similarity search to PostgreSQL. Supports multiple distance metrics including cosine, L2, and inner product. HNSW index provides fast approximate nearest neighbor search for large datasets."),
	seedDoc("Semantic Chunking", "rag", "theory",
		"Semantic chunking splits documents into meaningful segments. Chunk size affects retrieval quality and context window usage. Common strategies: fixed-size with overlap, sentence-based, or paragraph-based splitting."),

	seedDoc("Vercel AI SDK streamText", "ai-sdk", "docs",
		"The streamText function provides streaming text generation with any LLM provider. It handles SSE (Server-Sent Events) formatting automatically. Returns a readable stream that can be piped to the response."),
	seedDoc("Vercel AI SDK useChat Hook", "ai-sdk", "docs",
		"The useChat hook provides React integration for chat interfaces. Handles message state, streaming updates, and error handling. Automatically manages optimistic updates and loading states."),

	seedDoc("Supabase Client", "supabase", "docs",
		"Supabase provides a JavaScript client for interacting with Postgres. Supports realtime subscriptions, authentication, and storage. Use createClient with project URL and anon key for browser, service role key for server."),
	seedDoc("Supabase RPC Functions", "supabase", "docs",
		"RPC (Remote Procedure Call) functions allow you to call PostgreSQL functions from the client. Useful for complex queries and vector similarity search. Defined in SQL and called via supabase.rpc() method."),
}

func seedDoc(title, category, source, content string) domain.Document {
	return domain.Document{
		Title:    title,
		Content:  content,
		Metadata: map[string]any{domain.MetaCategory: category, domain.MetaSource: source},
	}
}

// SeedReport summarises a seed run
type SeedReport struct {
	Succeeded int                   `json:"succeeded"`
	Total     int                   `json:"total"`
	Chunks    int                   `json:"chunksCreated"`
	Failures  []string              `json:"failures,omitempty"`
	Results   []domain.IngestResult `json:"results"`
}

// Summary renders the report as human-readable text.
func (r *SeedReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Seeding completed: %d/%d documents stored (%d chunks)\n", r.Succeeded, r.Total, r.Chunks)
	if len(r.Failures) > 0 {
		b.WriteString("\nErrors:\n")
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}
	return b.String()
}

// Seed loads docs through the ingestion pipeline, one document at a time.
func Seed(ctx context.Context, ingester *IngestService, docs []domain.Document) *SeedReport {
	results := ingester.IngestEach(ctx, docs)

	report := &SeedReport{Total: len(docs), Results: results}
	for i, r := range results {
		report.Chunks += r.ChunksCreated
		if r.Success {
			report.Succeeded++
			continue
		}
		report.Failures = append(report.Failures, fmt.Sprintf("%s: %s", docLabel(docs[i], i), r.Message))
	}
	return report
}
