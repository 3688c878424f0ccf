package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/companyai/rag-backend/api"
	"github.com/companyai/rag-backend/config"
	"github.com/companyai/rag-backend/database"
	"github.com/companyai/rag-backend/documents"
	"github.com/companyai/rag-backend/embeddings"
	"github.com/companyai/rag-backend/indexing"
	"github.com/companyai/rag-backend/llm"
	"github.com/companyai/rag-backend/rag"
	"github.com/companyai/rag-backend/search"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("load .env: %v", err)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "ask":
		askCmd(cfg, logger, os.Args[2:])
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.HTTPAddr, "HTTP listen address")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool := mustPool(ctx, cfg, logger)
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
		logger.Fatalf("ensure schema: %v", err)
	}

	docSvc, indexSvc, searchSvc, ragSvc := buildServices(cfg, pool, logger)
	server := api.New(docSvc, indexSvc, searchSvc, ragSvc, logger)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("http shutdown: %v", err)
		}
	}()

	logger.Printf("listening on %s using %s/%s embeddings", *addr, strings.ToUpper(cfg.Embeddings.Provider), cfg.Embeddings.Model)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server: %v", err)
	}
}

func ingestCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	companyFlag := flags.String("company", "", "company UUID owning the documents")
	companyName := flags.String("company-name", "default", "company name used when the company is created")
	dir := flags.String("dir", "", "directory of documents to upload and index")
	file := flags.String("file", "", "single document to upload and index")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ingest flags: %v", err)
	}

	if *dir == "" && *file == "" {
		logger.Fatal("ingest requires --dir or --file")
	}
	companyID, err := uuid.Parse(*companyFlag)
	if err != nil {
		logger.Fatalf("ingest requires a valid --company UUID: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool := mustPool(ctx, cfg, logger)
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
		logger.Fatalf("ensure schema: %v", err)
	}
	if err := database.EnsureCompany(ctx, pool, companyID.String(), *companyName); err != nil {
		logger.Fatalf("ensure company: %v", err)
	}

	docSvc, indexSvc, _, _ := buildServices(cfg, pool, logger)

	paths, err := collectPaths(*dir, *file)
	if err != nil {
		logger.Fatalf("collect input files: %v", err)
	}
	if len(paths) == 0 {
		logger.Fatal("no supported documents found")
	}

	for _, path := range paths {
		if err := ingestOne(ctx, docSvc, indexSvc, companyID, path, logger); err != nil {
			logger.Printf("ingest %s: %v", path, err)
		}
	}
}

func ingestOne(ctx context.Context, docSvc *documents.Service, indexSvc *indexing.Service, companyID uuid.UUID, path string, logger *log.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	doc, err := docSvc.Upload(ctx, companyID, filepath.Base(path), "", data)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if doc.Status != documents.StatusParsed {
		return fmt.Errorf("extraction failed: %s", doc.ErrorMessage)
	}

	chunks, err := indexSvc.Index(ctx, companyID, doc.ID)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	logger.Printf("ingested %s as %s (%d chunks)", filepath.Base(path), doc.ID, chunks)
	return nil
}

func collectPaths(dir, file string) ([]string, error) {
	if file != "" {
		return []string{file}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if documents.DetectFormat(entry.Name()) == documents.FormatUnknown {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

func askCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	companyFlag := flags.String("company", "", "company UUID to query")
	question := flags.String("question", "", "question to ask")
	topK := flags.Int("top-k", cfg.RAG.TopK, "number of context chunks to retrieve")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}

	companyID, err := uuid.Parse(*companyFlag)
	if err != nil {
		logger.Fatalf("ask requires a valid --company UUID: %v", err)
	}

	if strings.TrimSpace(*question) == "" {
		fmt.Print("Enter your question: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			*question = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Fatalf("read question: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool := mustPool(ctx, cfg, logger)
	defer pool.Close()

	_, _, _, ragSvc := buildServices(cfg, pool, logger)

	resp, err := ragSvc.Answer(ctx, companyID, *question, *topK)
	if err != nil {
		logger.Fatalf("answer failed: %v", err)
	}

	fmt.Println(resp.Answer)
	fmt.Printf("\nConfidence: %s\n", resp.Confidence)
	if len(resp.Sources) > 0 {
		fmt.Println("Sources:")
		for idx, source := range resp.Sources {
			if source.Heading != "" {
				fmt.Printf("%d. %s - %s\n", idx+1, source.Filename, source.Heading)
			} else {
				fmt.Printf("%d. %s\n", idx+1, source.Filename)
			}
			for _, quote := range source.Quotes {
				fmt.Printf("   \"%s\"\n", quote)
			}
		}
	}
}

func clearCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse clear flags: %v", err)
	}

	if !*confirmed {
		fmt.Print("This will permanently delete all documents and chunks for every company. Continue? [y/N]: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				logger.Fatalf("read confirmation: %v", err)
			}
			logger.Println("clear aborted")
			return
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			logger.Println("clear aborted")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool := mustPool(ctx, cfg, logger)
	defer pool.Close()

	if _, err := pool.Exec(ctx, "TRUNCATE document_chunks, documents"); err != nil {
		logger.Fatalf("truncate tables: %v", err)
	}
	logger.Println("cleared documents and document_chunks")
}

func mustPool(ctx context.Context, cfg config.Config, logger *log.Logger) *pgxpool.Pool {
	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	return pool
}

func buildServices(cfg config.Config, pool *pgxpool.Pool, logger *log.Logger) (*documents.Service, *indexing.Service, *search.Service, *rag.Service) {
	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}
	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	docSvc := documents.NewService(documents.NewPostgresStore(pool), cfg.UploadDir, cfg.MaxUploadBytes(), logger)
	indexSvc := indexing.NewService(documents.NewPostgresStore(pool), indexing.NewPostgresChunkStore(pool), embedder, logger, cfg.Embeddings.Dimension, cfg.ChunkSize, cfg.ChunkOverlap)
	searchSvc := search.NewService(embedder, search.NewPostgresStore(pool), cfg.Embeddings.Dimension, logger)
	ragSvc := rag.NewService(searchSvc, llmClient, logger, cfg.RAG.TopK, cfg.RAG.MaxContextChars, cfg.RAG.MinSimilarity)

	return docSvc, indexSvc, searchSvc, ragSvc
}

func printUsage() {
	fmt.Println("Usage: rag-backend <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP API")
	fmt.Println("  ingest   Upload and index documents for a company (--company, --dir or --file)")
	fmt.Println("  ask      Ask a question against a company's indexed documents")
	fmt.Println("  clear    Remove all documents and chunks")
}
