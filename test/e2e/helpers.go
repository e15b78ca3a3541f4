//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nyayatech/nyaya/internal/api/handlers"
	"github.com/nyayatech/nyaya/internal/domain"
	"github.com/nyayatech/nyaya/internal/jobs"
	"github.com/nyayatech/nyaya/internal/repository"
	"github.com/nyayatech/nyaya/internal/server"
	"github.com/nyayatech/nyaya/internal/service"
	"github.com/nyayatech/nyaya/internal/storage"
	"github.com/nyayatech/nyaya/internal/testutil"
)

const embeddingDimensions = 1536

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	Weights      *service.WeightState
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and an
// in-process server. The embedding client and reasoning agents are
// deterministic fakes so runs never leave the network.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-audit",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}

	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, weights, serverCloser := startServer(t, pool, s3Client, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		Weights:      weights,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// WaitForStatus polls an authority until it reaches the wanted ingestion
// status or the timeout elapses.
func (e *E2ETestEnv) WaitForStatus(authorityID, want string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := e.Get("/authorities/" + authorityID)
		if err == nil {
			var authority struct {
				Status string `json:"status"`
			}
			if json.Unmarshal(resp.Data, &authority) == nil && authority.Status == want {
				return
			}
		}
		time.Sleep(250 * time.Millisecond)
	}
	e.T.Fatalf("authority %s never reached status %q", authorityID, want)
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response (%d): %s", resp.StatusCode, respBody)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}
	return &apiResp, nil
}

// fakeEmbedder produces deterministic unit vectors from token hashes so
// similar texts land near each other without any network dependency.
type fakeEmbedder struct{}

func (fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%embeddingDimensions] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

// fakeAgent votes for the top pack with a fixed decision and confidence.
type fakeAgent struct {
	name       string
	decision   string
	confidence float64
}

func (a fakeAgent) Name() string { return a.name }

func (a fakeAgent) Run(_ context.Context, query string, packs []domain.Pack) (domain.AgentVote, error) {
	vote := domain.AgentVote{
		AgentName:  a.name,
		Reasoning:  fmt.Sprintf("%s: %s", a.name, query),
		Decision:   a.decision,
		Confidence: a.confidence,
	}
	if len(packs) > 0 {
		paraIDs := make([]int, 0, len(packs[0].Paragraphs))
		for _, p := range packs[0].Paragraphs {
			paraIDs = append(paraIDs, p.ParaID)
		}
		vote.Sources = []domain.VoteSource{{AuthorityID: packs[0].AuthorityID, ParaIDs: paraIDs}}
	}
	return vote, nil
}

// auditSink mirrors the production fan-out: run_logs row plus S3 artifact.
type auditSink struct {
	runLogs   *repository.RunLogRepository
	artifacts *storage.S3Client
}

func (a *auditSink) RecordRun(ctx context.Context, result *service.AnswerResult) error {
	if err := a.runLogs.RecordRun(ctx, result); err != nil {
		return err
	}
	return a.artifacts.PutJSON(ctx, "runs/"+result.QueryID+".json", result)
}

func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, *service.WeightState, func()) {
	authorityRepo := repository.NewAuthorityRepository(pool)
	paragraphRepo := repository.NewParagraphRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	runLogRepo := repository.NewRunLogRepository(pool)

	embedder := fakeEmbedder{}
	segmenter := service.NewSegmenter(service.NewTokenCounter())
	ingestionSvc := service.NewIngestionService(segmenter, embedder, paragraphRepo, authorityRepo, chunkRepo)

	worker := jobs.NewWorker(jobs.NewIngestWorker(authorityRepo, ingestionSvc), 250*time.Millisecond)
	go worker.Start(context.Background())

	sources := []service.CandidateSource{
		repository.NewVectorSource(pool),
		repository.NewLexicalSource(pool),
		repository.NewCitationSource(pool),
	}
	retrievalSvc := service.NewRetrievalService(embedder, sources, service.TermOverlapReranker{}, authorityRepo)

	agents := []service.ReasoningAgent{
		fakeAgent{name: "issues", decision: "allowed", confidence: 0.9},
		fakeAgent{name: "precedent", decision: "allowed", confidence: 0.85},
		fakeAgent{name: "limitations", decision: "dismissed", confidence: 0.3},
	}
	runner := service.NewAgentRunner(agents, 5*time.Second)

	weights := service.NewWeightState([]string{"issues", "precedent", "limitations"})
	aggregator := service.NewAggregator(weights)

	answerSvc := service.NewAnswerService(retrievalSvc, runner, aggregator, &auditSink{
		runLogs:   runLogRepo,
		artifacts: s3Client,
	})

	router := server.NewRouter(server.RouterConfig{
		SearchHandler:    handlers.NewSearchHandler(retrievalSvc),
		AskHandler:       handlers.NewAskHandler(answerSvc),
		AuthorityHandler: handlers.NewAuthorityHandler(authorityRepo, paragraphRepo),
		WeightsHandler:   handlers.NewWeightsHandler(weights),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Errorf("server failed: %v", err)
		}
	}()

	url := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, url, 10*time.Second)

	closer := func() {
		worker.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
	return url, weights, closer
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("server never became ready")
}

func getFreePort() (int, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
