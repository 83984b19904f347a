//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notedex/notedex/internal/api/handlers"
	"github.com/notedex/notedex/internal/repository"
	"github.com/notedex/notedex/internal/server"
	"github.com/notedex/notedex/internal/service"
	"github.com/notedex/notedex/internal/storage"
	"github.com/notedex/notedex/internal/testutil"
)

const (
	testBucket    = "notedex-docs"
	testAccessKey = "rustfsadmin"
	testSecretKey = "rustfsadmin"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	HTTPClient *http.Client

	s3 *s3.Client
}

// SetupE2EEnv creates a full test environment: Postgres, an S3-compatible
// store, and the HTTP API wired against both
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	rawS3 := newRawS3Client(ctx, t, s3C.Endpoint())
	if _, err := rawS3.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(testBucket)}); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	source, err := storage.NewS3Source(ctx, storage.S3SourceConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testAccessKey,
		SecretAccessKey: testSecretKey,
		Bucket:          testBucket,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 source: %v", err)
	}

	indexRepo := repository.NewIndexRepository(pool)
	searchSvc := service.NewSearchService(indexRepo)
	facetSvc := service.NewFacetService(indexRepo)
	answerSvc := service.NewAnswerService(searchSvc, nil)
	syncSvc := service.NewSyncService(source, indexRepo, 2)

	router := server.NewRouter(server.RouterConfig{
		SearchHandler: handlers.NewSearchHandler(searchSvc),
		FacetHandler:  handlers.NewFacetHandler(facetSvc),
		AnswerHandler: handlers.NewAnswerHandler(answerSvc),
		SyncHandler:   handlers.NewSyncHandler(syncSvc),
	})

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		Server:     httptest.NewServer(router),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		s3:         rawS3,
	}
}

// Cleanup tears down the server and containers
func (env *E2ETestEnv) Cleanup() {
	env.Server.Close()
	env.Pool.Close()
	_ = env.PostgresC.Terminate(env.Ctx)
	_ = env.RustFSC.Terminate(env.Ctx)
}

// PutDoc uploads a markdown document to the test bucket
func (env *E2ETestEnv) PutDoc(key, body string) {
	_, err := env.s3.PutObject(env.Ctx, &s3.PutObjectInput{
		Bucket: aws.String(testBucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(body),
	})
	if err != nil {
		env.T.Fatalf("failed to put object %s: %v", key, err)
	}
}

// DeleteDoc removes a document from the test bucket
func (env *E2ETestEnv) DeleteDoc(key string) {
	_, err := env.s3.DeleteObject(env.Ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(testBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		env.T.Fatalf("failed to delete object %s: %v", key, err)
	}
}

// APIResponse is the decoded success envelope plus the HTTP status
type APIResponse struct {
	Status int
	Data   json.RawMessage
	Error  string
}

// Get performs a GET request against the API
func (env *E2ETestEnv) Get(path string) (*APIResponse, error) {
	resp, err := env.HTTPClient.Get(env.Server.URL + path)
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp)
}

// Post performs a POST request against the API
func (env *E2ETestEnv) Post(path string) (*APIResponse, error) {
	resp, err := env.HTTPClient.Post(env.Server.URL+path, "application/json", nil)
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp)
}

func decodeResponse(resp *http.Response) (*APIResponse, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	out := &APIResponse{Status: resp.StatusCode}
	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response %q: %w", string(body), err)
	}
	out.Data = envelope.Data
	out.Error = envelope.Error
	return out, nil
}

func newRawS3Client(ctx context.Context, t *testing.T, endpoint string) *s3.Client {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(svc, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint, HostnameImmutable: true}, nil
		},
	)

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(testAccessKey, testSecretKey, ""),
		),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		t.Fatalf("failed to load AWS config: %v", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
}
