package presets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/config"
	memoryrepo "github.com/tendant/simple-catalog/pkg/simplecatalog/repo/memory"
	memorystorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/memory"
)

// Configuration Presets
//
// This package provides ready-made catalog services for common use cases.
// Presets eliminate boilerplate and provide sensible defaults while remaining customizable.

// NewDevelopment creates a service configured for local development.
//
// Features:
//   - Embedded badger database under <dir>/db (persistent across restarts)
//   - Filesystem storage under <dir>/assets
//   - Proxy asset URLs (/api/asset?key=...)
//   - Event logging enabled
//
// The returned cleanup function closes the service and removes the data directory.
//
// Example:
//
//	svc, cleanup, err := presets.NewDevelopment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewDevelopment(opts ...DevelopmentOption) (simplecatalog.Service, func(), error) {
	cfg := &devConfig{
		dataDir: "./dev-data",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	loadOpts := []config.Option{
		config.WithEnvironment("development"),
		config.WithDatabaseURL("badger://" + filepath.ToSlash(filepath.Join(cfg.dataDir, "db"))),
		config.WithStorageURL("file://" + filepath.ToSlash(filepath.Join(cfg.dataDir, "assets"))),
		config.WithEventLogging(true),
	}
	if len(cfg.categories) > 0 {
		loadOpts = append(loadOpts, config.WithCategories(cfg.categories...))
	}

	serverCfg, err := config.Load(loadOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build development config: %w", err)
	}

	svc, err := serverCfg.BuildService(context.Background())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	cleanup := func() {
		svc.Close()
		os.RemoveAll(cfg.dataDir)
	}
	return svc, cleanup, nil
}

// NewTesting creates a service configured for unit and integration tests.
//
// Features:
//   - In-memory repository and asset store (isolated per test)
//   - No event sinks
//   - Automatic Close via t.Cleanup()
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    svc := presets.NewTesting(t, presets.WithTestFixtures())
//	    // ...
//	}
func NewTesting(t testing.TB, opts ...TestingOption) simplecatalog.Service {
	t.Helper()
	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	options := append([]simplecatalog.Option{
		simplecatalog.WithRepository(memoryrepo.New()),
		simplecatalog.WithBlobStore(memorystorage.New()),
	}, cfg.options...)

	svc, err := simplecatalog.New(options...)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	if cfg.fixtures {
		if err := LoadFixtures(context.Background(), svc); err != nil {
			t.Fatalf("failed to load fixtures: %v", err)
		}
	}
	return svc
}

// NewProduction creates a service from the process environment for
// production deployment.
//
// Required Environment Variables:
//   - DATABASE_URL: postgres://, redis:// or badger:// (memory is rejected)
//   - STORAGE_URL: s3:// or file:// (memory is rejected)
//
// Optional Environment Variables:
//   - CDN_BASE_URL: serve thumbnails and packages from a CDN
//   - DB_SCHEMA, AWS_* and the rest of the server configuration
//
// Options are applied after the environment, so they win.
func NewProduction(ctx context.Context, opts ...config.Option) (simplecatalog.Service, error) {
	loadOpts := append([]config.Option{
		config.WithEnv(),
		config.WithEnvironment("production"),
	}, opts...)

	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseType() == "memory" {
		return nil, fmt.Errorf("production preset requires a persistent DATABASE_URL (memory not allowed in production)")
	}
	if cfg.StorageType() == "memory" {
		return nil, fmt.Errorf("production preset requires persistent storage (s3 or file, not memory)")
	}

	return cfg.BuildService(ctx)
}

// Fixtures are the sample entries loaded by WithTestFixtures, oldest first
var Fixtures = []Fixture{
	{Slug: "red-car", Metadata: `{"category":"Transportation","title":"Red Car","description":"A red sports car","keywords":["car","red","vehicle"]}`},
	{Slug: "green-apple", Metadata: `{"category":"Food","title":"Green Apple","keywords":["apple","fruit"]}`},
	{Slug: "mountain-sunset", Metadata: `{"category":"Nature","title":"Mountain Sunset","keywords":"sunset, mountain"}`},
}

// Fixture is one sample catalog entry
type Fixture struct {
	Slug     string
	Metadata string
}

// LoadFixtures ingests every fixture into svc
func LoadFixtures(ctx context.Context, svc simplecatalog.Service) error {
	for _, f := range Fixtures {
		_, err := svc.Ingest(ctx, simplecatalog.IngestRequest{
			MetadataName: f.Slug + ".json",
			Metadata:     strings.NewReader(f.Metadata),
			Image:        strings.NewReader("jpeg:" + f.Slug),
			Package:      strings.NewReader("zip:" + f.Slug),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Option types for customization

type devConfig struct {
	dataDir    string
	categories []string
}

type testConfig struct {
	fixtures bool
	options  []simplecatalog.Option
}

// DevelopmentOption is a functional option for NewDevelopment
type DevelopmentOption func(*devConfig)

// WithDevDataDir sets the development data directory
func WithDevDataDir(dir string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.dataDir = dir
	}
}

// WithDevCategories sets the known category list
func WithDevCategories(categories ...string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.categories = categories
	}
}

// TestingOption is a functional option for NewTesting
type TestingOption func(*testConfig)

// WithTestFixtures loads the sample Fixtures
func WithTestFixtures() TestingOption {
	return func(cfg *testConfig) {
		cfg.fixtures = true
	}
}

// WithServiceOptions passes extra options to simplecatalog.New, e.g. a clock
func WithServiceOptions(opts ...simplecatalog.Option) TestingOption {
	return func(cfg *testConfig) {
		cfg.options = append(cfg.options, opts...)
	}
}

// TestService is a convenience function that creates a test service
// This is an alias for NewTesting with no options
func TestService(t testing.TB) simplecatalog.Service {
	return NewTesting(t)
}
