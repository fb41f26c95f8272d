package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"

	"github.com/emaland/pricedata/internal/awsutil"
	"github.com/emaland/pricedata/internal/cache"
	"github.com/emaland/pricedata/internal/lut"
	"github.com/emaland/pricedata/internal/spot"
)

// Shared test state, set once by TestMain.
var testClients awsutil.EC2Factory

func dockerAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	provider.Close()
	return true
}

func skipIfNoDocker(t *testing.T) {
	t.Helper()
	if testClients == nil {
		t.Skip("skipping: Docker/LocalStack not available")
	}
}

func TestMain(m *testing.M) {
	if !dockerAvailable() {
		fmt.Fprintln(os.Stderr, "Docker not available, only running unit tests (no LocalStack)")
		os.Exit(m.Run())
	}
	os.Exit(runWithLocalStack(m))
}

// runWithLocalStack starts a LocalStack container, configures the shared test
// clients, runs all tests, and tears down the container. Returning an int
// (instead of calling os.Exit directly) lets defers run for clean teardown.
func runWithLocalStack(m *testing.M) int {
	ctx := context.Background()

	container, err := localstack.Run(ctx, "localstack/localstack:latest",
		testcontainers.WithEnv(map[string]string{
			"SERVICES": "ec2,sts",
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start localstack: %v\n", err)
		return 1
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to terminate localstack container: %v\n", err)
		}
	}()

	mappedPort, err := container.MappedPort(ctx, nat.Port("4566/tcp"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		return 1
	}

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create docker provider: %v\n", err)
		return 1
	}
	defer provider.Close()

	host, err := provider.DaemonHost(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get daemon host: %v\n", err)
		return 1
	}

	endpoint := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "test")),
		config.WithBaseEndpoint(endpoint),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build AWS config: %v\n", err)
		return 1
	}

	// Per-region clients must also hit LocalStack.
	BaseEndpointOverride = endpoint
	testClients = awsutil.RegionalEC2(cfg, endpoint)

	return m.Run()
}

func TestLocalStackListRegions(t *testing.T) {
	skipIfNoDocker(t)
	ctx := context.Background()
	store := cache.New(t.TempDir(), zerolog.Nop())

	regions, err := lut.ListRegions(ctx, testClients("us-east-1"), store)
	if err != nil {
		t.Fatalf("ListRegions: %v", err)
	}
	if len(regions) == 0 {
		t.Fatal("expected at least one enabled region")
	}
	found := false
	for _, r := range regions {
		if r == "us-east-1" {
			found = true
		}
	}
	if !found {
		t.Errorf("us-east-1 missing from %v", regions)
	}
}

func TestLocalStackRegionsCommand(t *testing.T) {
	skipIfNoDocker(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_REGION", "us-east-1")

	var buf bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&buf)
	root.SetArgs([]string{"regions", "--cache-dir", t.TempDir(), "--log-level", "off"})
	if err := root.Execute(); err != nil {
		t.Fatalf("regions: %v", err)
	}
	if !strings.Contains(buf.String(), "us-east-1\n") {
		t.Errorf("regions output missing us-east-1: %q", buf.String())
	}
}

func TestLocalStackDescribeRegion(t *testing.T) {
	skipIfNoDocker(t)
	ctx := context.Background()
	store := cache.New(t.TempDir(), zerolog.Nop())

	descriptions, err := lut.DescribeRegion(ctx, testClients("us-east-1"), store, "us-east-1")
	if err != nil {
		t.Fatalf("DescribeRegion: %v", err)
	}
	desc, ok := descriptions["t3.micro"]
	if !ok {
		t.Fatalf("t3.micro missing from %d described types", len(descriptions))
	}
	if desc.VCPU != 2 || desc.MemoryMiB != 1024 {
		t.Errorf("t3.micro = %+v, want 2 vCPU / 1024 MiB", desc)
	}

	if _, err := os.Stat(store.Path(cache.Key{CallSite: "instance-types", Region: "us-east-1"})); err != nil {
		t.Errorf("per-region cache file missing: %v", err)
	}
}

func TestLocalStackSpotRecordsCapped(t *testing.T) {
	skipIfNoDocker(t)
	ctx := context.Background()

	r := &spot.Reporter{
		Clients:            testClients,
		Store:              cache.New(t.TempDir(), zerolog.Nop()),
		InstanceType:       "t3.micro",
		ProductDescription: "Linux/UNIX",
		MaxResults:         10,
	}
	table := lut.Table{"us-east-1": {"t3.micro": {VCPU: 2, MemoryMiB: 1024, Arch: "x86_64"}}}
	records, err := r.Records(ctx, "us-east-1", table)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) > 10 {
		t.Errorf("got %d records, want at most 10", len(records))
	}
	for _, rec := range records {
		if rec.InstanceType == "t3.micro" && rec.VCPU != 2 {
			t.Errorf("record %+v did not pick up vcpu from the table", rec)
		}
	}
}
