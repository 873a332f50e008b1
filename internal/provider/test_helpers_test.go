package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/terraform-plugin-framework/providerserver"
	"github.com/hashicorp/terraform-plugin-go/tfprotov6"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
)

// Test environment configuration constants.
const (
	// Environment variables for test configuration.
	envTestLDAPURL  = "DIRECTORY_TEST_LDAP_URL"
	envTestBaseDN   = "DIRECTORY_TEST_BASE_DN"
	envTestUsername = "DIRECTORY_TEST_USERNAME"
	envTestPassword = "DIRECTORY_TEST_PASSWORD"
	envTestUseTLS   = "DIRECTORY_TEST_USE_TLS"

	defaultTestBaseDN = "dc=example,dc=com"

	// Test object name prefixes to avoid conflicts.
	testGroupPrefix = "tf-test-group-"
	testUserPrefix  = "tftest"
)

// testConfig holds the acceptance test environment.
type testConfig struct {
	LDAPURL  string
	BaseDN   string
	Username string
	Password string
	UseTLS   bool
}

func getTestConfig() *testConfig {
	baseDN := os.Getenv(envTestBaseDN)
	if baseDN == "" {
		baseDN = defaultTestBaseDN
	}
	return &testConfig{
		LDAPURL:  os.Getenv(envTestLDAPURL),
		BaseDN:   baseDN,
		Username: os.Getenv(envTestUsername),
		Password: os.Getenv(envTestPassword),
		UseTLS:   os.Getenv(envTestUseTLS) != "false",
	}
}

func isAccTest() bool {
	return os.Getenv("TF_ACC") != ""
}

// testAccProtoV6ProviderFactories serves a fresh provider for every
// Terraform command run by an acceptance test.
var testAccProtoV6ProviderFactories = map[string]func() (tfprotov6.ProviderServer, error){
	"directory": providerserver.NewProtocol6WithError(New("acctest")()),
}

func testAccPreCheck(t *testing.T) {
	testAccPreCheckWithConfig(t)
}

// testAccPreCheckWithConfig skips the test unless TF_ACC is set and a
// directory is configured.
func testAccPreCheckWithConfig(t *testing.T) *testConfig {
	t.Helper()
	if !isAccTest() {
		t.Skip("Skipping acceptance test - set TF_ACC=1 to run")
	}

	config := getTestConfig()
	if config.LDAPURL == "" {
		t.Skipf("Skipping test: %s must be set", envTestLDAPURL)
	}
	if config.Username == "" || config.Password == "" {
		t.Skipf("Skipping test: %s and %s must be set", envTestUsername, envTestPassword)
	}
	return config
}

// testAccProviderConfig renders the provider block for acceptance tests.
func testAccProviderConfig() string {
	config := getTestConfig()

	var b strings.Builder
	b.WriteString("provider \"directory\" {\n")
	fmt.Fprintf(&b, "  ldap_url             = %q\n", config.LDAPURL)
	fmt.Fprintf(&b, "  base_dn              = %q\n", config.BaseDN)
	fmt.Fprintf(&b, "  username             = %q\n", config.Username)
	fmt.Fprintf(&b, "  password             = %q\n", config.Password)
	fmt.Fprintf(&b, "  use_tls              = %t\n", config.UseTLS)
	b.WriteString("  bootstrap_containers = true\n")
	b.WriteString("}\n")
	return b.String()
}

// generateTestName returns a unique name with prefix.
func generateTestName(prefix string) string {
	timestamp := time.Now().Format("20060102-150405")
	return fmt.Sprintf("%s%s-%s", prefix, timestamp, uuid.NewString()[:8])
}

// generateTestUID returns a unique uid within the 64 character limit.
func generateTestUID() string {
	return testUserPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// testFixture creates prerequisite entries directly through the directory
// core and removes them when the test ends.
type testFixture struct {
	t        *testing.T
	sessions *ldapclient.SessionManager
	created  []ldapclient.Object
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	config := testAccPreCheckWithConfig(t)

	connConfig := ldapclient.DefaultConfig()
	connConfig.URL = config.LDAPURL
	connConfig.BaseDN = config.BaseDN
	connConfig.Username = config.Username
	connConfig.Password = config.Password
	connConfig.UseTLS = config.UseTLS

	sessions, err := ldapclient.NewSessionManager(connConfig)
	if err != nil {
		t.Fatalf("Failed to create session manager for test fixture: %v", err)
	}

	f := &testFixture{t: t, sessions: sessions}
	t.Cleanup(f.cleanup)
	return f
}

func (f *testFixture) withDirectory(fn func(ctx context.Context, dir *ldapclient.Directory, s *ldapclient.Session) error) {
	f.t.Helper()
	ctx := context.Background()

	s, err := f.sessions.Open(ctx)
	if err != nil {
		f.t.Fatalf("Failed to open fixture session: %v", err)
	}
	defer f.sessions.Release(s)

	if err := fn(ctx, ldapclient.NewDirectory(f.sessions.Layout(), ldapclient.NopLogger{}, nil), s); err != nil {
		f.t.Fatalf("Fixture operation failed: %v", err)
	}
}

// CreateUser inserts a user with uid and returns its DN.
func (f *testFixture) CreateUser(uid string) string {
	f.t.Helper()

	var dn string
	f.withDirectory(func(ctx context.Context, dir *ldapclient.Directory, s *ldapclient.Session) error {
		if _, err := dir.EnsureContainers(ctx, s); err != nil {
			return err
		}

		store := dir.Bind(s)
		user, err := ldapclient.NewUser(dir.Layout()).
			SetUID(ctx, store, uid).
			SetCN("Fixture").
			SetSN("User").
			SetMail(ctx, store, uid+"@example.com").
			SetPassword("fixture-password", "fixture-password").
			Result()
		if err != nil {
			return err
		}
		if err := dir.Insert(ctx, s, user); err != nil {
			return err
		}
		f.created = append(f.created, user)
		dn = user.DN()
		return nil
	})
	return dn
}

func (f *testFixture) cleanup() {
	defer f.sessions.Close()
	if len(f.created) == 0 {
		return
	}

	ctx := context.Background()
	s, err := f.sessions.Open(ctx)
	if err != nil {
		f.t.Logf("Failed to open cleanup session: %v", err)
		return
	}
	defer f.sessions.Release(s)

	dir := ldapclient.NewDirectory(f.sessions.Layout(), ldapclient.NopLogger{}, nil)
	for i := len(f.created) - 1; i >= 0; i-- {
		obj := f.created[i]
		if err := dir.Delete(ctx, s, obj); err != nil && !ldapclient.IsNotFoundError(err) {
			f.t.Logf("Failed to clean up test entry: %v", err)
		}
	}
}
