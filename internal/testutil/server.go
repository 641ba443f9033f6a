// A shared test server setup utility, which simplifies the integration
// tests that exercise the real HTTP client against the mock platform.

package testutil

import (
	"net/http/httptest"
	"testing"

	"github.com/oneclicksub/creatorctl/internal/platform"
	"github.com/oneclicksub/creatorctl/internal/platform/mockapi"
)

// TestToken is the bearer credential the mock platform accepts.
const TestToken = "test-token"

// SetupMockPlatform starts a mock platform server and returns it along
// with a client already authenticated against it.
func SetupMockPlatform(t *testing.T) (*mockapi.Server, *platform.Client) {
	t.Helper()

	mock := mockapi.New(TestToken)
	server := httptest.NewServer(mock.Router())
	t.Cleanup(server.Close)

	client, err := platform.New(server.URL, TestToken)
	if err != nil {
		t.Fatalf("Failed to create platform client: %v", err)
	}
	return mock, client
}
