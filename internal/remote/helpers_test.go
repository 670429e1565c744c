package remote

import (
	"testing"

	"github.com/google/go-github/v39/github"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/javelin/internal/remote/remotetest"
)

const (
	testOwner = "octo"
	testRepo  = "app"
	testToken = "ghp_test"
)

func newTestClient(t *testing.T, fake *remotetest.Server) *github.Client {
	t.Helper()

	client, err := NewClient(testToken,
		WithBaseURL(fake.URL()),
		WithUploadURL(fake.UploadURL()),
		WithHTTPClient(fake.HTTPClient()))
	require.NoError(t, err)

	return client
}
