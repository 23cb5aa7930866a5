package files_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/pkg/files"
)

func TestPreviewURLRoundTrip(t *testing.T) {
	signer := files.NewSigner("secret", "http://localhost:8080", time.Minute)
	fileID := uuid.New()

	url, err := signer.PreviewURL(fileID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/v1/files/"+fileID.String()+"/preview?token="))

	token := url[strings.Index(url, "token=")+len("token="):]
	verified, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, fileID, verified)
}

func TestVerify_WrongSecret(t *testing.T) {
	signer := files.NewSigner("secret", "http://localhost:8080", time.Minute)
	other := files.NewSigner("other-secret", "http://localhost:8080", time.Minute)

	url, err := signer.PreviewURL(uuid.New())
	require.NoError(t, err)
	token := url[strings.Index(url, "token=")+len("token="):]

	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	signer := files.NewSigner("secret", "http://localhost:8080", -time.Minute)

	url, err := signer.PreviewURL(uuid.New())
	require.NoError(t, err)
	token := url[strings.Index(url, "token=")+len("token="):]

	_, err = signer.Verify(token)
	assert.Error(t, err)
}

func TestReSignText(t *testing.T) {
	signer := files.NewSigner("secret", "http://localhost:8080", time.Minute)
	fileID := uuid.New()

	text := "Here is your chart: /v1/files/" + fileID.String() + "/preview?token=stale-token and some trailing text"
	resigned := signer.ReSignText(text)

	assert.NotContains(t, resigned, "stale-token")
	assert.Contains(t, resigned, "/v1/files/"+fileID.String()+"/preview?token=")
	assert.True(t, strings.HasSuffix(resigned, "and some trailing text"))

	// The fresh token verifies against the same signer
	start := strings.Index(resigned, "token=") + len("token=")
	end := strings.IndexByte(resigned[start:], ' ')
	verified, err := signer.Verify(resigned[start : start+end])
	require.NoError(t, err)
	assert.Equal(t, fileID, verified)
}

func TestReSignText_LeavesPlainTextAlone(t *testing.T) {
	signer := files.NewSigner("secret", "http://localhost:8080", time.Minute)

	text := "No file links here, just an answer."
	assert.Equal(t, text, signer.ReSignText(text))
	assert.Equal(t, "", signer.ReSignText(""))
}

func TestReSignURL(t *testing.T) {
	signer := files.NewSigner("secret", "http://localhost:8080", time.Minute)
	fileID := uuid.New()

	local := "/v1/files/" + fileID.String() + "/preview?token=old"
	resigned := signer.ReSignURL(local)
	assert.NotEqual(t, local, resigned)
	assert.Contains(t, resigned, fileID.String())

	remote := "https://cdn.example.com/assets/logo.png"
	assert.Equal(t, remote, signer.ReSignURL(remote))
}
