package media

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/example/guilda/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPresigner() *S3Presigner {
	client := s3.New(s3.Options{
		Region: "us-east-1",
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret"}, nil
		}),
	})
	p := NewS3PresignerFromClient(client, "guilda-photos")
	p.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	return p
}

func TestUploadURL(t *testing.T) {
	up, err := testPresigner().UploadURL(context.Background(), "u1", "minha foto.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "profile-pics/u1/20250304050607-minha_foto.jpg", up.Key)
	assert.Equal(t, time.Date(2025, 3, 4, 5, 11, 7, 0, time.UTC), up.ExpiresAt)

	u, err := url.Parse(up.URL)
	require.NoError(t, err)
	assert.Contains(t, u.Host+u.Path, "guilda-photos")
	assert.True(t, strings.HasSuffix(u.Path, "minha_foto.jpg"))
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.True(t, OwnsKey("u1", up.Key))
	assert.False(t, OwnsKey("u2", up.Key))
}

func TestUploadURLValidation(t *testing.T) {
	p := testPresigner()
	_, err := p.UploadURL(context.Background(), "u1", "x.gif", "image/gif")
	assert.True(t, apperr.IsValidation(err))
	_, err = p.UploadURL(context.Background(), "u1", "  ", "image/png")
	assert.True(t, apperr.IsValidation(err))
}

func TestUploadURLStripsPath(t *testing.T) {
	up, err := testPresigner().UploadURL(context.Background(), "u1", "../../etc/passwd.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "profile-pics/u1/20250304050607-passwd.png", up.Key)
}

func TestReadURL(t *testing.T) {
	p := testPresigner()
	got, err := p.ReadURL(context.Background(), "profile-pics/u1/a.jpg")
	require.NoError(t, err)
	assert.Contains(t, got, "X-Amz-Signature")

	_, err = p.ReadURL(context.Background(), "secrets/a.jpg")
	assert.True(t, apperr.IsValidation(err))
}

func TestValidatePhotos(t *testing.T) {
	assert.Error(t, ValidatePhotos([]string{"a", "b"}))
	assert.Error(t, ValidatePhotos([]string{"a", "b", " "}))
	assert.NoError(t, ValidatePhotos([]string{"a", "b", "c"}))
	assert.NoError(t, ValidatePhotos(make8()))
	assert.Error(t, ValidatePhotos(append(make8(), "i")))
}

func make8() []string { return []string{"a", "b", "c", "d", "e", "f", "g", "h"} }

func TestNewS3PresignerDisabled(t *testing.T) {
	_, err := NewS3Presigner(context.Background(), "", "us-east-1")
	assert.ErrorIs(t, err, ErrDisabled)
}
