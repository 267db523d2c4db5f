package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI implements ssmAPI for tests.
type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	lastIn *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func TestGetParameter_DecryptsSecureString(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("/letters/stripe"), Value: strPtr(`{"token":"sk_test"}`), Type: types.ParameterTypeSecureString,
	}}}
	client, err := New(api)
	require.NoError(t, err)

	v, err := client.GetParameter(context.Background(), " /letters/stripe ")
	require.NoError(t, err)
	require.Equal(t, `{"token":"sk_test"}`, v)
	require.Equal(t, "/letters/stripe", *api.lastIn.Name)
	require.True(t, *api.lastIn.WithDecryption)
}

func TestGetParameter_Failures(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	_, err = (&Client{}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "not initialized")

	client, _ := New(&fakeAPI{})
	_, err = client.GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")

	client, _ = New(&fakeAPI{getErr: errors.New("boom")})
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")

	client, _ = New(&fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p")}}})
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "missing value")
}

func TestStatic(t *testing.T) {
	s := Static{"/letters/open-ai-token": "sk-env"}
	v, err := s.GetParameter(context.Background(), "/letters/open-ai-token")
	require.NoError(t, err)
	require.Equal(t, "sk-env", v)

	_, err = s.GetParameter(context.Background(), "/letters/missing")
	require.ErrorContains(t, err, "not set")
}

func TestToken(t *testing.T) {
	ctx := context.Background()

	v, err := Token(ctx, Static{"k": `{"token":"sk-json"}`}, "k")
	require.NoError(t, err)
	require.Equal(t, "sk-json", v)

	v, err = Token(ctx, Static{"k": "  sk-raw \n"}, "k")
	require.NoError(t, err)
	require.Equal(t, "sk-raw", v)

	_, err = Token(ctx, Static{"k": `{"other":"x"}`}, "k")
	require.ErrorContains(t, err, "token is empty")

	_, err = Token(ctx, Static{"k": `{"broken`}, "k")
	require.ErrorContains(t, err, "unmarshal")

	_, err = Token(ctx, Static{}, "k")
	require.ErrorContains(t, err, "not set")

	_, err = Token(ctx, nil, "k")
	require.Error(t, err)
}
