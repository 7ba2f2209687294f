package postaction

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropctl/dropctl/internal/call"
)

type fakeStore struct {
	persisted bool
}

func (f *fakeStore) PersistCallRecord(dropID, fullURL string, statusCode int, body string) error {
	f.persisted = true
	return nil
}

type fakeSecrets struct {
	sets []string
}

func (f *fakeSecrets) SetSecret(key, value, env string, overwrite bool) error {
	f.sets = append(f.sets, key+"="+value+"@"+env)
	return nil
}

func TestRun_PersistsAndPrintsUnconditionally(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	var out bytes.Buffer
	p := New(store, nil, &out, nil)

	record := &call.Record{
		DropID:     "users.get.byId",
		StatusCode: 200,
		Outputs:    []call.OutputRecord{{Key: "response.body.id", Value: "7"}},
	}

	p.Run(record, nil)

	require.True(t, store.persisted)
	require.Contains(t, out.String(), "users.get.byId -> 200")
	require.Contains(t, out.String(), "response.body.id = 7")
}

func TestRun_SetSecretWritesMatchingOutput(t *testing.T) {
	t.Parallel()

	secrets := &fakeSecrets{}
	p := New(&fakeStore{}, secrets, &bytes.Buffer{}, nil)

	record := &call.Record{
		DropID:  "auth.post.login",
		Outputs: []call.OutputRecord{{Key: "response.body.token", Value: "tok123"}},
	}
	after := []call.AfterAction{{Type: "set_secret", Input: "response.body.token", Key: "api_token", Env: "base", Overwrite: true}}

	p.Run(record, after)

	require.Equal(t, []string{"api_token=tok123@base"}, secrets.sets)
}

func TestRun_SetSecretNoMatchDoesNotPanic(t *testing.T) {
	t.Parallel()

	secrets := &fakeSecrets{}
	p := New(&fakeStore{}, secrets, &bytes.Buffer{}, nil)

	record := &call.Record{DropID: "x", Outputs: nil}
	after := []call.AfterAction{{Type: "set_secret", Input: "nonexistent", Key: "k"}}

	require.NotPanics(t, func() { p.Run(record, after) })
	require.Empty(t, secrets.sets)
}
