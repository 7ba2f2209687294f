package caller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropctl/dropctl/internal/call"
	"github.com/dropctl/dropctl/internal/dropvalue"
)

func TestSend_SuccessfulCallResolvesOutputs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": 7, "name": "widget"}`))
	}))
	defer srv.Close()

	_, ops, err := dropvalue.ParseTraversalPath("response.body.id")
	require.NoError(t, err)

	c := New(nil)
	record, err := c.Send(context.Background(), call.Call{
		DropID:  "users.get.byId",
		Method:  call.MethodGet,
		BaseURL: srv.URL,
		Path:    "/",
		Outputs: []call.Output{{Path: "response.body.id", Ops: ops}},
	})
	require.NoError(t, err)
	require.True(t, record.IsSuccessfulCall)
	require.Equal(t, http.StatusOK, record.StatusCode)
	require.Len(t, record.Outputs, 1)
	require.Equal(t, "response.body.id", record.Outputs[0].Key)
	require.Equal(t, "7", record.Outputs[0].Value)
}

func TestSend_HttpFailureStillProducesRecord(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "bad"}`))
	}))
	defer srv.Close()

	c := New(nil)
	record, err := c.Send(context.Background(), call.Call{
		DropID:  "users.post.create",
		Method:  call.MethodPost,
		BaseURL: srv.URL,
		Path:    "/",
	})
	require.NoError(t, err)
	require.False(t, record.IsSuccessfulCall)
	require.Equal(t, http.StatusBadRequest, record.StatusCode)
}

func TestSend_TransportErrorOnUnreachableHost(t *testing.T) {
	t.Parallel()

	c := New(nil)
	_, err := c.Send(context.Background(), call.Call{
		DropID:  "users.get.byId",
		Method:  call.MethodGet,
		BaseURL: "http://127.0.0.1:1",
		Path:    "/",
	})
	require.Error(t, err)
}
