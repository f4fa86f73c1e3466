package contentstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func newNode(t *testing.T) (*httptest.Server, *[]byte) {
	t.Helper()
	var uploaded []byte
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/add", func(w http.ResponseWriter, r *http.Request) {
		reader, err := r.MultipartReader()
		require.NoError(t, err)
		part, err := reader.NextPart()
		require.NoError(t, err)
		uploaded, err = io.ReadAll(part)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"Name":"`+sampleCID+`","Hash":"`+sampleCID+`","Size":"11"}`)
	})
	mux.HandleFunc("/api/v0/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"Version":"0.22.0"}`)
	})
	mux.HandleFunc("/api/v0/swarm/peers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"Peers":[]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &uploaded
}

func TestAddReturnsIdentifier(t *testing.T) {
	srv, uploaded := newNode(t)
	client, err := New(srv.URL, time.Second, nil)
	require.NoError(t, err)

	cid, err := client.Add(context.Background(), []byte("picture"))
	require.NoError(t, err)
	require.Equal(t, sampleCID, cid)
	require.Equal(t, "picture", string(*uploaded))
}

func TestAvailable(t *testing.T) {
	srv, _ := newNode(t)
	client, err := New(srv.URL, time.Second, nil)
	require.NoError(t, err)
	require.True(t, client.Available(context.Background()))

	srv.Close()
	require.False(t, client.Available(context.Background()))
}

func TestValidation(t *testing.T) {
	_, err := New(" ", 0, nil)
	require.Error(t, err)

	client, err := New("localhost:5001", 0, nil)
	require.NoError(t, err)
	_, err = client.Add(context.Background(), nil)
	require.Error(t, err)
}
